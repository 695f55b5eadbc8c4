package intent

import (
	"github.com/Austin-J-B/tomcat/pkg/registry"
)

// Kind is the closed set of intents the bot acts on.
type Kind string

const (
	KindNone          Kind = "none"
	KindShowPhoto     Kind = "show_photo"
	KindShowProfile   Kind = "show_profile"
	KindCVIdentify    Kind = "cv_identify"
	KindCVDetect      Kind = "cv_detect"
	KindCVCrop        Kind = "cv_crop"
	KindFeedUpdate    Kind = "feed_update"
	KindSubRequest    Kind = "sub_request"
	KindSubAccept     Kind = "sub_accept"
	KindFeedingStatus Kind = "feeding_status"
	KindSilentMode    Kind = "silent_mode"
	KindMembersCount  Kind = "members_count"
)

// NeedsImage reports whether the intent cannot run without an image and is
// therefore eligible for the pairing window.
func (k Kind) NeedsImage() bool {
	switch k {
	case KindCVIdentify, KindCVDetect, KindCVCrop:
		return true
	}
	return false
}

// Stage names which layer produced a decision.
type Stage string

const (
	StageAlias Stage = "alias"
	StageFuzzy Stage = "fuzzy"
	StageNLP   Stage = "nlp"
	StageNone  Stage = "none"
)

// Decision is the single resolved intent for one message. It is constructed
// once and never mutated; a re-run of resolution produces a new value.
type Decision struct {
	Kind       Kind
	Confidence float64
	Source     Stage
	Entities   []registry.Match
	Span       string   // normalized text the decision keyed on
	Dates      []string // ISO dates, feed/sub intents only
	SilentOn   bool     // silent_mode argument
}

// Entity returns the first resolved entity name, or "".
func (d Decision) Entity() string {
	if len(d.Entities) == 0 {
		return ""
	}
	return d.Entities[0].EntityID
}

func none(span string) Decision {
	return Decision{Kind: KindNone, Confidence: 0, Source: StageNone, Span: span}
}
