// Package addressing decides whether a message is directed at the bot at
// all. It is deliberately context-free: channel allowlists are the router's
// business, not this detector's.
package addressing

import (
	"strings"

	"github.com/Austin-J-B/tomcat/pkg/textnorm"
)

type Reason string

const (
	ReasonWakeWord Reason = "wake_word"
	ReasonMention  Reason = "mention"
	ReasonDM       Reason = "dm"
	ReasonNone     Reason = "none"
)

type Result struct {
	Addressed bool
	Reason    Reason
	// Body is the text with the wake-word prefix stripped, normalized.
	// Equal to the normalized input when no wake word matched.
	Body string
}

// Detector recognizes wake-word prefixes. Wake words are normalized once at
// construction.
type Detector struct {
	wakeWords []string
}

func NewDetector(wakeWords []string) *Detector {
	d := &Detector{}
	for _, w := range wakeWords {
		if n := textnorm.Normalize(w); n != "" {
			d.wakeWords = append(d.wakeWords, n)
		}
	}
	return d
}

// Detect classifies one message. isDirect marks private conversations;
// mentionsBot marks an explicit platform mention of the bot account.
func (d *Detector) Detect(text string, isDirect, mentionsBot bool) Result {
	body := textnorm.Normalize(text)

	if stripped, ok := d.stripWake(body); ok {
		return Result{Addressed: true, Reason: ReasonWakeWord, Body: stripped}
	}
	if mentionsBot {
		return Result{Addressed: true, Reason: ReasonMention, Body: body}
	}
	if isDirect {
		return Result{Addressed: true, Reason: ReasonDM, Body: body}
	}
	return Result{Addressed: false, Reason: ReasonNone, Body: body}
}

func (d *Detector) stripWake(normText string) (string, bool) {
	for _, w := range d.wakeWords {
		if normText == w {
			return "", true
		}
		if strings.HasPrefix(normText, w+" ") {
			return strings.TrimSpace(normText[len(w):]), true
		}
	}
	return normText, false
}
