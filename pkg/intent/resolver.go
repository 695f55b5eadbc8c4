// Package intent turns one normalized message into one Decision. The
// pipeline is layered: deterministic command and verb rules backed by the
// alias resolver run first, the fuzzy matcher fills entity gaps, and the
// optional zero-shot scorer is a gated backstop that is never allowed to
// lead. The first stage to clear its bar wins; when nothing does, the
// decision is none and the bot stays quiet.
package intent

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/fuzzy"
	"github.com/Austin-J-B/tomcat/pkg/logger"
	"github.com/Austin-J-B/tomcat/pkg/nlp"
	"github.com/Austin-J-B/tomcat/pkg/registry"
	"github.com/Austin-J-B/tomcat/pkg/when"
)

var (
	showPat       = regexp.MustCompile(`\b(show\s*me|show)\b`)
	whoPat        = regexp.MustCompile(`\b(who\s+is|whos|whois)\b`)
	identPat      = regexp.MustCompile(`\b(identify|id)\b`)
	detectPat     = regexp.MustCompile(`\b(detect|find\s+the\s+cats?)\b`)
	cropPat       = regexp.MustCompile(`\b(crop)\b`)
	feedVerb      = regexp.MustCompile(`\b(fed|feed(?:ed)?|filled|topped(?:\s*off)?)\b`)
	subVerb       = regexp.MustCompile(`\b(sub|substitute|cover|cover\s+me|can\s+someone|anyone\s+able)\b`)
	acceptPat     = regexp.MustCompile(`\b(sure|ill\s+cover|i\s+can\s+cover|i\s+got\s+it|i\s+can\s+take)\b`)
	feedingCheck  = regexp.MustCompile(`^(?:who(?:s|\s+is)\s+(?:been\s+)?fed(?:\s+today)?|which\s+stations?\s+(?:have|has|havent|hasnt)\s*(?:been\s+)?fed(?:\s+today)?)$`)
	feedingUpdate = regexp.MustCompile(`^feeding\s+(update|status)$`)
	whoThis       = regexp.MustCompile(`^who(?:s|\s+is)\s+this$`)
	silentCmd     = regexp.MustCompile(`\bsilent\s*mode\s+(on|off)\b`)
	membersCmd    = regexp.MustCompile(`^members(\s+count)?$`)
)

// how long a sub request keeps bare accept phrases meaningful in a chat
const subAcceptWindow = 30 * time.Minute

// Resolver runs the layered pipeline. Safe for concurrent use; the only
// mutable state is the per-chat recency of sub requests.
type Resolver struct {
	cfg    config.IntentsConfig
	reg    *registry.Registry
	fz     *fuzzy.Matcher
	scorer nlp.Scorer
	dates  *when.Extractor

	mu          sync.Mutex
	lastSubSeen map[string]time.Time
}

// backstop candidate labels: the scorer is only trusted for the two
// high-traffic flows where silence is costly.
var backstopLabels = []string{string(KindFeedUpdate), string(KindSubRequest)}

func NewResolver(cfg config.IntentsConfig, reg *registry.Registry, scorer nlp.Scorer, dates *when.Extractor) *Resolver {
	return &Resolver{
		cfg:         cfg,
		reg:         reg,
		fz:          fuzzy.NewMatcher(cfg.FuzzyAccept, cfg.FuzzyLenBias, cfg.FuzzyLenDelta),
		scorer:      scorer,
		dates:       dates,
		lastSubSeen: make(map[string]time.Time),
	}
}

// Input is everything resolution may look at for one message.
type Input struct {
	Msg         bus.InboundMessage
	Body        string // normalized text, wake word stripped when addressed
	Addressed   bool
	Allowlisted bool // chat permits the unaddressed feeding flows
	Now         time.Time
}

// Resolve produces exactly one Decision. Pure with respect to the message:
// the same Input yields the same Kind, Confidence and Source every time.
func (r *Resolver) Resolve(ctx context.Context, in Input) Decision {
	if strings.TrimSpace(in.Body) == "" {
		return none("")
	}

	attempts := []func(context.Context, Input) (Decision, bool){
		r.attemptCommands,
		r.attemptFeeding,
		r.attemptSub,
		r.attemptBackstop,
	}
	for _, attempt := range attempts {
		if d, ok := attempt(ctx, in); ok {
			if d.Kind == KindSubRequest {
				r.noteSubRequest(chatKey(in.Msg), in.Now)
			}
			return d
		}
	}
	return none(in.Body)
}

// attemptCommands covers the addressed command surface: show/who/identify,
// feeding status, silent mode, member count.
func (r *Resolver) attemptCommands(_ context.Context, in Input) (Decision, bool) {
	if !in.Addressed {
		return Decision{}, false
	}
	body := in.Body

	if m := silentCmd.FindStringSubmatch(body); m != nil {
		return Decision{Kind: KindSilentMode, Confidence: 1.0, Source: StageAlias, Span: body, SilentOn: m[1] == "on"}, true
	}
	if whoThis.MatchString(body) {
		return Decision{Kind: KindCVIdentify, Confidence: 0.95, Source: StageAlias, Span: body}, true
	}
	if feedingUpdate.MatchString(body) || feedingCheck.MatchString(body) {
		return Decision{Kind: KindFeedingStatus, Confidence: 0.95, Source: StageAlias, Span: body}, true
	}
	if membersCmd.MatchString(body) {
		return Decision{Kind: KindMembersCount, Confidence: 1.0, Source: StageAlias, Span: body}, true
	}

	if showPat.MatchString(body) {
		if ent, stage, score, ok := r.extractEntity(body, registry.KindCat); ok {
			return Decision{Kind: KindShowPhoto, Confidence: score, Source: stage, Span: body, Entities: []registry.Match{ent}}, true
		}
		// a show command with no resolvable cat stays silent
		return none(body), true
	}
	if whoPat.MatchString(body) {
		if ent, stage, score, ok := r.extractEntity(body, registry.KindCat); ok {
			return Decision{Kind: KindShowProfile, Confidence: score, Source: stage, Span: body, Entities: []registry.Match{ent}}, true
		}
		return none(body), true
	}
	if cropPat.MatchString(body) {
		return Decision{Kind: KindCVCrop, Confidence: 0.95, Source: StageAlias, Span: body}, true
	}
	if detectPat.MatchString(body) {
		return Decision{Kind: KindCVDetect, Confidence: 0.95, Source: StageAlias, Span: body}, true
	}
	if identPat.MatchString(body) {
		return Decision{Kind: KindCVIdentify, Confidence: 0.95, Source: StageAlias, Span: body}, true
	}
	return Decision{}, false
}

// attemptFeeding handles the high-traffic feed updates: "mike fed",
// "filled west hall yesterday", or a bare station name with a photo.
func (r *Resolver) attemptFeeding(_ context.Context, in Input) (Decision, bool) {
	if !in.Addressed && !in.Allowlisted {
		return Decision{}, false
	}
	body := in.Body

	if feedVerb.MatchString(body) {
		if ent, stage, score, ok := r.extractEntity(body, registry.KindStation); ok {
			dates := r.dates.Dates(body, in.Now)
			if len(dates) == 0 {
				dates = []string{r.dates.DayOf(in.Now)}
			}
			conf := 0.95
			if score < conf {
				conf = score
			}
			return Decision{Kind: KindFeedUpdate, Confidence: conf, Source: stage, Span: body,
				Entities: []registry.Match{ent}, Dates: dates}, true
		}
		return Decision{}, false
	}

	// bare station mention: with a photo it reads as a fed report, without
	// one it is only a low-confidence hint that needs clarifying. Sub
	// phrasing is someone else's business.
	if subVerb.MatchString(body) || acceptPat.MatchString(body) {
		return Decision{}, false
	}
	if ent, stage, score, ok := r.extractEntity(body, registry.KindStation); ok {
		today := []string{r.dates.DayOf(in.Now)}
		if in.Msg.HasImage() {
			conf := 0.9
			if score < conf {
				conf = score
			}
			return Decision{Kind: KindFeedUpdate, Confidence: conf, Source: stage, Span: body,
				Entities: []registry.Match{ent}, Dates: today}, true
		}
		if in.Allowlisted {
			return Decision{Kind: KindFeedUpdate, Confidence: 0.72, Source: stage, Span: body,
				Entities: []registry.Match{ent}, Dates: today}, true
		}
	}
	return Decision{}, false
}

// attemptSub handles sub requests and their accepts.
func (r *Resolver) attemptSub(_ context.Context, in Input) (Decision, bool) {
	if !in.Addressed && !in.Allowlisted {
		return Decision{}, false
	}
	body := in.Body

	if subVerb.MatchString(body) {
		stations := r.reg.Resolve(body, registry.KindStation)
		dates := r.dates.Dates(body, in.Now)
		conf := 0.75
		if len(stations) > 0 && len(dates) > 0 {
			conf = 0.9
		}
		return Decision{Kind: KindSubRequest, Confidence: conf, Source: StageAlias, Span: body,
			Entities: stations, Dates: dates}, true
	}

	if acceptPat.MatchString(body) {
		if in.Msg.ReplyToID != "" {
			return Decision{Kind: KindSubAccept, Confidence: 0.9, Source: StageAlias, Span: body}, true
		}
		if r.recentSubRequest(chatKey(in.Msg), in.Now) {
			return Decision{Kind: KindSubAccept, Confidence: 0.8, Source: StageAlias, Span: body}, true
		}
	}
	return Decision{}, false
}

// attemptBackstop is the confidence-gated scorer. It only runs when every
// deterministic stage declined, and its failure mode is silence.
func (r *Resolver) attemptBackstop(ctx context.Context, in Input) (Decision, bool) {
	if r.scorer == nil {
		return Decision{}, false
	}
	if !in.Addressed && !in.Allowlisted {
		return Decision{}, false
	}
	body := in.Body
	if len(body) < 3 {
		return Decision{}, false
	}

	res, err := r.scorer.Score(ctx, body, backstopLabels)
	if err != nil {
		// scorer trouble is never surfaced; the pipeline just has no result
		logger.DebugCF("intent", "backstop scorer unavailable", map[string]any{"error": err.Error()})
		return Decision{}, false
	}
	if res.Score < r.cfg.ConfMid {
		return Decision{}, false
	}

	switch Kind(res.Label) {
	case KindFeedUpdate:
		ent, _, _, ok := r.extractEntity(body, registry.KindStation)
		if !ok {
			return Decision{}, false
		}
		today := []string{r.dates.DayOf(in.Now)}
		return Decision{Kind: KindFeedUpdate, Confidence: res.Score, Source: StageNLP, Span: body,
			Entities: []registry.Match{ent}, Dates: today}, true
	case KindSubRequest:
		stations := r.reg.Resolve(body, registry.KindStation)
		return Decision{Kind: KindSubRequest, Confidence: res.Score, Source: StageNLP, Span: body,
			Entities: stations, Dates: r.dates.Dates(body, in.Now)}, true
	}
	return Decision{}, false
}

// extractEntity finds one entity of the kind: alias resolution first, then
// a fuzzy pass over the longest token. Returns the match, the stage that
// produced it, and a confidence.
func (r *Resolver) extractEntity(body string, kind registry.Kind) (registry.Match, Stage, float64, bool) {
	if m, ok := r.reg.ResolveOne(body, kind); ok {
		return m, StageAlias, 1.0, true
	}

	token := longestToken(body)
	if token == "" {
		return registry.Match{}, StageNone, 0, false
	}
	if fm, ok := r.fz.Best(token, r.reg.Names(kind)); ok {
		return registry.Match{
			Kind:     kind,
			EntityID: fm.Value,
			Span:     token,
			Type:     registry.MatchFuzzy,
		}, StageFuzzy, fm.Score, true
	}
	return registry.Match{}, StageNone, 0, false
}

func longestToken(body string) string {
	best := ""
	for _, tok := range strings.Fields(body) {
		if len(tok) > len(best) {
			best = tok
		}
	}
	return best
}

func (r *Resolver) noteSubRequest(key string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSubSeen[key] = now
}

func (r *Resolver) recentSubRequest(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.lastSubSeen[key]
	return ok && now.Sub(ts) <= subAcceptWindow
}

func chatKey(msg bus.InboundMessage) string {
	return msg.Channel + ":" + msg.ChatID
}
