// Package spam computes one Verdict per message. Trusted senders skip
// scoring entirely; everyone else runs through the cheap deterministic
// checks first and the optional entailment model last. The first signal
// to trigger names the verdict, but every score that was computed stays
// in the verdict for audit.
package spam

import (
	"context"
	"regexp"
	"strings"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/fuzzy"
	"github.com/Austin-J-B/tomcat/pkg/logger"
	"github.com/Austin-J-B/tomcat/pkg/nlp"
	"github.com/Austin-J-B/tomcat/pkg/textnorm"
)

// Verdict is the engine's only output. Computed once per message and
// never retried.
type Verdict struct {
	IsSpam               bool               `json:"is_spam"`
	DecisionReason       string             `json:"decision_reason,omitempty"`
	ContributingScores   map[string]float64 `json:"contributing_scores"`
	TrustOverrideApplied bool               `json:"trust_override_applied"`
}

// signal names, also the decision_reason vocabulary
const (
	ReasonPhonePattern    = "phone_pattern"
	ReasonEmailPattern    = "email_pattern"
	ReasonSpamPhrase      = "spam_phrase"
	ReasonDMBait          = "dm_bait"
	ReasonGiveaway        = "giveaway_pattern"
	ReasonFuzzyPhrase     = "fuzzy_phrase"
	ReasonModelEntailment = "model_entailment"
)

var (
	phonePat    = regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`)
	emailPat    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	dmBaitPat   = regexp.MustCompile(`\b(dm|message|text|hit)\s+me\b|\bcheck\s+my\s+(bio|profile)\b`)
	giveawayPat = regexp.MustCompile(`\b(free|giveaway|winner|claim\s+your|limited\s+(time|offer))\b.*\b(free|giveaway|winner|prize|dm|claim)\b|\bgiveaway\b`)
)

// minimum digit count before phonePat is believed; keeps dates and cat
// counts out of the phone signal
const phoneMinDigits = 8

// heuristic checks in decision order
type heuristic struct {
	name  string
	match func(raw, normalized string) bool
}

var heuristics = []heuristic{
	{ReasonPhonePattern, func(raw, _ string) bool {
		m := phonePat.FindString(raw)
		return m != "" && digitCount(m) >= phoneMinDigits
	}},
	{ReasonEmailPattern, func(raw, _ string) bool { return emailPat.MatchString(raw) }},
	{ReasonDMBait, func(_, normalized string) bool { return dmBaitPat.MatchString(normalized) }},
	{ReasonGiveaway, func(_, normalized string) bool { return giveawayPat.MatchString(normalized) }},
}

// Engine scores messages against the configured trust policy, phrase
// list and optional entailment scorer. Stateless and safe for
// concurrent use.
type Engine struct {
	cfg     config.SpamConfig
	phrases []string
	fz      *fuzzy.Matcher
	scorer  nlp.Scorer
	trusted map[string]bool
}

// entailment labels for the optional model stage
var entailLabels = []string{"spam", "not spam"}

func NewEngine(cfg config.SpamConfig, scorer nlp.Scorer) *Engine {
	phrases := make([]string, 0, len(cfg.Phrases))
	for _, p := range cfg.Phrases {
		if n := textnorm.Normalize(p); n != "" {
			phrases = append(phrases, n)
		}
	}
	trusted := make(map[string]bool, len(cfg.TrustedRoles))
	for _, role := range cfg.TrustedRoles {
		trusted[strings.ToLower(strings.TrimSpace(role))] = true
	}
	return &Engine{
		cfg:     cfg,
		phrases: phrases,
		fz:      fuzzy.NewMatcher(cfg.FuzzyThreshold, cfg.FuzzyThreshold, 0),
		scorer:  scorer,
		trusted: trusted,
	}
}

// Check produces the verdict for one message. Trust is decided before
// any text is inspected: a trusted sender is never spam no matter what
// the message contains.
func (e *Engine) Check(ctx context.Context, msg bus.InboundMessage) Verdict {
	v := Verdict{ContributingScores: map[string]float64{}}
	if !e.cfg.Enabled {
		return v
	}
	if e.isTrusted(msg.Trust) {
		v.TrustOverrideApplied = true
		return v
	}

	raw := msg.Content
	normalized := textnorm.Normalize(raw)

	for _, h := range heuristics {
		score := 0.0
		if h.match(raw, normalized) {
			score = 1.0
		}
		v.ContributingScores[h.name] = score
	}
	for _, phrase := range e.phrases {
		if strings.Contains(normalized, phrase) {
			v.ContributingScores[ReasonSpamPhrase] = 1.0
			break
		}
	}

	// first heuristic trigger decides
	for _, name := range []string{ReasonPhonePattern, ReasonEmailPattern, ReasonSpamPhrase, ReasonDMBait, ReasonGiveaway} {
		if v.ContributingScores[name] >= 1.0 {
			v.IsSpam = true
			v.DecisionReason = name
			return e.finish(ctx, v, normalized, true)
		}
	}

	return e.finish(ctx, v, normalized, false)
}

// finish runs the remaining audit-only or deciding stages. The fuzzy
// score is always computed; the model is consulted only when nothing
// deterministic has already decided.
func (e *Engine) finish(ctx context.Context, v Verdict, normalized string, decided bool) Verdict {
	if score, ok := e.fuzzyPhraseScore(normalized); ok {
		v.ContributingScores[ReasonFuzzyPhrase] = score
		if !decided && score >= e.cfg.FuzzyThreshold {
			v.IsSpam = true
			v.DecisionReason = ReasonFuzzyPhrase
			decided = true
		}
	}

	if decided || e.scorer == nil {
		return v
	}

	res, err := e.scorer.Score(ctx, normalized, entailLabels)
	if err != nil {
		// scorer trouble degrades to not-spam, same as every other
		// uncertain stage
		logger.DebugCF("spam", "entailment scorer unavailable", map[string]any{"error": err.Error()})
		return v
	}
	if res.Label != "spam" {
		v.ContributingScores[ReasonModelEntailment] = 0
		return v
	}
	v.ContributingScores[ReasonModelEntailment] = res.Score
	if res.Score >= e.cfg.ModelThreshold {
		v.IsSpam = true
		v.DecisionReason = ReasonModelEntailment
	}
	return v
}

// fuzzyPhraseScore slides a phrase-sized token window over the message
// and reports the best similarity against the phrase list.
func (e *Engine) fuzzyPhraseScore(normalized string) (float64, bool) {
	if len(e.phrases) == 0 {
		return 0, false
	}
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return 0, false
	}

	best := 0.0
	for _, phrase := range e.phrases {
		width := len(strings.Fields(phrase))
		if width == 0 {
			continue
		}
		if width > len(tokens) {
			width = len(tokens)
		}
		for i := 0; i+width <= len(tokens); i++ {
			segment := strings.Join(tokens[i:i+width], " ")
			if m, ok := e.fz.Best(segment, []string{phrase}); ok && m.Score > best {
				best = m.Score
			} else if !ok {
				// keep the sub-threshold score for audit too
				if s := e.fz.Similarity(segment, phrase); s > best {
					best = s
				}
			}
		}
	}
	return best, true
}

func (e *Engine) isTrusted(t bus.Trust) bool {
	if t.IsAdmin {
		return true
	}
	if e.cfg.MinAccountDays > 0 && t.AccountAgeDays >= e.cfg.MinAccountDays {
		return true
	}
	for _, role := range t.Roles {
		if e.trusted[strings.ToLower(strings.TrimSpace(role))] {
			return true
		}
	}
	return false
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
