// Package nlp wraps the optional zero-shot scorers. Every scorer is a
// black box behind a latency budget: it returns the best label with a score
// in [0,1], and any failure or timeout is reported as an error the caller
// treats as "no result". Nothing in this package ever guesses.
package nlp

import (
	"context"
	"fmt"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/config"
)

// Scorer scores text against a fixed candidate label set, entailment style,
// and returns the best-scoring label.
type Scorer interface {
	Score(ctx context.Context, text string, labels []string) (Result, error)
}

type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// FromConfig builds the configured scorer, or nil when the backstop is
// disabled. A nil scorer is a valid state: deterministic stages simply run
// without one.
func FromConfig(cfg config.NLPConfig) (Scorer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	budget := time.Duration(cfg.BudgetMS) * time.Millisecond
	if budget <= 0 {
		budget = 2500 * time.Millisecond
	}
	switch cfg.Provider {
	case "", "sidecar":
		return NewSidecarScorer(cfg.BaseURL, budget), nil
	case "openai":
		return NewOpenAIScorer(cfg.BaseURL, cfg.APIKey, cfg.Model, budget), nil
	default:
		return nil, fmt.Errorf("unknown nlp provider: %q", cfg.Provider)
	}
}
