// Package fuzzy is the approximate-match fallback used when alias
// resolution comes up empty. Scores are Levenshtein similarity over
// normalized strings; ties break by shorter edit distance, then earliest
// position in the candidate list, so results are stable.
package fuzzy

import (
	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Austin-J-B/tomcat/pkg/textnorm"
)

type Match struct {
	Value    string // original candidate, not the normalized form
	Score    float64
	Distance int
}

// Matcher holds the acceptance thresholds. A score at or above Accept always
// passes; a score at or above LenBias passes only when query and candidate
// are within LenDelta characters of each other.
type Matcher struct {
	Accept   float64
	LenBias  float64
	LenDelta int
}

func NewMatcher(accept, lenBias float64, lenDelta int) *Matcher {
	return &Matcher{Accept: accept, LenBias: lenBias, LenDelta: lenDelta}
}

// Best returns the single best acceptable candidate for query, or false when
// nothing clears the thresholds. At most one match, never a guess.
func (m *Matcher) Best(query string, candidates []string) (Match, bool) {
	q := textnorm.Normalize(query)
	if q == "" || len(candidates) == 0 {
		return Match{}, false
	}

	best := Match{Distance: -1}
	for _, cand := range candidates {
		c := textnorm.Normalize(cand)
		if c == "" {
			continue
		}
		dist := lfuzzy.LevenshteinDistance(q, c)
		score := similarity(dist, len(q), len(c))
		if best.Distance == -1 || score > best.Score ||
			(score == best.Score && dist < best.Distance) {
			best = Match{Value: cand, Score: score, Distance: dist}
		}
	}
	if best.Distance == -1 {
		return Match{}, false
	}

	if best.Score >= m.Accept {
		return best, true
	}
	if best.Score >= m.LenBias && absInt(len(q)-len(textnorm.Normalize(best.Value))) <= m.LenDelta {
		return best, true
	}
	return Match{}, false
}

// Similarity reports the raw score of one pair with no acceptance gate.
func (m *Matcher) Similarity(a, b string) float64 {
	na, nb := textnorm.Normalize(a), textnorm.Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return similarity(lfuzzy.LevenshteinDistance(na, nb), len(na), len(nb))
}

func similarity(dist, lenA, lenB int) float64 {
	longest := lenA
	if lenB > longest {
		longest = lenB
	}
	if longest == 0 {
		return 0
	}
	s := 1.0 - float64(dist)/float64(longest)
	if s < 0 {
		return 0
	}
	return s
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
