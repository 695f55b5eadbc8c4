// Package registry holds the static entity roster (cats and feeding
// stations) and the deterministic alias resolver that maps free text onto
// canonical entity names. Resolution never consults a model: same text in,
// same matches out.
package registry

import (
	"sort"
	"strings"

	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/textnorm"
)

type Kind string

const (
	KindCat     Kind = "cat"
	KindStation Kind = "station"
)

type MatchType string

const (
	MatchWholeWord          MatchType = "whole_word"
	MatchUnambiguousPartial MatchType = "unambiguous_partial"
	// MatchFuzzy marks entities recovered by the fuzzy fallback rather than
	// this resolver; the resolver itself never emits it.
	MatchFuzzy MatchType = "fuzzy"
)

// Match is one resolved entity mention. EntityID is the canonical display
// name; Span is the alias text that matched; Pos is its offset in the
// normalized text, used only for ordering.
type Match struct {
	Kind     Kind
	EntityID string
	Span     string
	Type     MatchType
	Pos      int
}

type entity struct {
	name     string
	variants []string // normalized whole-word forms, registry order preserved
	tokens   []string // unique variant tokens for partial matching
}

// Registry is built once from config and immutable afterwards.
type Registry struct {
	cats        []entity
	stations    []entity
	stationStop map[string]bool
	meta        map[Kind]map[string]config.EntityConfig
}

const minPartialLen = 3

func New(cfg config.RegistryConfig) *Registry {
	stop := make(map[string]bool, len(cfg.StationStopwords))
	for _, w := range cfg.StationStopwords {
		stop[textnorm.Normalize(w)] = true
	}
	none := map[string]bool{}

	r := &Registry{
		stationStop: stop,
		meta: map[Kind]map[string]config.EntityConfig{
			KindCat:     {},
			KindStation: {},
		},
	}
	for _, e := range cfg.Cats {
		r.cats = append(r.cats, buildEntity(e, none))
		r.meta[KindCat][e.Name] = e
	}
	// Station names collide with everyday words far more often than cat
	// names do, so the stopword list applies to stations only.
	for _, e := range cfg.Stations {
		r.stations = append(r.stations, buildEntity(e, stop))
		r.meta[KindStation][e.Name] = e
	}
	return r
}

// Profile returns the registry entry behind a canonical name.
func (r *Registry) Profile(kind Kind, entityID string) (config.EntityConfig, bool) {
	e, ok := r.meta[kind][entityID]
	return e, ok
}

func buildEntity(e config.EntityConfig, stop map[string]bool) entity {
	var variants []string
	seen := map[string]bool{}
	add := func(v string) {
		v = textnorm.Normalize(v)
		if v == "" || seen[v] || stop[v] {
			return
		}
		seen[v] = true
		variants = append(variants, v)
	}

	add(e.Name)
	if tight := textnorm.Tight(e.Name); tight != "" {
		add(tight)
	}
	for _, nick := range e.Nicknames {
		add(nick)
		add(textnorm.Tight(nick))
		// multi-word nicknames also match on their individual tokens,
		// e.g. "tito" out of "Tito FluffyButt"
		for _, tok := range textnorm.Tokens(nick) {
			add(tok)
		}
	}

	tokenSeen := map[string]bool{}
	var tokens []string
	for _, v := range variants {
		for _, tok := range strings.Fields(v) {
			if len(tok) < minPartialLen || tokenSeen[tok] || stop[tok] {
				continue
			}
			tokenSeen[tok] = true
			tokens = append(tokens, tok)
		}
	}

	return entity{name: e.Name, variants: variants, tokens: tokens}
}

// Names returns the canonical display names for one kind, in registry order.
// This is the vocabulary handed to the fuzzy matcher.
func (r *Registry) Names(kind Kind) []string {
	ents := r.entities(kind)
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.name)
	}
	return out
}

func (r *Registry) entities(kind Kind) []entity {
	if kind == KindCat {
		return r.cats
	}
	return r.stations
}

// Resolve finds every entity of the given kind mentioned in text, ordered by
// position. Whole-word alias hits win outright. Only when no whole-word hit
// exists is a partial (token-prefix) match attempted, and it is accepted only
// when exactly one entity qualifies; two or more candidates resolve to
// nothing rather than a guess.
func (r *Registry) Resolve(text string, kind Kind) []Match {
	normText := textnorm.Normalize(text)
	if normText == "" {
		return nil
	}
	padded := " " + normText + " "

	var matches []Match
	for _, e := range r.entities(kind) {
		best := -1
		span := ""
		for _, v := range e.variants {
			idx := strings.Index(padded, " "+v+" ")
			if idx < 0 {
				continue
			}
			// prefer the earliest, then the longest alias at that spot
			if best == -1 || idx < best || (idx == best && len(v) > len(span)) {
				best = idx
				span = v
			}
		}
		if best >= 0 {
			matches = append(matches, Match{
				Kind:     kind,
				EntityID: e.name,
				Span:     span,
				Type:     MatchWholeWord,
				Pos:      best,
			})
		}
	}
	if len(matches) > 0 {
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Pos < matches[j].Pos })
		return matches
	}

	if m, ok := r.resolvePartial(normText, kind); ok {
		return []Match{m}
	}
	return nil
}

// ResolveOne returns the first match for the kind, if any.
func (r *Registry) ResolveOne(text string, kind Kind) (Match, bool) {
	ms := r.Resolve(text, kind)
	if len(ms) == 0 {
		return Match{}, false
	}
	return ms[0], true
}

func (r *Registry) resolvePartial(normText string, kind Kind) (Match, bool) {
	tokens := strings.Fields(normText)

	type hit struct {
		entityIdx int
		span      string
		pos       int
	}
	var hits []hit
	seenEntities := map[int]bool{}

	for pos, tok := range tokens {
		if len(tok) < minPartialLen {
			continue
		}
		if kind == KindStation && r.stationStop[tok] {
			continue
		}
		for i, e := range r.entities(kind) {
			for _, et := range e.tokens {
				if strings.HasPrefix(et, tok) {
					if !seenEntities[i] {
						seenEntities[i] = true
						hits = append(hits, hit{entityIdx: i, span: tok, pos: pos})
					}
					break
				}
			}
		}
	}

	// ambiguous partials are discarded, not guessed at
	if len(hits) != 1 {
		return Match{}, false
	}
	e := r.entities(kind)[hits[0].entityIdx]
	return Match{
		Kind:     kind,
		EntityID: e.name,
		Span:     hits[0].span,
		Type:     MatchUnambiguousPartial,
		Pos:      hits[0].pos,
	}, true
}
