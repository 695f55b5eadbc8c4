package registry

import (
	"testing"

	"github.com/Austin-J-B/tomcat/pkg/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(config.RegistryConfig{
		Cats: []config.EntityConfig{
			{Name: "Microwave", Nicknames: []string{"Mike", "Micro"}},
			{Name: "Garfield", Nicknames: []string{"Tito FluffyButt"}},
			{Name: "Ford F-150"},
			{Name: "Marley"},
		},
		Stations: []config.EntityConfig{
			{Name: "West Hall", Nicknames: []string{"west", "hall"}},
			{Name: "Business", Nicknames: []string{"coba"}},
			{Name: "Lot 50", Nicknames: []string{"lot50", "lot"}},
		},
		StationStopwords: []string{"the", "a", "an", "station", "lot", "hall"},
	})
}

func TestWholeWordMatch(t *testing.T) {
	r := testRegistry(t)
	ms := r.Resolve("who is Microwave", KindCat)
	if len(ms) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(ms))
	}
	if ms[0].EntityID != "Microwave" || ms[0].Type != MatchWholeWord {
		t.Fatalf("unexpected match: %+v", ms[0])
	}
}

func TestNicknameTokenMatch(t *testing.T) {
	r := testRegistry(t)
	m, ok := r.ResolveOne("is tito around today", KindCat)
	if !ok {
		t.Fatalf("expected a match for nickname token")
	}
	if m.EntityID != "Garfield" {
		t.Fatalf("entity = %q, want Garfield", m.EntityID)
	}
}

func TestTightAliasMatch(t *testing.T) {
	r := testRegistry(t)
	m, ok := r.ResolveOne("spotted fordf150 again", KindCat)
	if !ok || m.EntityID != "Ford F-150" {
		t.Fatalf("tight alias should resolve Ford F-150, got %+v ok=%v", m, ok)
	}
}

func TestUnambiguousPartial(t *testing.T) {
	r := testRegistry(t)
	m, ok := r.ResolveOne("marl was out by the dumpster", KindCat)
	if !ok {
		t.Fatalf("expected unambiguous partial match")
	}
	if m.EntityID != "Marley" || m.Type != MatchUnambiguousPartial {
		t.Fatalf("unexpected match: %+v", m)
	}
}

func TestAmbiguousPartialYieldsNothing(t *testing.T) {
	r := New(config.RegistryConfig{
		Cats: []config.EntityConfig{
			{Name: "Pencil"},
			{Name: "Pencilcase"},
		},
	})
	if ms := r.Resolve("penc is here", KindCat); ms != nil {
		t.Fatalf("ambiguous partial must yield no match, got %+v", ms)
	}
}

func TestStationStopwordsExcluded(t *testing.T) {
	r := testRegistry(t)
	// "lot" and "hall" are stopwords for stations; bare use must not match
	if ms := r.Resolve("meet me in the hall", KindStation); ms != nil {
		t.Fatalf("stopword alias must not match, got %+v", ms)
	}
	if ms := r.Resolve("parked in a lot somewhere", KindStation); ms != nil {
		t.Fatalf("stopword alias must not match, got %+v", ms)
	}
	// full names still resolve
	m, ok := r.ResolveOne("filled west hall this morning", KindStation)
	if !ok || m.EntityID != "West Hall" {
		t.Fatalf("expected West Hall, got %+v ok=%v", m, ok)
	}
	m, ok = r.ResolveOne("lot 50 is empty", KindStation)
	if !ok || m.EntityID != "Lot 50" {
		t.Fatalf("expected Lot 50, got %+v ok=%v", m, ok)
	}
}

func TestResolveOrderedByPosition(t *testing.T) {
	r := testRegistry(t)
	ms := r.Resolve("business first then west hall", KindStation)
	if len(ms) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(ms))
	}
	if ms[0].EntityID != "Business" || ms[1].EntityID != "West Hall" {
		t.Fatalf("order wrong: %+v", ms)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := testRegistry(t)
	first := r.Resolve("mike fed, also saw tito near business", KindCat)
	for i := 0; i < 20; i++ {
		again := r.Resolve("mike fed, also saw tito near business", KindCat)
		if len(again) != len(first) {
			t.Fatalf("run %d: len changed %d -> %d", i, len(first), len(again))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("run %d: match %d changed: %+v -> %+v", i, j, first[j], again[j])
			}
		}
	}
}
