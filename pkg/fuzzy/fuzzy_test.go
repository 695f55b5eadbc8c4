package fuzzy

import "testing"

var stationNames = []string{"West Hall", "Maintenance", "Business", "The Greens", "HOP", "Lot 50"}

func TestBestAcceptsCloseMisspelling(t *testing.T) {
	m := NewMatcher(0.88, 0.82, 3)
	got, ok := m.Best("busines", stationNames)
	if !ok {
		t.Fatalf("expected a match for busines")
	}
	if got.Value != "Business" {
		t.Fatalf("match = %q, want Business", got.Value)
	}
}

func TestBestRejectsFarString(t *testing.T) {
	m := NewMatcher(0.88, 0.82, 3)
	if got, ok := m.Best("refrigerator", stationNames); ok {
		t.Fatalf("expected rejection, got %+v", got)
	}
}

func TestLenBiasPath(t *testing.T) {
	// "maintenanc" vs "maintenance": distance 1 over 11 chars = 0.909,
	// passes outright; "maintnance" = distance 1+? exercise the biased band
	m := NewMatcher(0.95, 0.82, 3)
	got, ok := m.Best("maintnance", stationNames)
	if !ok {
		t.Fatalf("expected length-biased acceptance")
	}
	if got.Value != "Maintenance" {
		t.Fatalf("match = %q, want Maintenance", got.Value)
	}
}

func TestTieBreaksByCandidateOrder(t *testing.T) {
	m := NewMatcher(0.5, 0.5, 10)
	// both candidates are distance 1 from the query; first listed wins
	got, ok := m.Best("catx", []string{"cata", "catb"})
	if !ok {
		t.Fatalf("expected a match")
	}
	if got.Value != "cata" {
		t.Fatalf("tie should keep earliest candidate, got %q", got.Value)
	}
}

func TestEmptyInputs(t *testing.T) {
	m := NewMatcher(0.88, 0.82, 3)
	if _, ok := m.Best("", stationNames); ok {
		t.Fatalf("empty query must not match")
	}
	if _, ok := m.Best("business", nil); ok {
		t.Fatalf("empty candidate list must not match")
	}
}
