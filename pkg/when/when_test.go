package when

import (
	"reflect"
	"testing"
	"time"
)

// Wednesday, 2026-08-12, noon Chicago time.
func fixedNow(t *testing.T) (*Extractor, time.Time) {
	t.Helper()
	e := NewExtractor("America/Chicago")
	return e, time.Date(2026, 8, 12, 12, 0, 0, 0, e.loc)
}

func TestYesterdayAndLastNight(t *testing.T) {
	e, now := fixedNow(t)
	if got := e.Dates("filled the greens yesterday", now); !reflect.DeepEqual(got, []string{"2026-08-11"}) {
		t.Fatalf("yesterday = %v", got)
	}
	if got := e.Dates("topped off hop last night", now); !reflect.DeepEqual(got, []string{"2026-08-11"}) {
		t.Fatalf("last night = %v", got)
	}
}

func TestWeekdays(t *testing.T) {
	e, now := fixedNow(t)
	// next Friday from Wednesday 2026-08-12 is 2026-08-14
	if got := e.Dates("can someone cover business this friday", now); !reflect.DeepEqual(got, []string{"2026-08-14"}) {
		t.Fatalf("this friday = %v", got)
	}
	// "last saturday" looks backwards
	if got := e.Dates("was out last saturday", now); !reflect.DeepEqual(got, []string{"2026-08-08"}) {
		t.Fatalf("last saturday = %v", got)
	}
	// a past-tense feed report with a bare weekday names only the day
	// that already happened
	if got := e.Dates("i fed microwave saturday before i left", now); !reflect.DeepEqual(got, []string{"2026-08-08"}) {
		t.Fatalf("fed saturday = %v", got)
	}
	if got := e.Dates("i fed hop friday", now); !reflect.DeepEqual(got, []string{"2026-08-07"}) {
		t.Fatalf("fed friday = %v", got)
	}
	// without a feed verb a bare weekday still looks forward
	if got := e.Dates("need someone for hop friday", now); !reflect.DeepEqual(got, []string{"2026-08-14"}) {
		t.Fatalf("bare friday = %v", got)
	}
}

func TestDayRange(t *testing.T) {
	e, now := fixedNow(t)
	got := e.Dates("need a sub 21st to 23rd", now)
	want := []string{"2026-08-21", "2026-08-22", "2026-08-23"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("range = %v, want %v", got, want)
	}
}

func TestDayRangeRollsToNextMonth(t *testing.T) {
	e := NewExtractor("America/Chicago")
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, e.loc)
	got := e.Dates("covering 1-3 next month", now)
	want := []string{"2026-09-01", "2026-09-02", "2026-09-03"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rolled range = %v, want %v", got, want)
	}
}

func TestNoDates(t *testing.T) {
	e, now := fixedNow(t)
	if got := e.Dates("mike fed", now); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
