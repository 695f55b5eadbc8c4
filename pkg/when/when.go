// Package when extracts the feeding dates people actually write:
// "yesterday", "last night", bare or this/next weekdays, and day ranges like
// "21st to 28th". Everything is interpreted on the community's wall clock.
package when

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

var (
	weekdayRe = regexp.MustCompile(`\b(this|next|last)?\s*(mon(?:day)?|tue(?:s|sday)?|wed(?:nesday)?|thu(?:r|rs|rsday)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)\b`)
	rangeRe   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s*(?:to|-)\s*(\d{1,2})(?:st|nd|rd|th)?\b`)
	fedRe     = regexp.MustCompile(`\bfed\b`)
)

// Extractor resolves relative phrases against a timezone. The zero value is
// unusable; build one with NewExtractor.
type Extractor struct {
	loc *time.Location
}

func NewExtractor(timezone string) *Extractor {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Extractor{loc: loc}
}

// Today returns the current calendar day in the configured zone, ISO format.
func (e *Extractor) Today() string {
	return e.DayOf(time.Now())
}

// DayOf returns t's calendar day in the configured zone, ISO format.
func (e *Extractor) DayOf(t time.Time) string {
	return t.In(e.loc).Format("2006-01-02")
}

// Dates returns the ISO dates mentioned in text relative to now, sorted and
// deduplicated. An empty result means the caller should assume today.
func (e *Extractor) Dates(text string, now time.Time) []string {
	text = strings.ToLower(text)
	today := now.In(e.loc)
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, e.loc)

	seen := map[string]bool{}
	add := func(d time.Time) { seen[d.Format("2006-01-02")] = true }

	if strings.Contains(text, "yesterday") || strings.Contains(text, "last night") {
		add(todayDate.AddDate(0, 0, -1))
	}

	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		qualifier := m[1]
		wd := weekdays[normWeekday(m[2])]
		switch {
		case qualifier == "last":
			add(prevWeekday(todayDate, wd))
		case qualifier == "" && fedRe.MatchString(text):
			// "I fed microwave saturday" after the fact means the
			// Saturday that already happened, never the next one
			add(prevWeekday(todayDate, wd))
		default:
			// bare and "this" both mean the next occurrence
			add(nextWeekday(todayDate, wd))
		}
	}

	if m := rangeRe.FindStringSubmatch(text); m != nil {
		d1, _ := strconv.Atoi(m[1])
		d2, _ := strconv.Atoi(m[2])
		base := todayDate
		// a range starting before ~today most likely names next month
		if today.Day() >= 22 {
			base = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, e.loc).AddDate(0, 1, 0)
		}
		for d := d1; d <= d2 && d-d1 < 31; d++ {
			candidate := time.Date(base.Year(), base.Month(), d, 0, 0, 0, 0, e.loc)
			if candidate.Day() == d { // skip days the month does not have
				add(candidate)
			}
		}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func normWeekday(w string) string {
	if len(w) > 3 {
		w = w[:3]
	}
	return w
}

func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return from.AddDate(0, 0, days)
}

func prevWeekday(from time.Time, wd time.Weekday) time.Time {
	days := (int(from.Weekday()) - int(wd) + 7) % 7
	if days == 0 {
		days = 7
	}
	return from.AddDate(0, 0, -days)
}
