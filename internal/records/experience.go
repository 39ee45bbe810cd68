package records

import (
	"sort"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"01/2006",
	"2006/01",
	"Jan 2006",
	"January 2006",
	"2006",
}

var ongoingMarkers = map[string]struct{}{
	"":        {},
	"present": {},
	"current": {},
	"now":     {},
	"ongoing": {},
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type interval struct {
	start, end time.Time
}

// YearsOfExperience sums the experience date ranges up to now, counting
// overlapping roles once. Roles without a parseable start date are ignored and
// roles without an end date are treated as ongoing.
func (c RawCandidate) YearsOfExperience(now time.Time) float64 {
	spans := make([]interval, 0, len(c.Experiences))
	for _, exp := range c.Experiences {
		start, ok := parseDate(exp.StartDate)
		if !ok || start.After(now) {
			continue
		}
		end := now
		if _, ongoing := ongoingMarkers[strings.ToLower(strings.TrimSpace(exp.EndDate))]; !ongoing {
			parsed, ok := parseDate(exp.EndDate)
			if !ok {
				continue
			}
			end = parsed
		}
		if end.After(now) {
			end = now
		}
		if !end.After(start) {
			continue
		}
		spans = append(spans, interval{start: start, end: end})
	}
	if len(spans) == 0 {
		return 0
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	var total time.Duration
	current := spans[0]
	for _, span := range spans[1:] {
		if !span.start.After(current.end) {
			if span.end.After(current.end) {
				current.end = span.end
			}
			continue
		}
		total += current.end.Sub(current.start)
		current = span
	}
	total += current.end.Sub(current.start)

	years := total.Hours() / (24 * 365.25)
	return float64(int(years*10+0.5)) / 10
}

// RecentExperience returns the experience with the latest start date.
func (c RawCandidate) RecentExperience() (Experience, bool) {
	var (
		best      Experience
		bestStart time.Time
		found     bool
	)
	for _, exp := range c.Experiences {
		start, ok := parseDate(exp.StartDate)
		if !found || (ok && start.After(bestStart)) {
			best, bestStart, found = exp, start, true
		}
	}
	return best, found
}
