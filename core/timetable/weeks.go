package timetable

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const MaxWeek = 30

var ErrInvalidWeeks = errors.New("invalid weeks, expected eg. 1-8,10,12-16")

// Weekday returns the ISO weekday of t: 1 (Monday) .. 7 (Sunday).
func Weekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekOfTerm returns the 1-based week of term t falls in.
// Weeks start on Monday; the week holding termStart is week 1. Dates before the term are week 0.
func WeekOfTerm(termStart, t time.Time) int {
	if termStart.IsZero() {
		return 0
	}
	monday := func(d time.Time) time.Time {
		y, m, day := d.Date()
		midnight := time.Date(y, m, day, 0, 0, 0, 0, d.Location())
		return midnight.AddDate(0, 0, -(Weekday(midnight) - 1))
	}
	start := monday(termStart)
	current := monday(t.In(termStart.Location()))
	if current.Before(start) {
		return 0
	}
	days := int(current.Sub(start).Hours()/24 + 0.5)
	return days/7 + 1
}

// WeekSet is a sorted list of distinct weeks.
type WeekSet []int

// ParseWeeks parses a week expression such as "1-8,10,12-16".
// An empty expression means every week of the term.
func ParseWeeks(expr string) (WeekSet, error) {
	expr = strings.NewReplacer("，", ",", "、", ",", " ", "").Replace(strings.TrimSpace(expr))
	if expr == "" {
		all := make(WeekSet, 0, MaxWeek)
		for w := 1; w <= MaxWeek; w++ {
			all = append(all, w)
		}
		return all, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(expr, ",") {
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		from, err := parseWeek(bounds[0])
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidWeeks, "%q", expr)
		}
		to := from
		if len(bounds) == 2 {
			if to, err = parseWeek(bounds[1]); err != nil || to < from {
				return nil, errors.Wrapf(ErrInvalidWeeks, "%q", expr)
			}
		}
		for w := from; w <= to; w++ {
			seen[w] = true
		}
	}
	if len(seen) == 0 {
		return nil, errors.Wrapf(ErrInvalidWeeks, "%q", expr)
	}

	weeks := make(WeekSet, 0, len(seen))
	for w := range seen {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks, nil
}

func parseWeek(s string) (int, error) {
	w, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if w < 1 || w > MaxWeek {
		return 0, errors.Errorf("week %d out of range", w)
	}
	return w, nil
}

func (ws WeekSet) Contains(week int) bool {
	i := sort.SearchInts(ws, week)
	return i < len(ws) && ws[i] == week
}
