// Package timetable computes free time windows out of class periods and training blocks.
//
// All intervals are half-open [Start, End) and measured in minutes since midnight.
package timetable

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidClock = errors.New("invalid time, expected HH:MM")

// DefaultFree holds the windows a class is free in when it has nothing scheduled.
var DefaultFree = []Interval{
	mustInterval("08:00", "12:00"),
	mustInterval("14:00", "18:00"),
	mustInterval("19:00", "21:30"),
}

type Interval struct {
	Start int
	End   int
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || !isDigits(parts[0]) || len(parts[1]) != 2 || !isDigits(parts[1]) {
		return 0, errors.Wrapf(ErrInvalidClock, "%q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, errors.Wrapf(ErrInvalidClock, "%q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, errors.Wrapf(ErrInvalidClock, "%q", s)
	}
	return h*60 + m, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatClock formats minutes since midnight as "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if e < s {
		return Interval{}, errors.Errorf("interval %s-%s ends before it starts", start, end)
	}
	return Interval{Start: s, End: e}, nil
}

func mustInterval(start, end string) Interval {
	iv, err := ParseInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

func (iv Interval) Len() int { return iv.End - iv.Start }

func (iv Interval) IsEmpty() bool { return iv.End <= iv.Start }

func (iv Interval) String() string {
	return FormatClock(iv.Start) + "-" + FormatClock(iv.End)
}

type intervalJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(intervalJSON{Start: FormatClock(iv.Start), End: FormatClock(iv.End)})
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	var raw intervalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseInterval(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*iv = parsed
	return nil
}

// Subtract removes every busy interval from the free ones.
// Each free interval is clipped against each busy interval in turn, keeping the parts before & after the overlap.
// The result is sorted, disjoint and only covers time inside `free`; zero-length parts are dropped.
func Subtract(free, busy []Interval) []Interval {
	result := make([]Interval, 0, len(free))
	for _, f := range normalize(free) {
		remaining := []Interval{f}
		for _, b := range busy {
			if b.IsEmpty() {
				continue
			}
			next := remaining[:0:0]
			for _, r := range remaining {
				if b.End <= r.Start || b.Start >= r.End { // no overlap
					next = append(next, r)
					continue
				}
				if before := (Interval{Start: r.Start, End: b.Start}); !before.IsEmpty() {
					next = append(next, before)
				}
				if after := (Interval{Start: b.End, End: r.End}); !after.IsEmpty() {
					next = append(next, after)
				}
			}
			remaining = next
		}
		result = append(result, remaining...)
	}
	return result
}

// FreeTime subtracts all busy sets from DefaultFree.
func FreeTime(busy ...[]Interval) []Interval {
	all := make([]Interval, 0)
	for _, b := range busy {
		all = append(all, b...)
	}
	return Subtract(DefaultFree, all)
}

// normalize sorts intervals, drops empty ones & merges overlapping ones.
// Intervals that only touch are kept apart.
func normalize(ivs []Interval) []Interval {
	sorted := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.IsEmpty() {
			sorted = append(sorted, iv)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := make([]Interval, 0, len(sorted))
	for _, iv := range sorted {
		if n := len(merged); n > 0 && iv.Start < merged[n-1].End {
			if iv.End > merged[n-1].End {
				merged[n-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
