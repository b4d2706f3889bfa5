package timetable

import (
	"sort"

	"github.com/pkg/errors"
)

var ErrUnknownPeriod = errors.New("unknown period")

// Periods maps theory class period numbers to their time slots.
var Periods = map[int]Interval{
	1:  mustInterval("08:00", "08:45"),
	2:  mustInterval("08:55", "09:40"),
	3:  mustInterval("10:00", "10:45"),
	4:  mustInterval("10:55", "11:40"),
	5:  mustInterval("14:00", "14:45"),
	6:  mustInterval("14:55", "15:40"),
	7:  mustInterval("16:00", "16:45"),
	8:  mustInterval("16:55", "17:40"),
	9:  mustInterval("19:00", "19:45"),
	10: mustInterval("19:55", "20:40"),
	11: mustInterval("20:50", "21:35"),
}

// TheoryBusy turns period numbers into busy intervals.
// Adjacent periods (eg. 1 & 2) are merged into one block covering the break between them.
func TheoryBusy(periods []int) ([]Interval, error) {
	if len(periods) == 0 {
		return nil, nil
	}
	sorted := make([]int, 0, len(periods))
	seen := make(map[int]bool, len(periods))
	for _, p := range periods {
		if _, ok := Periods[p]; !ok {
			return nil, errors.Wrapf(ErrUnknownPeriod, "%d", p)
		}
		if !seen[p] {
			seen[p] = true
			sorted = append(sorted, p)
		}
	}
	sort.Ints(sorted)

	busy := make([]Interval, 0, len(sorted))
	first, last := sorted[0], sorted[0]
	for _, p := range sorted[1:] {
		if p == last+1 {
			last = p
			continue
		}
		busy = append(busy, Interval{Start: Periods[first].Start, End: Periods[last].End})
		first, last = p, p
	}
	busy = append(busy, Interval{Start: Periods[first].Start, End: Periods[last].End})
	return busy, nil
}

// TheoryFreeTime returns DefaultFree minus the given periods.
func TheoryFreeTime(periods []int) ([]Interval, error) {
	busy, err := TheoryBusy(periods)
	if err != nil {
		return nil, err
	}
	return Subtract(DefaultFree, busy), nil
}
