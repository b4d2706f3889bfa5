package timetable

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownBlock = errors.New("unknown training block")

// Blocks maps training class block codes to their time slots.
var Blocks = map[string]Interval{
	"AM": mustInterval("08:00", "12:00"),
	"PM": mustInterval("14:00", "18:00"),
	"EV": mustInterval("19:00", "21:30"),
	"A1": mustInterval("08:00", "10:00"),
	"A2": mustInterval("10:00", "12:00"),
	"P1": mustInterval("14:00", "16:00"),
	"P2": mustInterval("16:00", "18:00"),
	"E1": mustInterval("19:00", "20:30"),
}

// NormalizeBlock upper-cases & trims a block code.
func NormalizeBlock(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsBlock(code string) bool {
	_, ok := Blocks[NormalizeBlock(code)]
	return ok
}

// TrainingBusy turns block codes into busy intervals, in the given order.
func TrainingBusy(codes []string) ([]Interval, error) {
	busy := make([]Interval, 0, len(codes))
	for _, code := range codes {
		iv, ok := Blocks[NormalizeBlock(code)]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownBlock, "%q", code)
		}
		busy = append(busy, iv)
	}
	return busy, nil
}

// TrainingFreeTime returns DefaultFree minus the given blocks.
func TrainingFreeTime(codes []string) ([]Interval, error) {
	busy, err := TrainingBusy(codes)
	if err != nil {
		return nil, err
	}
	return Subtract(DefaultFree, busy), nil
}
