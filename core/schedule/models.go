package schedule

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/timetable"
)

// Kinds
const (
	KindTheory   = "theory"
	KindTraining = "training"
)

var Kinds = []string{KindTheory, KindTraining}

// Entry is one row of the class schedule roster.
type Entry struct {
	ID         string   `json:"id"`
	ClassName  string   `json:"class_name"`
	CourseName string   `json:"course_name"`
	Teacher    string   `json:"teacher"`
	Kind       string   `json:"kind"`
	Weekday    int      `json:"weekday"`
	Weeks      string   `json:"weeks"`
	Periods    []int    `json:"periods,omitempty"`
	Blocks     []string `json:"blocks,omitempty"`
	Room       string   `json:"room"`
	Note       string   `json:"note"`
}

// InWeek reports whether the entry takes place during the given week of term.
// week <= 0 matches every entry.
func (e Entry) InWeek(week int) bool {
	if week <= 0 {
		return true
	}
	weeks, err := timetable.ParseWeeks(e.Weeks)
	if err != nil {
		return false
	}
	return weeks.Contains(week)
}

// Busy returns the time slots the entry occupies on its weekday.
func (e Entry) Busy() ([]timetable.Interval, error) {
	if e.Kind == KindTraining {
		return timetable.TrainingBusy(e.Blocks)
	}
	return timetable.TheoryBusy(e.Periods)
}

// NewEntry contains information needed to create a new Entry.
type NewEntry struct {
	ClassName  string   `json:"class_name" validate:"required,notblank"`
	CourseName string   `json:"course_name" validate:"required,notblank"`
	Teacher    string   `json:"teacher"`
	Kind       string   `json:"kind" validate:"required,kind"`
	Weekday    int      `json:"weekday" validate:"required,min=1,max=7"`
	Weeks      string   `json:"weeks" validate:"weeks"`
	Periods    []int    `json:"periods" validate:"omitempty,periods"`
	Blocks     []string `json:"blocks" validate:"omitempty,blocks"`
	Room       string   `json:"room"`
	Note       string   `json:"note"`
}

func (ne *NewEntry) clean() {
	ne.ClassName = core.CleanString(ne.ClassName)
	ne.CourseName = core.CleanString(ne.CourseName)
	ne.Teacher = core.CleanString(ne.Teacher)
	ne.Kind = core.CleanString(ne.Kind, true /* lower */)
	ne.Weeks = core.CleanString(ne.Weeks)
	ne.Room = core.CleanString(ne.Room)
	ne.Note = core.CleanString(ne.Note)
	ne.Blocks = cleanBlocks(ne.Blocks)
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.clean()
	return validate.Struct(ne)
}

// UpdateEntry defines what information may be provided to modify an existing Entry.
// Blank fields keep their current value.
type UpdateEntry struct {
	ClassName  string   `json:"class_name"`
	CourseName string   `json:"course_name"`
	Teacher    *string  `json:"teacher"`
	Kind       string   `json:"kind" validate:"required,kind"`
	Weekday    int      `json:"weekday" validate:"required,min=1,max=7"`
	Weeks      *string  `json:"weeks" validate:"omitempty,weeks"`
	Periods    []int    `json:"periods" validate:"omitempty,periods"`
	Blocks     []string `json:"blocks" validate:"omitempty,blocks"`
	Room       *string  `json:"room"`
	Note       *string  `json:"note"`
}

func (ue *UpdateEntry) Validate(orig Entry, validate *validator.Validate) error {
	if name := core.CleanString(ue.ClassName); name != "" {
		ue.ClassName = name
	} else {
		ue.ClassName = orig.ClassName
	}
	if course := core.CleanString(ue.CourseName); course != "" {
		ue.CourseName = course
	} else {
		ue.CourseName = orig.CourseName
	}
	if kind := core.CleanString(ue.Kind, true /* lower */); kind != "" {
		ue.Kind = kind
	} else {
		ue.Kind = orig.Kind
	}
	if ue.Weekday == 0 {
		ue.Weekday = orig.Weekday
	}
	ue.Teacher = cleanStringPtr(ue.Teacher, orig.Teacher)
	ue.Weeks = cleanStringPtr(ue.Weeks, orig.Weeks)
	ue.Room = cleanStringPtr(ue.Room, orig.Room)
	ue.Note = cleanStringPtr(ue.Note, orig.Note)
	// switching kind requires new periods | blocks
	if ue.Kind == orig.Kind {
		if ue.Periods == nil {
			ue.Periods = orig.Periods
		}
		if ue.Blocks == nil {
			ue.Blocks = orig.Blocks
		}
	}
	ue.Blocks = cleanBlocks(ue.Blocks)
	return validate.Struct(ue)
}

// apply returns e updated with ue; blank fields keep the value of e.
// Periods & blocks are replaced when given, or dropped when the kind changes.
func (ue UpdateEntry) apply(e Entry) Entry {
	origKind := e.Kind
	if ue.ClassName != "" {
		e.ClassName = ue.ClassName
	}
	if ue.CourseName != "" {
		e.CourseName = ue.CourseName
	}
	if ue.Kind != "" {
		e.Kind = ue.Kind
	}
	if ue.Weekday != 0 {
		e.Weekday = ue.Weekday
	}
	e.Teacher = derefOr(ue.Teacher, e.Teacher)
	e.Weeks = derefOr(ue.Weeks, e.Weeks)
	e.Room = derefOr(ue.Room, e.Room)
	e.Note = derefOr(ue.Note, e.Note)

	if e.Kind == KindTraining {
		if ue.Blocks != nil || e.Kind != origKind {
			e.Blocks = ue.Blocks
		}
		e.Periods = nil
	} else {
		if ue.Periods != nil || e.Kind != origKind {
			e.Periods = ue.Periods
		}
		e.Blocks = nil
	}
	return e
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

type QueryFilter struct {
	Search    string `query:"search"`
	ClassName string `query:"class"`
	Teacher   string `query:"teacher"`
	Kind      string `query:"kind"`
	Weekday   int    `query:"weekday"`
	Week      int    `query:"week"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassName == "" && qf.Teacher == "" && qf.Kind == "" && qf.Weekday == 0 && qf.Week == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.ClassName = core.CleanString(qf.ClassName)
	qf.Teacher = core.CleanString(qf.Teacher)
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
}

func (qf *QueryFilter) match(e Entry) bool {
	if qf.ClassName != "" && e.ClassName != qf.ClassName {
		return false
	}
	if qf.Teacher != "" && e.Teacher != qf.Teacher {
		return false
	}
	if qf.Kind != "" && e.Kind != qf.Kind {
		return false
	}
	if qf.Weekday != 0 && e.Weekday != qf.Weekday {
		return false
	}
	if qf.Week != 0 && !e.InWeek(qf.Week) {
		return false
	}
	if qf.Search != "" {
		found := false
		for _, fld := range []string{e.ClassName, e.CourseName, e.Teacher, e.Room, e.Note} {
			if strings.Contains(strings.ToLower(fld), qf.Search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type BackupInfo struct {
	SavedAt time.Time `json:"saved_at"` // UTC
	Count   int       `json:"count"`
}

type HistoryInfo struct {
	Undo int `json:"undo"`
	Redo int `json:"redo"`
}

func cleanStringPtr(s *string, orig string) *string {
	if s == nil {
		return &orig
	}
	cleaned := core.CleanString(*s)
	return &cleaned
}

func cleanBlocks(blocks []string) []string {
	if blocks == nil {
		return nil
	}
	cleaned := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b = timetable.NormalizeBlock(b); b != "" {
			cleaned = append(cleaned, b)
		}
	}
	return cleaned
}
