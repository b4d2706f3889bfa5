// Package roster reads & writes the class schedule roster as an Excel workbook.
package roster

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/schedule"
	"github.com/trezcool/roster/core/timetable"
)

var (
	ErrEmptySheet    = errors.New("the workbook has no rows")
	ErrMissingColumn = errors.New("missing column")
)

// column identifiers, in export order
const (
	colClass = iota
	colCourse
	colTeacher
	colKind
	colWeekday
	colWeeks
	colPeriods
	colBlocks
	colRoom
	colNote
	numCols
)

// Header is the header row written on export.
var Header = []string{"class", "course", "teacher", "kind", "weekday", "weeks", "periods", "blocks", "room", "note"}

var (
	headerAliases = map[string]int{
		"class": colClass, "class name": colClass, "class_name": colClass, "班级": colClass, "班级名称": colClass,
		"course": colCourse, "course name": colCourse, "course_name": colCourse, "课程": colCourse, "课程名称": colCourse,
		"teacher": colTeacher, "教师": colTeacher, "老师": colTeacher, "任课教师": colTeacher,
		"kind": colKind, "type": colKind, "类型": colKind, "课程类型": colKind,
		"weekday": colWeekday, "day": colWeekday, "星期": colWeekday,
		"weeks": colWeeks, "周次": colWeeks, "上课周次": colWeeks,
		"periods": colPeriods, "period": colPeriods, "节次": colPeriods,
		"blocks": colBlocks, "block": colBlocks, "时段": colBlocks, "实训时段": colBlocks,
		"room": colRoom, "classroom": colRoom, "教室": colRoom, "地点": colRoom,
		"note": colNote, "notes": colNote, "备注": colNote,
	}
	requiredCols = []int{colClass, colCourse, colWeekday}

	kindAliases = map[string]string{
		schedule.KindTheory: schedule.KindTheory, "理论": schedule.KindTheory, "理论课": schedule.KindTheory,
		schedule.KindTraining: schedule.KindTraining, "实训": schedule.KindTraining, "实训课": schedule.KindTraining,
	}

	weekdayAliases = map[string]int{
		"mon": 1, "monday": 1, "周一": 1, "星期一": 1,
		"tue": 2, "tuesday": 2, "周二": 2, "星期二": 2,
		"wed": 3, "wednesday": 3, "周三": 3, "星期三": 3,
		"thu": 4, "thursday": 4, "周四": 4, "星期四": 4,
		"fri": 5, "friday": 5, "周五": 5, "星期五": 5,
		"sat": 6, "saturday": 6, "周六": 6, "星期六": 6,
		"sun": 7, "sunday": 7, "周日": 7, "星期日": 7, "星期天": 7,
	}
)

// Importer turns an uploaded workbook into validated schedule entries.
type Importer struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewImporter(validate *validator.Validate, translator ut.Translator) *Importer {
	return &Importer{validate: validate, translator: translator}
}

// Import reads the first sheet of the workbook. The first non-empty row is the header.
// Every bad row is reported in the returned *core.ValidationError, as "row N: field".
func (im *Importer) Import(r io.Reader) ([]schedule.NewEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading workbook"))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(ErrEmptySheet)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading sheet"))
	}

	hdrIdx := -1
	for i, row := range rows {
		if !isBlank(row) {
			hdrIdx = i
			break
		}
	}
	if hdrIdx < 0 {
		return nil, core.NewValidationError(ErrEmptySheet)
	}
	cols, err := mapHeader(rows[hdrIdx])
	if err != nil {
		return nil, core.NewValidationError(err)
	}

	entries := make([]schedule.NewEntry, 0, len(rows)-hdrIdx-1)
	var fieldErrs []core.FieldError
	for i := hdrIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rowNum := i + 1 // excel rows are 1-based
		ne, errs := im.parseRow(cols, row)
		if len(errs) > 0 {
			for _, fe := range errs {
				fieldErrs = append(fieldErrs, core.FieldError{Field: fmt.Sprintf("row %d: %s", rowNum, fe.Field), Error: fe.Error})
			}
			continue
		}
		entries = append(entries, ne)
	}
	if len(fieldErrs) > 0 {
		return nil, core.NewValidationError(nil, fieldErrs...)
	}
	return entries, nil
}

// mapHeader returns the cell index of each known column, -1 when absent.
func mapHeader(header []string) ([numCols]int, error) {
	var cols [numCols]int
	for i := range cols {
		cols[i] = -1
	}
	for i, name := range header {
		if col, ok := headerAliases[core.CleanString(name, true /* lower */)]; ok && cols[col] < 0 {
			cols[col] = i
		}
	}
	for _, col := range requiredCols {
		if cols[col] < 0 {
			return cols, errors.Wrap(ErrMissingColumn, Header[col])
		}
	}
	if cols[colPeriods] < 0 && cols[colBlocks] < 0 {
		return cols, errors.Wrap(ErrMissingColumn, "periods | blocks")
	}
	return cols, nil
}

func (im *Importer) parseRow(cols [numCols]int, row []string) (schedule.NewEntry, []core.FieldError) {
	cell := func(col int) string {
		if i := cols[col]; i >= 0 && i < len(row) {
			return core.CleanString(row[i])
		}
		return ""
	}

	var errs []core.FieldError
	ne := schedule.NewEntry{
		ClassName:  cell(colClass),
		CourseName: cell(colCourse),
		Teacher:    cell(colTeacher),
		Weeks:      cell(colWeeks),
		Room:       cell(colRoom),
		Note:       cell(colNote),
		Blocks:     splitList(cell(colBlocks)),
	}

	periods, err := parsePeriods(cell(colPeriods))
	if err != nil {
		errs = append(errs, core.FieldError{Field: "periods", Error: err.Error()})
	}
	ne.Periods = periods

	if raw := cell(colWeekday); raw != "" {
		if wd, ok := parseWeekday(raw); ok {
			ne.Weekday = wd
		} else {
			errs = append(errs, core.FieldError{Field: "weekday", Error: fmt.Sprintf("invalid weekday %q", raw)})
		}
	}

	switch raw := cell(colKind); {
	case raw != "":
		kind, ok := kindAliases[strings.ToLower(raw)]
		if !ok {
			kind = raw // rejected by the validator
		}
		ne.Kind = kind
	case len(ne.Blocks) > 0 && len(ne.Periods) == 0:
		ne.Kind = schedule.KindTraining
	default:
		ne.Kind = schedule.KindTheory
	}
	if ne.Kind == schedule.KindTraining {
		ne.Periods = nil
	} else {
		ne.Blocks = nil
	}

	if len(errs) > 0 {
		return ne, errs
	}
	if err := ne.Validate(im.validate); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range vErrs {
				errs = append(errs, core.FieldError{Field: fe.Field(), Error: fe.Translate(im.translator)})
			}
		} else {
			errs = append(errs, core.FieldError{Field: "row", Error: err.Error()})
		}
	}
	return ne, errs
}

// splitList splits a cell on commas (ascii & full width), enumeration commas, semicolons & whitespace.
func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == ';' || r == '；' || unicode.IsSpace(r)
	})
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// parsePeriods accepts period numbers & ranges, eg. "1,2" or "1-4".
// Bounds are checked before a range is expanded.
func parsePeriods(s string) ([]int, error) {
	parts := splitList(s)
	if parts == nil {
		return nil, nil
	}
	periods := make([]int, 0, len(parts))
	for _, p := range parts {
		lo, hi := p, p
		if i := strings.IndexAny(p, "-~"); i > 0 {
			lo, hi = p[:i], p[i+1:]
		}
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid period %q", p)
		}
		to, err := strconv.Atoi(hi)
		if err != nil || to < from {
			return nil, fmt.Errorf("invalid period %q", p)
		}
		if from < 1 || to > len(timetable.Periods) {
			return nil, fmt.Errorf("period %q out of range 1-%d", p, len(timetable.Periods))
		}
		for n := from; n <= to; n++ {
			periods = append(periods, n)
		}
	}
	return periods, nil
}

func parseWeekday(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 1 && n <= 7
	}
	n, ok := weekdayAliases[strings.ToLower(s)]
	return n, ok
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
