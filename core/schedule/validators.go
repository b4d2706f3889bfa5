package schedule

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/timetable"
)

var (
	kindTag  = "kind"
	kindText = "kind must be one of: " + strings.Join(Kinds, ", ")

	weeksTag  = "weeks"
	weeksText = "invalid weeks, expected eg. 1-8,10,12-16"

	periodsTag  = "periods"
	periodsText = "invalid periods"

	blocksTag  = "blocks"
	blocksText = "invalid training blocks"

	periodsRequiredTag  = "periods_required"
	periodsRequiredText = "theory classes require at least one period"

	blocksRequiredTag  = "blocks_required"
	blocksRequiredText = "training classes require at least one block"
)

// InitValidators registers the schedule validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(kindTag, kindValidation)
	core.RegisterCustomTranslation(validate, translator, kindTag, kindText)

	_ = validate.RegisterValidation(weeksTag, weeksValidation)
	core.RegisterCustomTranslation(validate, translator, weeksTag, weeksText)

	_ = validate.RegisterValidation(periodsTag, periodsValidation)
	core.RegisterCustomTranslation(validate, translator, periodsTag, periodsText)

	_ = validate.RegisterValidation(blocksTag, blocksValidation)
	core.RegisterCustomTranslation(validate, translator, blocksTag, blocksText)

	validate.RegisterStructValidation(entryStructValidation, NewEntry{}, UpdateEntry{})
	core.RegisterCustomTranslation(validate, translator, periodsRequiredTag, periodsRequiredText)
	core.RegisterCustomTranslation(validate, translator, blocksRequiredTag, blocksRequiredText)
}

// Custom Validators

func kindValidation(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	return kind == KindTheory || kind == KindTraining
}

func weeksValidation(fl validator.FieldLevel) bool {
	_, err := timetable.ParseWeeks(fl.Field().String())
	return err == nil
}

func periodsValidation(fl validator.FieldLevel) bool {
	periods, ok := fl.Field().Interface().([]int)
	if !ok {
		return false
	}
	_, err := timetable.TheoryBusy(periods)
	return err == nil
}

func blocksValidation(fl validator.FieldLevel) bool {
	blocks, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	_, err := timetable.TrainingBusy(blocks)
	return err == nil
}

// entryStructValidation checks that theory entries have periods & training entries have blocks.
func entryStructValidation(sl validator.StructLevel) {
	var (
		kind    string
		periods []int
		blocks  []string
	)
	switch e := sl.Current().Interface().(type) {
	case NewEntry:
		kind, periods, blocks = e.Kind, e.Periods, e.Blocks
	case UpdateEntry:
		kind, periods, blocks = e.Kind, e.Periods, e.Blocks
	default:
		return
	}

	switch kind {
	case KindTheory:
		if len(periods) == 0 {
			sl.ReportError(periods, "periods", "Periods", periodsRequiredTag, "")
		}
	case KindTraining:
		if len(blocks) == 0 {
			sl.ReportError(blocks, "blocks", "Blocks", blocksRequiredTag, "")
		}
	}
}
