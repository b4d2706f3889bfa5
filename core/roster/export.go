package roster

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/roster/core/schedule"
)

// SheetName is the name of the exported sheet.
const SheetName = "Roster"

// Export writes entries as an .xlsx workbook that Import can read back.
func Export(w io.Writer, entries []schedule.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	if err = f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.ClassName, e.CourseName, e.Teacher, e.Kind, e.Weekday, e.Weeks,
			joinPeriods(e.Periods), strings.Join(e.Blocks, ","), e.Room, e.Note,
		}
		if err = f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	_, err = f.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}

func joinPeriods(periods []int) string {
	strs := make([]string, len(periods))
	for i, p := range periods {
		strs[i] = strconv.Itoa(p)
	}
	return strings.Join(strs, ",")
}
