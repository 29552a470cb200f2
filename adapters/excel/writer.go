package excel

import (
	"fmt"

	"gllvmord/domain/ordination"
	"gllvmord/internal/errors"

	"github.com/xuri/excelize/v2"
)

// ExportScaled writes the scaled site and species coordinates of display to
// an .xlsx workbook, one sheet each. One-dimensional displays have no
// species sheet.
func ExportScaled(path string, display *ordination.Display) error {
	if display == nil {
		return errors.InvalidInput("nothing to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	xLabel, yLabel := display.XLabel, display.YLabel
	if err := writePoints(f, TableSites, []string{"site", xLabel, yLabel, "group"}, display.Sites, display.Groups); err != nil {
		return errors.IOError(path, err)
	}
	if display.HasSpecies() {
		if err := writePoints(f, TableSpecies, []string{"species", xLabel, yLabel}, display.Species, nil); err != nil {
			return errors.IOError(path, err)
		}
	}

	// NewFile creates "Sheet1"; drop it once the real sheets exist.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.IOError(path, err)
	}
	if idx, err := f.GetSheetIndex(TableSites); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

func writePoints(f *excelize.File, sheet string, headers []string, points []ordination.Point, groups []string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if groups == nil {
		headers = headers[:3]
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i, p := range points {
		row := []interface{}{p.Label, p.X, p.Y}
		if groups != nil {
			row = append(row, groupName(groups, p.Group))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

func groupName(groups []string, g int) string {
	if g < 0 || g >= len(groups) {
		return "NA"
	}
	return groups[g]
}
