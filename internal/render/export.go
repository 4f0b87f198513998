package render

import (
	"fmt"
	"io"

	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetData       = "Unemployment"
	SheetStateMeans = "State Means"
)

// WriteXLSX writes the rows of ds and the per-state means as an Excel workbook.
func WriteXLSX(w io.Writer, ds *domain.Dataset, means []domain.StateMean) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetData); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	header := make([]interface{}, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = col
	}
	if err := writeRow(f, SheetData, 1, header); err != nil {
		return err
	}
	for i, obs := range ds.Rows {
		row := make([]interface{}, len(ds.Columns))
		for j, col := range ds.Columns {
			row[j] = cellValue(obs, col)
		}
		if err := writeRow(f, SheetData, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(SheetData, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if _, err := f.NewSheet(SheetStateMeans); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := writeRow(f, SheetStateMeans, 1, []interface{}{domain.ColState, "Mean " + domain.ColUnemploymentRate}); err != nil {
		return err
	}
	for i, m := range means {
		if err := writeRow(f, SheetStateMeans, i+2, []interface{}{m.State, m.Mean}); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(SheetStateMeans, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(SheetStateMeans, "A", "B", 30); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// cellValue keeps numeric columns numeric in the sheet.
func cellValue(obs domain.Observation, column string) interface{} {
	switch column {
	case domain.ColUnemploymentRate:
		return obs.UnemploymentRate
	case domain.ColLatitude, domain.ColLongitude:
		if !obs.HasCoordinates {
			return ""
		}
		if column == domain.ColLatitude {
			return obs.Latitude
		}
		return obs.Longitude
	case domain.ColMonth:
		return obs.Month
	case domain.ColYear:
		return obs.Year
	default:
		return obs.Field(column)
	}
}
