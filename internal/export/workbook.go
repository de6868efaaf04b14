// Package export writes filtered sales records as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/models"
)

const (
	SalesSheet  = "Sales"
	FilterSheet = "Filter"
)

var salesHeader = []any{"Date", "Region", "AveragePrice", "Total Volume"}

// WriteWorkbook writes records, in the order given, to a "Sales" sheet and echoes filter on a "Filter" sheet.
func WriteWorkbook(w io.Writer, filter models.Filter, records []models.SalesRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(SalesSheet, "A1", &salesHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(SalesSheet, "A1", "D1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(SalesSheet, "A", "D", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.Date.Format(models.DateLayout),
			r.Region,
			r.AveragePrice.InexactFloat64(),
			r.TotalVolume.InexactFloat64(),
		}
		if err := f.SetSheetRow(SalesSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(FilterSheet); err != nil {
		return fmt.Errorf("create filter sheet: %w", err)
	}
	filterRows := [][]any{
		{"Region", filter.Region},
		{"Start", filter.Start.Format(models.DateLayout)},
		{"End", filter.End.Format(models.DateLayout)},
		{"Rows", len(records)},
	}
	for i, row := range filterRows {
		if err := f.SetSheetRow(FilterSheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("write filter row: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
