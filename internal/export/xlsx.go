// Package export serializes the pivot table to spreadsheet formats.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"veraz/internal/analytics"
)

const (
	SheetName   = "Deudas"
	FileName    = "tabla_unificada.xlsx"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WritePivotXLSX writes the pivot as a single-sheet workbook: a header row
// followed by one row per entity in the pivot order.
func WritePivotXLSX(w io.Writer, p analytics.Pivot) error {
	table := p.ExportTable()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(table.Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "A", 45); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
