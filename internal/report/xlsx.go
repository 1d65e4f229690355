package report

import (
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"tariffbench/internal/domain"
)

const logSheet = "Classifications"

// WriteXLSX writes a report as a single-sheet Excel workbook at path.
func WriteXLSX(rep *domain.Report, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := writeRow(f, sheet, 1, headerCells()); err != nil {
		return err
	}
	for i := range rep.Rows {
		if err := writeRow(f, sheet, i+2, rowCells(&rep.Rows[i])); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// AppendToLog appends a report's rows to a running classification log
// workbook, creating the file with a header row when it does not exist yet.
// Each appended row carries the source document and run timestamp so several
// invoices can share one log.
func AppendToLog(rep *domain.Report, path string) error {
	f, created, err := openOrCreateLog(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(logSheet)
	if err != nil {
		return fmt.Errorf("reading log sheet: %w", err)
	}
	next := len(rows) + 1

	stamp := rep.FinishedAt.Format(time.RFC3339)
	for i := range rep.Rows {
		cells := append([]interface{}{rep.SourceName, stamp}, rowCells(&rep.Rows[i])...)
		if err := writeRow(f, logSheet, next, cells); err != nil {
			return err
		}
		next++
	}

	if created {
		return f.SaveAs(path)
	}
	return f.Save()
}

func openOrCreateLog(path string) (*excelize.File, bool, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("opening log workbook: %w", err)
		}
		if idx, _ := f.GetSheetIndex(logSheet); idx < 0 {
			if _, err := f.NewSheet(logSheet); err != nil {
				return nil, false, fmt.Errorf("adding log sheet: %w", err)
			}
		}
		return f, false, nil
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), logSheet); err != nil {
		return nil, false, fmt.Errorf("naming log sheet: %w", err)
	}
	header := append([]interface{}{"Source", "Run At"}, headerCells()...)
	if err := writeRow(f, logSheet, 1, header); err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", rowNum, err)
	}
	return nil
}

func headerCells() []interface{} {
	cells := make([]interface{}, len(columns))
	for i, c := range columns {
		cells[i] = c
	}
	return cells
}

func rowCells(r *domain.ReportRow) []interface{} {
	rec := rowToRecord(r)
	cells := make([]interface{}, len(rec))
	for i, v := range rec {
		cells[i] = v
	}
	// Numeric columns as numbers so spreadsheet formulas work on them.
	cells[0] = r.LineNo
	cells[1] = r.PageIndex + 1
	cells[6] = r.Quantity
	cells[7] = r.UnitPrice
	cells[9] = r.LineTotal
	if r.HTSCode != "" {
		cells[11] = r.Confidence
	}
	if r.MatchedCode != "" {
		cells[14] = r.DutyRate
	}
	return cells
}
