package tariff

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tariffbench/internal/domain"
)

// LoadFromFile parses a reference tariff table from raw file bytes. The
// format is picked from the file extension: .csv, or .xlsx for Excel
// workbooks exported from the published HTS schedule.
func LoadFromFile(name string, data []byte) ([]domain.TariffEntry, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return loadCSV(data)
	case ".xlsx":
		return loadXLSX(data)
	default:
		return nil, fmt.Errorf("unsupported tariff table format: %s", name)
	}
}

// loadCSV reads a table with columns code, description, duty_rate, rate_unit.
// A header row is detected and skipped; rows without a numeric code are
// ignored, matching how published schedules interleave chapter headings.
func loadCSV(data []byte) ([]domain.TariffEntry, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var entries []domain.TariffEntry
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tariff CSV: %w", err)
		}
		if e, ok := rowToEntry(record); ok {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("tariff CSV contains no usable rows")
	}
	return entries, nil
}

// loadXLSX reads the first sheet of an Excel workbook with the same column
// layout as the CSV form.
func loadXLSX(data []byte) ([]domain.TariffEntry, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open tariff workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}

	var entries []domain.TariffEntry
	for _, row := range rows {
		if e, ok := rowToEntry(row); ok {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("tariff workbook contains no usable rows")
	}
	return entries, nil
}

func rowToEntry(row []string) (domain.TariffEntry, bool) {
	code := strings.TrimSpace(cellVal(row, 0))
	if digitsOnly(code) == "" {
		return domain.TariffEntry{}, false
	}

	rate, ok := parseRate(cellVal(row, 2))
	if !ok {
		return domain.TariffEntry{}, false
	}

	unit := strings.TrimSpace(cellVal(row, 3))
	if unit == "" {
		unit = "percent"
	}

	return domain.TariffEntry{
		Code:        code,
		Description: strings.TrimSpace(cellVal(row, 1)),
		DutyRate:    rate,
		RateUnit:    unit,
	}, true
}

// parseRate accepts "2.5", "2.5%", and "Free" (zero duty).
func parseRate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "free") {
		return 0, true
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cellVal(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
