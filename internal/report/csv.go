package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"tariffbench/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Line No",
	"Page",
	"Invoice Number",
	"Invoice Date",
	"Description",
	"Part Number",
	"Quantity",
	"Unit Price",
	"Currency",
	"Line Total",
	"HTS Code",
	"Confidence",
	"Matched Code",
	"Prefix Level",
	"Duty Rate",
	"Rate Unit",
	"Tariff Heading",
	"Status",
	"Status Detail",
}

// CSVWriter wraps csv.Writer for exporting report rows as CSV.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes CSV to w, prefixed with a BOM.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	if _, err := w.Write(BOM); err != nil {
		return nil, fmt.Errorf("writing BOM: %w", err)
	}
	return &CSVWriter{csv: csv.NewWriter(w)}, nil
}

// WriteReport writes the header row followed by one row per report row.
func (w *CSVWriter) WriteReport(rep *domain.Report) error {
	if err := w.csv.Write(columns); err != nil {
		return err
	}
	for i := range rep.Rows {
		if err := w.csv.Write(rowToRecord(&rep.Rows[i])); err != nil {
			return err
		}
	}
	w.csv.Flush()
	return w.csv.Error()
}

func rowToRecord(r *domain.ReportRow) []string {
	rec := make([]string, len(columns))
	rec[0] = strconv.Itoa(r.LineNo)
	rec[1] = strconv.Itoa(r.PageIndex + 1)
	rec[2] = r.InvoiceNumber
	rec[3] = r.InvoiceDate
	rec[4] = r.Description
	rec[5] = r.PartNumber
	rec[6] = formatQty(r.Quantity)
	rec[7] = formatMoney(r.UnitPrice)
	rec[8] = r.Currency
	rec[9] = formatMoney(r.LineTotal)
	rec[10] = r.HTSCode
	if r.HTSCode != "" {
		rec[11] = strconv.FormatFloat(r.Confidence, 'f', 2, 64)
	}
	rec[12] = r.MatchedCode
	if r.PrefixLevel > 0 {
		rec[13] = strconv.Itoa(r.PrefixLevel)
	}
	if r.MatchedCode != "" {
		rec[14] = strconv.FormatFloat(r.DutyRate, 'f', 2, 64)
		rec[15] = r.RateUnit
	}
	rec[16] = r.TariffHeading
	rec[17] = string(r.Status)
	rec[18] = r.StatusDetail
	return rec
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildFilename returns the download filename for a report.
// Format: {source_name}_{YYYY-MM-DD}.csv
func BuildFilename(sourceName string) string {
	return fmt.Sprintf("%s_%s.csv", sourceName, time.Now().Format("2006-01-02"))
}
