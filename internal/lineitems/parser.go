package lineitems

import (
	"log/slog"
	"math"
	"regexp"
	"strings"

	"tariffbench/internal/domain"
)

// Config holds parsing heuristics tuning.
type Config struct {
	// TotalTolerance is the absolute gap allowed between the printed line
	// total and quantity×unit price before the row is flagged. A relative
	// 0.5% band applies on top for large totals.
	TotalTolerance float64
}

// Parser segments raw page text into line items. Invoices have no fixed
// layout, so everything here is heuristic: a table starts at a header row
// with description/quantity/price markers and ends at a subtotal/total/footer
// marker or at a page break that is not continued by more row-shaped lines.
type Parser struct {
	cfg    Config
	logger *slog.Logger
}

func NewParser(cfg Config, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TotalTolerance <= 0 {
		cfg.TotalTolerance = 0.05
	}
	return &Parser{cfg: cfg, logger: logger}
}

var (
	descMarker  = regexp.MustCompile(`(?i)\b(description|item|product|article|part)\b`)
	qtyMarker   = regexp.MustCompile(`(?i)\b(qty|quantity|units?|pcs)\b`)
	priceMarker = regexp.MustCompile(`(?i)\b(price|rate|cost|amount)\b`)

	endMarker = regexp.MustCompile(`(?i)^\s*(sub\s?-?total|total\b|grand\s+total|amount\s+due|balance(\s+due)?|tax\b|vat\b|freight|shipping|thank\s+you|terms|notes?\b|remarks)`)

	// partNumber matches catalogue/manufacturer part tokens such as
	// "WGT-100" or "8A7234": alphanumeric with at least one digit.
	partNumber = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/_-]{2,}$`)
	hasDigit   = regexp.MustCompile(`\d`)

	reInvoiceNo   = regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)\s*[:.]?\s*([A-Za-z0-9/-]+)`)
	reInvoiceDate = regexp.MustCompile(`(?i)(?:invoice\s+)?date\s*[:.]?\s*(\d{1,4}[-/.]\d{1,2}[-/.]\d{2,4}|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4})`)
)

// Parse walks the pages in document order and returns every line item found,
// plus whatever invoice header fields could be captured. Rows that cannot be
// fully parsed are retained with Partial set; partial information must not
// vanish silently.
func (p *Parser) Parse(pages []domain.PageText) ([]domain.LineItem, domain.InvoiceMeta) {
	var items []domain.LineItem
	meta := p.captureMeta(pages)

	inTable := false
	currency := ""
	for _, page := range pages {
		lines := strings.Split(page.Text, "\n")

		// A table left open at a page break survives only if this page
		// leads with more row-shaped lines; otherwise it ended with the page.
		if inTable && !continuesTable(lines) {
			inTable = false
		}

		for _, raw := range lines {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}

			if !inTable {
				if isHeaderRow(line) {
					inTable = true
				}
				continue
			}

			if endMarker.MatchString(line) {
				inTable = false
				continue
			}
			if isHeaderRow(line) {
				continue
			}

			if c := DetectCurrency(line); c != "" {
				currency = c
			}

			item, ok := p.parseRow(line, page.PageIndex, currency)
			if !ok {
				// Continuation line: wrapped description belonging to the
				// previous row.
				if n := len(items); n > 0 && items[n-1].PageIndex == page.PageIndex {
					items[n-1].Description = strings.TrimSpace(items[n-1].Description + " " + line)
				}
				continue
			}
			items = append(items, item)
		}
	}

	for i := range items {
		items[i].LineNo = i + 1
	}

	p.logger.Info("line items parsed",
		"pages", len(pages),
		"items", len(items),
		"partial", countPartial(items),
	)
	return items, meta
}

func isHeaderRow(line string) bool {
	return descMarker.MatchString(line) && qtyMarker.MatchString(line) && priceMarker.MatchString(line)
}

// continuesTable reports whether the first non-empty line of a page looks
// like a data row, i.e. ends in numeric tokens.
func continuesTable(lines []string) bool {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if endMarker.MatchString(line) || isHeaderRow(line) {
			return false
		}
		_, numerics := splitRow(line)
		return len(numerics) > 0
	}
	return false
}

// splitRow separates a row into its description part and the trailing numeric
// tokens (quantity/price/total columns always sit at the end of the line).
func splitRow(line string) (desc string, numerics []float64) {
	fields := strings.Fields(line)
	cut := len(fields)
	for cut > 0 {
		if _, ok := ParseAmount(fields[cut-1]); !ok {
			break
		}
		cut--
	}
	for _, f := range fields[cut:] {
		v, _ := ParseAmount(f)
		numerics = append(numerics, v)
	}
	desc = strings.TrimRight(strings.Join(fields[:cut], " "), ",;")
	return desc, numerics
}

// parseRow attempts to read one physical line as an invoice row. It returns
// ok=false for lines with no numeric columns at all; those are continuation
// lines, not rows.
func (p *Parser) parseRow(line string, pageIndex int, currency string) (domain.LineItem, bool) {
	desc, numerics := splitRow(line)
	if len(numerics) == 0 {
		return domain.LineItem{}, false
	}

	item := domain.LineItem{
		PageIndex:   pageIndex,
		Description: desc,
		Currency:    currency,
	}

	// Peel a leading part number off the description when one is present.
	if fields := strings.Fields(desc); len(fields) > 1 {
		first := fields[0]
		if partNumber.MatchString(first) && hasDigit.MatchString(first) {
			item.PartNumber = first
			item.Description = strings.Join(fields[1:], " ")
		}
	}

	switch n := len(numerics); {
	case n >= 3:
		item.Quantity = numerics[0]
		item.UnitPrice = numerics[n-2]
		item.LineTotal = numerics[n-1]
	case n == 2:
		item.Quantity = numerics[0]
		item.LineTotal = numerics[1]
		item.Partial = true
		item.MissingFields = append(item.MissingFields, "unit_price")
	case n == 1:
		item.LineTotal = numerics[0]
		item.Partial = true
		item.MissingFields = append(item.MissingFields, "quantity", "unit_price")
	}

	if item.Quantity < 0 || (len(item.MissingFields) == 0 && item.Quantity == 0) {
		item.Partial = true
		item.MissingFields = append(item.MissingFields, "quantity")
	}
	if item.Description == "" {
		item.Partial = true
		item.MissingFields = append(item.MissingFields, "description")
	}

	if !item.Partial {
		expected := item.Quantity * item.UnitPrice
		tol := math.Max(p.cfg.TotalTolerance, 0.005*math.Abs(item.LineTotal))
		if math.Abs(expected-item.LineTotal) > tol {
			item.TotalMismatch = true
		}
	}

	return item, true
}

// captureMeta pulls invoice number, date, and vendor from the page text. The
// vendor heuristic takes the first non-empty line of the first page that is
// not itself an invoice-number/date line.
func (p *Parser) captureMeta(pages []domain.PageText) domain.InvoiceMeta {
	var meta domain.InvoiceMeta
	for _, page := range pages {
		if meta.InvoiceNumber == "" {
			if m := reInvoiceNo.FindStringSubmatch(page.Text); m != nil {
				meta.InvoiceNumber = m[1]
			}
		}
		if meta.InvoiceDate == "" {
			if m := reInvoiceDate.FindStringSubmatch(page.Text); m != nil {
				meta.InvoiceDate = m[1]
			}
		}
	}
	if len(pages) > 0 {
		for _, raw := range strings.Split(pages[0].Text, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" || reInvoiceNo.MatchString(line) || reInvoiceDate.MatchString(line) {
				continue
			}
			if strings.EqualFold(line, "invoice") {
				continue
			}
			meta.Vendor = line
			break
		}
	}
	return meta
}

func countPartial(items []domain.LineItem) int {
	n := 0
	for i := range items {
		if items[i].Partial {
			n++
		}
	}
	return n
}
