package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded invoice PDF that has been validated and split into
// pages. It is immutable after loading and discarded once the report is built.
type Document struct {
	ID         uuid.UUID
	SourceName string
	Pages      []Page
	LoadedAt   time.Time
}

// Page is a single page of a Document, in original document order.
// FilePath points at the extracted single-page PDF on disk.
type Page struct {
	Index    int
	FilePath string
}

// PageText is the extraction result for one page.
type PageText struct {
	PageIndex  int
	Text       string
	Source     ExtractionSource
	Confidence float64
	Degraded   bool
	Warnings   []string
}

// InvoiceMeta holds header fields captured from the invoice text, when present.
type InvoiceMeta struct {
	InvoiceNumber string
	InvoiceDate   string
	Vendor        string
}

// LineItem is a single billed entry parsed from a page. A row that could not
// be fully parsed keeps whatever fields it has with Partial set; it is never
// discarded.
type LineItem struct {
	PageIndex   int
	LineNo      int // 1-based position within the document
	Description string
	PartNumber  string
	Quantity    float64
	UnitPrice   float64
	Currency    string
	LineTotal   float64

	Partial       bool
	MissingFields []string
	TotalMismatch bool
}

// Classification is the HTS prediction for one LineItem. It exists even when
// the classifier failed; then Code is empty and FailureReason says why.
type Classification struct {
	Code          string  // normalized dotted form, e.g. "8471.41.00"
	Confidence    float64 // 0..1
	Rationale     string
	ModelUsed     string
	PromptVersion string
	FailureReason string
}

// TariffEntry is one row of the reference tariff table.
type TariffEntry struct {
	Code        string  `db:"code"`
	Description string  `db:"description"`
	DutyRate    float64 `db:"duty_rate"`
	RateUnit    string  `db:"rate_unit"` // "percent" or a fixed-fee unit like "USD/kg"
}

// TariffMatch is the result of resolving a predicted code against the
// reference table. PrefixLevel is the number of code digits that matched
// (8, 6, or 4); 0 when nothing matched.
type TariffMatch struct {
	Entry       *TariffEntry
	MatchedCode string
	PrefixLevel int
	Found       bool
}

// ReportRow joins a LineItem with its classification and tariff match.
// Exactly one row exists per line item, including degraded ones.
type ReportRow struct {
	LineNo        int
	PageIndex     int
	InvoiceNumber string
	InvoiceDate   string
	Description   string
	PartNumber    string
	Quantity      float64
	UnitPrice     float64
	Currency      string
	LineTotal     float64
	HTSCode       string
	Confidence    float64
	Rationale     string
	MatchedCode   string
	PrefixLevel   int
	DutyRate      float64
	RateUnit      string
	TariffHeading string
	Status        RowStatus
	StatusDetail  string
}

// Report is the final pipeline output for one document.
type Report struct {
	DocumentID uuid.UUID
	SourceName string
	Invoice    InvoiceMeta
	Rows       []ReportRow
	Pages      int
	StartedAt  time.Time
	FinishedAt time.Time
}
