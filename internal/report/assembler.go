package report

import (
	"fmt"
	"strings"
	"time"

	"tariffbench/internal/domain"
)

// Assembler joins parsed line items, classifications, and tariff matches into
// the final report. Inputs are index-aligned: classifications[i] and
// matches[i] belong to items[i].
type Assembler struct {
	lowConfidence float64
}

func NewAssembler(lowConfidence float64) *Assembler {
	return &Assembler{lowConfidence: lowConfidence}
}

// Assemble produces exactly one row per line item, in document order. Rows
// are never dropped; degraded inputs surface through Status and StatusDetail.
func (a *Assembler) Assemble(doc *domain.Document, meta domain.InvoiceMeta, items []domain.LineItem, classifications []domain.Classification, matches []domain.TariffMatch, startedAt time.Time) *domain.Report {
	rows := make([]domain.ReportRow, len(items))
	for i := range items {
		rows[i] = a.buildRow(&items[i], meta, &classifications[i], matches[i])
	}
	return &domain.Report{
		DocumentID: doc.ID,
		SourceName: doc.SourceName,
		Invoice:    meta,
		Rows:       rows,
		Pages:      len(doc.Pages),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
}

func (a *Assembler) buildRow(item *domain.LineItem, meta domain.InvoiceMeta, cls *domain.Classification, match domain.TariffMatch) domain.ReportRow {
	row := domain.ReportRow{
		LineNo:        item.LineNo,
		PageIndex:     item.PageIndex,
		InvoiceNumber: meta.InvoiceNumber,
		InvoiceDate:   meta.InvoiceDate,
		Description:   item.Description,
		PartNumber:    item.PartNumber,
		Quantity:      item.Quantity,
		UnitPrice:     item.UnitPrice,
		Currency:      item.Currency,
		LineTotal:     item.LineTotal,
		HTSCode:       cls.Code,
		Confidence:    cls.Confidence,
		Rationale:     cls.Rationale,
		Status:        domain.StatusOK,
	}

	var details []string

	if item.Partial {
		row.Status = domain.WorstOf(row.Status, domain.StatusPartialParse)
		if len(item.MissingFields) > 0 {
			details = append(details, "missing "+strings.Join(item.MissingFields, ", "))
		}
	}
	if item.TotalMismatch {
		details = append(details, "line total does not match quantity x unit price")
	}

	switch {
	case cls.Code == "":
		row.Status = domain.WorstOf(row.Status, domain.StatusClassificationUnavailable)
		if cls.FailureReason != "" {
			details = append(details, cls.FailureReason)
		}
	case cls.Confidence < a.lowConfidence:
		row.Status = domain.WorstOf(row.Status, domain.StatusLowConfidence)
		details = append(details, fmt.Sprintf("confidence %.2f below %.2f", cls.Confidence, a.lowConfidence))
	}

	if cls.Code != "" {
		if match.Found {
			row.MatchedCode = match.MatchedCode
			row.PrefixLevel = match.PrefixLevel
			row.DutyRate = match.Entry.DutyRate
			row.RateUnit = match.Entry.RateUnit
			row.TariffHeading = match.Entry.Description
		} else {
			row.Status = domain.WorstOf(row.Status, domain.StatusTariffNotFound)
			details = append(details, fmt.Sprintf("%v: %s", domain.ErrTariffNotFound, cls.Code))
		}
	}

	row.StatusDetail = strings.Join(details, "; ")
	return row
}
