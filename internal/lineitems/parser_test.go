package lineitems_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariffbench/internal/domain"
	"tariffbench/internal/lineitems"
)

func page(idx int, text string) domain.PageText {
	return domain.PageText{PageIndex: idx, Text: text, Source: domain.SourceNativeText, Confidence: 1.0}
}

func TestParser_SimpleTable(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, meta := p.Parse([]domain.PageText{page(0, `Acme Industrial Supply
Invoice No: INV-2024-0042
Date: 2024-03-15

Description            Qty    Unit Price    Amount
WGT-100 Steel widget   10     $2.50         $25.00
Bracket assembly       4      3.00          12.00

Subtotal                                    37.00
Total                                       37.00
`)})

	require.Len(t, items, 2)

	assert.Equal(t, 1, items[0].LineNo)
	assert.Equal(t, "WGT-100", items[0].PartNumber)
	assert.Equal(t, "Steel widget", items[0].Description)
	assert.InDelta(t, 10, items[0].Quantity, 1e-9)
	assert.InDelta(t, 2.50, items[0].UnitPrice, 1e-9)
	assert.InDelta(t, 25.00, items[0].LineTotal, 1e-9)
	assert.Equal(t, "USD", items[0].Currency)
	assert.False(t, items[0].Partial)
	assert.False(t, items[0].TotalMismatch)

	assert.Equal(t, 2, items[1].LineNo)
	assert.Equal(t, "Bracket assembly", items[1].Description)
	assert.Empty(t, items[1].PartNumber)

	assert.Equal(t, "INV-2024-0042", meta.InvoiceNumber)
	assert.Equal(t, "2024-03-15", meta.InvoiceDate)
	assert.Equal(t, "Acme Industrial Supply", meta.Vendor)
}

func TestParser_PartialRows(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, _ := p.Parse([]domain.PageText{page(0, `Description   Qty   Price   Amount
Mounting kit 12.00
Gasket set 3 9.00
`)})

	require.Len(t, items, 2)

	// Only a total: quantity and unit price are missing.
	assert.True(t, items[0].Partial)
	assert.ElementsMatch(t, []string{"quantity", "unit_price"}, items[0].MissingFields)
	assert.InDelta(t, 12.00, items[0].LineTotal, 1e-9)

	// Quantity and total, no unit price.
	assert.True(t, items[1].Partial)
	assert.Equal(t, []string{"unit_price"}, items[1].MissingFields)
	assert.InDelta(t, 3, items[1].Quantity, 1e-9)
	assert.InDelta(t, 9.00, items[1].LineTotal, 1e-9)
}

func TestParser_ContinuationLine(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, _ := p.Parse([]domain.PageText{page(0, `Description   Qty   Price   Amount
Hydraulic pump 2 150.00 300.00
with mounting hardware
Filter element 5 8.00 40.00
`)})

	require.Len(t, items, 2)
	assert.Equal(t, "Hydraulic pump with mounting hardware", items[0].Description)
	assert.Equal(t, "Filter element", items[1].Description)
}

func TestParser_TableSpansPages(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, _ := p.Parse([]domain.PageText{
		page(0, `Description   Qty   Price   Amount
Bearing 6204 20 1.10 22.00
`),
		page(1, `Shaft seal 10 0.80 8.00
Total 30.00
`),
	})

	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].PageIndex)
	assert.Equal(t, 1, items[1].PageIndex)
	assert.Equal(t, "Shaft seal", items[1].Description)
}

func TestParser_TableClosesAtPageBreak(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	// Page 2 leads with prose, not a row: the table ended with page 1.
	items, _ := p.Parse([]domain.PageText{
		page(0, `Description   Qty   Price   Amount
Bearing 6204 20 1.10 22.00
`),
		page(1, `Payment terms and conditions
Please remit within 30 days of 2024.
`),
	})

	require.Len(t, items, 1)
}

func TestParser_TotalMismatchFlagged(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, _ := p.Parse([]domain.PageText{page(0, `Description   Qty   Price   Amount
Gear 2 5.00 11.00
Pinion 2 5.00 10.00
`)})

	require.Len(t, items, 2)
	assert.True(t, items[0].TotalMismatch)
	assert.False(t, items[0].Partial)
	assert.False(t, items[1].TotalMismatch)
}

func TestParser_ZeroQuantityIsPartial(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, _ := p.Parse([]domain.PageText{page(0, `Description   Qty   Price   Amount
Washer 0 1.00 0.00
`)})

	require.Len(t, items, 1)
	assert.True(t, items[0].Partial)
	assert.Contains(t, items[0].MissingFields, "quantity")
}

func TestParser_NoTableNoItems(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, _ := p.Parse([]domain.PageText{page(0, "Just a letter, no table at all.\nRegards,\nAcme")})
	assert.Empty(t, items)
}

func TestParser_EmptyOCRPageYieldsNothing(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, _ := p.Parse([]domain.PageText{
		{PageIndex: 0, Degraded: true},
	})
	assert.Empty(t, items)
}

func TestParser_CommaSeparatedColumns(t *testing.T) {
	p := lineitems.NewParser(lineitems.Config{}, nil)

	items, _ := p.Parse([]domain.PageText{page(0, `Invoice No: INV-9
Description, Qty, Price, Amount
Widget A, 10, $5.00, $50.00
Total, $50.00
`)})

	require.Len(t, items, 1)
	assert.Equal(t, "Widget A", items[0].Description)
	assert.InDelta(t, 10, items[0].Quantity, 1e-9)
	assert.InDelta(t, 5.00, items[0].UnitPrice, 1e-9)
	assert.InDelta(t, 50.00, items[0].LineTotal, 1e-9)
	assert.Equal(t, "USD", items[0].Currency)
	assert.False(t, items[0].Partial)
	assert.False(t, items[0].TotalMismatch)
}
