package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"tariffbench/internal/domain"
	"tariffbench/internal/lineitems"
	"tariffbench/internal/ocr"
	"tariffbench/internal/port"
	"tariffbench/internal/report"
	"tariffbench/internal/tariff"
	"tariffbench/mocks"
)

// orderedClassifier returns a code derived from the description, with a
// random-ish delay so completion order differs from submission order.
type orderedClassifier struct {
	calls atomic.Int32
}

func (c *orderedClassifier) Classify(_ context.Context, input port.ClassifyInput) (*domain.Classification, error) {
	n := c.calls.Add(1)
	time.Sleep(time.Duration((n%3)+1) * time.Millisecond)
	return &domain.Classification{
		Code:       "7326.90.86",
		Confidence: 0.9,
		Rationale:  "for " + input.Description,
	}, nil
}

func testItems(n int) []domain.LineItem {
	items := make([]domain.LineItem, n)
	for i := range items {
		items[i] = domain.LineItem{
			LineNo:      i + 1,
			Description: fmt.Sprintf("item %d", i),
			Quantity:    1, UnitPrice: 1, LineTotal: 1,
		}
	}
	return items
}

func testPipeline(cls port.Classifier) *Pipeline {
	lookup := tariff.NewLookup([]domain.TariffEntry{
		{Code: "7326.90.86", Description: "Other articles of iron or steel", DutyRate: 2.9, RateUnit: "percent"},
	})
	return New(nil, nil, lineitems.NewParser(lineitems.Config{}, nil), cls, lookup,
		report.NewAssembler(0.5), Options{ExtractConcurrency: 2, ClassifyConcurrency: 3}, nil)
}

func TestClassifyItems_KeepsDocumentOrder(t *testing.T) {
	p := testPipeline(&orderedClassifier{})
	items := testItems(10)

	out, err := p.classifyItems(context.Background(), items)

	require.NoError(t, err)
	require.Len(t, out, 10)
	for i, cls := range out {
		assert.Equal(t, fmt.Sprintf("for item %d", i), cls.Rationale)
	}
}

func TestClassifyItems_FailureKeepsRow(t *testing.T) {
	cls := new(mocks.MockClassifier)
	cls.On("Classify", mock.Anything, mock.MatchedBy(func(in port.ClassifyInput) bool {
		return in.Description == "item 1"
	})).Return(nil, errors.New("provider down"))
	cls.On("Classify", mock.Anything, mock.Anything).Return(
		&domain.Classification{Code: "7326.90.86", Confidence: 0.9}, nil)

	p := testPipeline(cls)
	out, err := p.classifyItems(context.Background(), testItems(3))

	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "7326.90.86", out[0].Code)
	assert.Empty(t, out[1].Code)
	assert.Contains(t, out[1].FailureReason, "provider down")
	assert.Equal(t, "7326.90.86", out[2].Code)
}

func TestClassifyItems_CancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := testPipeline(&orderedClassifier{})
	_, err := p.classifyItems(ctx, testItems(5))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractPages_DegradedPageKept(t *testing.T) {
	// Page 2 has no native text and OCR fails; pages 1 and 3 extract fine.
	r := &pageRunner{failFor: "page2.pdf"}
	e := ocr.NewExtractor(ocr.Config{}, nil).WithRunner(r)

	p := New(nil, e, nil, nil, nil, nil, Options{ExtractConcurrency: 2}, nil)
	doc := &domain.Document{
		ID: uuid.New(),
		Pages: []domain.Page{
			{Index: 0, FilePath: "page1.pdf"},
			{Index: 1, FilePath: "page2.pdf"},
			{Index: 2, FilePath: "page3.pdf"},
		},
	}

	pages, err := p.extractPages(context.Background(), doc)

	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.False(t, pages[0].Degraded)
	assert.True(t, pages[1].Degraded)
	assert.Empty(t, pages[1].Text)
	assert.False(t, pages[2].Degraded)
	assert.Equal(t, 1, pages[1].PageIndex)
}

// pageRunner emits long native text for every page except failFor, which
// yields nothing natively and then fails rasterization.
type pageRunner struct {
	failFor string
}

func (r *pageRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	switch name {
	case "pdftotext":
		path := args[len(args)-2]
		if path == r.failFor {
			return nil, nil, nil
		}
		return []byte("Invoice page with plenty of native text content for extraction"), nil, nil
	case "pdftoppm":
		return nil, []byte("no display"), errors.New("exit status 1")
	}
	return nil, nil, errors.New("unexpected command: " + name)
}

// slowPageRunner hangs on slowFor until the call context expires; every
// other page yields native text immediately.
type slowPageRunner struct {
	slowFor string
}

func (r *slowPageRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if name == "pdftotext" {
		path := args[len(args)-2]
		if path != r.slowFor {
			return []byte("Invoice page with plenty of native text content for extraction"), nil, nil
		}
	}
	<-ctx.Done()
	return nil, nil, ctx.Err()
}

func TestExtractPages_SlowPageDegradesNotFatal(t *testing.T) {
	r := &slowPageRunner{slowFor: "page2.pdf"}
	e := ocr.NewExtractor(ocr.Config{Timeout: 25 * time.Millisecond}, nil).WithRunner(r)

	p := New(nil, e, nil, nil, nil, nil, Options{ExtractConcurrency: 2}, nil)
	doc := &domain.Document{
		ID: uuid.New(),
		Pages: []domain.Page{
			{Index: 0, FilePath: "page1.pdf"},
			{Index: 1, FilePath: "page2.pdf"},
			{Index: 2, FilePath: "page3.pdf"},
		},
	}

	pages, err := p.extractPages(context.Background(), doc)

	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.False(t, pages[0].Degraded)
	assert.True(t, pages[1].Degraded)
	assert.Empty(t, pages[1].Text)
	assert.False(t, pages[2].Degraded)
}

func TestClassifyItems_TimeoutOnEveryCall(t *testing.T) {
	cls := new(mocks.MockClassifier)
	cls.On("Classify", mock.Anything, mock.Anything).Return(
		nil, fmt.Errorf("calling openai API: %w", context.DeadlineExceeded))

	p := testPipeline(cls)
	items := testItems(4)

	out, err := p.classifyItems(context.Background(), items)

	require.NoError(t, err)
	require.Len(t, out, 4)
	for _, c := range out {
		assert.Empty(t, c.Code)
		assert.Contains(t, c.FailureReason, "classification unavailable")
	}

	doc := &domain.Document{ID: uuid.New(), Pages: []domain.Page{{Index: 0}}}
	rep := p.assembler.Assemble(doc, domain.InvoiceMeta{}, items, out, make([]domain.TariffMatch, 4), time.Now())
	require.Len(t, rep.Rows, 4)
	for _, row := range rep.Rows {
		assert.Equal(t, domain.StatusClassificationUnavailable, row.Status)
	}
}

func TestRun_EndToEndWithoutLoader(t *testing.T) {
	// Exercises parse -> classify -> resolve -> assemble on pre-extracted
	// text, the portion of Run downstream of the PDF loader.
	p := testPipeline(&orderedClassifier{})

	pages := []domain.PageText{{
		PageIndex: 0,
		Source:    domain.SourceNativeText,
		Text: `Acme Industrial
Invoice No: INV-7
Description   Qty   Price   Amount
Steel widget 10 2.50 25.00
Unknown blob 1 5.00 5.00
Total 30.00
`,
	}}

	items, meta := p.parser.Parse(pages)
	require.Len(t, items, 2)
	assert.Equal(t, "INV-7", meta.InvoiceNumber)

	classifications, err := p.classifyItems(context.Background(), items)
	require.NoError(t, err)

	matches := make([]domain.TariffMatch, len(items))
	for i := range classifications {
		if classifications[i].Code != "" {
			matches[i] = p.lookup.Resolve(classifications[i].Code)
		}
	}

	doc := &domain.Document{ID: uuid.New(), SourceName: "acme.pdf", Pages: []domain.Page{{Index: 0}}}
	rep := p.assembler.Assemble(doc, meta, items, classifications, matches, time.Now())

	require.Len(t, rep.Rows, 2)
	assert.Equal(t, 1, rep.Rows[0].LineNo)
	assert.Equal(t, domain.StatusOK, rep.Rows[0].Status)
	assert.InDelta(t, 2.9, rep.Rows[0].DutyRate, 1e-9)
	assert.Equal(t, "INV-7", rep.Rows[0].InvoiceNumber)
}
