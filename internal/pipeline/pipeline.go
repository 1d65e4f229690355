package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tariffbench/internal/domain"
	"tariffbench/internal/lineitems"
	"tariffbench/internal/ocr"
	"tariffbench/internal/pdfdoc"
	"tariffbench/internal/port"
	"tariffbench/internal/report"
	"tariffbench/internal/tariff"
)

// Options tunes a pipeline run.
type Options struct {
	ExtractConcurrency  int
	ClassifyConcurrency int
}

// Pipeline runs one invoice end to end: load, extract, parse, classify,
// resolve tariffs, assemble. Stages degrade per page or per row; only an
// unreadable document or a cancelled context aborts the run.
type Pipeline struct {
	loader     *pdfdoc.Loader
	extractor  *ocr.Extractor
	parser     *lineitems.Parser
	classifier port.Classifier
	lookup     *tariff.Lookup
	assembler  *report.Assembler
	opts       Options
	logger     *slog.Logger
}

func New(loader *pdfdoc.Loader, extractor *ocr.Extractor, parser *lineitems.Parser, classifier port.Classifier, lookup *tariff.Lookup, assembler *report.Assembler, opts Options, logger *slog.Logger) *Pipeline {
	if opts.ExtractConcurrency < 1 {
		opts.ExtractConcurrency = 4
	}
	if opts.ClassifyConcurrency < 1 {
		opts.ClassifyConcurrency = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		loader:     loader,
		extractor:  extractor,
		parser:     parser,
		classifier: classifier,
		lookup:     lookup,
		assembler:  assembler,
		opts:       opts,
		logger:     logger,
	}
}

// Run processes one invoice PDF and returns its report. On cancellation it
// returns ctx's error and no report; a run never emits a partial report.
func (p *Pipeline) Run(ctx context.Context, pdfBytes []byte, sourceName, password string) (*domain.Report, error) {
	startedAt := time.Now()

	doc, cleanup, err := p.loader.Load(ctx, pdfBytes, sourceName, password)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := p.extractPages(ctx, doc)
	if err != nil {
		return nil, err
	}

	items, meta := p.parser.Parse(pages)
	p.logger.Info("pipeline parsed document",
		"document_id", doc.ID.String(), "pages", len(pages), "items", len(items))

	classifications, err := p.classifyItems(ctx, items)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.TariffMatch, len(items))
	for i := range classifications {
		if classifications[i].Code != "" {
			matches[i] = p.lookup.Resolve(classifications[i].Code)
		}
	}

	rep := p.assembler.Assemble(doc, meta, items, classifications, matches, startedAt)
	p.logger.Info("pipeline finished",
		"document_id", doc.ID.String(),
		"rows", len(rep.Rows),
		"duration", time.Since(startedAt).String())
	return rep, nil
}

// extractPages runs page extraction in parallel, bounded by
// ExtractConcurrency. Results keep document order via their page index.
// Per-page extraction failures degrade the page; cancellation aborts.
func (p *Pipeline) extractPages(ctx context.Context, doc *domain.Document) ([]domain.PageText, error) {
	pages := make([]domain.PageText, len(doc.Pages))

	sem := make(chan struct{}, p.opts.ExtractConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var runErr error

	for i := range doc.Pages {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			pt, err := p.extractor.ExtractPage(ctx, doc.Pages[idx])
			pages[idx] = pt
			if err != nil && !errors.Is(err, domain.ErrExtractionFailed) {
				mu.Lock()
				if runErr == nil {
					runErr = err
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

// classifyItems classifies all line items in parallel, bounded by
// ClassifyConcurrency. A classifier failure never drops a row: the item keeps
// an empty code and a failure reason. Cancellation aborts the run.
func (p *Pipeline) classifyItems(ctx context.Context, items []domain.LineItem) ([]domain.Classification, error) {
	classifications := make([]domain.Classification, len(items))

	sem := make(chan struct{}, p.opts.ClassifyConcurrency)
	var wg sync.WaitGroup

	for i := range items {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			input := port.ClassifyInput{
				Description: items[idx].Description,
				PartNumber:  items[idx].PartNumber,
				Quantity:    items[idx].Quantity,
			}
			out, err := p.classifier.Classify(ctx, input)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Warn("classification unavailable",
					"line_no", items[idx].LineNo, "error", err)
				classifications[idx] = domain.Classification{
					FailureReason: fmt.Errorf("%w: %v", domain.ErrClassificationUnavailable, err).Error(),
				}
				return
			}
			classifications[idx] = *out
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return classifications, nil
}
