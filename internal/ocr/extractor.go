package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tariffbench/internal/domain"
)

// Config holds text extraction settings. Binary fields accept a name on PATH
// or an absolute path.
type Config struct {
	Pdftotext string // default "pdftotext"
	Pdftoppm  string // default "pdftoppm"
	Tesseract string // default "tesseract"

	Language string // default "eng"
	DPI      int    // rasterization DPI for scanned pages, default 300

	// MinPageChars: pages whose native text has fewer alphanumeric
	// characters fall back to OCR. Default 30.
	MinPageChars int

	// Timeout bounds each external invocation.
	Timeout time.Duration
}

// Extractor produces per-page text, preferring native extraction and falling
// back to OCR for scanned pages.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinPageChars <= 0 {
		cfg.MinPageChars = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner; tests use this to stub the binaries.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// ExtractPage returns the text for a single page. Native extraction wins when
// it yields enough alphanumeric characters; otherwise the page is rasterized
// and OCRed. An OCR failure degrades the page to empty text and reports
// domain.ErrExtractionFailed; it never aborts the document.
func (e *Extractor) ExtractPage(ctx context.Context, page domain.Page) (domain.PageText, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	native, nativeErr := e.pdfToText(callCtx, page.FilePath)
	if nativeErr == nil && AlnumCount(native) >= e.cfg.MinPageChars {
		txt := Normalize(native)
		e.logger.Debug("page extracted",
			"page", page.Index, "source", domain.SourceNativeText, "chars", len(txt))
		return domain.PageText{
			PageIndex:  page.Index,
			Text:       txt,
			Source:     domain.SourceNativeText,
			Confidence: 1.0,
		}, nil
	}

	var warnings []string
	if nativeErr != nil {
		warnings = append(warnings, fmt.Sprintf("pdftotext: %v", nativeErr))
	} else {
		warnings = append(warnings, fmt.Sprintf("native text below threshold (%d < %d chars)",
			AlnumCount(native), e.cfg.MinPageChars))
	}

	if err := ctx.Err(); err != nil {
		return domain.PageText{PageIndex: page.Index, Degraded: true, Warnings: warnings}, err
	}
	if callCtx.Err() != nil {
		// The per-page budget ran out while the caller is still live. That is
		// a page defect, not a reason to abort the document.
		warnings = append(warnings, fmt.Sprintf("extraction timed out after %s", e.cfg.Timeout))
		e.logger.Warn("page degraded to empty text",
			"page", page.Index, "error", callCtx.Err())
		return domain.PageText{
			PageIndex: page.Index,
			Degraded:  true,
			Warnings:  warnings,
		}, fmt.Errorf("%w: page %d: timed out after %s", domain.ErrExtractionFailed, page.Index, e.cfg.Timeout)
	}

	ocrText, ocrErr := e.pdfToOCR(callCtx, page.FilePath)
	if ocrErr != nil {
		// Cancellation is the caller's concern, not a page defect.
		if ctx.Err() != nil {
			return domain.PageText{PageIndex: page.Index, Degraded: true, Warnings: warnings}, ctx.Err()
		}
		warnings = append(warnings, ocrErr.Error())
		e.logger.Warn("page degraded to empty text",
			"page", page.Index, "error", ocrErr)
		return domain.PageText{
			PageIndex: page.Index,
			Source:    domain.SourceOCR,
			Degraded:  true,
			Warnings:  warnings,
		}, fmt.Errorf("%w: page %d: %v", domain.ErrExtractionFailed, page.Index, ocrErr)
	}

	txt := Normalize(ocrText)
	e.logger.Debug("page extracted",
		"page", page.Index, "source", domain.SourceOCR, "chars", len(txt))
	return domain.PageText{
		PageIndex:  page.Index,
		Text:       txt,
		Source:     domain.SourceOCR,
		Confidence: heuristicConfidence(txt),
		Warnings:   warnings,
	}, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %v (%s)", err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "tariffbench-ocr-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %v (%s)", err, strings.TrimSpace(string(errb)))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no images")
	}

	var b strings.Builder
	for _, img := range matches {
		out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, img, "stdout", "-l", e.cfg.Language)
		if err != nil {
			return "", fmt.Errorf("tesseract: %v (%s)", err, strings.TrimSpace(string(errb)))
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.Write(out)
	}
	return b.String(), nil
}
