package pdfdoc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"tariffbench/internal/domain"
)

// Loader validates an invoice PDF and splits it into single-page files so
// downstream extraction can work page by page.
type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load decodes pdfBytes into a Document. password is the PDF user password,
// empty for unencrypted documents. The returned cleanup removes the temp
// directory holding the page files; callers must invoke it once the run ends.
//
// Any validation or decryption failure is wrapped in
// domain.ErrUnreadableDocument: there is no valid input to process.
func (l *Loader) Load(ctx context.Context, pdfBytes []byte, sourceName, password string) (*domain.Document, func(), error) {
	tmpDir, err := os.MkdirTemp("", "tariffbench-doc-*")
	if err != nil {
		return nil, nil, fmt.Errorf("creating temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	sourcePath := filepath.Join(tmpDir, "source.pdf")
	if err := os.WriteFile(sourcePath, pdfBytes, 0o600); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("writing source pdf: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if password != "" {
		conf.UserPW = password
	}

	if err := api.ValidateFile(sourcePath, conf); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return nil, nil, err
	}

	// Optimize rewrites the document (and strips encryption when a valid
	// password was supplied) so the split pages are plain PDFs.
	optimizedPath := filepath.Join(tmpDir, "optimized.pdf")
	if err := api.OptimizeFile(sourcePath, optimizedPath, conf); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}
	if pageCount == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("%w: document has no pages", domain.ErrUnreadableDocument)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return nil, nil, err
	}

	if err := api.SplitFile(optimizedPath, tmpDir, 1, conf); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}

	pages := make([]domain.Page, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		pagePath := filepath.Join(tmpDir, fmt.Sprintf("optimized_%d.pdf", i))
		if _, statErr := os.Stat(pagePath); statErr != nil {
			cleanup()
			return nil, nil, fmt.Errorf("%w: split produced no file for page %d", domain.ErrUnreadableDocument, i)
		}
		pages = append(pages, domain.Page{Index: i - 1, FilePath: pagePath})
	}

	doc := &domain.Document{
		ID:         uuid.New(),
		SourceName: sourceName,
		Pages:      pages,
		LoadedAt:   time.Now().UTC(),
	}

	l.logger.Info("document loaded",
		"document_id", doc.ID.String(),
		"source", sourceName,
		"pages", pageCount,
		"encrypted", password != "",
	)
	return doc, cleanup, nil
}
