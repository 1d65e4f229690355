// Command tariffbench classifies an invoice PDF against the HTS schedule
// and writes a per-line-item report.
//
// Usage:
//
//	tariffbench -in invoice.pdf [-out report.csv] [-xlsx report.xlsx] [-append-log runs.xlsx] [-publish s3key] [-password pw]
//
// The tariff reference table is resolved in order: local file
// (TARIFFBENCH_TARIFF_FILE_PATH), S3 object (TARIFFBENCH_TARIFF_S3_KEY),
// then the tariff_entries Postgres table.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tariffbench/internal/classifier"
	_ "tariffbench/internal/classifier/claude"
	_ "tariffbench/internal/classifier/gemini"
	_ "tariffbench/internal/classifier/openai"
	"tariffbench/internal/config"
	"tariffbench/internal/domain"
	"tariffbench/internal/lineitems"
	"tariffbench/internal/ocr"
	"tariffbench/internal/pdfdoc"
	"tariffbench/internal/pipeline"
	"tariffbench/internal/port"
	"tariffbench/internal/report"
	"tariffbench/internal/repository/postgres"
	s3storage "tariffbench/internal/storage/s3"
	"tariffbench/internal/tariff"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		inPath    = flag.String("in", "", "invoice PDF to process (required)")
		outPath   = flag.String("out", "", "CSV report path (default <invoice>_report.csv)")
		xlsxPath  = flag.String("xlsx", "", "also write the report as an Excel workbook")
		appendLog = flag.String("append-log", "", "append rows to a running Excel classification log")
		publish   = flag.String("publish", "", "publish the CSV report to S3 under this key; a trailing / appends a dated filename")
		password  = flag.String("password", "", "PDF user password, if encrypted")
	)
	flag.Parse()

	if *inPath == "" {
		flag.Usage()
		return fmt.Errorf("-in is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(&cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.Pipeline.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
		defer cancel()
	}

	pdfBytes, err := os.ReadFile(*inPath)
	if err != nil {
		return fmt.Errorf("reading invoice: %w", err)
	}

	lookup, err := loadTariffLookup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("loading tariff table: %w", err)
	}

	cls, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}

	p := pipeline.New(
		pdfdoc.NewLoader(logger),
		ocr.NewExtractor(ocr.Config{
			Pdftotext:    cfg.OCR.Pdftotext,
			Pdftoppm:     cfg.OCR.Pdftoppm,
			Tesseract:    cfg.OCR.Tesseract,
			Language:     cfg.OCR.Language,
			DPI:          cfg.OCR.DPI,
			MinPageChars: cfg.OCR.MinPageChars,
			Timeout:      secondsOrZero(cfg.OCR.TimeoutSecs),
		}, logger),
		lineitems.NewParser(lineitems.Config{}, logger),
		cls,
		lookup,
		report.NewAssembler(cfg.Classifier.LowConfidence),
		pipeline.Options{
			ExtractConcurrency:  cfg.Pipeline.ExtractConcurrency,
			ClassifyConcurrency: cfg.Pipeline.ClassifyConcurrency,
		},
		logger,
	)

	rep, err := p.Run(ctx, pdfBytes, filepath.Base(*inPath), *password)
	if err != nil {
		return err
	}

	csvPath := *outPath
	if csvPath == "" {
		base := (*inPath)[:len(*inPath)-len(filepath.Ext(*inPath))]
		csvPath = base + "_report.csv"
	}
	if err := writeCSV(rep, csvPath); err != nil {
		return err
	}
	logger.Info("report written", "path", csvPath, "rows", len(rep.Rows))

	if *xlsxPath != "" {
		if err := report.WriteXLSX(rep, *xlsxPath); err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
		logger.Info("workbook written", "path", *xlsxPath)
	}
	if *appendLog != "" {
		if err := report.AppendToLog(rep, *appendLog); err != nil {
			return fmt.Errorf("appending to log workbook: %w", err)
		}
		logger.Info("log workbook updated", "path", *appendLog)
	}
	if *publish != "" {
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("-publish requires s3.bucket to be configured")
		}
		store, err := s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return err
		}
		key := *publish
		if strings.HasSuffix(key, "/") {
			key += report.BuildFilename(rep.SourceName)
		}
		location, err := publishReport(ctx, store, cfg.S3.Bucket, key, rep)
		if err != nil {
			return err
		}
		logger.Info("report published", "location", location)
	}

	return nil
}

// publishReport renders the report as CSV and uploads it to object storage.
func publishReport(ctx context.Context, store port.ObjectStorage, bucket, key string, rep *domain.Report) (string, error) {
	var buf bytes.Buffer
	w, err := report.NewCSVWriter(&buf)
	if err != nil {
		return "", err
	}
	if err := w.WriteReport(rep); err != nil {
		return "", err
	}
	out, err := store.Upload(ctx, port.UploadInput{
		Bucket:      bucket,
		Key:         key,
		Body:        &buf,
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("uploading report: %w", err)
	}
	return out.Location, nil
}

func writeCSV(rep *domain.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w, err := report.NewCSVWriter(f)
	if err != nil {
		return err
	}
	return w.WriteReport(rep)
}

// buildClassifier assembles the provider chain: each configured provider gets
// its own retry wrapper, then the chain is joined by a fallback with
// per-provider rate-limit circuits.
func buildClassifier(cfg *config.Config, logger *slog.Logger) (port.Classifier, error) {
	providerCfgs := cfg.Classifier.Providers()
	classifiers := make([]port.Classifier, 0, len(providerCfgs))
	names := make([]string, 0, len(providerCfgs))

	for i := range providerCfgs {
		pc := providerCfgs[i]
		c, err := classifier.NewClassifier(&pc)
		if err != nil {
			return nil, err
		}
		policy := classifier.DefaultRetryPolicy()
		if pc.MaxRetries > 0 {
			policy.MaxAttempts = pc.MaxRetries
		}
		classifiers = append(classifiers, classifier.NewRetryingClassifier(c, policy, logger))
		names = append(names, pc.Provider)
	}

	if len(classifiers) == 1 {
		return classifiers[0], nil
	}
	return classifier.NewFallbackClassifier(classifiers, names, logger), nil
}

// loadTariffLookup resolves the reference table from the first configured
// source: local file, then S3, then Postgres.
func loadTariffLookup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tariff.Lookup, error) {
	switch {
	case cfg.Tariff.FilePath != "":
		data, err := os.ReadFile(cfg.Tariff.FilePath)
		if err != nil {
			return nil, fmt.Errorf("reading tariff file: %w", err)
		}
		entries, err := tariff.LoadFromFile(cfg.Tariff.FilePath, data)
		if err != nil {
			return nil, err
		}
		logger.Info("tariff table loaded", "source", "file", "entries", len(entries))
		return tariff.NewLookup(entries), nil

	case cfg.Tariff.S3Key != "":
		store, err := s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return nil, err
		}
		data, err := store.Download(ctx, cfg.S3.Bucket, cfg.Tariff.S3Key)
		if err != nil {
			return nil, err
		}
		entries, err := tariff.LoadFromFile(cfg.Tariff.S3Key, data)
		if err != nil {
			return nil, err
		}
		logger.Info("tariff table loaded", "source", "s3", "entries", len(entries))
		return tariff.NewLookup(entries), nil

	default:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		entries, err := postgres.NewTariffRepo(db).LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("tariff table loaded", "source", "postgres", "entries", len(entries))
		return tariff.NewLookup(entries), nil
	}
}

func secondsOrZero(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

func newLogger(cfg *config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
