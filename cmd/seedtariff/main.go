// Command seedtariff converts a published tariff schedule (CSV or Excel)
// into a SQL seed file for the tariff_entries table.
// Usage: go run ./cmd/seedtariff <schedule.csv|schedule.xlsx>
// Output: db/seeds/tariff_entries.sql
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"tariffbench/internal/domain"
	"tariffbench/internal/tariff"
)

const batchSize = 500

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: seedtariff <schedule.csv|schedule.xlsx>")
	}
	inPath := os.Args[1]
	outPath := "db/seeds/tariff_entries.sql"

	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read schedule: %w", err)
	}

	entries, err := tariff.LoadFromFile(inPath, data)
	if err != nil {
		return fmt.Errorf("parse schedule: %w", err)
	}
	log.Printf("parsed %d entries from %s", len(entries), inPath)

	if err := os.MkdirAll("db/seeds", 0o755); err != nil {
		return fmt.Errorf("create seeds dir: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = out.Close() }()

	header := fmt.Sprintf("-- Tariff seed data generated from %s.\n-- %d entries in batches of %d.\nBEGIN;\n\n",
		inPath, len(entries), batchSize)
	if _, err := out.WriteString(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := writeBatch(out, entries[i:end]); err != nil {
			return fmt.Errorf("write batch at offset %d: %w", i, err)
		}
	}

	if _, err := out.WriteString("\nCOMMIT;\n"); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}

	log.Printf("Generated %d entries (%d batches) in %s",
		len(entries), (len(entries)+batchSize-1)/batchSize, outPath)
	return nil
}

func writeBatch(out *os.File, batch []domain.TariffEntry) error {
	if len(batch) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO tariff_entries (code, description, duty_rate, rate_unit) VALUES\n")

	for i := range batch {
		e := &batch[i]
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "  ('%s', '%s', %.4f, '%s')",
			escapeSQL(e.Code), escapeSQL(e.Description), e.DutyRate, escapeSQL(e.RateUnit))
	}

	b.WriteString("\nON CONFLICT (code, effective_from) DO NOTHING;\n")

	_, err := out.WriteString(b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
