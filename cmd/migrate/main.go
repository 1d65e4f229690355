// Command migrate applies the tariff_entries schema migrations.
//
// Usage:
//
//	migrate [up|down|steps N|version]
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"tariffbench/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		fatal(logger, "failed to load config", err)
	}

	m, err := migrate.New("file://db/migrations", cfg.DB.DSN())
	if err != nil {
		fatal(logger, "failed to create migrate instance", err)
	}
	defer m.Close()

	if len(os.Args) < 2 {
		usage()
	}

	switch cmd := os.Args[1]; cmd {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			fatal(logger, "migration up failed", err)
		}
		logger.Info("migrations applied")

	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			fatal(logger, "migration down failed", err)
		}
		logger.Info("migrations reverted")

	case "steps":
		if len(os.Args) < 3 {
			fatal(logger, "steps requires a number argument", nil)
		}
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fatal(logger, "invalid steps argument", err)
		}
		if err := m.Steps(n); err != nil && err != migrate.ErrNoChange {
			fatal(logger, "migration steps failed", err)
		}
		logger.Info("migration steps applied", "steps", n)

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			fatal(logger, "failed to get version", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", version, dirty)

	default:
		fmt.Printf("unknown command: %s\n", cmd)
		usage()
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}

func usage() {
	fmt.Println("Usage: migrate [up|down|steps N|version]")
	os.Exit(1)
}
