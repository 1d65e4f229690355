package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tariffbench/internal/domain"
	"tariffbench/internal/port"
)

type tariffRepo struct {
	db *sqlx.DB
}

// NewTariffRepo creates a new PostgreSQL-backed TariffRepository.
func NewTariffRepo(db *sqlx.DB) port.TariffRepository {
	return &tariffRepo{db: db}
}

func (r *tariffRepo) LoadAll(ctx context.Context) ([]domain.TariffEntry, error) {
	var entries []domain.TariffEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT code, description, duty_rate, rate_unit
		 FROM tariff_entries
		 WHERE effective_to IS NULL OR effective_to >= CURRENT_DATE
		 ORDER BY code`)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
