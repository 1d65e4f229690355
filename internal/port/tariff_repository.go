package port

import (
	"context"

	"tariffbench/internal/domain"
)

// TariffRepository defines the contract for loading the tariff reference
// table. The table is loaded once per run and treated as read-only.
type TariffRepository interface {
	LoadAll(ctx context.Context) ([]domain.TariffEntry, error)
}
