package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tariffbench/internal/domain"
)

// MockTariffRepository is a mock implementation of port.TariffRepository.
type MockTariffRepository struct {
	mock.Mock
}

func (m *MockTariffRepository) LoadAll(ctx context.Context) ([]domain.TariffEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TariffEntry), args.Error(1)
}
