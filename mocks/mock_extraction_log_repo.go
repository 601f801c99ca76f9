package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"patro/internal/domain"
)

// MockExtractionLogRepo is a mock implementation of port.ExtractionLogRepository.
type MockExtractionLogRepo struct {
	mock.Mock
}

func (m *MockExtractionLogRepo) Create(ctx context.Context, entry *domain.ExtractionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockExtractionLogRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ExtractionLog, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractionLog), args.Error(1)
}
