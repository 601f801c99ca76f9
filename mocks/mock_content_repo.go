package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"patro/internal/domain"
)

// MockContentRepo is a mock implementation of port.ContentRepository.
type MockContentRepo struct {
	mock.Mock
}

func (m *MockContentRepo) ReplacePageContent(ctx context.Context, pageID uuid.UUID, contents []domain.PageContent) error {
	args := m.Called(ctx, pageID, contents)
	return args.Error(0)
}

func (m *MockContentRepo) ListByPage(ctx context.Context, pageID uuid.UUID) ([]domain.PageContent, error) {
	args := m.Called(ctx, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PageContent), args.Error(1)
}

func (m *MockContentRepo) GetBlock(ctx context.Context, blockID uuid.UUID) (*domain.ContentBlock, error) {
	args := m.Called(ctx, blockID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentBlock), args.Error(1)
}

func (m *MockContentRepo) ListCellsByBlock(ctx context.Context, blockID uuid.UUID) ([]domain.TableCell, error) {
	args := m.Called(ctx, blockID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TableCell), args.Error(1)
}
