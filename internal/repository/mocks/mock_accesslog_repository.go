package mocks

import (
	"context"

	"docshare/internal/model"
	"docshare/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockAccessLogRepository struct {
	mock.Mock
}

func (m *MockAccessLogRepository) Append(ctx context.Context, e *model.AccessLogEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockAccessLogRepository) ListByDocument(ctx context.Context, documentID string, pq repository.PageQuery) (*repository.PageResult[model.AccessLogEntry], error) {
	args := m.Called(ctx, documentID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.AccessLogEntry]), args.Error(1)
}
