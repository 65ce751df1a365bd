package mocks

import (
	"context"
	"time"

	"docshare/internal/model"
	"docshare/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockShareRepository struct {
	mock.Mock
}

func (m *MockShareRepository) CreateIdempotent(ctx context.Context, s *model.Share, at time.Time) (*model.Share, bool, error) {
	args := m.Called(ctx, s, at)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Share), args.Bool(1), args.Error(2)
}

func (m *MockShareRepository) FindByID(ctx context.Context, id string) (*model.Share, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareRepository) FindByToken(ctx context.Context, tok string) (*model.Share, error) {
	args := m.Called(ctx, tok)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareRepository) List(ctx context.Context, userID, userEmail string, box repository.ShareBox, pq repository.PageQuery) (*repository.PageResult[model.Share], error) {
	args := m.Called(ctx, userID, userEmail, box, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Share]), args.Error(1)
}

func (m *MockShareRepository) MarkRevoked(ctx context.Context, id string, at time.Time) (*model.Share, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareRepository) SetExpiry(ctx context.Context, id string, expiry *time.Time) (*model.Share, error) {
	args := m.Called(ctx, id, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareRepository) ResolvePendingRecipient(ctx context.Context, email, userID string) error {
	args := m.Called(ctx, email, userID)
	return args.Error(0)
}

func (m *MockShareRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
