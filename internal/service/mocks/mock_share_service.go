package mocks

import (
	"context"
	"time"

	"docshare/internal/model"
	"docshare/internal/repository"
	"docshare/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockShareService struct {
	mock.Mock
}

func (m *MockShareService) Create(ctx context.Context, in service.CreateShareInput) (*service.ShareResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ShareResult), args.Error(1)
}

func (m *MockShareService) Get(ctx context.Context, shareID, requesterUserID string) (*model.Share, error) {
	args := m.Called(ctx, shareID, requesterUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareService) GetPublic(ctx context.Context, tok string) (*service.PublicShare, error) {
	args := m.Called(ctx, tok)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PublicShare), args.Error(1)
}

func (m *MockShareService) List(ctx context.Context, userID string, box repository.ShareBox, limit, offset int) (*service.ShareListResult, error) {
	args := m.Called(ctx, userID, box, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ShareListResult), args.Error(1)
}

func (m *MockShareService) Revoke(ctx context.Context, shareID, requesterUserID string) (*model.Share, error) {
	args := m.Called(ctx, shareID, requesterUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareService) SetExpiry(ctx context.Context, shareID, requesterUserID string, expiry *time.Time) (*model.Share, error) {
	args := m.Called(ctx, shareID, requesterUserID, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareService) ExpireNow(ctx context.Context, shareID, requesterUserID string) (*model.Share, error) {
	args := m.Called(ctx, shareID, requesterUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareService) Delete(ctx context.Context, shareID, requesterUserID string) error {
	args := m.Called(ctx, shareID, requesterUserID)
	return args.Error(0)
}
