package mocks

import (
	"context"

	"docshare/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) Resolve(ctx context.Context, req service.AccessRequest) (*service.AccessGrant, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccessGrant), args.Error(1)
}
