package mocks

import (
	"context"

	"docshare/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockOtpService struct {
	mock.Mock
}

func (m *MockOtpService) Send(ctx context.Context, ref service.ShareRef, claimedEmail string) (*service.SendOtpResult, error) {
	args := m.Called(ctx, ref, claimedEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendOtpResult), args.Error(1)
}

func (m *MockOtpService) Verify(ctx context.Context, ref service.ShareRef, claimedEmail, code string) error {
	args := m.Called(ctx, ref, claimedEmail, code)
	return args.Error(0)
}
