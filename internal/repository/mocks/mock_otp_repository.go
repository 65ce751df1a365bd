package mocks

import (
	"context"
	"time"

	"docshare/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockOtpRepository struct {
	mock.Mock
}

func (m *MockOtpRepository) IssueChallenge(ctx context.Context, ch *model.OtpChallenge, at time.Time) (*model.OtpChallenge, error) {
	args := m.Called(ctx, ch, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OtpChallenge), args.Error(1)
}

func (m *MockOtpRepository) VerifyCode(ctx context.Context, userID, shareID, code string, at time.Time) (*model.OtpChallenge, error) {
	args := m.Called(ctx, userID, shareID, code, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OtpChallenge), args.Error(1)
}

func (m *MockOtpRepository) HasVerified(ctx context.Context, userID, shareID string, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, shareID, at)
	return args.Bool(0), args.Error(1)
}
