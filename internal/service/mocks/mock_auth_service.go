package mocks

import (
	"context"

	"docshare/internal/model"
	"docshare/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	args := m.Called(ctx, email, password, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	args := m.Called(ctx, email, password)
	var user *model.User
	if args.Get(1) != nil {
		user = args.Get(1).(*model.User)
	}
	return args.String(0), user, args.Error(2)
}

func (m *MockAuthService) ParseToken(tokenString string) (service.AuthIdentity, error) {
	args := m.Called(tokenString)
	return args.Get(0).(service.AuthIdentity), args.Error(1)
}
