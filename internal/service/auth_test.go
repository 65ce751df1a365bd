package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"docshare/internal/apperr"
	"docshare/internal/model"
	repoMocks "docshare/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (AuthService, *repoMocks.MockUserRepository, *repoMocks.MockShareRepository) {
	t.Helper()
	users := new(repoMocks.MockUserRepository)
	shares := new(repoMocks.MockShareRepository)
	svc := NewAuthService(users, shares, testClock(), "test-secret", time.Hour)
	return svc, users, shares
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path rebinds pending shares", func(t *testing.T) {
		svc, users, shares := newAuthService(t)
		users.On("FindByEmail", ctx, "bob@example.com").Return(nil, sql.ErrNoRows)
		users.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			if u.Email != "bob@example.com" || u.ID == "" || u.PasswordHash == "" {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22pass")) == nil
		})).Return(&model.User{ID: "user-bob", Email: "bob@example.com"}, nil)
		shares.On("ResolvePendingRecipient", ctx, "bob@example.com", "user-bob").Return(nil)

		u, err := svc.Register(ctx, "bob@example.com", "hunter22pass", "Bob")
		assert.NoError(t, err)
		assert.Equal(t, "user-bob", u.ID)
		users.AssertExpectations(t)
		shares.AssertExpectations(t)
	})

	t.Run("rebind failure does not fail registration", func(t *testing.T) {
		svc, users, shares := newAuthService(t)
		users.On("FindByEmail", ctx, "bob@example.com").Return(nil, sql.ErrNoRows)
		users.On("Create", ctx, mock.Anything).
			Return(&model.User{ID: "user-bob", Email: "bob@example.com"}, nil)
		shares.On("ResolvePendingRecipient", ctx, "bob@example.com", "user-bob").
			Return(errors.New("db fail"))

		_, err := svc.Register(ctx, "bob@example.com", "hunter22pass", "")
		assert.NoError(t, err)
		shares.AssertExpectations(t)
	})

	t.Run("malformed email", func(t *testing.T) {
		svc, _, _ := newAuthService(t)
		_, err := svc.Register(ctx, "not-an-email", "hunter22pass", "")
		assert.ErrorIs(t, err, apperr.ErrInvalidEmail)
	})

	t.Run("short password", func(t *testing.T) {
		svc, _, _ := newAuthService(t)
		_, err := svc.Register(ctx, "bob@example.com", "short", "")
		assert.Equal(t, "WEAK_PASSWORD", apperr.CodeOf(err))
	})

	t.Run("email already taken", func(t *testing.T) {
		svc, users, _ := newAuthService(t)
		users.On("FindByEmail", ctx, "bob@example.com").
			Return(&model.User{ID: "user-bob"}, nil)

		_, err := svc.Register(ctx, "bob@example.com", "hunter22pass", "")
		assert.ErrorIs(t, err, apperr.ErrEmailTaken)
		users.AssertExpectations(t)
	})
}

func TestAuthService_LoginAndParseToken(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22pass"), bcrypt.MinCost)
	assert.NoError(t, err)
	bobUser := &model.User{ID: "user-bob", Email: "bob@example.com", PasswordHash: string(hash)}

	t.Run("login issues a token ParseToken accepts", func(t *testing.T) {
		// Claims validation runs against wall-clock time, so this roundtrip
		// uses the real clock rather than the fixed test instant.
		users := new(repoMocks.MockUserRepository)
		svc := NewAuthService(users, nil, UTCNow, "test-secret", time.Hour)
		users.On("FindByEmail", ctx, "bob@example.com").Return(bobUser, nil)

		signed, u, err := svc.Login(ctx, "bob@example.com", "hunter22pass")
		assert.NoError(t, err)
		assert.Equal(t, "user-bob", u.ID)
		assert.NotEmpty(t, signed)

		ident, err := svc.ParseToken(signed)
		assert.NoError(t, err)
		assert.Equal(t, "user-bob", ident.UserID)
		users.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, users, _ := newAuthService(t)
		users.On("FindByEmail", ctx, "bob@example.com").Return(bobUser, nil)

		_, _, err := svc.Login(ctx, "bob@example.com", "wrong-password")
		assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	})

	t.Run("unknown email reads like wrong credentials", func(t *testing.T) {
		svc, users, _ := newAuthService(t)
		users.On("FindByEmail", ctx, "ghost@example.com").Return(nil, sql.ErrNoRows)

		_, _, err := svc.Login(ctx, "ghost@example.com", "hunter22pass")
		assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		svc, _, _ := newAuthService(t)
		_, err := svc.ParseToken("not.a.jwt")
		assert.ErrorIs(t, err, apperr.ErrAuthRequired)
	})

	t.Run("token signed with a different secret rejected", func(t *testing.T) {
		users := new(repoMocks.MockUserRepository)
		svc := NewAuthService(users, nil, UTCNow, "test-secret", time.Hour)
		users.On("FindByEmail", ctx, "bob@example.com").Return(bobUser, nil)
		signed, _, err := svc.Login(ctx, "bob@example.com", "hunter22pass")
		assert.NoError(t, err)

		other := NewAuthService(nil, nil, UTCNow, "other-secret", time.Hour)
		_, err = other.ParseToken(signed)
		assert.ErrorIs(t, err, apperr.ErrAuthRequired)
	})
}
