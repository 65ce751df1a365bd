package service

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docshare/internal/apperr"
	"docshare/internal/model"
	"docshare/internal/repository"
)

// AuthService is the thin credentials surface backing AuthIdentity. The core
// sharing logic never touches credentials; it only consumes the user id this
// layer resolves.
type AuthService interface {
	// Register creates an account and rebinds any shares that were pending
	// on this email onto the new user id.
	Register(ctx context.Context, email, password, displayName string) (*model.User, error)

	// Login verifies credentials and returns a signed bearer token.
	Login(ctx context.Context, email, password string) (string, *model.User, error)

	// ParseToken validates a bearer token into an AuthIdentity.
	ParseToken(tokenString string) (AuthIdentity, error)
}

type authService struct {
	users  repository.UserRepository
	shares repository.ShareRepository
	now    NowFunc
	secret []byte
	ttl    time.Duration
}

// NewAuthService constructs an AuthService.
func NewAuthService(users repository.UserRepository, shares repository.ShareRepository, now NowFunc, jwtSecret string, tokenTTL time.Duration) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		users:  users,
		shares: shares,
		now:    now,
		secret: []byte(jwtSecret),
		ttl:    tokenTTL,
	}
}

type authClaims struct {
	jwt.RegisteredClaims
}

func (s *authService) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, apperr.New(apperr.KindInvalidInput, "WEAK_PASSWORD", "password must be at least 8 characters")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Unavailable(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}

	user, err := s.users.Create(ctx, &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, apperr.Unavailable(err)
	}

	// Shares addressed to this email before registration become user-bound.
	if err := s.shares.ResolvePendingRecipient(ctx, email, user.ID); err != nil {
		logServiceJSON(map[string]any{
			"component": "service",
			"event":     "pending_share_rebind_failed",
			"level":     "error",
			"user_id":   user.ID,
			"error":     err.Error(),
		})
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, apperr.ErrInvalidCredentials
		}
		return "", nil, apperr.Unavailable(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, apperr.ErrInvalidCredentials
	}

	now := s.now()
	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, apperr.Unavailable(err)
	}
	return signed, user, nil
}

func (s *authService) ParseToken(tokenString string) (AuthIdentity, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return AuthIdentity{}, apperr.ErrAuthRequired
	}
	claims, ok := tok.Claims.(*authClaims)
	if !ok || claims.Subject == "" {
		return AuthIdentity{}, apperr.ErrAuthRequired
	}
	return AuthIdentity{UserID: claims.Subject}, nil
}
