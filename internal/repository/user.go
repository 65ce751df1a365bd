package repository

import (
	"context"

	"docshare/internal/model"
)

// UserRepository defines data access for registered users.
type UserRepository interface {
	// Create inserts a new user record and returns the stored row.
	Create(ctx context.Context, u *model.User) (*model.User, error)

	// FindByID returns a user by ID.
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail returns a user by case-insensitive email match.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
