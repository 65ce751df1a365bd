package postgres

import (
	"context"
	"database/sql"

	"docshare/internal/model"
	"docshare/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

// Create inserts a new user row and returns the stored record.
func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
		INSERT INTO users (id, email, password_hash, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, password_hash, display_name, created_at
	`
	row := r.db.QueryRowContext(ctx, q, u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt)
	return scanUser(row)
}

// FindByID fetches a single user by ID.
func (r *UserPostgres) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
		SELECT id, email, password_hash, display_name, created_at
		FROM users
		WHERE id = $1
	`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// FindByEmail fetches a single user by case-insensitive email match.
func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
		SELECT id, email, password_hash, display_name, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var displayName sql.NullString
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&displayName,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	u.DisplayName = displayName.String
	return &u, nil
}
