package repository

import (
	"context"
	"time"

	"docshare/internal/model"
)

// ShareBox selects which side of a share listing to return.
type ShareBox string

const (
	// BoxSent lists shares the user created.
	BoxSent ShareBox = "sent"
	// BoxReceived lists shares bound to the user as recipient (by user id or
	// by the email they registered with).
	BoxReceived ShareBox = "received"
)

// ShareRepository defines data access for shares.
//
// CreateIdempotent is the one multi-statement operation: the
// existence-check-then-insert sequence runs in a single transaction backed by
// a partial unique index over active rows, so two near-simultaneous identical
// requests resolve to one persisted row with the loser observing reused=true.
type ShareRepository interface {
	// CreateIdempotent inserts s unless an active share with the same
	// (document, creator, recipient, access) tuple already exists, in which
	// case that share is returned with reused=true. Matching rows that are
	// expired but not yet revoked are revoked in the same transaction. The
	// instant `at` is the evaluation time for expiry.
	CreateIdempotent(ctx context.Context, s *model.Share, at time.Time) (share *model.Share, reused bool, err error)

	// FindByID returns a share by ID.
	FindByID(ctx context.Context, id string) (*model.Share, error)

	// FindByToken returns a share by its opaque link token.
	FindByToken(ctx context.Context, tok string) (*model.Share, error)

	// List returns one user's shares, sent or received, newest first.
	List(ctx context.Context, userID, userEmail string, box ShareBox, pq PageQuery) (*PageResult[model.Share], error)

	// MarkRevoked sets is_revoked. A second call is a no-op that keeps the
	// original revoked_at; the flag is monotone.
	MarkRevoked(ctx context.Context, id string, at time.Time) (*model.Share, error)

	// SetExpiry replaces the expiry timestamp; nil clears it.
	SetExpiry(ctx context.Context, id string, expiry *time.Time) (*model.Share, error)

	// ResolvePendingRecipient rebinds shares addressed to an email onto the
	// now-registered user id. Called when a user registers.
	ResolvePendingRecipient(ctx context.Context, email, userID string) error

	// Delete removes a share row. Access log rows keep their share_id as NULL
	// via the schema's ON DELETE SET NULL.
	Delete(ctx context.Context, id string) error
}
