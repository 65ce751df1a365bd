package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"docshare/internal/apperr"
	"docshare/internal/model"
	"docshare/internal/repository"
)

const shareColumns = `id, share_token, document_id, from_user_id, to_user_id, to_user_email, access, expiry_time, is_revoked, revoked_at, created_at`

// SharePostgres is a PostgreSQL implementation of repository.ShareRepository.
type SharePostgres struct {
	db *sql.DB
}

// NewSharePostgres creates a new SharePostgres repository.
func NewSharePostgres(db *sql.DB) *SharePostgres {
	return &SharePostgres{db: db}
}

var _ repository.ShareRepository = (*SharePostgres)(nil)

// CreateIdempotent inserts s unless an active share already occupies the
// (document, creator, recipient, access) tuple.
//
// The whole sequence is one transaction. A partial unique index over
// non-revoked rows backs it up: if a concurrent identical request wins the
// insert race, our INSERT fails with a unique violation and we resolve to the
// winning row instead of erroring (the designed re-resolve branch). Matching
// rows that are expired but not yet revoked are revoked here so the index
// admits the replacement.
func (r *SharePostgres) CreateIdempotent(ctx context.Context, s *model.Share, at time.Time) (*model.Share, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, expiredIDs, err := lockActiveTuple(ctx, tx, s, at)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit tx: %w", err)
		}
		return existing, true, nil
	}

	for _, id := range expiredIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE shares SET is_revoked = TRUE, revoked_at = $2 WHERE id = $1`,
			id, at,
		); err != nil {
			return nil, false, fmt.Errorf("revoke expired share: %w", err)
		}
	}

	const qInsert = `
		INSERT INTO shares (id, share_token, document_id, from_user_id, to_user_id, to_user_email, recipient_key, access, expiry_time, is_revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10)
		RETURNING ` + shareColumns
	created, err := scanShare(tx.QueryRowContext(ctx, qInsert,
		s.ID,
		s.Token,
		s.DocumentID,
		s.FromUserID,
		nullString(s.ToUserID),
		nullString(s.ToUserEmail),
		s.RecipientKey(),
		string(s.Access),
		s.ExpiryTime,
		s.CreatedAt,
	))
	if err != nil {
		if !isUniqueViolation(err) {
			return nil, false, err
		}
		// Race lost: a concurrent identical create committed first. Surface
		// the winning row as reused.
		_ = tx.Rollback()
		winner, findErr := r.findActiveTuple(ctx, s, at)
		if findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return nil, false, apperr.Wrap(err, apperr.KindConflict, apperr.ErrCreateConflict.Code, apperr.ErrCreateConflict.Message)
			}
			return nil, false, findErr
		}
		return winner, true, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}
	return created, false, nil
}

// lockActiveTuple selects the non-revoked rows matching s's uniqueness tuple
// with FOR UPDATE, splitting them into the still-active row (if any) and
// expired leftovers.
func lockActiveTuple(ctx context.Context, tx *sql.Tx, s *model.Share, at time.Time) (*model.Share, []string, error) {
	const q = `
		SELECT ` + shareColumns + `
		FROM shares
		WHERE document_id = $1 AND from_user_id = $2 AND recipient_key = $3 AND access = $4 AND NOT is_revoked
		FOR UPDATE
	`
	rows, err := tx.QueryContext(ctx, q, s.DocumentID, s.FromUserID, s.RecipientKey(), string(s.Access))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var active *model.Share
	var expiredIDs []string
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, nil, err
		}
		if sh.IsExpired(at) {
			expiredIDs = append(expiredIDs, sh.ID)
			continue
		}
		active = sh
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return active, expiredIDs, nil
}

func (r *SharePostgres) findActiveTuple(ctx context.Context, s *model.Share, at time.Time) (*model.Share, error) {
	const q = `
		SELECT ` + shareColumns + `
		FROM shares
		WHERE document_id = $1 AND from_user_id = $2 AND recipient_key = $3 AND access = $4
		  AND NOT is_revoked AND (expiry_time IS NULL OR expiry_time > $5)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanShare(r.db.QueryRowContext(ctx, q, s.DocumentID, s.FromUserID, s.RecipientKey(), string(s.Access), at))
}

// FindByID fetches a single share by ID.
func (r *SharePostgres) FindByID(ctx context.Context, id string) (*model.Share, error) {
	const q = `SELECT ` + shareColumns + ` FROM shares WHERE id = $1`
	return scanShare(r.db.QueryRowContext(ctx, q, id))
}

// FindByToken fetches a single share by its opaque link token.
func (r *SharePostgres) FindByToken(ctx context.Context, tok string) (*model.Share, error) {
	const q = `SELECT ` + shareColumns + ` FROM shares WHERE share_token = $1`
	return scanShare(r.db.QueryRowContext(ctx, q, tok))
}

// List returns one user's shares, sent or received, newest first.
func (r *SharePostgres) List(ctx context.Context, userID, userEmail string, box repository.ShareBox, pq repository.PageQuery) (*repository.PageResult[model.Share], error) {
	var where string
	var args []any
	switch box {
	case repository.BoxReceived:
		where = `to_user_id = $1 OR (to_user_id IS NULL AND LOWER(to_user_email) = LOWER($2))`
		args = []any{userID, userEmail}
	default:
		where = `from_user_id = $1`
		args = []any{userID}
	}

	var total int
	qCount := `SELECT COUNT(*) FROM shares WHERE ` + where
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf(`
		SELECT %s FROM shares
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, shareColumns, where, len(args)+1, len(args)+2)
	args = append(args, pq.Limit, pq.Offset)

	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Share, 0)
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Share]{Items: items, Total: total}, nil
}

// MarkRevoked sets is_revoked = TRUE. The COALESCE keeps the first revocation
// timestamp, so repeated revokes are no-ops and the flag stays monotone.
func (r *SharePostgres) MarkRevoked(ctx context.Context, id string, at time.Time) (*model.Share, error) {
	const q = `
		UPDATE shares
		SET is_revoked = TRUE, revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
		RETURNING ` + shareColumns
	return scanShare(r.db.QueryRowContext(ctx, q, id, at))
}

// SetExpiry replaces the expiry timestamp; nil clears it.
func (r *SharePostgres) SetExpiry(ctx context.Context, id string, expiry *time.Time) (*model.Share, error) {
	const q = `
		UPDATE shares
		SET expiry_time = $2
		WHERE id = $1
		RETURNING ` + shareColumns
	return scanShare(r.db.QueryRowContext(ctx, q, id, expiry))
}

// ResolvePendingRecipient rebinds email-pending shares onto the freshly
// registered user id. Rows are rebound one at a time: if rebinding would
// collide with an existing active share for the same tuple, the pending row
// is revoked as superseded instead.
func (r *SharePostgres) ResolvePendingRecipient(ctx context.Context, email, userID string) error {
	const qSelect = `SELECT id FROM shares WHERE to_user_id IS NULL AND LOWER(to_user_email) = LOWER($1)`
	rows, err := r.db.QueryContext(ctx, qSelect, email)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		_, err := r.db.ExecContext(ctx,
			`UPDATE shares SET to_user_id = $2, to_user_email = NULL, recipient_key = $2 WHERE id = $1`,
			id, userID,
		)
		if err == nil {
			continue
		}
		if !isUniqueViolation(err) {
			return err
		}
		if _, err := r.db.ExecContext(ctx,
			`UPDATE shares SET is_revoked = TRUE, revoked_at = COALESCE(revoked_at, $2) WHERE id = $1`,
			id, time.Now().UTC(),
		); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a share row. It does not return an error if the row does
// not exist.
func (r *SharePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM shares WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShare(row rowScanner) (*model.Share, error) {
	var s model.Share
	var toUserID, toUserEmail sql.NullString
	var expiry, revokedAt sql.NullTime
	var access string
	if err := row.Scan(
		&s.ID,
		&s.Token,
		&s.DocumentID,
		&s.FromUserID,
		&toUserID,
		&toUserEmail,
		&access,
		&expiry,
		&s.IsRevoked,
		&revokedAt,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.ToUserID = toUserID.String
	s.ToUserEmail = toUserEmail.String
	s.Access = model.AccessMode(access)
	if expiry.Valid {
		t := expiry.Time
		s.ExpiryTime = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return &s, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
