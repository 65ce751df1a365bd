package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docshare/internal/model"
	"docshare/internal/repository"
)

const otpColumns = `id, user_id, share_id, otp_code, expiry_time, is_verified, created_at`

// OtpPostgres is a PostgreSQL implementation of repository.OtpRepository.
type OtpPostgres struct {
	db *sql.DB
}

// NewOtpPostgres creates a new OtpPostgres repository.
func NewOtpPostgres(db *sql.DB) *OtpPostgres {
	return &OtpPostgres{db: db}
}

var _ repository.OtpRepository = (*OtpPostgres)(nil)

// IssueChallenge expires any active challenge for (user, share) and inserts
// the replacement in one transaction, so concurrent sends never leave two
// simultaneously-active codes for the pair. Prior rows are invalidated by
// clamping expiry_time, keeping is_verified truthful for access checks.
func (r *OtpPostgres) IssueChallenge(ctx context.Context, ch *model.OtpChallenge, at time.Time) (*model.OtpChallenge, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const qExpire = `
		UPDATE otp_verifications
		SET expiry_time = $3
		WHERE user_id = $1 AND share_id = $2 AND NOT is_verified AND expiry_time > $3
	`
	if _, err := tx.ExecContext(ctx, qExpire, ch.UserID, ch.ShareID, at); err != nil {
		return nil, fmt.Errorf("expire prior challenges: %w", err)
	}

	const qInsert = `
		INSERT INTO otp_verifications (id, user_id, share_id, otp_code, expiry_time, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING ` + otpColumns
	stored, err := scanOtp(tx.QueryRowContext(ctx, qInsert,
		ch.ID,
		ch.UserID,
		ch.ShareID,
		ch.Code,
		ch.ExpiryTime,
		ch.CreatedAt,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return stored, nil
}

// VerifyCode flips is_verified on the most recent active challenge matching
// the code exactly. The row is kept: the verified state plus its unexpired
// expiry_time is the standing access window re-read by later checks.
func (r *OtpPostgres) VerifyCode(ctx context.Context, userID, shareID, code string, at time.Time) (*model.OtpChallenge, error) {
	const q = `
		UPDATE otp_verifications
		SET is_verified = TRUE
		WHERE id = (
			SELECT id FROM otp_verifications
			WHERE user_id = $1 AND share_id = $2 AND otp_code = $3 AND NOT is_verified AND expiry_time > $4
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING ` + otpColumns
	return scanOtp(r.db.QueryRowContext(ctx, q, userID, shareID, code, at))
}

// HasVerified reports whether (user, share) holds a verified, unexpired
// challenge at the given instant.
func (r *OtpPostgres) HasVerified(ctx context.Context, userID, shareID string, at time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM otp_verifications
			WHERE user_id = $1 AND share_id = $2 AND is_verified AND expiry_time > $3
		)
	`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, userID, shareID, at).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func scanOtp(row rowScanner) (*model.OtpChallenge, error) {
	var o model.OtpChallenge
	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.ShareID,
		&o.Code,
		&o.ExpiryTime,
		&o.IsVerified,
		&o.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}
