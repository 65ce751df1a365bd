package repository

import (
	"context"
	"time"

	"docshare/internal/model"
)

// OtpRepository defines data access for one-time-passcode challenges.
//
// The single-active-challenge-per-(user,share) invariant is enforced here:
// issuing expires any prior active challenge and inserts the replacement in
// one transaction. Prior challenges are invalidated by clamping their
// expiry_time to the issue instant, never by setting is_verified, which
// would fabricate an access window.
type OtpRepository interface {
	// IssueChallenge atomically invalidates active challenges for
	// (ch.UserID, ch.ShareID) and inserts ch. The instant `at` is both the
	// clamp value and the expiry-evaluation time.
	IssueChallenge(ctx context.Context, ch *model.OtpChallenge, at time.Time) (*model.OtpChallenge, error)

	// VerifyCode marks the most recent matching active challenge as verified
	// and returns it. Matching is exact on the code string. Returns
	// sql.ErrNoRows (wrapped) when nothing matches.
	VerifyCode(ctx context.Context, userID, shareID, code string, at time.Time) (*model.OtpChallenge, error)

	// HasVerified reports whether a verified, unexpired challenge exists for
	// (user, share) at the given instant. This is the standing access window
	// consulted on every view/download.
	HasVerified(ctx context.Context, userID, shareID string, at time.Time) (bool, error)
}
