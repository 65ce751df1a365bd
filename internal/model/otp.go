package model

import "time"

// OtpChallenge is a short-lived numeric code proving control of an email
// address, scoped to one (user, share) pair. Verification is a standing
// window: IsVerified plus an unexpired ExpiryTime grants access on every
// subsequent check until the window closes; the row is not consumed.
type OtpChallenge struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ShareID    string    `json:"share_id"`
	Code       string    `json:"-"`
	ExpiryTime time.Time `json:"expiry_time"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsActive reports whether the challenge can still be verified: not yet
// verified and not past its expiry.
func (o *OtpChallenge) IsActive(at time.Time) bool {
	return !o.IsVerified && o.ExpiryTime.After(at)
}
