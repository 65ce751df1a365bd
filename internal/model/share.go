package model

import (
	"strings"
	"time"
)

// AccessMode controls who may act on a Share.
type AccessMode string

const (
	// AccessPublic grants view (never download) to anyone holding the token.
	AccessPublic AccessMode = "public"
	// AccessPrivate binds the share to one recipient identity and requires an
	// OTP-verified email proof before any view or download.
	AccessPrivate AccessMode = "private"
)

// Valid reports whether m is a known access mode.
func (m AccessMode) Valid() bool {
	return m == AccessPublic || m == AccessPrivate
}

// Share is a capability grant for one Document.
//
// Exactly one of ToUserID / ToUserEmail is set for a private share: a
// registered recipient is bound by user id, an unregistered one by email
// until registration resolves it. Public shares carry no recipient binding.
type Share struct {
	ID          string     `json:"id"`
	Token       string     `json:"token"`
	DocumentID  string     `json:"document_id"`
	FromUserID  string     `json:"from_user_id"`
	ToUserID    string     `json:"to_user_id,omitempty"`
	ToUserEmail string     `json:"to_user_email,omitempty"`
	Access      AccessMode `json:"access"`
	ExpiryTime  *time.Time `json:"expiry_time,omitempty"`
	IsRevoked   bool       `json:"is_revoked"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsExpired reports whether the share's expiry has passed at the given instant.
// A nil expiry never expires.
func (s *Share) IsExpired(at time.Time) bool {
	return s.ExpiryTime != nil && !s.ExpiryTime.After(at)
}

// IsActive reports whether the share is neither revoked nor expired at the
// given instant.
func (s *Share) IsActive(at time.Time) bool {
	return !s.IsRevoked && !s.IsExpired(at)
}

// RecipientKey is the identity component of the active-share uniqueness
// tuple (document, creator, recipient, access): the bound user id when
// present, the lowercased pending email otherwise, empty for public shares.
func (s *Share) RecipientKey() string {
	if s.ToUserID != "" {
		return s.ToUserID
	}
	return strings.ToLower(s.ToUserEmail)
}
