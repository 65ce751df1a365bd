package apperr

import (
	"errors"
	"fmt"
)

// Package apperr defines the typed error taxonomy shared by services,
// repositories, and HTTP handlers. Every fallible operation returns one of
// these tagged errors instead of throwing/coercing; handlers map Kind and
// Code to a status without leaking internals into the message.

// Kind classifies an error into one of the stable outcome categories.
type Kind int

const (
	// KindNotFound: document/share/otp absent or not visible to the caller.
	KindNotFound Kind = iota + 1
	// KindUnauthenticated: caller must establish identity (login, OTP).
	KindUnauthenticated
	// KindForbidden: ownership or recipient mismatch.
	KindForbidden
	// KindConflict: idempotency race loser that could not be resolved.
	KindConflict
	// KindInvalidInput: malformed email, non-future expiry, missing field.
	KindInvalidInput
	// KindStateConflict: revoked/expired share acted upon.
	KindStateConflict
	// KindRateLimited: caller should back off and retry later.
	KindRateLimited
	// KindUnavailable: store/notifier transient failure.
	KindUnavailable
)

// Error carries a Kind for status mapping, a stable machine Code, and a safe
// human-readable Message. The wrapped cause is for logs only and never
// reaches response bodies.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes sentinel comparison work through wrapping: two apperr errors match
// when their codes match, so errors.Is(err, apperr.ErrShareRevoked) holds for
// any wrapped instance carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New builds a tagged error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds a tagged error around an underlying cause.
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Unavailable tags a transient store/notifier failure.
func Unavailable(err error) *Error {
	return Wrap(err, KindUnavailable, "UNAVAILABLE", "service temporarily unavailable")
}

// Sentinel instances for every fixed condition in the taxonomy. Services
// return these directly (or Wrap with the same code); tests and handlers
// compare with errors.Is.
var (
	ErrDocumentNotFound = New(KindNotFound, "DOCUMENT_NOT_FOUND", "document not found")
	ErrShareNotFound    = New(KindNotFound, "SHARE_NOT_FOUND", "share not found")
	ErrUserNotFound     = New(KindNotFound, "USER_NOT_FOUND", "user not found")

	ErrInvalidEmail          = New(KindInvalidInput, "INVALID_EMAIL", "email address is malformed")
	ErrInvalidExpiry         = New(KindInvalidInput, "INVALID_EXPIRY", "expiry must be in the future")
	ErrInvalidAccessMode     = New(KindInvalidInput, "INVALID_ACCESS", "access must be public or private")
	ErrRecipientRequired     = New(KindInvalidInput, "RECIPIENT_REQUIRED", "a private share requires a recipient")
	ErrRecipientUnregistered = New(KindInvalidInput, "RECIPIENT_UNREGISTERED", "no registered user for that email")
	ErrInvalidOtpCode        = New(KindInvalidInput, "INVALID_OR_EXPIRED_CODE", "code is invalid or expired")

	ErrEmailTaken         = New(KindConflict, "EMAIL_TAKEN", "email is already registered")
	ErrCreateConflict     = New(KindConflict, "SHARE_CONFLICT", "a conflicting share request won the race")
	ErrInvalidCredentials = New(KindUnauthenticated, "INVALID_CREDENTIALS", "invalid email or password")
	ErrAuthRequired       = New(KindUnauthenticated, "AUTH_REQUIRED", "authentication required")

	ErrShareRevoked     = New(KindStateConflict, "REVOKED", "share has been revoked")
	ErrShareExpired     = New(KindStateConflict, "EXPIRED", "share has expired")
	ErrOtpNotApplicable = New(KindStateConflict, "OTP_NOT_APPLICABLE", "public shares do not use codes")

	ErrMissingReference = New(KindForbidden, "MISSING_REFERENCE", "a share link is required")
	ErrPublicViewOnly   = New(KindForbidden, "PUBLIC_VIEW_ONLY", "this share permits viewing only")
	ErrIdentityRequired = New(KindUnauthenticated, "IDENTITY_REQUIRED", "a verified email identity is required")
	ErrUnregistered     = New(KindForbidden, "UNREGISTERED", "that email is not registered")
	ErrWrongRecipient   = New(KindForbidden, "WRONG_RECIPIENT", "share is bound to a different recipient")
	ErrOtpRequired      = New(KindUnauthenticated, "OTP_REQUIRED", "verify the emailed code first")
	ErrNotOwner         = New(KindForbidden, "NOT_OWNER", "only the owner may do that")

	ErrRateLimited = New(KindRateLimited, "RATE_LIMITED", "too many requests, try again later")
)

// KindOf extracts the Kind from any error in the chain; zero when untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf extracts the machine code from any error in the chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf extracts the safe message; a generic fallback for untagged errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
