package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"docshare/internal/apperr"
	"docshare/internal/model"
	"docshare/internal/repository"
)

// AuthIdentity is the explicit authenticated-caller value handed down from
// the HTTP layer: either a user id or nothing. It replaces any implicit
// request-object mutation; absence is a legal state, not an error.
type AuthIdentity struct {
	UserID string
}

// IsZero reports whether no authenticated identity is present.
func (a AuthIdentity) IsZero() bool { return a.UserID == "" }

// AccessRequest is one view/download attempt to adjudicate.
//
// DocumentID may be empty when the caller only holds a share token; the
// document is then derived from the share. ClaimedEmail is the private-share
// identity claim, distinct from the authenticated identity.
type AccessRequest struct {
	DocumentID   string
	Ref          ShareRef
	Auth         AuthIdentity
	ClaimedEmail string
	WantDownload bool
}

// AccessGrant is a permitted access: the document, the share that granted it
// (nil for owner-direct access), and the resolved viewer (empty for
// anonymous public views).
type AccessGrant struct {
	Document     *model.Document
	Share        *model.Share
	ViewerUserID string
}

// AccessService is the decision function consulted before every file view or
// download. It mutates nothing; callers append the audit entry.
type AccessService interface {
	Resolve(ctx context.Context, req AccessRequest) (*AccessGrant, error)
}

type accessService struct {
	docs   repository.DocumentRepository
	shares repository.ShareRepository
	users  repository.UserRepository
	otps   repository.OtpRepository
	now    NowFunc
}

// NewAccessService constructs an AccessService.
func NewAccessService(
	docs repository.DocumentRepository,
	shares repository.ShareRepository,
	users repository.UserRepository,
	otps repository.OtpRepository,
	now NowFunc,
) AccessService {
	return &accessService{docs: docs, shares: shares, users: users, otps: otps, now: now}
}

// Resolve decides one access attempt. The order is fixed: owner short-circuit,
// then share state, then mode-specific checks. Denials carry reasons specific
// enough to guide a legitimate user's next step without confirming anything a
// prober doesn't already hold.
func (s *accessService) Resolve(ctx context.Context, req AccessRequest) (*AccessGrant, error) {
	now := s.now()

	// Token-only callers: derive the document from the share.
	var share *model.Share
	docID := req.DocumentID
	if docID == "" {
		if req.Ref.IsZero() {
			return nil, apperr.ErrMissingReference
		}
		sh, err := loadShare(ctx, s.shares, req.Ref)
		if err != nil {
			return nil, err
		}
		share = sh
		docID = sh.DocumentID
	}

	doc, err := s.docs.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrDocumentNotFound
		}
		return nil, apperr.Unavailable(err)
	}

	// 1. The owner needs no share for either action.
	if !req.Auth.IsZero() && doc.OwnerUserID == req.Auth.UserID {
		return &AccessGrant{Document: doc, ViewerUserID: req.Auth.UserID}, nil
	}

	// 2. Everyone else must present a share reference.
	if share == nil {
		if req.Ref.IsZero() {
			return nil, apperr.ErrMissingReference
		}
		share, err = loadShare(ctx, s.shares, req.Ref)
		if err != nil {
			return nil, err
		}
	}

	// 3. Share state gates everything downstream.
	if share.DocumentID != doc.ID {
		return nil, apperr.ErrShareNotFound
	}
	if share.IsRevoked {
		return nil, apperr.ErrShareRevoked
	}
	if share.IsExpired(now) {
		return nil, apperr.ErrShareExpired
	}

	// 4. Public shares: view for anyone, download for no one.
	if share.Access == model.AccessPublic {
		if req.WantDownload {
			return nil, apperr.ErrPublicViewOnly
		}
		return &AccessGrant{Document: doc, Share: share}, nil
	}

	// 5. Private shares: claimed identity, registration, recipient binding,
	// then a standing verified OTP window.
	claimed := strings.TrimSpace(req.ClaimedEmail)
	if claimed == "" {
		return nil, apperr.ErrIdentityRequired
	}
	user, err := s.users.FindByEmail(ctx, claimed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrUnregistered
		}
		return nil, apperr.Unavailable(err)
	}
	if !matchesRecipient(share, user, claimed) {
		return nil, apperr.ErrWrongRecipient
	}

	verified, err := s.otps.HasVerified(ctx, user.ID, share.ID, now)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if !verified {
		return nil, apperr.ErrOtpRequired
	}

	return &AccessGrant{Document: doc, Share: share, ViewerUserID: user.ID}, nil
}
