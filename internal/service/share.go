package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"docshare/internal/apperr"
	"docshare/internal/model"
	"docshare/internal/notify"
	"docshare/internal/repository"
	"docshare/internal/token"
)

// CreateShareInput carries the caller's share-create request.
// RecipientEmail and Access are optional; Access defaults to private when the
// recipient resolves to a registered user, public otherwise.
type CreateShareInput struct {
	DocumentID     string
	CreatorUserID  string
	RecipientEmail string
	Access         string
	Expiry         *time.Time
}

// ShareResult is a share plus creation metadata.
type ShareResult struct {
	Share *model.Share `json:"share"`
	// Reused is true when an identical active share already existed and was
	// returned instead of a duplicate.
	Reused bool `json:"reused"`
	// Link is the full shareable URL carrying the opaque token.
	Link string `json:"link"`
}

// PublicShare is the minimal projection exposed to anonymous token holders.
// It reveals nothing about the owner or recipient beyond what the link
// already implies.
type PublicShare struct {
	Token        string           `json:"token"`
	Access       model.AccessMode `json:"access"`
	DocumentName string           `json:"document_name"`
	ContentType  string           `json:"content_type"`
	Size         int64            `json:"size"`
	ExpiryTime   *time.Time       `json:"expiry_time,omitempty"`
	// RequiresOtp tells the client to run the code flow before view/download.
	RequiresOtp bool `json:"requires_otp"`
}

// ShareListResult is the service-level DTO for paginated shares.
type ShareListResult struct {
	Items []model.Share `json:"data"`
	Total int           `json:"total"`
}

// ShareService manages the share lifecycle: creation with idempotency and
// recipient resolution, revocation, expiry changes, and lookups.
type ShareService interface {
	// Create grants access to a document. A repeat request matching an
	// existing active (document, creator, recipient, access) tuple returns
	// that share with Reused=true instead of inserting a duplicate.
	Create(ctx context.Context, in CreateShareInput) (*ShareResult, error)

	// Get returns a share to its creator.
	Get(ctx context.Context, shareID, requesterUserID string) (*model.Share, error)

	// GetPublic returns the minimal anonymous projection for a token.
	GetPublic(ctx context.Context, tok string) (*PublicShare, error)

	// List returns the user's sent or received shares.
	List(ctx context.Context, userID string, box repository.ShareBox, limit, offset int) (*ShareListResult, error)

	// Revoke permanently deactivates a share. Revoking an already-revoked
	// share is a no-op success; the flag never clears.
	Revoke(ctx context.Context, shareID, requesterUserID string) (*model.Share, error)

	// SetExpiry replaces the expiry (nil clears it); a non-nil value must be
	// strictly in the future.
	SetExpiry(ctx context.Context, shareID, requesterUserID string, expiry *time.Time) (*model.Share, error)

	// ExpireNow sets the expiry to the current instant, immediately making
	// the share inactive.
	ExpireNow(ctx context.Context, shareID, requesterUserID string) (*model.Share, error)

	// Delete removes the share row entirely.
	Delete(ctx context.Context, shareID, requesterUserID string) error
}

type shareService struct {
	shares   repository.ShareRepository
	docs     repository.DocumentRepository
	users    repository.UserRepository
	logs     repository.AccessLogRepository
	notifier notify.Notifier
	now      NowFunc
	baseURL  string
}

// NewShareService constructs a ShareService.
func NewShareService(
	shares repository.ShareRepository,
	docs repository.DocumentRepository,
	users repository.UserRepository,
	logs repository.AccessLogRepository,
	notifier notify.Notifier,
	now NowFunc,
	baseURL string,
) ShareService {
	return &shareService{
		shares:   shares,
		docs:     docs,
		users:    users,
		logs:     logs,
		notifier: notifier,
		now:      now,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (s *shareService) Create(ctx context.Context, in CreateShareInput) (*ShareResult, error) {
	now := s.now()

	doc, err := s.docs.FindByID(ctx, in.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrDocumentNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	if doc.OwnerUserID != in.CreatorUserID {
		// Sharing someone else's document looks identical to a missing one.
		return nil, apperr.ErrDocumentNotFound
	}

	if in.Expiry != nil && !in.Expiry.After(now) {
		return nil, apperr.ErrInvalidExpiry
	}

	// Recipient resolution: registered user binds by id, unknown email stays
	// pending until that address registers.
	var toUserID, toEmail, notifyEmail string
	if in.RecipientEmail != "" {
		addr := strings.TrimSpace(in.RecipientEmail)
		if _, err := mail.ParseAddress(addr); err != nil {
			return nil, apperr.ErrInvalidEmail
		}
		recipient, err := s.users.FindByEmail(ctx, addr)
		switch {
		case err == nil:
			toUserID = recipient.ID
			notifyEmail = recipient.Email
		case errors.Is(err, sql.ErrNoRows):
			toEmail = addr
			notifyEmail = addr
		default:
			return nil, apperr.Unavailable(err)
		}
	}

	// Access-mode resolution.
	var access model.AccessMode
	switch model.AccessMode(in.Access) {
	case model.AccessPrivate:
		if toUserID == "" && toEmail == "" {
			return nil, apperr.ErrRecipientRequired
		}
		access = model.AccessPrivate
	case model.AccessPublic:
		// Recipient binding never applies to public shares.
		toUserID, toEmail = "", ""
		access = model.AccessPublic
	case "":
		if toUserID != "" {
			access = model.AccessPrivate
		} else {
			toUserID, toEmail = "", ""
			access = model.AccessPublic
		}
	default:
		return nil, apperr.ErrInvalidAccessMode
	}

	tok, err := token.NewShareToken()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	share := &model.Share{
		ID:          uuid.New().String(),
		Token:       tok,
		DocumentID:  doc.ID,
		FromUserID:  in.CreatorUserID,
		ToUserID:    toUserID,
		ToUserEmail: toEmail,
		Access:      access,
		ExpiryTime:  in.Expiry,
		CreatedAt:   now,
	}

	stored, reused, err := s.shares.CreateIdempotent(ctx, share, now)
	if err != nil {
		if apperr.KindOf(err) != 0 {
			return nil, err
		}
		return nil, apperr.Unavailable(err)
	}

	link := s.link(stored.Token)
	if !reused {
		appendLog(ctx, s.logs, &model.AccessLogEntry{
			ShareID:      stored.ID,
			DocumentID:   doc.ID,
			ViewerUserID: in.CreatorUserID,
			Action:       model.ActionShareCreate,
			Meta:         string(access),
			CreatedAt:    now,
		})
		if access == model.AccessPrivate && notifyEmail != "" {
			s.sendShareMail(ctx, notifyEmail, doc.Filename, link)
		}
	}

	return &ShareResult{Share: stored, Reused: reused, Link: link}, nil
}

func (s *shareService) Get(ctx context.Context, shareID, requesterUserID string) (*model.Share, error) {
	return s.ownedShare(ctx, shareID, requesterUserID)
}

func (s *shareService) GetPublic(ctx context.Context, tok string) (*PublicShare, error) {
	now := s.now()

	sh, err := loadShare(ctx, s.shares, ShareRef{Token: tok})
	if err != nil {
		return nil, err
	}
	if sh.IsRevoked {
		return nil, apperr.ErrShareRevoked
	}
	if sh.IsExpired(now) {
		return nil, apperr.ErrShareExpired
	}

	doc, err := s.docs.FindByID(ctx, sh.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrShareNotFound
		}
		return nil, apperr.Unavailable(err)
	}

	return &PublicShare{
		Token:        sh.Token,
		Access:       sh.Access,
		DocumentName: doc.Filename,
		ContentType:  doc.ContentType,
		Size:         doc.Size,
		ExpiryTime:   sh.ExpiryTime,
		RequiresOtp:  sh.Access == model.AccessPrivate,
	}, nil
}

func (s *shareService) List(ctx context.Context, userID string, box repository.ShareBox, limit, offset int) (*ShareListResult, error) {
	if userID == "" {
		return nil, apperr.ErrAuthRequired
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var email string
	if box == repository.BoxReceived {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperr.ErrUserNotFound
			}
			return nil, apperr.Unavailable(err)
		}
		email = u.Email
	}

	res, err := s.shares.List(ctx, userID, email, box, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return &ShareListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *shareService) Revoke(ctx context.Context, shareID, requesterUserID string) (*model.Share, error) {
	sh, err := s.ownedShare(ctx, shareID, requesterUserID)
	if err != nil {
		return nil, err
	}
	if sh.IsRevoked {
		// Idempotent: already-revoked is a no-op success.
		return sh, nil
	}

	now := s.now()
	revoked, err := s.shares.MarkRevoked(ctx, shareID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrShareNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	appendLog(ctx, s.logs, &model.AccessLogEntry{
		ShareID:      revoked.ID,
		DocumentID:   revoked.DocumentID,
		ViewerUserID: requesterUserID,
		Action:       model.ActionShareRevoke,
		CreatedAt:    now,
	})
	return revoked, nil
}

func (s *shareService) SetExpiry(ctx context.Context, shareID, requesterUserID string, expiry *time.Time) (*model.Share, error) {
	sh, err := s.ownedShare(ctx, shareID, requesterUserID)
	if err != nil {
		return nil, err
	}
	if sh.IsRevoked {
		// Expiry changes on a revoked share cannot reactivate it; reject
		// rather than pretend.
		return nil, apperr.ErrShareRevoked
	}
	if expiry != nil && !expiry.After(s.now()) {
		return nil, apperr.ErrInvalidExpiry
	}

	updated, err := s.shares.SetExpiry(ctx, shareID, expiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrShareNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	return updated, nil
}

func (s *shareService) ExpireNow(ctx context.Context, shareID, requesterUserID string) (*model.Share, error) {
	sh, err := s.ownedShare(ctx, shareID, requesterUserID)
	if err != nil {
		return nil, err
	}
	if sh.IsRevoked {
		return nil, apperr.ErrShareRevoked
	}

	now := s.now()
	updated, err := s.shares.SetExpiry(ctx, shareID, &now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrShareNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	return updated, nil
}

func (s *shareService) Delete(ctx context.Context, shareID, requesterUserID string) error {
	sh, err := s.ownedShare(ctx, shareID, requesterUserID)
	if err != nil {
		return err
	}

	// Log before the row disappears; the schema nulls share_id afterwards.
	appendLog(ctx, s.logs, &model.AccessLogEntry{
		ShareID:      sh.ID,
		DocumentID:   sh.DocumentID,
		ViewerUserID: requesterUserID,
		Action:       model.ActionShareDelete,
		CreatedAt:    s.now(),
	})
	if err := s.shares.Delete(ctx, shareID); err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

// ownedShare loads a share and hides it from non-creators.
func (s *shareService) ownedShare(ctx context.Context, shareID, requesterUserID string) (*model.Share, error) {
	sh, err := loadShare(ctx, s.shares, ShareRef{ID: shareID})
	if err != nil {
		return nil, err
	}
	if sh.FromUserID != requesterUserID {
		return nil, apperr.ErrShareNotFound
	}
	return sh, nil
}

func (s *shareService) link(tok string) string {
	return s.baseURL + "/" + tok
}

// sendShareMail delivers the share link best-effort; a bounced mail never
// fails the create.
func (s *shareService) sendShareMail(ctx context.Context, toEmail, filename, link string) {
	body := fmt.Sprintf(`
		<h2>A document was shared with you</h2>
		<p>You have been given access to <strong>%s</strong>.</p>
		<p><a href="%s">Open the document</a></p>
		<p>You will be asked to verify this email address with a one-time code.</p>
	`, filename, link)
	if err := s.notifier.Send(ctx, toEmail, "A document was shared with you", body); err != nil {
		logServiceJSON(map[string]any{
			"component": "service",
			"event":     "share_mail_failed",
			"level":     "error",
			"error":     err.Error(),
		})
	}
}
