package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"docshare/internal/apperr"
	"docshare/internal/model"
	"docshare/internal/repository"
)

// Package service contains the use-case layer: ShareService (lifecycle),
// OtpService (email-proof sub-protocol), AccessService (the decision
// function), DocumentService and AuthService (supporting plumbing). Services
// validate, enforce invariants, and translate repository errors into the
// apperr taxonomy; repositories stay persistence-only.

// NowFunc supplies the current instant. Injected so expiry boundaries are
// deterministic in tests.
type NowFunc func() time.Time

// UTCNow is the production NowFunc.
func UTCNow() time.Time { return time.Now().UTC() }

// ShareRef addresses a share by exactly one of its id (owner surfaces) or its
// opaque link token (public surfaces).
type ShareRef struct {
	ID    string
	Token string
}

// IsZero reports whether the reference is absent.
func (r ShareRef) IsZero() bool { return r.ID == "" && r.Token == "" }

func loadShare(ctx context.Context, repo repository.ShareRepository, ref ShareRef) (*model.Share, error) {
	var (
		sh  *model.Share
		err error
	)
	switch {
	case ref.ID != "":
		sh, err = repo.FindByID(ctx, ref.ID)
	case ref.Token != "":
		sh, err = repo.FindByToken(ctx, ref.Token)
	default:
		return nil, apperr.ErrMissingReference
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrShareNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	return sh, nil
}

// matchesRecipient applies the recipient-binding rule: bound user id when
// present, else case-insensitive email.
func matchesRecipient(sh *model.Share, user *model.User, claimedEmail string) bool {
	if sh.ToUserID != "" {
		return sh.ToUserID == user.ID
	}
	if sh.ToUserEmail != "" {
		return equalEmail(sh.ToUserEmail, claimedEmail) || equalEmail(sh.ToUserEmail, user.Email)
	}
	return false
}

func equalEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// appendLog writes an audit row with a fresh id and swallows failures: audit
// is observability, not an access precondition, and must never fail the
// triggering operation.
func appendLog(ctx context.Context, repo repository.AccessLogRepository, e *model.AccessLogEntry) {
	if repo == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if err := repo.Append(ctx, e); err != nil {
		logServiceJSON(map[string]any{
			"component":   "service",
			"event":       "access_log_append_failed",
			"level":       "error",
			"action":      e.Action,
			"document_id": e.DocumentID,
			"error":       err.Error(),
		})
	}
}

func logServiceJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		data["level"] = "info"
	}
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal service log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
