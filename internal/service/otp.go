package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docshare/internal/apperr"
	"docshare/internal/model"
	"docshare/internal/notify"
	"docshare/internal/ratelimit"
	"docshare/internal/repository"
	"docshare/internal/token"
)

// SendOtpResult describes the challenge that was issued.
type SendOtpResult struct {
	ChallengeID string    `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// OtpService runs the one-time-passcode sub-protocol gating private shares:
// a code emailed to the claimed address, verified once, opening a standing
// time-boxed access window for the (user, share) pair.
type OtpService interface {
	// Send issues a fresh code for the claimed recipient email and asks the
	// Notifier to deliver it. Any prior active code for the pair is
	// invalidated in the same transaction. Delivery failure does not roll
	// back the challenge; the user can retry or request a new code.
	Send(ctx context.Context, ref ShareRef, claimedEmail string) (*SendOtpResult, error)

	// Verify checks the code against the most recent active challenge and,
	// on exact match, marks it verified. The verified row stays as the
	// access window consulted by every later view/download check.
	Verify(ctx context.Context, ref ShareRef, claimedEmail, code string) error
}

type otpService struct {
	otps     repository.OtpRepository
	shares   repository.ShareRepository
	users    repository.UserRepository
	logs     repository.AccessLogRepository
	notifier notify.Notifier
	limiter  ratelimit.Limiter
	now      NowFunc
	ttl      time.Duration
	codeLen  int
}

// NewOtpService constructs an OtpService. ttl bounds both code validity and
// the verified access window.
func NewOtpService(
	otps repository.OtpRepository,
	shares repository.ShareRepository,
	users repository.UserRepository,
	logs repository.AccessLogRepository,
	notifier notify.Notifier,
	limiter ratelimit.Limiter,
	now NowFunc,
	ttl time.Duration,
	codeLen int,
) OtpService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if limiter == nil {
		limiter = ratelimit.AllowAll{}
	}
	return &otpService{
		otps:     otps,
		shares:   shares,
		users:    users,
		logs:     logs,
		notifier: notifier,
		limiter:  limiter,
		now:      now,
		ttl:      ttl,
		codeLen:  codeLen,
	}
}

func (s *otpService) Send(ctx context.Context, ref ShareRef, claimedEmail string) (*SendOtpResult, error) {
	now := s.now()

	sh, user, err := s.resolvePair(ctx, ref, claimedEmail, now)
	if err != nil {
		return nil, err
	}

	limitKey := sh.ID + ":" + strings.ToLower(strings.TrimSpace(claimedEmail))
	allowed, err := s.limiter.Allow(ctx, limitKey)
	if err != nil {
		// A broken limiter must not block legitimate sends.
		logServiceJSON(map[string]any{
			"component": "service",
			"event":     "otp_limiter_failed",
			"level":     "error",
			"error":     err.Error(),
		})
	} else if !allowed {
		return nil, apperr.ErrRateLimited
	}

	code, err := token.NewOtpCode(s.codeLen)
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}

	ch := &model.OtpChallenge{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		ShareID:    sh.ID,
		Code:       code,
		ExpiryTime: now.Add(s.ttl),
		CreatedAt:  now,
	}
	stored, err := s.otps.IssueChallenge(ctx, ch, now)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}

	appendLog(ctx, s.logs, &model.AccessLogEntry{
		ShareID:      sh.ID,
		DocumentID:   sh.DocumentID,
		ViewerUserID: user.ID,
		Action:       model.ActionOtpRequest,
		CreatedAt:    now,
	})

	s.sendCodeMail(ctx, user.Email, code, stored.ExpiryTime)

	return &SendOtpResult{ChallengeID: stored.ID, ExpiresAt: stored.ExpiryTime}, nil
}

func (s *otpService) Verify(ctx context.Context, ref ShareRef, claimedEmail, code string) error {
	now := s.now()

	sh, user, err := s.resolvePair(ctx, ref, claimedEmail, now)
	if err != nil {
		return err
	}

	ch, err := s.otps.VerifyCode(ctx, user.ID, sh.ID, strings.TrimSpace(code), now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrInvalidOtpCode
		}
		return apperr.Unavailable(err)
	}

	appendLog(ctx, s.logs, &model.AccessLogEntry{
		ShareID:      sh.ID,
		DocumentID:   sh.DocumentID,
		ViewerUserID: user.ID,
		Action:       model.ActionOtpVerify,
		Meta:         ch.ID,
		CreatedAt:    now,
	})
	return nil
}

// resolvePair loads the share, checks its state, and enforces the recipient
// binding against the claimed email. Both Send and Verify run the same gate,
// so a code issued to the right user for a different share never crosses
// over (wrong recipient beats valid code).
func (s *otpService) resolvePair(ctx context.Context, ref ShareRef, claimedEmail string, now time.Time) (*model.Share, *model.User, error) {
	sh, err := loadShare(ctx, s.shares, ref)
	if err != nil {
		return nil, nil, err
	}
	if sh.IsRevoked {
		return nil, nil, apperr.ErrShareRevoked
	}
	if sh.IsExpired(now) {
		return nil, nil, apperr.ErrShareExpired
	}
	if sh.Access == model.AccessPublic {
		return nil, nil, apperr.ErrOtpNotApplicable
	}

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(claimedEmail))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperr.ErrRecipientUnregistered
		}
		return nil, nil, apperr.Unavailable(err)
	}

	if !matchesRecipient(sh, user, claimedEmail) {
		return nil, nil, apperr.ErrWrongRecipient
	}
	return sh, user, nil
}

// sendCodeMail delivers the code best-effort; failures are logged, not
// returned. The persisted challenge stays valid for a retried delivery.
func (s *otpService) sendCodeMail(ctx context.Context, toEmail, code string, expiresAt time.Time) {
	body := fmt.Sprintf(`
		<h2>Your verification code</h2>
		<p>Enter this code to confirm your email address:</p>
		<p style="font-size:2em;letter-spacing:0.3em;"><strong>%s</strong></p>
		<p>The code is valid until %s.</p>
	`, code, expiresAt.UTC().Format(time.RFC1123))
	if err := s.notifier.Send(ctx, toEmail, "Your verification code", body); err != nil {
		logServiceJSON(map[string]any{
			"component": "service",
			"event":     "otp_mail_failed",
			"level":     "error",
			"error":     err.Error(),
		})
	}
}
