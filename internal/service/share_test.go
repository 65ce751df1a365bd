package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"docshare/internal/apperr"
	"docshare/internal/model"
	notifyMocks "docshare/internal/notify/mocks"
	"docshare/internal/repository"
	repoMocks "docshare/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type shareMocks struct {
	shares   *repoMocks.MockShareRepository
	docs     *repoMocks.MockDocumentRepository
	users    *repoMocks.MockUserRepository
	logs     *repoMocks.MockAccessLogRepository
	notifier *notifyMocks.MockNotifier
}

func newShareService(t *testing.T) (ShareService, *shareMocks) {
	t.Helper()
	m := &shareMocks{
		shares:   new(repoMocks.MockShareRepository),
		docs:     new(repoMocks.MockDocumentRepository),
		users:    new(repoMocks.MockUserRepository),
		logs:     new(repoMocks.MockAccessLogRepository),
		notifier: new(notifyMocks.MockNotifier),
	}
	svc := NewShareService(m.shares, m.docs, m.users, m.logs, m.notifier, testClock(), "https://share.example.com/s")
	return svc, m
}

func (m *shareMocks) assertExpectations(t *testing.T) {
	m.shares.AssertExpectations(t)
	m.docs.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.logs.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
}

func TestShareService_Create(t *testing.T) {
	ctx := context.Background()
	ownedDoc := &model.Document{ID: "doc-1", OwnerUserID: "owner-1", Filename: "report.pdf"}
	future := fixedNow().Add(24 * time.Hour)
	past := fixedNow().Add(-time.Minute)

	tests := []struct {
		name       string
		in         CreateShareInput
		setupMocks func(m *shareMocks)
		wantErr    error
		checkRes   func(t *testing.T, res *ShareResult)
	}{
		{
			name: "private share to registered recipient",
			in: CreateShareInput{
				DocumentID:     "doc-1",
				CreatorUserID:  "owner-1",
				RecipientEmail: "bob@example.com",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
				m.users.On("FindByEmail", ctx, "bob@example.com").
					Return(&model.User{ID: "user-bob", Email: "bob@example.com"}, nil)
				m.shares.On("CreateIdempotent", ctx, mock.MatchedBy(func(s *model.Share) bool {
					return s.DocumentID == "doc-1" &&
						s.FromUserID == "owner-1" &&
						s.ToUserID == "user-bob" &&
						s.ToUserEmail == "" &&
						s.Access == model.AccessPrivate &&
						s.Token != ""
				}), fixedNow()).Return(&model.Share{
					ID: "share-1", Token: "tok-1", DocumentID: "doc-1",
					FromUserID: "owner-1", ToUserID: "user-bob", Access: model.AccessPrivate,
				}, false, nil)
				m.logs.On("Append", ctx, mock.MatchedBy(func(e *model.AccessLogEntry) bool {
					return e.Action == model.ActionShareCreate && e.ShareID == "share-1"
				})).Return(nil)
				m.notifier.On("Send", ctx, "bob@example.com", mock.Anything, mock.Anything).Return(nil)
			},
			checkRes: func(t *testing.T, res *ShareResult) {
				assert.False(t, res.Reused)
				assert.Equal(t, "https://share.example.com/s/tok-1", res.Link)
			},
		},
		{
			name: "repeat create returns existing share without log or mail",
			in: CreateShareInput{
				DocumentID:     "doc-1",
				CreatorUserID:  "owner-1",
				RecipientEmail: "bob@example.com",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
				m.users.On("FindByEmail", ctx, "bob@example.com").
					Return(&model.User{ID: "user-bob", Email: "bob@example.com"}, nil)
				m.shares.On("CreateIdempotent", ctx, mock.Anything, fixedNow()).
					Return(&model.Share{ID: "share-old", Token: "tok-old"}, true, nil)
			},
			checkRes: func(t *testing.T, res *ShareResult) {
				assert.True(t, res.Reused)
				assert.Equal(t, "share-old", res.Share.ID)
			},
		},
		{
			name: "unregistered recipient stays pending on email",
			in: CreateShareInput{
				DocumentID:     "doc-1",
				CreatorUserID:  "owner-1",
				RecipientEmail: "new@example.com",
				Access:         "private",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
				m.users.On("FindByEmail", ctx, "new@example.com").Return(nil, sql.ErrNoRows)
				m.shares.On("CreateIdempotent", ctx, mock.MatchedBy(func(s *model.Share) bool {
					return s.ToUserID == "" && s.ToUserEmail == "new@example.com" && s.Access == model.AccessPrivate
				}), fixedNow()).Return(&model.Share{ID: "share-2", Token: "tok-2"}, false, nil)
				m.logs.On("Append", ctx, mock.Anything).Return(nil)
				m.notifier.On("Send", ctx, "new@example.com", mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name: "public share clears recipient binding and skips mail",
			in: CreateShareInput{
				DocumentID:     "doc-1",
				CreatorUserID:  "owner-1",
				RecipientEmail: "bob@example.com",
				Access:         "public",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
				m.users.On("FindByEmail", ctx, "bob@example.com").
					Return(&model.User{ID: "user-bob", Email: "bob@example.com"}, nil)
				m.shares.On("CreateIdempotent", ctx, mock.MatchedBy(func(s *model.Share) bool {
					return s.ToUserID == "" && s.ToUserEmail == "" && s.Access == model.AccessPublic
				}), fixedNow()).Return(&model.Share{ID: "share-3", Token: "tok-3", Access: model.AccessPublic}, false, nil)
				m.logs.On("Append", ctx, mock.Anything).Return(nil)
			},
		},
		{
			name: "no recipient defaults to public",
			in: CreateShareInput{
				DocumentID:    "doc-1",
				CreatorUserID: "owner-1",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
				m.shares.On("CreateIdempotent", ctx, mock.MatchedBy(func(s *model.Share) bool {
					return s.Access == model.AccessPublic
				}), fixedNow()).Return(&model.Share{ID: "share-4", Token: "tok-4", Access: model.AccessPublic}, false, nil)
				m.logs.On("Append", ctx, mock.Anything).Return(nil)
			},
		},
		{
			name: "private without recipient rejected",
			in: CreateShareInput{
				DocumentID:    "doc-1",
				CreatorUserID: "owner-1",
				Access:        "private",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
			},
			wantErr: apperr.ErrRecipientRequired,
		},
		{
			name: "unknown access mode rejected",
			in: CreateShareInput{
				DocumentID:    "doc-1",
				CreatorUserID: "owner-1",
				Access:        "internal",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
			},
			wantErr: apperr.ErrInvalidAccessMode,
		},
		{
			name: "malformed recipient email rejected",
			in: CreateShareInput{
				DocumentID:     "doc-1",
				CreatorUserID:  "owner-1",
				RecipientEmail: "not-an-email",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
			},
			wantErr: apperr.ErrInvalidEmail,
		},
		{
			name: "expiry in the past rejected",
			in: CreateShareInput{
				DocumentID:    "doc-1",
				CreatorUserID: "owner-1",
				Expiry:        &past,
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
			},
			wantErr: apperr.ErrInvalidExpiry,
		},
		{
			name: "expiry exactly now rejected",
			in: CreateShareInput{
				DocumentID:    "doc-1",
				CreatorUserID: "owner-1",
				Expiry:        func() *time.Time { at := fixedNow(); return &at }(),
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
			},
			wantErr: apperr.ErrInvalidExpiry,
		},
		{
			name: "future expiry accepted",
			in: CreateShareInput{
				DocumentID:    "doc-1",
				CreatorUserID: "owner-1",
				Expiry:        &future,
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
				m.shares.On("CreateIdempotent", ctx, mock.MatchedBy(func(s *model.Share) bool {
					return s.ExpiryTime != nil && s.ExpiryTime.Equal(future)
				}), fixedNow()).Return(&model.Share{ID: "share-5", Token: "tok-5"}, false, nil)
				m.logs.On("Append", ctx, mock.Anything).Return(nil)
			},
		},
		{
			name: "document not found",
			in: CreateShareInput{
				DocumentID:    "missing-doc",
				CreatorUserID: "owner-1",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "missing-doc").Return(nil, sql.ErrNoRows)
			},
			wantErr: apperr.ErrDocumentNotFound,
		},
		{
			name: "someone else's document looks missing",
			in: CreateShareInput{
				DocumentID:    "doc-1",
				CreatorUserID: "stranger",
			},
			setupMocks: func(m *shareMocks) {
				m.docs.On("FindByID", ctx, "doc-1").Return(ownedDoc, nil)
			},
			wantErr: apperr.ErrDocumentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newShareService(t)
			tt.setupMocks(m)

			res, err := svc.Create(ctx, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, res)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			m.assertExpectations(t)
		})
	}
}

func TestShareService_Revoke(t *testing.T) {
	ctx := context.Background()
	revokedAt := fixedNow().Add(-time.Hour)

	tests := []struct {
		name       string
		requester  string
		setupMocks func(m *shareMocks)
		wantErr    error
	}{
		{
			name:      "happy path",
			requester: "owner-1",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByID", ctx, "share-1").
					Return(&model.Share{ID: "share-1", DocumentID: "doc-1", FromUserID: "owner-1"}, nil)
				m.shares.On("MarkRevoked", ctx, "share-1", fixedNow()).
					Return(&model.Share{ID: "share-1", DocumentID: "doc-1", FromUserID: "owner-1", IsRevoked: true}, nil)
				m.logs.On("Append", ctx, mock.MatchedBy(func(e *model.AccessLogEntry) bool {
					return e.Action == model.ActionShareRevoke && e.ShareID == "share-1"
				})).Return(nil)
			},
		},
		{
			name:      "already revoked is a no-op success",
			requester: "owner-1",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByID", ctx, "share-1").
					Return(&model.Share{ID: "share-1", FromUserID: "owner-1", IsRevoked: true, RevokedAt: &revokedAt}, nil)
			},
		},
		{
			name:      "non-creator sees not found",
			requester: "stranger",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByID", ctx, "share-1").
					Return(&model.Share{ID: "share-1", FromUserID: "owner-1"}, nil)
			},
			wantErr: apperr.ErrShareNotFound,
		},
		{
			name:      "missing share",
			requester: "owner-1",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByID", ctx, "share-1").Return(nil, sql.ErrNoRows)
			},
			wantErr: apperr.ErrShareNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newShareService(t)
			tt.setupMocks(m)

			sh, err := svc.Revoke(ctx, "share-1", tt.requester)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, sh)
			}
			m.assertExpectations(t)
		})
	}
}

func TestShareService_SetExpiry(t *testing.T) {
	ctx := context.Background()
	future := fixedNow().Add(time.Hour)
	past := fixedNow().Add(-time.Hour)
	active := &model.Share{ID: "share-1", FromUserID: "owner-1"}

	tests := []struct {
		name       string
		expiry     *time.Time
		setupMocks func(m *shareMocks)
		wantErr    error
	}{
		{
			name:   "future expiry accepted",
			expiry: &future,
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByID", ctx, "share-1").Return(active, nil)
				m.shares.On("SetExpiry", ctx, "share-1", &future).
					Return(&model.Share{ID: "share-1", FromUserID: "owner-1", ExpiryTime: &future}, nil)
			},
		},
		{
			name:   "nil clears the expiry",
			expiry: nil,
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByID", ctx, "share-1").Return(active, nil)
				m.shares.On("SetExpiry", ctx, "share-1", (*time.Time)(nil)).
					Return(&model.Share{ID: "share-1", FromUserID: "owner-1"}, nil)
			},
		},
		{
			name:   "past expiry rejected",
			expiry: &past,
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByID", ctx, "share-1").Return(active, nil)
			},
			wantErr: apperr.ErrInvalidExpiry,
		},
		{
			name:   "revoked share cannot change expiry",
			expiry: &future,
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByID", ctx, "share-1").
					Return(&model.Share{ID: "share-1", FromUserID: "owner-1", IsRevoked: true}, nil)
			},
			wantErr: apperr.ErrShareRevoked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newShareService(t)
			tt.setupMocks(m)

			sh, err := svc.SetExpiry(ctx, "share-1", "owner-1", tt.expiry)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, sh)
			}
			m.assertExpectations(t)
		})
	}
}

func TestShareService_ExpireNow(t *testing.T) {
	ctx := context.Background()
	svc, m := newShareService(t)

	now := fixedNow()
	m.shares.On("FindByID", ctx, "share-1").
		Return(&model.Share{ID: "share-1", FromUserID: "owner-1"}, nil)
	m.shares.On("SetExpiry", ctx, "share-1", &now).
		Return(&model.Share{ID: "share-1", FromUserID: "owner-1", ExpiryTime: &now}, nil)

	sh, err := svc.ExpireNow(ctx, "share-1", "owner-1")
	assert.NoError(t, err)
	assert.NotNil(t, sh.ExpiryTime)
	assert.True(t, sh.IsExpired(now))
	m.assertExpectations(t)
}

func TestShareService_GetPublic(t *testing.T) {
	ctx := context.Background()
	atNow := fixedNow()
	expired := atNow.Add(-time.Second)
	boundary := atNow

	tests := []struct {
		name       string
		setupMocks func(m *shareMocks)
		wantErr    error
		checkRes   func(t *testing.T, ps *PublicShare)
	}{
		{
			name: "private share requires otp",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByToken", ctx, "tok-1").
					Return(&model.Share{ID: "share-1", Token: "tok-1", DocumentID: "doc-1", Access: model.AccessPrivate}, nil)
				m.docs.On("FindByID", ctx, "doc-1").
					Return(&model.Document{ID: "doc-1", Filename: "report.pdf", ContentType: "application/pdf", Size: 42}, nil)
			},
			checkRes: func(t *testing.T, ps *PublicShare) {
				assert.True(t, ps.RequiresOtp)
				assert.Equal(t, "report.pdf", ps.DocumentName)
			},
		},
		{
			name: "public share does not require otp",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByToken", ctx, "tok-1").
					Return(&model.Share{ID: "share-1", Token: "tok-1", DocumentID: "doc-1", Access: model.AccessPublic}, nil)
				m.docs.On("FindByID", ctx, "doc-1").
					Return(&model.Document{ID: "doc-1", Filename: "report.pdf"}, nil)
			},
			checkRes: func(t *testing.T, ps *PublicShare) {
				assert.False(t, ps.RequiresOtp)
			},
		},
		{
			name: "revoked share",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByToken", ctx, "tok-1").
					Return(&model.Share{ID: "share-1", IsRevoked: true}, nil)
			},
			wantErr: apperr.ErrShareRevoked,
		},
		{
			name: "expired share",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByToken", ctx, "tok-1").
					Return(&model.Share{ID: "share-1", ExpiryTime: &expired}, nil)
			},
			wantErr: apperr.ErrShareExpired,
		},
		{
			name: "expiry boundary counts as expired",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByToken", ctx, "tok-1").
					Return(&model.Share{ID: "share-1", ExpiryTime: &boundary}, nil)
			},
			wantErr: apperr.ErrShareExpired,
		},
		{
			name: "unknown token",
			setupMocks: func(m *shareMocks) {
				m.shares.On("FindByToken", ctx, "tok-1").Return(nil, sql.ErrNoRows)
			},
			wantErr: apperr.ErrShareNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newShareService(t)
			tt.setupMocks(m)

			ps, err := svc.GetPublic(ctx, "tok-1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ps)
			} else {
				assert.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, ps)
				}
			}
			m.assertExpectations(t)
		})
	}
}

func TestShareService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("sent box", func(t *testing.T) {
		svc, m := newShareService(t)
		m.shares.On("List", ctx, "owner-1", "", repository.BoxSent, repository.PageQuery{Limit: 10, Offset: 0}).
			Return(&repository.PageResult[model.Share]{Items: []model.Share{{ID: "share-1"}}, Total: 1}, nil)

		res, err := svc.List(ctx, "owner-1", repository.BoxSent, 0, 0)
		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		m.assertExpectations(t)
	})

	t.Run("received box resolves the user's email", func(t *testing.T) {
		svc, m := newShareService(t)
		m.users.On("FindByID", ctx, "user-bob").
			Return(&model.User{ID: "user-bob", Email: "bob@example.com"}, nil)
		m.shares.On("List", ctx, "user-bob", "bob@example.com", repository.BoxReceived, repository.PageQuery{Limit: 20, Offset: 5}).
			Return(&repository.PageResult[model.Share]{Items: []model.Share{}, Total: 0}, nil)

		_, err := svc.List(ctx, "user-bob", repository.BoxReceived, 20, 5)
		assert.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("anonymous caller rejected", func(t *testing.T) {
		svc, m := newShareService(t)
		_, err := svc.List(ctx, "", repository.BoxSent, 10, 0)
		assert.ErrorIs(t, err, apperr.ErrAuthRequired)
		m.assertExpectations(t)
	})
}

func TestShareService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("logs before deleting", func(t *testing.T) {
		svc, m := newShareService(t)
		m.shares.On("FindByID", ctx, "share-1").
			Return(&model.Share{ID: "share-1", DocumentID: "doc-1", FromUserID: "owner-1"}, nil)
		m.logs.On("Append", ctx, mock.MatchedBy(func(e *model.AccessLogEntry) bool {
			return e.Action == model.ActionShareDelete && e.ShareID == "share-1"
		})).Return(nil)
		m.shares.On("Delete", ctx, "share-1").Return(nil)

		err := svc.Delete(ctx, "share-1", "owner-1")
		assert.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("non-creator sees not found", func(t *testing.T) {
		svc, m := newShareService(t)
		m.shares.On("FindByID", ctx, "share-1").
			Return(&model.Share{ID: "share-1", FromUserID: "owner-1"}, nil)

		err := svc.Delete(ctx, "share-1", "stranger")
		assert.ErrorIs(t, err, apperr.ErrShareNotFound)
		m.assertExpectations(t)
	})

	t.Run("repository error surfaces as unavailable", func(t *testing.T) {
		svc, m := newShareService(t)
		m.shares.On("FindByID", ctx, "share-1").
			Return(&model.Share{ID: "share-1", FromUserID: "owner-1"}, nil)
		m.logs.On("Append", ctx, mock.Anything).Return(nil)
		m.shares.On("Delete", ctx, "share-1").Return(errors.New("db fail"))

		err := svc.Delete(ctx, "share-1", "owner-1")
		assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
		m.assertExpectations(t)
	})
}
