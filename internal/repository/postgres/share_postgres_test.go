package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docshare/internal/model"
	"docshare/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

var shareCols = []string{"id", "share_token", "document_id", "from_user_id", "to_user_id", "to_user_email", "access", "expiry_time", "is_revoked", "revoked_at", "created_at"}

func newShareFixture(now time.Time) *model.Share {
	return &model.Share{
		ID:         "share-1",
		Token:      "tok-1",
		DocumentID: "doc-1",
		FromUserID: "owner-1",
		ToUserID:   "user-bob",
		Access:     model.AccessPrivate,
		CreatedAt:  now,
	}
}

func shareRow(s *model.Share) *sqlmock.Rows {
	return sqlmock.NewRows(shareCols).
		AddRow(s.ID, s.Token, s.DocumentID, s.FromUserID, s.ToUserID, nil, string(s.Access), s.ExpiryTime, s.IsRevoked, s.RevokedAt, s.CreatedAt)
}

func TestSharePostgres_CreateIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("fresh insert", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		s := newShareFixture(now)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM shares").
			WithArgs("doc-1", "owner-1", "user-bob", "private").
			WillReturnRows(sqlmock.NewRows(shareCols))
		mock.ExpectQuery("INSERT INTO shares").
			WithArgs("share-1", "tok-1", "doc-1", "owner-1", "user-bob", nil, "user-bob", "private", nil, now).
			WillReturnRows(shareRow(s))
		mock.ExpectCommit()

		stored, reused, err := NewSharePostgres(db).CreateIdempotent(ctx, s, now)

		assert.NoError(t, err)
		assert.False(t, reused)
		assert.Equal(t, "share-1", stored.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("active tuple already exists", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		s := newShareFixture(now)
		existing := newShareFixture(now.Add(-time.Hour))
		existing.ID = "share-old"
		existing.Token = "tok-old"

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM shares").
			WithArgs("doc-1", "owner-1", "user-bob", "private").
			WillReturnRows(shareRow(existing))
		mock.ExpectCommit()

		stored, reused, err := NewSharePostgres(db).CreateIdempotent(ctx, s, now)

		assert.NoError(t, err)
		assert.True(t, reused)
		assert.Equal(t, "share-old", stored.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired leftover is revoked before the insert", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		s := newShareFixture(now)
		stale := newShareFixture(now.Add(-2 * time.Hour))
		stale.ID = "share-stale"
		past := now.Add(-time.Hour)
		stale.ExpiryTime = &past

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM shares").
			WithArgs("doc-1", "owner-1", "user-bob", "private").
			WillReturnRows(shareRow(stale))
		mock.ExpectExec("UPDATE shares SET is_revoked = TRUE").
			WithArgs("share-stale", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO shares").
			WillReturnRows(shareRow(s))
		mock.ExpectCommit()

		stored, reused, err := NewSharePostgres(db).CreateIdempotent(ctx, s, now)

		assert.NoError(t, err)
		assert.False(t, reused)
		assert.Equal(t, "share-1", stored.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost insert race resolves to the winner", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		s := newShareFixture(now)
		winner := newShareFixture(now)
		winner.ID = "share-winner"
		winner.Token = "tok-winner"

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM shares").
			WillReturnRows(sqlmock.NewRows(shareCols))
		mock.ExpectQuery("INSERT INTO shares").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_shares_active"})
		mock.ExpectRollback()
		mock.ExpectQuery("SELECT (.+) FROM shares").
			WithArgs("doc-1", "owner-1", "user-bob", "private", now).
			WillReturnRows(shareRow(winner))

		stored, reused, err := NewSharePostgres(db).CreateIdempotent(ctx, s, now)

		assert.NoError(t, err)
		assert.True(t, reused)
		assert.Equal(t, "share-winner", stored.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSharePostgres_FindByToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSharePostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM shares WHERE share_token").
			WithArgs("tok-1").
			WillReturnRows(shareRow(newShareFixture(now)))

		sh, err := repo.FindByToken(ctx, "tok-1")

		assert.NoError(t, err)
		assert.Equal(t, "share-1", sh.ID)
		assert.Equal(t, model.AccessPrivate, sh.Access)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM shares WHERE share_token").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		sh, err := repo.FindByToken(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, sh)
	})
}

func TestSharePostgres_List(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("sent box", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM shares").
			WithArgs("owner-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM shares").
			WithArgs("owner-1", 10, 0).
			WillReturnRows(shareRow(newShareFixture(now)))

		res, err := NewSharePostgres(db).List(ctx, "owner-1", "", repository.BoxSent, repository.PageQuery{Limit: 10, Offset: 0})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("received box matches user id or pending email", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM shares").
			WithArgs("user-bob", "bob@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM shares").
			WithArgs("user-bob", "bob@example.com", 10, 0).
			WillReturnRows(sqlmock.NewRows(shareCols))

		res, err := NewSharePostgres(db).List(ctx, "user-bob", "bob@example.com", repository.BoxReceived, repository.PageQuery{Limit: 10, Offset: 0})

		assert.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Len(t, res.Items, 0)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSharePostgres_MarkRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	revoked := newShareFixture(now)
	revoked.IsRevoked = true
	revoked.RevokedAt = &now

	mock.ExpectQuery("UPDATE shares").
		WithArgs("share-1", now).
		WillReturnRows(shareRow(revoked))

	sh, err := NewSharePostgres(db).MarkRevoked(ctx, "share-1", now)

	assert.NoError(t, err)
	assert.True(t, sh.IsRevoked)
	assert.NotNil(t, sh.RevokedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharePostgres_SetExpiry(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	expiry := now.Add(time.Hour)
	updated := newShareFixture(now)
	updated.ExpiryTime = &expiry

	mock.ExpectQuery("UPDATE shares").
		WithArgs("share-1", &expiry).
		WillReturnRows(shareRow(updated))

	sh, err := NewSharePostgres(db).SetExpiry(ctx, "share-1", &expiry)

	assert.NoError(t, err)
	assert.NotNil(t, sh.ExpiryTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharePostgres_ResolvePendingRecipient(t *testing.T) {
	ctx := context.Background()

	t.Run("rebinds pending rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT id FROM shares").
			WithArgs("bob@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("share-1").AddRow("share-2"))
		mock.ExpectExec("UPDATE shares SET to_user_id").
			WithArgs("share-1", "user-bob").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE shares SET to_user_id").
			WithArgs("share-2", "user-bob").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = NewSharePostgres(db).ResolvePendingRecipient(ctx, "bob@example.com", "user-bob")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("colliding rebind revokes the superseded row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT id FROM shares").
			WithArgs("bob@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("share-1"))
		mock.ExpectExec("UPDATE shares SET to_user_id").
			WithArgs("share-1", "user-bob").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_shares_active"})
		mock.ExpectExec("UPDATE shares SET is_revoked = TRUE").
			WithArgs("share-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = NewSharePostgres(db).ResolvePendingRecipient(ctx, "bob@example.com", "user-bob")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSharePostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM shares WHERE id = ?").
		WithArgs("share-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewSharePostgres(db).Delete(context.Background(), "share-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
