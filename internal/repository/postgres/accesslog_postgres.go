package postgres

import (
	"context"
	"database/sql"

	"docshare/internal/model"
	"docshare/internal/repository"
)

// AccessLogPostgres is a PostgreSQL implementation of repository.AccessLogRepository.
// Inserts only; rows are never updated or deleted here.
type AccessLogPostgres struct {
	db *sql.DB
}

// NewAccessLogPostgres creates a new AccessLogPostgres repository.
func NewAccessLogPostgres(db *sql.DB) *AccessLogPostgres {
	return &AccessLogPostgres{db: db}
}

var _ repository.AccessLogRepository = (*AccessLogPostgres)(nil)

// Append inserts one audit row.
func (r *AccessLogPostgres) Append(ctx context.Context, e *model.AccessLogEntry) error {
	const q = `
		INSERT INTO access_logs (id, share_id, document_id, viewer_user_id, action, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		nullString(e.ShareID),
		e.DocumentID,
		nullString(e.ViewerUserID),
		e.Action,
		nullString(e.Meta),
		e.CreatedAt,
	)
	return err
}

// ListByDocument returns a document's audit trail, newest first.
func (r *AccessLogPostgres) ListByDocument(ctx context.Context, documentID string, pq repository.PageQuery) (*repository.PageResult[model.AccessLogEntry], error) {
	const qCount = `SELECT COUNT(*) FROM access_logs WHERE document_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, documentID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, share_id, document_id, viewer_user_id, action, meta, created_at
		FROM access_logs
		WHERE document_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, documentID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.AccessLogEntry, 0)
	for rows.Next() {
		var e model.AccessLogEntry
		var shareID, viewerID, meta sql.NullString
		if err := rows.Scan(
			&e.ID,
			&shareID,
			&e.DocumentID,
			&viewerID,
			&e.Action,
			&meta,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.ShareID = shareID.String
		e.ViewerUserID = viewerID.String
		e.Meta = meta.String
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.AccessLogEntry]{Items: items, Total: total}, nil
}
