package repository

import (
	"context"

	"docshare/internal/model"
)

// AccessLogRepository appends and reads audit rows. Rows are never updated
// or deleted through this interface.
type AccessLogRepository interface {
	// Append inserts one audit entry.
	Append(ctx context.Context, e *model.AccessLogEntry) error

	// ListByDocument returns a document's audit trail, newest first.
	ListByDocument(ctx context.Context, documentID string, pq PageQuery) (*PageResult[model.AccessLogEntry], error)
}
