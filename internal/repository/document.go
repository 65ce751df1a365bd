package repository

import (
	"context"

	"docshare/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record.
	// The caller should provide required fields (e.g., ID, CreatedAt) according to the database schema defaults.
	// Returns the stored document (may include values set by the DB).
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// ListByOwner returns a paginated list of one owner's documents with a
	// total rows count.
	ListByOwner(ctx context.Context, ownerUserID string, pq PageQuery) (*PageResult[model.Document], error)

	// Delete removes a document by ID; share rows cascade at the schema
	// level. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
