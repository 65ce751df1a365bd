package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docshare/internal/apperr"
	"docshare/internal/model"
	"docshare/internal/repository"
	"docshare/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrReaderNil  = errors.New("reader is nil")
)

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload uploads the content to object storage, saves metadata to DB, and rolls back storage if DB save fails.
	// - originalFilename is used only to extract extension; stored filename will be UUID + original extension.
	Upload(ctx context.Context, ownerUserID string, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error)

	// List returns the owner's documents using limit/offset and a total count.
	List(ctx context.Context, ownerUserID string, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID. Only the owner sees it;
	// everyone else goes through a share and the access resolver.
	Get(ctx context.Context, id, requesterUserID string) (*model.Document, error)

	// Delete removes a document by ID from both storage and repository.
	// Shares cascade at the schema level, which invalidates them for every
	// future access check.
	Delete(ctx context.Context, id, requesterUserID string) error

	// Open returns the document's content stream for a permitted view or
	// download; access must already have been resolved by the caller.
	Open(ctx context.Context, doc *model.Document) (io.ReadCloser, error)

	// PresignDownload returns a short-lived credential-free URL for the
	// owner's document, for handing to external tools.
	PresignDownload(ctx context.Context, id, requesterUserID string, expiry time.Duration) (string, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store   storage.Storage
	repo    repository.DocumentRepository
	logRepo repository.AccessLogRepository
	now     NowFunc
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, logRepo repository.AccessLogRepository, now NowFunc) DocumentService {
	return &documentService{store: store, repo: repo, logRepo: logRepo, now: now}
}

func (s *documentService) Upload(ctx context.Context, ownerUserID string, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if ownerUserID == "" {
		return nil, apperr.ErrAuthRequired
	}
	// Generate filename using UUID + extension
	ext := filepath.Ext(originalFilename)
	genName := uuid.New().String() + ext
	key := filepath.ToSlash(filepath.Join("documents", genName))

	// Upload to object storage
	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	// Save metadata to database
	doc := &model.Document{
		ID:          uuid.New().String(),
		OwnerUserID: ownerUserID,
		Filename:    genName,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: objInfo.ContentType,
		CreatedAt:   s.now(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// List returns the owner's paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, ownerUserID string, limit, offset int) (*DocumentListResult, error) {
	if ownerUserID == "" {
		return nil, apperr.ErrAuthRequired
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.ListByOwner(ctx, ownerUserID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID for its owner.
func (s *documentService) Get(ctx context.Context, id, requesterUserID string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrDocumentNotFound
		}
		return nil, err
	}
	// Not-owner reads look identical to missing documents.
	if doc.OwnerUserID != requesterUserID {
		return nil, apperr.ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes a document from storage, then deletes its record.
func (s *documentService) Delete(ctx context.Context, id, requesterUserID string) error {
	doc, err := s.Get(ctx, id, requesterUserID)
	if err != nil {
		return err
	}
	// Delete from storage first; if this fails, keep DB row to avoid orphaned storage reference loss
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	// Delete DB row; shares cascade with it (repository ignores missing row errors as per contract)
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	appendLog(ctx, s.logRepo, &model.AccessLogEntry{
		DocumentID:   doc.ID,
		ViewerUserID: requesterUserID,
		Action:       model.ActionDocDelete,
		CreatedAt:    s.now(),
	})
	return nil
}

// Open streams document content from object storage.
func (s *documentService) Open(ctx context.Context, doc *model.Document) (io.ReadCloser, error) {
	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open storage object: %w", err)
	}
	return rc, nil
}

// PresignDownload returns a presigned GET URL for the owner. The URL bypasses
// the access resolver, so it is owner-only and short-lived.
func (s *documentService) PresignDownload(ctx context.Context, id, requesterUserID string, expiry time.Duration) (string, error) {
	doc, err := s.Get(ctx, id, requesterUserID)
	if err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, expiry)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u, nil
}
