package mocks

import (
	"context"
	"io"
	"time"

	"docshare/internal/model"
	"docshare/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, ownerUserID string, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	args := m.Called(ctx, ownerUserID, r, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, ownerUserID string, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, ownerUserID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id, requesterUserID string) (*model.Document, error) {
	args := m.Called(ctx, id, requesterUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id, requesterUserID string) error {
	args := m.Called(ctx, id, requesterUserID)
	return args.Error(0)
}

func (m *MockDocumentService) Open(ctx context.Context, doc *model.Document) (io.ReadCloser, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockDocumentService) PresignDownload(ctx context.Context, id, requesterUserID string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, requesterUserID, expiry)
	return args.String(0), args.Error(1)
}
