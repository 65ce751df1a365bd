package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docshare/internal/http/middleware"
	"docshare/internal/repository"
	"docshare/internal/service"
)

// presignExpiry bounds how long an owner's direct download URL stays valid.
const presignExpiry = 15 * time.Minute

func parsePage(c *fiber.Ctx) (limit, offset int, err error) {
	limit, err = strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		return 0, 0, writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
	}
	return limit, offset, nil
}

// ListDocuments returns the caller's documents with limit/offset pagination.
//
// @Summary List own documents
// @Tags documents
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} service.DocumentListResult
// @Security BearerAuth
// @Router /documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := parsePage(c)
		if err != nil {
			return err
		}

		res, err := docSvc.List(c.UserContext(), middleware.Identity(c).UserID, limit, offset)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument stores a multipart file (field name: file) for the caller.
//
// @Summary Upload a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "file content"
// @Success 201 {object} model.Document
// @Security BearerAuth
// @Router /documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := docSvc.Upload(c.UserContext(), middleware.Identity(c).UserID, f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns one of the caller's documents by id.
//
// @Summary Get a document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Security BearerAuth
// @Router /documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id, middleware.Identity(c).UserID)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes one of the caller's documents; shares on it die with
// the row.
//
// @Summary Delete a document
// @Tags documents
// @Param id path string true "document id"
// @Success 204
// @Security BearerAuth
// @Router /documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id, middleware.Identity(c).UserID); err != nil {
			return writeAppError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetDocumentDownloadURL hands the owner a short-lived presigned URL for the
// stored object, usable without credentials by external tools.
//
// @Summary Presign a direct download URL
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200
// @Security BearerAuth
// @Router /documents/{id}/download-url [get]
func GetDocumentDownloadURL(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		expiry := presignExpiry
		u, err := docSvc.PresignDownload(c.UserContext(), id, middleware.Identity(c).UserID, expiry)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(fiber.Map{
			"url":        u,
			"expires_in": int(expiry.Seconds()),
		})
	}
}

// ListDocumentAccessLogs returns a document's audit trail to its owner,
// newest first.
//
// @Summary List a document's access logs
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} repository.PageResult[model.AccessLogEntry]
// @Security BearerAuth
// @Router /documents/{id}/access-logs [get]
func ListDocumentAccessLogs(docSvc service.DocumentService, logs repository.AccessLogRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		limit, offset, err := parsePage(c)
		if err != nil {
			return err
		}
		if limit <= 0 {
			limit = 10
		}
		if offset < 0 {
			offset = 0
		}

		// Ownership gate: the audit trail is owner-only.
		doc, err := docSvc.Get(c.UserContext(), id, middleware.Identity(c).UserID)
		if err != nil {
			return writeAppError(c, err)
		}

		res, err := logs.ListByDocument(c.UserContext(), doc.ID, repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "UNAVAILABLE", "service temporarily unavailable")
		}
		return c.JSON(res)
	}
}
