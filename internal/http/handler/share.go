package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docshare/internal/http/middleware"
	"docshare/internal/repository"
	"docshare/internal/service"
)

type createShareRequest struct {
	DocumentID     string     `json:"document_id"`
	RecipientEmail string     `json:"recipient_email"`
	Access         string     `json:"access"`
	ExpiryTime     *time.Time `json:"expiry_time"`
}

type setExpiryRequest struct {
	ExpiryTime *time.Time `json:"expiry_time"`
}

// CreateShare grants access to one of the caller's documents. Repeating an
// identical request returns the existing share with 200 instead of minting a
// duplicate.
//
// @Summary Create a share
// @Tags shares
// @Accept json
// @Produce json
// @Param body body createShareRequest true "share"
// @Success 201 {object} service.ShareResult
// @Success 200 {object} service.ShareResult
// @Security BearerAuth
// @Router /shares [post]
func CreateShare(shareSvc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createShareRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		}
		if _, err := uuid.Parse(req.DocumentID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid document_id format")
		}

		res, err := shareSvc.Create(c.UserContext(), service.CreateShareInput{
			DocumentID:     req.DocumentID,
			CreatorUserID:  middleware.Identity(c).UserID,
			RecipientEmail: req.RecipientEmail,
			Access:         req.Access,
			Expiry:         req.ExpiryTime,
		})
		if err != nil {
			return writeAppError(c, err)
		}
		status := fiber.StatusCreated
		if res.Reused {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(res)
	}
}

// ListShares returns the caller's sent (default) or received shares.
//
// @Summary List shares
// @Tags shares
// @Produce json
// @Param box query string false "sent or received"
// @Success 200 {object} service.ShareListResult
// @Security BearerAuth
// @Router /shares [get]
func ListShares(shareSvc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := parsePage(c)
		if err != nil {
			return err
		}

		box := repository.BoxSent
		switch c.Query("box", "sent") {
		case "sent":
		case "received":
			box = repository.BoxReceived
		default:
			return writeError(c, fiber.StatusBadRequest, "INVALID_BOX", "box must be sent or received")
		}

		res, err := shareSvc.List(c.UserContext(), middleware.Identity(c).UserID, box, limit, offset)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(res)
	}
}

// GetShare returns one of the caller's shares by id.
//
// @Summary Get a share
// @Tags shares
// @Produce json
// @Param id path string true "share id"
// @Success 200 {object} model.Share
// @Security BearerAuth
// @Router /shares/{id} [get]
func GetShare(shareSvc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		sh, err := shareSvc.Get(c.UserContext(), id, middleware.Identity(c).UserID)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(sh)
	}
}

// RevokeShare permanently deactivates a share. Revoking twice is a no-op
// success.
//
// @Summary Revoke a share
// @Tags shares
// @Produce json
// @Param id path string true "share id"
// @Success 200 {object} model.Share
// @Security BearerAuth
// @Router /shares/{id}/revoke [post]
func RevokeShare(shareSvc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		sh, err := shareSvc.Revoke(c.UserContext(), id, middleware.Identity(c).UserID)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(sh)
	}
}

// SetShareExpiry replaces a share's expiry; a null expiry_time clears it.
//
// @Summary Change a share's expiry
// @Tags shares
// @Accept json
// @Produce json
// @Param id path string true "share id"
// @Param body body setExpiryRequest true "expiry"
// @Success 200 {object} model.Share
// @Security BearerAuth
// @Router /shares/{id}/expiry [put]
func SetShareExpiry(shareSvc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req setExpiryRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		}
		sh, err := shareSvc.SetExpiry(c.UserContext(), id, middleware.Identity(c).UserID, req.ExpiryTime)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(sh)
	}
}

// ExpireShareNow force-expires a share immediately.
//
// @Summary Expire a share now
// @Tags shares
// @Produce json
// @Param id path string true "share id"
// @Success 200 {object} model.Share
// @Security BearerAuth
// @Router /shares/{id}/expire-now [post]
func ExpireShareNow(shareSvc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		sh, err := shareSvc.ExpireNow(c.UserContext(), id, middleware.Identity(c).UserID)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(sh)
	}
}

// DeleteShare removes the share row entirely.
//
// @Summary Delete a share
// @Tags shares
// @Param id path string true "share id"
// @Success 204
// @Security BearerAuth
// @Router /shares/{id} [delete]
func DeleteShare(shareSvc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := shareSvc.Delete(c.UserContext(), id, middleware.Identity(c).UserID); err != nil {
			return writeAppError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
