package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docshare/internal/http/middleware"
	"docshare/internal/model"
	"docshare/internal/repository"
	"docshare/internal/service"
)

// ShareEmailHeader carries the claimed recipient email on public share
// requests; the email query parameter is the fallback.
const ShareEmailHeader = "X-Share-Email"

func claimedEmail(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get(ShareEmailHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(c.Query("email"))
}

type otpSendRequest struct {
	Email string `json:"email"`
}

type otpVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// GetPublicShare returns the anonymous projection of a share link.
//
// @Summary Inspect a share link
// @Tags public
// @Produce json
// @Param token path string true "share token"
// @Success 200 {object} service.PublicShare
// @Router /public/shares/{token} [get]
func GetPublicShare(shareSvc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ps, err := shareSvc.GetPublic(c.UserContext(), c.Params("token"))
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(ps)
	}
}

// SendShareOtp emails a one-time code to the claimed recipient of a private
// share.
//
// @Summary Request a verification code
// @Tags public
// @Accept json
// @Produce json
// @Param token path string true "share token"
// @Param body body otpSendRequest true "claimed email"
// @Success 200 {object} service.SendOtpResult
// @Router /public/shares/{token}/otp/send [post]
func SendShareOtp(otpSvc service.OtpService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req otpSendRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		}
		email := strings.TrimSpace(req.Email)
		if email == "" {
			email = claimedEmail(c)
		}
		if email == "" {
			return writeError(c, fiber.StatusBadRequest, "EMAIL_REQUIRED", "email is required")
		}

		res, err := otpSvc.Send(c.UserContext(), service.ShareRef{Token: c.Params("token")}, email)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(res)
	}
}

// VerifyShareOtp checks the emailed code and opens the recipient's access
// window.
//
// @Summary Verify a code
// @Tags public
// @Accept json
// @Produce json
// @Param token path string true "share token"
// @Param body body otpVerifyRequest true "claimed email and code"
// @Success 200 {object} map[string]bool
// @Router /public/shares/{token}/otp/verify [post]
func VerifyShareOtp(otpSvc service.OtpService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req otpVerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		}
		email := strings.TrimSpace(req.Email)
		if email == "" {
			email = claimedEmail(c)
		}
		if req.Code == "" {
			return writeError(c, fiber.StatusBadRequest, "CODE_REQUIRED", "code is required")
		}

		if err := otpSvc.Verify(c.UserContext(), service.ShareRef{Token: c.Params("token")}, email, req.Code); err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(fiber.Map{"verified": true})
	}
}

// ViewSharedDocument streams the shared document inline after the access
// decision permits a view.
//
// @Summary View a shared document
// @Tags public
// @Produce octet-stream
// @Param token path string true "share token"
// @Param email query string false "claimed recipient email"
// @Success 200
// @Router /public/shares/{token}/view [get]
func ViewSharedDocument(accessSvc service.AccessService, docSvc service.DocumentService, logs repository.AccessLogRepository) fiber.Handler {
	return serveShared(accessSvc, docSvc, logs, false)
}

// DownloadSharedDocument streams the shared document as an attachment; only
// private shares permit downloads.
//
// @Summary Download a shared document
// @Tags public
// @Produce octet-stream
// @Param token path string true "share token"
// @Param email query string false "claimed recipient email"
// @Success 200
// @Router /public/shares/{token}/download [get]
func DownloadSharedDocument(accessSvc service.AccessService, docSvc service.DocumentService, logs repository.AccessLogRepository) fiber.Handler {
	return serveShared(accessSvc, docSvc, logs, true)
}

func serveShared(accessSvc service.AccessService, docSvc service.DocumentService, logs repository.AccessLogRepository, download bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		grant, err := accessSvc.Resolve(c.UserContext(), service.AccessRequest{
			Ref:          service.ShareRef{Token: c.Params("token")},
			Auth:         middleware.Identity(c),
			ClaimedEmail: claimedEmail(c),
			WantDownload: download,
		})
		if err != nil {
			return writeAppError(c, err)
		}

		rc, err := docSvc.Open(c.UserContext(), grant.Document)
		if err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "UNAVAILABLE", "service temporarily unavailable")
		}

		action := model.ActionView
		disposition := "inline"
		if download {
			action = model.ActionDownload
			disposition = "attachment"
		}
		recordAccess(c, logs, grant, action)

		c.Set(fiber.HeaderContentType, grant.Document.ContentType)
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`%s; filename=%q`, disposition, grant.Document.Filename))
		return c.SendStream(rc, int(grant.Document.Size))
	}
}

// recordAccess appends the audit row for a permitted view or download.
// Failures are swallowed: audit never blocks a granted access.
func recordAccess(c *fiber.Ctx, logs repository.AccessLogRepository, grant *service.AccessGrant, action string) {
	if logs == nil {
		return
	}
	e := &model.AccessLogEntry{
		ID:           uuid.NewString(),
		DocumentID:   grant.Document.ID,
		ViewerUserID: grant.ViewerUserID,
		Action:       action,
		CreatedAt:    time.Now().UTC(),
	}
	if grant.Share != nil {
		e.ShareID = grant.Share.ID
	}
	_ = logs.Append(c.UserContext(), e)
}
