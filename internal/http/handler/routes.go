package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docshare/internal/http/middleware"
	"docshare/internal/repository"
	"docshare/internal/service"
)

// Services bundles everything the HTTP layer depends on.
type Services struct {
	Auth       service.AuthService
	Documents  service.DocumentService
	Shares     service.ShareService
	Otp        service.OtpService
	Access     service.AccessService
	AccessLogs repository.AccessLogRepository
}

// RegisterRoutes attaches all HTTP routes to the provided Fiber app. Handlers
// stay thin: parse, delegate, map errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, s Services) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/auth/register", Register(s.Auth))
	app.Post("/auth/login", Login(s.Auth))

	docs := app.Group("/documents", middleware.RequireAuth())
	docs.Get("/", ListDocuments(s.Documents))
	docs.Post("/", UploadDocument(s.Documents))
	docs.Get("/:id", GetDocument(s.Documents))
	docs.Delete("/:id", DeleteDocument(s.Documents))
	docs.Get("/:id/download-url", GetDocumentDownloadURL(s.Documents))
	docs.Get("/:id/access-logs", ListDocumentAccessLogs(s.Documents, s.AccessLogs))

	shares := app.Group("/shares", middleware.RequireAuth())
	shares.Post("/", CreateShare(s.Shares))
	shares.Get("/", ListShares(s.Shares))
	shares.Get("/:id", GetShare(s.Shares))
	shares.Delete("/:id", DeleteShare(s.Shares))
	shares.Post("/:id/revoke", RevokeShare(s.Shares))
	shares.Put("/:id/expiry", SetShareExpiry(s.Shares))
	shares.Post("/:id/expire-now", ExpireShareNow(s.Shares))

	pub := app.Group("/public/shares")
	pub.Get("/:token", GetPublicShare(s.Shares))
	pub.Post("/:token/otp/send", SendShareOtp(s.Otp))
	pub.Post("/:token/otp/verify", VerifyShareOtp(s.Otp))
	pub.Get("/:token/view", ViewSharedDocument(s.Access, s.Documents, s.AccessLogs))
	pub.Get("/:token/download", DownloadSharedDocument(s.Access, s.Documents, s.AccessLogs))
}
