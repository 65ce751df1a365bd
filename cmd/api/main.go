package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docshare/docs"
	"docshare/internal/config"
	"docshare/internal/database"
	"docshare/internal/database/migration"
	handlers "docshare/internal/http/handler"
	"docshare/internal/http/middleware"
	"docshare/internal/notify"
	"docshare/internal/otel"
	"docshare/internal/ratelimit"
	"docshare/internal/repository/postgres"
	"docshare/internal/service"
	"docshare/internal/storage"
)

// @title Document Share API
// @version 1.0
// @BasePath /
func main() {
	ctx := context.Background()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	// Initialize OpenTelemetry tracing (no-op when OTEL_SDK_DISABLED=true)
	otelShutdown, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Outbound mail. Without an SMTP host configured, share invitations and
	// OTP codes are logged instead of delivered.
	var notifier notify.Notifier = notify.Noop{}
	if cfg.SMTP.Host != "" {
		notifier, err = notify.NewSMTP(cfg.SMTP)
		if err != nil {
			log.Fatalf("failed to initialize mailer: %v", err)
		}
	}

	// OTP send limiter. Without Redis every send is allowed through.
	var limiter ratelimit.Limiter = ratelimit.AllowAll{}
	if cfg.Redis.Addr != "" {
		limiter, err = ratelimit.NewRedis(ctx, cfg.Redis, cfg.OTP.SendLimit, cfg.OTP.SendWindow)
		if err != nil {
			log.Fatalf("failed to initialize rate limiter: %v", err)
		}
	}

	// Initialize repositories and services
	docRepo := postgres.NewDocumentPostgres(db)
	shareRepo := postgres.NewSharePostgres(db)
	userRepo := postgres.NewUserPostgres(db)
	otpRepo := postgres.NewOtpPostgres(db)
	logRepo := postgres.NewAccessLogPostgres(db)

	authSvc := service.NewAuthService(userRepo, shareRepo, service.UTCNow, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	docSvc := service.NewDocumentService(objStore, docRepo, logRepo, service.UTCNow)
	shareSvc := service.NewShareService(shareRepo, docRepo, userRepo, logRepo, notifier, service.UTCNow, cfg.ShareBaseURL)
	otpSvc := service.NewOtpService(otpRepo, shareRepo, userRepo, logRepo, notifier, limiter, service.UTCNow, cfg.OTP.TTL, cfg.OTP.CodeLength)
	accessSvc := service.NewAccessService(docRepo, shareRepo, userRepo, otpRepo, service.UTCNow)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())
	// Auth middleware resolves an optional bearer token into a request identity
	app.Use(middleware.Auth(authSvc))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	promMw, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMw.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, handlers.Services{
		Auth:       authSvc,
		Documents:  docSvc,
		Shares:     shareSvc,
		Otp:        otpSvc,
		Access:     accessSvc,
		AccessLogs: logRepo,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
