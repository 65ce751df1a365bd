package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SMTPConfig holds outbound mail settings for the Notifier.
type SMTPConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	From        string
	UseTLS      bool
	UseStartTLS bool
}

// OTPConfig holds one-time-passcode issuing settings.
type OTPConfig struct {
	// CodeLength is the fixed width of generated numeric codes.
	CodeLength int
	// TTL is the validity window of a code; a successful verification keeps
	// the same window open as the access grant.
	TTL time.Duration
	// SendLimit / SendWindow bound how many codes one (share, email) pair may
	// request per window. Enforced via Redis when configured.
	SendLimit  int
	SendWindow time.Duration
}

// AuthConfig holds JWT settings for the thin login surface.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// RedisConfig holds optional Redis settings for OTP-send rate limiting.
// An empty Addr disables the limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost string
	Port    string
	// ShareBaseURL is the public URL prefix embedded in share links/QR mails,
	// e.g. https://files.example.com/public/shares
	ShareBaseURL string
	Database     DatabaseConfig
	MinIO        MinIOConfig
	SMTP         SMTPConfig
	OTP          OTPConfig
	Auth         AuthConfig
	Redis        RedisConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:      getEnv("APP_HOST", "localhost:8080"),
		Port:         getEnv("PORT", "8080"), // default only for non-sensitive value
		ShareBaseURL: getEnv("SHARE_BASE_URL", "http://localhost:8080/public/shares"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnv("SMTP_PORT", "587"),
			User:        getEnv("SMTP_USER", ""),
			Password:    getEnv("SMTP_PASS", ""),
			From:        getEnv("SMTP_FROM", ""),
			UseTLS:      getEnvBool("SMTP_TLS", false),
			UseStartTLS: getEnvBool("SMTP_STARTTLS", true),
		},
		OTP: OTPConfig{
			CodeLength: getEnvInt("OTP_CODE_LENGTH", 6),
			TTL:        getEnvDuration("OTP_TTL", 10*time.Minute),
			SendLimit:  getEnvInt("OTP_SEND_LIMIT", 5),
			SendWindow: getEnvDuration("OTP_SEND_WINDOW", 15*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
