package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the FolderShare API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Blob     BlobConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Share    ShareConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	CORSOrigins    []string
	TrustedProxies []string
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Blob backends.
const (
	BlobBackendMinIO = "minio"
	BlobBackendS3    = "s3"
	BlobBackendDisk  = "disk"
)

// BlobConfig selects and configures the object store holding file bytes.
type BlobConfig struct {
	Backend string
	MinIO   MinIOConfig
	S3      S3Config
	DiskDir string
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// S3Config carries AWS S3 bucket information. Credentials come from the default AWS chain.
type S3Config struct {
	Region string
	Bucket string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
	SessionSecret      string
	SessionName        string
	SessionMaxAge      time.Duration
	SecureCookies      bool
}

// UploadConfig bounds what can be uploaded.
type UploadConfig struct {
	MaxBytes     int64
	AllowedTypes []string
}

// ShareConfig parameterizes public share links.
type ShareConfig struct {
	DefaultDays   int
	MaxDays       int
	PublicBaseURL string
	LinkTTL       time.Duration
	RatePerSecond float64
	RateBurst     int
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// DefaultAllowedTypes mirrors the upload allow-list of the web front end.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain",
	"video/mp4",
	"video/mpeg",
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:           getString("FOLDERSHARE_API_HOST", "0.0.0.0"),
			Port:           getInt("FOLDERSHARE_API_PORT", 8080),
			ReadTimeout:    getDuration("FOLDERSHARE_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDuration("FOLDERSHARE_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:    getDuration("FOLDERSHARE_API_IDLE_TIMEOUT", 60*time.Second),
			CORSOrigins:    getList("FOLDERSHARE_CORS_ORIGINS", []string{"http://localhost:3000"}),
			TrustedProxies: getList("FOLDERSHARE_TRUSTED_PROXIES", nil),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "foldershare_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "foldershare"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			MaxConns: int32(getInt("POSTGRES_MAX_CONNS", 25)),
		},
		Blob: BlobConfig{
			Backend: strings.ToLower(getString("BLOB_BACKEND", BlobBackendMinIO)),
			MinIO: MinIOConfig{
				Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
				AccessKeyID:     getString("MINIO_ROOT_USER", "foldershare"),
				SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
				Bucket:          getString("MINIO_BUCKET", "foldershare"),
				UseSSL:          getBool("MINIO_USE_SSL", false),
				Region:          getString("MINIO_REGION", ""),
			},
			S3: S3Config{
				Region: getString("AWS_REGION", "us-east-1"),
				Bucket: getString("AWS_BUCKET_NAME", "foldershare"),
			},
			DiskDir: getString("BLOB_DISK_DIR", "./uploads"),
		},
		Auth: loadAuthConfig(),
		Upload: UploadConfig{
			MaxBytes:     int64(getInt("UPLOAD_MAX_BYTES", 10*1024*1024)),
			AllowedTypes: getList("UPLOAD_ALLOWED_TYPES", DefaultAllowedTypes),
		},
		Share: loadShareConfig(),
		Metrics: MetricsConfig{
			PrometheusPath: getString("FOLDERSHARE_METRICS_PATH", "/metrics"),
		},
	}

	switch cfg.Blob.Backend {
	case BlobBackendMinIO, BlobBackendS3, BlobBackendDisk:
	default:
		return Config{}, fmt.Errorf("unknown BLOB_BACKEND %q", cfg.Blob.Backend)
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getList splits a comma separated variable, dropping empty entries.
func getList(key string, fallback []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func loadAuthConfig() AuthConfig {
	cost := getInt("FOLDERSHARE_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret:  getString("FOLDERSHARE_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		RefreshTokenSecret: getString("FOLDERSHARE_JWT_REFRESH_SECRET", "change-me-to-a-64-byte-secret"),
		AccessTokenTTL:     getDuration("FOLDERSHARE_AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getDuration("FOLDERSHARE_AUTH_REFRESH_TOKEN_TTL", 720*time.Hour),
		BcryptCost:         cost,
		SessionSecret:      getString("SESSION_SECRET", "change-me-session-secret-32-bytes"),
		SessionName:        getString("SESSION_NAME", "foldershare_session"),
		SessionMaxAge:      getDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		SecureCookies:      getBool("SESSION_SECURE_COOKIES", false),
	}
}

func loadShareConfig() ShareConfig {
	defaultDays := getInt("SHARE_DEFAULT_DAYS", 7)
	if defaultDays < 1 {
		defaultDays = 7
	}
	maxDays := getInt("SHARE_MAX_DAYS", 365)
	if maxDays < defaultDays {
		maxDays = defaultDays
	}

	return ShareConfig{
		DefaultDays:   defaultDays,
		MaxDays:       maxDays,
		PublicBaseURL: strings.TrimRight(getString("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		LinkTTL:       getDuration("SHARE_LINK_TTL", 15*time.Minute),
		RatePerSecond: getFloat("SHARE_RATE_PER_SECOND", 5),
		RateBurst:     getInt("SHARE_RATE_BURST", 20),
	}
}
