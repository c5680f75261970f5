package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// AppEnv is the running environment (development/production).
	AppEnv string
	// ServerPort is the HTTP port to listen on.
	ServerPort string

	// DBDriver selects the report source: "mysql", "postgres" or "mongo".
	DBDriver string
	// DBDSN is the connection string of the report source.
	DBDSN string
	// StoreDSN is the MySQL database holding export history and API keys.
	StoreDSN string

	// StorageType determines where rendered documents go: "local" or "s3".
	StorageType string
	// LocalStoragePath is the directory for local exports.
	LocalStoragePath string
	AWSRegion        string
	S3Bucket         string
	// S3Endpoint is an optional custom endpoint (MinIO and other S3 compatible providers).
	S3Endpoint  string
	S3PathStyle bool
	// Static S3 credentials. Both empty means unsigned requests.
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// EmailMode is "log", "smtp" or "function".
	EmailMode        string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	SMTPFrom         string
	EmailFunctionURL string
	EmailFunctionKey string

	// WorkerCount is the number of concurrent export jobs.
	WorkerCount int
	// MaxRenderConcurrency caps the number of documents laid out at once.
	MaxRenderConcurrency int64
	// DefaultTimeout is the maximum duration for an export job.
	DefaultTimeout time.Duration

	// APISecret is the shared secret for HMAC-SHA256 request signing.
	APISecret string
	// TokenSecret signs download links.
	TokenSecret string
	TokenTTL    time.Duration
	// PublicURL is the externally reachable base of the API, used in download links.
	PublicURL string
	// AttachDocuments sends small documents as email attachments instead of links.
	AttachDocuments bool
	// AllowedOrigins is a list of CORS allowed domains.
	AllowedOrigins []string

	// ReportCaption is printed in every page footer.
	ReportCaption string
	// CatalogPath points to a JSON reference catalog. Empty uses the built-in one.
	CatalogPath  string
	PharmacyName string
}

func Load() *Config {
	return &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		DBDriver:             getEnv("DB_DRIVER", "mysql"),
		DBDSN:                getEnv("DB_DSN", "user:password@tcp(localhost:3306)/qms?parseTime=true"),
		StoreDSN:             getEnv("STORE_DSN", ""),
		StorageType:          getEnv("STORAGE_TYPE", "local"),
		LocalStoragePath:     getEnv("LOCAL_STORAGE_PATH", "./exports"),
		AWSRegion:            getEnv("AWS_REGION", "eu-west-3"),
		S3Bucket:             getEnv("S3_BUCKET", "qms-documents"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3PathStyle:          getEnvBool("S3_PATH_STYLE", false),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		EmailMode:            getEnv("EMAIL_MODE", "log"),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASS", ""),
		SMTPFrom:             getEnv("SMTP_FROM", "qualite@example.com"),
		EmailFunctionURL:     getEnv("EMAIL_FUNCTION_URL", ""),
		EmailFunctionKey:     getEnv("EMAIL_FUNCTION_KEY", ""),
		WorkerCount:          getEnvInt("WORKER_COUNT", 4),
		MaxRenderConcurrency: int64(getEnvInt("MAX_RENDER_CONCURRENCY", 2)),
		DefaultTimeout:       getEnvDuration("DEFAULT_TIMEOUT", 2*time.Minute),
		APISecret:            getEnv("API_SECRET", ""),
		TokenSecret:          getEnv("TOKEN_SECRET", ""),
		TokenTTL:             getEnvDuration("TOKEN_TTL", 72*time.Hour),
		PublicURL:            strings.TrimSuffix(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		AttachDocuments:      getEnvBool("ATTACH_DOCUMENTS", true),
		AllowedOrigins:       getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		ReportCaption:        getEnv("REPORT_CAPTION", "Document qualité - diffusion interne"),
		CatalogPath:          getEnv("CATALOG_PATH", ""),
		PharmacyName:         getEnv("PHARMACY_NAME", ""),
	}
}

// Caption is the footer line, prefixed with the pharmacy name when set.
func (c *Config) Caption() string {
	if c.PharmacyName == "" {
		return c.ReportCaption
	}
	return c.PharmacyName + " - " + c.ReportCaption
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
