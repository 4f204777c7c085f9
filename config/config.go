// Package config exposes the catalog's runtime settings. Every setting is read
// from the process environment, optionally seeded from a .env file.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const (
	DefaultSecretKey     = "dev-secret-change-me"
	DefaultDatabaseURL   = "sqlite:///data.db"
	DefaultAdminUsername = "admin"
	DefaultPort          = 5000
)

// UploadBackend selects where uploaded images are stored.
type UploadBackend string

const (
	UploadBackendLocal UploadBackend = "local"
	UploadBackendS3    UploadBackend = "s3"
)

// LoadEnvFile seeds the environment from the given .env files. Variables that
// are already set win, and a missing file is not an error.
func LoadEnvFile(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("CATALOG_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("CATALOG_DEBUG") == "true"
}

// GetLogFolder returns the folder for the file log backend. Empty disables it.
func GetLogFolder() string {
	return os.Getenv("CATALOG_LOG_FOLDER")
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// GetSecretKey returns the key used to sign session cookies.
func GetSecretKey() string {
	return getEnv("SECRET_KEY", DefaultSecretKey)
}

func IsDefaultSecretKey() bool {
	return GetSecretKey() == DefaultSecretKey
}

func GetDatabaseURL() string {
	return getEnv("DATABASE_URL", DefaultDatabaseURL)
}

func GetAdminUsername() string {
	return getEnv("ADMIN_USERNAME", DefaultAdminUsername)
}

// GetAdminPassword returns ADMIN_PASSWORD. It is empty when unset, in which
// case the first run generates a random password.
func GetAdminPassword() string {
	return os.Getenv("ADMIN_PASSWORD")
}

func GetListen() string {
	return os.Getenv("LISTEN")
}

// GetPort returns the listening port, falling back to DefaultPort when PORT is
// unset or not a valid port number.
func GetPort() int {
	port, err := strconv.Atoi(getEnv("PORT", ""))
	if err != nil || port <= 0 || port > 65535 {
		return DefaultPort
	}
	return port
}

func GetUploadFolder() string {
	return getEnv("UPLOAD_FOLDER", "uploads")
}

func GetUploadBackend() UploadBackend {
	return UploadBackend(strings.ToLower(getEnv("UPLOAD_BACKEND", string(UploadBackendLocal))))
}

// S3Config holds the settings of the S3 upload backend.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

func GetS3Config() S3Config {
	return S3Config{
		Bucket:    os.Getenv("S3_BUCKET"),
		Region:    getEnv("S3_REGION", "us-east-1"),
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Prefix:    os.Getenv("S3_PREFIX"),
	}
}

func IsMetricsEnabled() bool {
	return os.Getenv("METRICS_ENABLED") == "true"
}

// GetOrphanReportCron returns the cron spec of the orphaned upload report.
// "off" disables the job.
func GetOrphanReportCron() string {
	return getEnv("ORPHAN_REPORT_CRON", "@daily")
}
