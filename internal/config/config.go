// Package config reads studio settings from the environment.
//
// Values are read after godotenv has loaded any .env file, so a .env entry
// behaves exactly like an exported variable. Missing chat or bucket settings
// do not fail Load: the gateway reports them when an operation needs them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultChatURL     = "http://localhost:8000"
	defaultRegion      = "us-east-1"
	defaultUserID      = "default"
	defaultUploadGrace = 60 * time.Second
	defaultPresignTTL  = 2 * time.Hour
)

// ErrInvalidLogLevel is returned when a log level is not recognized
var ErrInvalidLogLevel = errors.New("log-level must be one of: debug, info, warn, error")

// Config holds everything the serve command needs
type Config struct {
	// Chat endpoint
	ChatURL string

	// Object storage
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	S3Endpoint      string

	// Session behaviour
	UserID        string
	UploadGrace   time.Duration
	PresignTTL    time.Duration
	NotifyUploads bool
	SeedFile      string
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

// Load reads all env vars and builds the config
func Load() (*Config, error) {
	cfg := &Config{
		ChatURL: getEnv("HF_API_URL", defaultChatURL),

		Region:          getEnv("AWS_REGION", defaultRegion),
		Bucket:          getEnv("AWS_S3_BUCKET_NAME", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3Endpoint:      getEnv("AWS_ENDPOINT_URL_S3", ""),

		UserID:   getEnv("STUDIO_USER_ID", defaultUserID),
		SeedFile: getEnv("STUDIO_SEED_FILE", ""),
	}

	var errs []error
	var err error

	if cfg.UploadGrace, err = getDurationEnv("STUDIO_UPLOAD_GRACE", defaultUploadGrace); err != nil {
		errs = append(errs, err)
	}
	if cfg.PresignTTL, err = getDurationEnv("STUDIO_PRESIGN_TTL", defaultPresignTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg.NotifyUploads, err = getBoolEnv("STUDIO_NOTIFY_UPLOADS", false); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// LogValue keeps credentials out of logs
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("chat_url", c.ChatURL),
		slog.String("region", c.Region),
		slog.String("bucket", c.Bucket),
		slog.Bool("static_credentials", c.AccessKeyID != "" && c.SecretAccessKey != ""),
		slog.String("s3_endpoint", c.S3Endpoint),
		slog.String("user_id", c.UserID),
		slog.Duration("upload_grace", c.UploadGrace),
		slog.Duration("presign_ttl", c.PresignTTL),
		slog.Bool("notify_uploads", c.NotifyUploads),
		slog.String("seed_file", c.SeedFile),
	)
}

// ParseLogLevel maps a --log-level value onto a slog level
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, ErrInvalidLogLevel
}
