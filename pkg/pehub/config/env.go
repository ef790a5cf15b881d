package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Server:
//
//	PORT - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//	DEFAULT_LANGUAGE - "ar" or "en" (default: "ar")
//
// Database:
//
//	DATABASE_URL - "memory" (default) or "postgres://..." / "postgresql://..."
//	DB_SCHEMA - Optional Postgres search_path
//
// Storage:
//
//	STORAGE_URL - one of:
//	              - "memory://" - In-memory storage (default)
//	              - "file:///path/to/data" - Filesystem storage
//	              - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true"
//	PUBLIC_BASE_URL - URL prefix stored files are served under
//	AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION - S3 credentials (unprefixed)
//
// Change feed:
//
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_CHANNEL
//
// Admins:
//
//	ADMIN_EMAIL - pinned moderation recipient
//	ADMIN_EMAILS - comma separated allowlist
//	RECONCILE_ON_START - repair interrupted approvals at startup (default: true)
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}
		if v, ok := lookupEnv(prefix, "DEFAULT_LANGUAGE"); ok && v != "" {
			c.DefaultLanguage = v
		}

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		if err := applyStorageEnv(prefix, c); err != nil {
			return err
		}
		if err := applyRedisEnv(prefix, c); err != nil {
			return err
		}

		if v, ok := lookupEnv(prefix, "ADMIN_EMAIL"); ok {
			c.AdminEmail = strings.TrimSpace(v)
		}
		if v, ok := lookupEnv(prefix, "ADMIN_EMAILS"); ok {
			c.AdminAllowlist = splitList(v)
		}
		if v, ok, err := parseBoolEnv(prefix, "RECONCILE_ON_START"); err != nil {
			return err
		} else if ok {
			c.ReconcileOnStart = v
		}

		return nil
	}
}

// applyDatabaseEnv reads DATABASE_URL.
func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	if v, ok := lookupEnv(prefix, "DB_SCHEMA"); ok {
		c.DBSchema = v
	}

	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")
	if !hasURL || dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}

	return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
}

// applyStorageEnv reads STORAGE_URL.
func applyStorageEnv(prefix string, c *ServerConfig) error {
	if v, ok := lookupEnv(prefix, "PUBLIC_BASE_URL"); ok {
		c.PublicBaseURL = strings.TrimRight(v, "/")
	}

	storageURL, hasURL := lookupEnv(prefix, "STORAGE_URL")
	if !hasURL || storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.StorageType = "memory"
		return nil
	}

	switch {
	case strings.HasPrefix(storageURL, "file://"):
		return applyFilesystemStorage(storageURL, c)
	case strings.HasPrefix(storageURL, "s3://"):
		return applyS3Storage(storageURL, c)
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

// applyFilesystemStorage handles file:// URLs.
// Format: file:///path/to/data
func applyFilesystemStorage(raw string, c *ServerConfig) error {
	path := strings.TrimPrefix(raw, "file://")
	if path == "" {
		return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
	}
	c.StorageType = "fs"
	c.FSBaseDir = path
	return nil
}

// applyS3Storage handles s3://bucket URLs.
// Format: s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true
func applyS3Storage(raw string, c *ServerConfig) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	c.StorageType = "s3"
	c.S3.Bucket = u.Host

	q := u.Query()
	if v := q.Get("region"); v != "" {
		c.S3.Region = v
	}
	if v := q.Get("endpoint"); v != "" {
		c.S3.Endpoint = v
		c.S3.UseSSL = strings.HasPrefix(v, "https://")
	}
	if v := q.Get("path_style"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
		}
		c.S3.UsePathStyle = b
	}
	if v := q.Get("presign"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid presign duration in STORAGE_URL: %q", v)
		}
		c.S3.PresignDuration = n
	}

	// Credentials follow the AWS convention and are never prefixed.
	if v, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && v != "" {
		c.S3.AccessKeyID = v
	}
	if v, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && v != "" {
		c.S3.SecretAccessKey = v
	}
	if v, ok := os.LookupEnv("AWS_REGION"); ok && v != "" && q.Get("region") == "" {
		c.S3.Region = v
	}
	return nil
}

func applyRedisEnv(prefix string, c *ServerConfig) error {
	if v, ok := lookupEnv(prefix, "REDIS_ADDR"); ok {
		c.RedisAddr = strings.TrimSpace(v)
	}
	if v, ok := lookupEnv(prefix, "REDIS_PASSWORD"); ok {
		c.RedisPassword = v
	}
	if v, ok := lookupEnv(prefix, "REDIS_CHANNEL"); ok && v != "" {
		c.RedisChannel = v
	}
	db, ok, err := parseIntEnv(prefix, "REDIS_DB")
	if err != nil {
		return err
	}
	if ok {
		c.RedisDB = db
	}
	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseBoolEnv(prefix, key string) (bool, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}

func parseIntEnv(prefix, key string) (int, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
