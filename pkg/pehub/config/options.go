package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/pehub/pkg/pehub/i18n"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the Postgres search_path.
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMemoryStorage keeps uploaded files in process memory.
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.StorageType = "memory"
		return nil
	}
}

// WithFilesystemStorage stores files under baseDir.
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.StorageType = "fs"
		c.FSBaseDir = baseDir
		return nil
	}
}

// WithS3Storage stores files in an S3 bucket.
func WithS3Storage(s3 S3Config) Option {
	return func(c *ServerConfig) error {
		if s3.Bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
		if s3.Region == "" {
			s3.Region = c.S3.Region
		}
		if s3.PresignDuration == 0 {
			s3.PresignDuration = c.S3.PresignDuration
		}
		c.StorageType = "s3"
		c.S3 = s3
		return nil
	}
}

// WithPublicBaseURL sets the URL prefix stored files are served under.
func WithPublicBaseURL(base string) Option {
	return func(c *ServerConfig) error {
		c.PublicBaseURL = strings.TrimRight(base, "/")
		return nil
	}
}

// WithRedis bridges the change feed through a Redis channel.
func WithRedis(addr, password string, db int, channel string) Option {
	return func(c *ServerConfig) error {
		if addr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
		c.RedisAddr = addr
		c.RedisPassword = password
		c.RedisDB = db
		if channel != "" {
			c.RedisChannel = channel
		}
		return nil
	}
}

// WithAdminEmail pins the recipient of moderation notifications.
func WithAdminEmail(email string) Option {
	return func(c *ServerConfig) error {
		c.AdminEmail = strings.TrimSpace(email)
		return nil
	}
}

// WithAdminAllowlist sets the emails expected to hold the admin role.
func WithAdminAllowlist(emails ...string) Option {
	return func(c *ServerConfig) error {
		c.AdminAllowlist = append([]string(nil), emails...)
		return nil
	}
}

// WithDefaultLanguage sets the language of server-side notices.
func WithDefaultLanguage(lang string) Option {
	return func(c *ServerConfig) error {
		switch i18n.Lang(strings.ToLower(lang)) {
		case i18n.Arabic, i18n.English:
			c.DefaultLanguage = strings.ToLower(lang)
			return nil
		}
		return fmt.Errorf("unsupported language: %s", lang)
	}
}

// WithReconcileOnStart toggles the startup repair of interrupted approvals.
func WithReconcileOnStart(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.ReconcileOnStart = enabled
		return nil
	}
}

// File is the on-disk configuration format. Any yaml, json, toml or .env
// file cleanenv understands works; environment variables override it.
type File struct {
	Port            string   `yaml:"port" env:"PORT"`
	Environment     string   `yaml:"environment" env:"ENVIRONMENT"`
	DatabaseURL     string   `yaml:"database_url" env:"DATABASE_URL"`
	DBSchema        string   `yaml:"db_schema" env:"DB_SCHEMA"`
	StorageDir      string   `yaml:"storage_dir" env:"STORAGE_DIR"`
	S3Bucket        string   `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3Region        string   `yaml:"s3_region" env:"AWS_REGION"`
	S3Endpoint      string   `yaml:"s3_endpoint" env:"S3_ENDPOINT"`
	S3PathStyle     bool     `yaml:"s3_path_style" env:"S3_PATH_STYLE"`
	PublicBaseURL   string   `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	RedisAddr       string   `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisChannel    string   `yaml:"redis_channel" env:"REDIS_CHANNEL"`
	AdminEmail      string   `yaml:"admin_email" env:"ADMIN_EMAIL"`
	AdminAllowlist  []string `yaml:"admin_emails" env:"ADMIN_EMAILS" env-separator:","`
	DefaultLanguage string   `yaml:"default_language" env:"DEFAULT_LANGUAGE"`
}

// WithFile reads a configuration file through cleanenv. Empty values leave
// the current settings untouched.
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		var f File
		if err := cleanenv.ReadConfig(path, &f); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return f.apply(c)
	}
}

func (f File) apply(c *ServerConfig) error {
	setString(&c.Port, f.Port)
	setString(&c.Environment, f.Environment)
	setString(&c.DBSchema, f.DBSchema)
	setString(&c.PublicBaseURL, strings.TrimRight(f.PublicBaseURL, "/"))
	setString(&c.RedisAddr, f.RedisAddr)
	setString(&c.RedisChannel, f.RedisChannel)
	setString(&c.AdminEmail, f.AdminEmail)
	setString(&c.DefaultLanguage, f.DefaultLanguage)
	if len(f.AdminAllowlist) > 0 {
		c.AdminAllowlist = f.AdminAllowlist
	}

	switch {
	case f.DatabaseURL == "" || f.DatabaseURL == "memory":
	case strings.HasPrefix(f.DatabaseURL, "postgres://"), strings.HasPrefix(f.DatabaseURL, "postgresql://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = f.DatabaseURL
	default:
		return fmt.Errorf("unsupported database_url: %s", f.DatabaseURL)
	}

	switch {
	case f.S3Bucket != "":
		c.StorageType = "s3"
		c.S3.Bucket = f.S3Bucket
		setString(&c.S3.Region, f.S3Region)
		setString(&c.S3.Endpoint, f.S3Endpoint)
		c.S3.UsePathStyle = f.S3PathStyle
	case f.StorageDir != "":
		c.StorageType = "fs"
		c.FSBaseDir = f.StorageDir
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
