package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/logging"
	"github.com/tendant/pehub/pkg/pehub/realtime"
	"github.com/tendant/pehub/pkg/pehub/repo/memory"
	repopg "github.com/tendant/pehub/pkg/pehub/repo/postgres"
	fsstorage "github.com/tendant/pehub/pkg/pehub/storage/fs"
	memorystorage "github.com/tendant/pehub/pkg/pehub/storage/memory"
	s3storage "github.com/tendant/pehub/pkg/pehub/storage/s3"
)

// Option changes one part of a ServerConfig.
type Option func(*ServerConfig) error

// Load applies opts over the defaults and validates the result.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:            "8080",
		Environment:     "development",
		DatabaseType:    "memory",
		StorageType:     "memory",
		DefaultLanguage: string(i18n.Default),
		RedisChannel:    realtime.DefaultChannel,
		S3: S3Config{
			Region:          "us-east-1",
			UseSSL:          true,
			PresignDuration: 3600,
		},
		ReconcileOnStart: true,
	}
}

// ServerConfig represents server configuration for the content hub.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // optional Postgres search_path

	// File storage
	StorageType   string // "memory", "fs", "s3"
	FSBaseDir     string
	PublicBaseURL string // URL prefix stored files are served under
	S3            S3Config

	// Change feed fan-out across instances. Empty RedisAddr keeps the feed
	// in-process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	// Admin resolution
	AdminEmail     string   // pinned recipient for moderation notifications
	AdminAllowlist []string // compared against profile roles, never authoritative

	DefaultLanguage  string
	ReconcileOnStart bool
}

// S3Config holds the settings of the S3 storage backend.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	UsePathStyle    bool
	PresignDuration int
}

// Validate reports the first inconsistent setting.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.StorageType {
	case "memory":
	case "fs":
		if c.FSBaseDir == "" {
			return errors.New("filesystem storage requires a base directory")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 storage requires a bucket")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	if c.RedisDB < 0 {
		return errors.New("redis db must not be negative")
	}

	if lang := i18n.Lang(strings.ToLower(c.DefaultLanguage)); lang != i18n.Arabic && lang != i18n.English {
		return fmt.Errorf("unsupported default language: %s", c.DefaultLanguage)
	}

	return nil
}

// Runtime is a fully wired service together with the infrastructure the
// HTTP layer needs alongside it.
type Runtime struct {
	Service  pehub.Service
	Hub      *realtime.Hub
	Store    pehub.BlobStore
	Logger   *logging.Logger
	Language i18n.Lang

	closers []func()
}

// Close releases everything BuildService opened, in reverse order.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func (r *Runtime) onClose(fn func()) {
	r.closers = append(r.closers, fn)
}

// BuildService creates the Service and its supporting infrastructure from
// the server configuration. The returned Runtime must be closed.
func (c *ServerConfig) BuildService(ctx context.Context) (*Runtime, error) {
	log, err := logging.New(c.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	rt := &Runtime{Logger: log, Language: i18n.Parse(c.DefaultLanguage)}
	rt.onClose(log.Sync)

	fail := func(err error) (*Runtime, error) {
		rt.Close()
		return nil, err
	}

	repo, err := c.buildRepository(ctx, rt)
	if err != nil {
		return fail(fmt.Errorf("failed to build repository: %w", err))
	}

	store, err := c.buildStorageBackend()
	if err != nil {
		return fail(fmt.Errorf("failed to build storage backend %s: %w", c.StorageType, err))
	}
	rt.Store = store

	hub := realtime.NewHub(realtime.WithHubLogger(log))
	rt.Hub = hub
	rt.onClose(func() { _ = hub.Close() })

	var publisher pehub.ChangePublisher = hub
	if c.RedisAddr != "" {
		bridge, err := realtime.NewRedisBridge(ctx, realtime.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Channel:  c.RedisChannel,
		}, hub, log)
		if err != nil {
			return fail(fmt.Errorf("failed to connect change feed: %w", err))
		}
		rt.onClose(func() { _ = bridge.Close() })

		fwdCtx, cancel := context.WithCancel(context.Background())
		rt.onClose(cancel)
		if err := bridge.StartForwarder(fwdCtx); err != nil {
			return fail(err)
		}
		publisher = bridge
		log.Info("change feed bridged through redis", "addr", c.RedisAddr, "channel", c.RedisChannel)
	}

	dispatcher := realtime.NewDispatcher(publisher, realtime.WithDispatcherLogger(log))
	rt.onClose(dispatcher.Close)

	options := []pehub.Option{
		pehub.WithRepository(repo),
		pehub.WithBlobStore(store),
		pehub.WithPublisher(publisher),
		pehub.WithDispatcher(dispatcher),
		pehub.WithLogger(log),
		pehub.WithLanguage(rt.Language),
	}
	if len(c.AdminAllowlist) > 0 {
		options = append(options, pehub.WithAdminAllowlist(c.AdminAllowlist...))
	}
	if c.AdminEmail != "" {
		options = append(options, pehub.WithAdminContact(c.AdminEmail))
	}

	svc, err := pehub.New(options...)
	if err != nil {
		return fail(err)
	}
	rt.Service = svc

	if c.ReconcileOnStart {
		repaired, err := svc.ReconcileApprovals(ctx)
		if err != nil {
			log.Warn("approval reconciliation failed", "error", err)
		} else if repaired > 0 {
			log.Info("repaired interrupted approvals", "count", repaired)
		}
	}

	return rt, nil
}

// buildRepository opens the configured database.
func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime) (pehub.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := c.openPool(ctx)
		if err != nil {
			return nil, err
		}
		rt.onClose(pool.Close)
		if err := repopg.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SELECT set_config('search_path', $1, false)", schema)
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return pool, nil
}

// buildStorageBackend creates a BlobStore based on the configuration
func (c *ServerConfig) buildStorageBackend() (pehub.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(c.PublicBaseURL), nil
	case "fs":
		store, err := fsstorage.New(fsstorage.Config{
			BaseDir:   c.FSBaseDir,
			URLPrefix: c.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UseSSL:                 c.S3.UseSSL,
			UsePathStyle:           c.S3.UsePathStyle,
			PresignDuration:        c.S3.PresignDuration,
			PublicBaseURL:          c.PublicBaseURL,
			CreateBucketIfNotExist: c.Environment != "production",
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}
