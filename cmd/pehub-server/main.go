package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/pehub/pkg/pehub/api"
	"github.com/tendant/pehub/pkg/pehub/config"
)

// Config holds the process-level settings. Service settings are read by
// config.WithEnv from the same environment.
type Config struct {
	ConfigFile      string        `env:"PEHUB_CONFIG_FILE"`
	JWTSecret       string        `env:"JWT_SECRET"`
	MaxUploadMB     int64         `env:"MAX_UPLOAD_MB" env-default:"100"`
	MaintenanceTick time.Duration `env:"MAINTENANCE_INTERVAL" env-default:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" env-separator:","`
}

func main() {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	opts := []config.Option{}
	if cfg.ConfigFile != "" {
		opts = append(opts, config.WithFile(cfg.ConfigFile))
	}
	opts = append(opts, config.WithEnv(""))
	serverConfig, err := config.Load(opts...)
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		if serverConfig.Environment == "production" {
			slog.Error("JWT_SECRET is required in production")
			os.Exit(1)
		}
		cfg.JWTSecret = "pehub-development-secret"
		slog.Warn("JWT_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := serverConfig.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer rt.Close()
	log := rt.Logger

	handlerOpts := []api.Option{
		api.WithHub(rt.Hub),
		api.WithStore(rt.Store),
		api.WithTokenAuth(api.NewTokenAuth(cfg.JWTSecret)),
		api.WithLogger(log),
		api.WithLanguage(rt.Language),
		api.WithMaxUploadSize(cfg.MaxUploadMB << 20),
	}
	if len(cfg.CORSOrigins) > 0 {
		handlerOpts = append(handlerOpts, api.WithCORS(cfg.CORSOrigins...))
	}
	handler := api.NewHandler(rt.Service, handlerOpts...)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Route("/api", func(r chi.Router) {
		r.Mount("/v1", handler.Routes())
	})

	httpServer := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           server.R,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("pehub server starting", "port", serverConfig.Port, "env", serverConfig.Environment,
			"database", serverConfig.DatabaseType, "storage", serverConfig.StorageType)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		runMaintenance(gctx, rt, cfg.MaintenanceTick)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		rt.Close()
		os.Exit(1)
	}
	log.Info("server exited")
}

// runMaintenance periodically retries failed file removals and repairs
// interrupted approvals until ctx is done.
func runMaintenance(ctx context.Context, rt *config.Runtime, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if removed, err := rt.Service.RetryCleanups(ctx); err != nil {
			rt.Logger.Warn("cleanup retry failed", "error", err)
		} else if removed > 0 {
			rt.Logger.Info("removed orphaned files", "count", removed)
		}
		if repaired, err := rt.Service.ReconcileApprovals(ctx); err != nil {
			rt.Logger.Warn("approval reconciliation failed", "error", err)
		} else if repaired > 0 {
			rt.Logger.Info("repaired interrupted approvals", "count", repaired)
		}
	}
}
