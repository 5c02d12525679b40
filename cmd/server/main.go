package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/creative-hub/internal/config"
	"github.com/JonMunkholm/creative-hub/internal/core"
	"github.com/JonMunkholm/creative-hub/internal/events"
	"github.com/JonMunkholm/creative-hub/internal/logging"
	"github.com/JonMunkholm/creative-hub/internal/storage/memory"
	"github.com/JonMunkholm/creative-hub/internal/storage/postgres"
	"github.com/JonMunkholm/creative-hub/internal/storage/sqlite"
	"github.com/JonMunkholm/creative-hub/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	store, err := openStore(ctx, &cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("store ready", "driver", cfg.Database.Driver)

	var publisher core.EventPublisher
	if cfg.Events.RabbitMQURL != "" {
		rp, err := events.NewRabbitPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange)
		if err != nil {
			// Registrations still work without the broker.
			slog.Warn("event publishing disabled", "error", err)
		} else {
			defer rp.Close()
			publisher = rp
			slog.Info("event publishing enabled", "exchange", cfg.Events.Exchange)
		}
	}

	service := core.NewService(store, publisher, core.ServiceOptions{
		ExportTopN:          cfg.Export.TopN,
		ExportMaxConcurrent: cfg.Export.MaxConcurrent,
		ExportMaxWait:       cfg.Export.MaxWait,
		FormSessionTTL:      cfg.Forms.SessionTTL,
	})

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartMaintenance(jobCtx, core.MaintenanceConfig{
		AuditRetentionDays: cfg.Retention.AuditRetentionDays,
		SweepInterval:      cfg.Forms.SweepInterval,
		PurgeInterval:      cfg.Retention.CheckInterval,
	})

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		gracefulShutdown(shutdownCtx, server, service.Exports())
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		cancelJobs()
		store.Close()
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

type httpShutdowner interface {
	Shutdown(ctx context.Context) error
}

type exportDrainer interface {
	Status() core.ExportLimiterStatus
	Drain(ctx context.Context) error
}

// gracefulShutdown stops accepting requests, then waits for running exports.
// Closing the listener first means no export can start after the drain.
func gracefulShutdown(ctx context.Context, server httpShutdowner, exports exportDrainer) {
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	if status := exports.Status(); status.Active > 0 {
		slog.Info("waiting for exports to complete", "active", status.Active)
		if err := exports.Drain(ctx); err != nil {
			slog.Warn("exports did not complete in time", "error", err)
		}
	}
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (core.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, postgres.Options{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.DriverMemory:
		slog.Warn("using in-memory store; registrations are lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
