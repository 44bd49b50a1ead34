// Command server runs the bote demo service.
//
// Configuration is read from a YAML file and BOTE_* environment variables
// (see pkg/config). Flags:
//
//	--config  Path to the config file (default: BOTE_CONFIG, ./config.yaml, /etc/bote/config.yaml)
//	--port    Listen port, overriding server.port
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/rhuss/bote/pkg/codec"
	"github.com/rhuss/bote/pkg/config"
	"github.com/rhuss/bote/pkg/debug"
	"github.com/rhuss/bote/pkg/observability"
	"github.com/rhuss/bote/pkg/storage"
	"github.com/rhuss/bote/pkg/storage/memory"
	"github.com/rhuss/bote/pkg/storage/postgres"
	transporthttp "github.com/rhuss/bote/pkg/transport/http"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to the config file")
	port := fs.Int("port", 0, "listen port (overrides server.port)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if fs.Changed("port") {
		cfg.Server.Port = *port
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)
	debug.Init(cfg.Logging.Debug)
	if cats := debug.Categories(); len(cats) > 0 {
		logger.Info("debug categories enabled", slog.Any("categories", cats))
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("storage enabled", slog.String("type", cfg.Storage.Type))

	c, err := codec.ByName(cfg.Response.Serializer)
	if err != nil {
		return err
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithAllowOrigin(cfg.Response.AllowOrigin),
		transporthttp.WithCodec(c),
		transporthttp.WithStreamBuffer(cfg.Response.StreamBuffer),
		transporthttp.WithLogger(logger),
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts,
			transporthttp.WithMonitor(observability.NewMonitor(logger)),
			transporthttp.WithHTTPMiddleware(observability.MetricsMiddleware),
		)
	}

	srv := transporthttp.NewServer(opts...)
	registerRoutes(srv.Adapter(), store, cfg.Observability.Metrics)

	logger.Info("bote starting",
		slog.Int("port", cfg.Server.Port),
		slog.String("serializer", c.Name()),
		slog.Bool("metrics", cfg.Observability.Metrics.Enabled),
	)
	return srv.ListenAndServe()
}

// newLogger builds the process logger from the logging settings.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openStore creates the configured user source. The memory store is seeded
// with demo users.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.UserStore, error) {
	switch cfg.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
			Query:    cfg.Postgres.Query,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store, nil
	default:
		store := memory.New(0)
		for _, u := range demoUsers {
			if err := store.AddUser(ctx, u); err != nil {
				return nil, fmt.Errorf("seeding memory store: %w", err)
			}
		}
		return store, nil
	}
}

var demoUsers = []storage.User{
	{ID: 1, Username: "ada", Password: "lovelace"},
	{ID: 2, Username: "grace", Password: "hopper"},
	{ID: 3, Username: "alan", Password: "turing"},
}
