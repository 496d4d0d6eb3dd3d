package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/tbrates/internal/catalog"
	"github.com/JonMunkholm/tbrates/internal/config"
	"github.com/JonMunkholm/tbrates/internal/geo"
	"github.com/JonMunkholm/tbrates/internal/ingest"
	"github.com/JonMunkholm/tbrates/internal/logging"
	"github.com/JonMunkholm/tbrates/internal/metrics"
	"github.com/JonMunkholm/tbrates/internal/store"
	"github.com/JonMunkholm/tbrates/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	// Metrics registry shared by the catalog and /metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	resolver, err := loadResolver(cfg.Map)
	if err != nil {
		logger.Error("failed to load map vocabulary", "error", err)
		os.Exit(1)
	}
	logger.Info("map vocabulary loaded", "polygons", resolver.Len())

	policy, err := cfg.MapPolicy()
	if err != nil {
		logger.Error("invalid map policy", "error", err)
		os.Exit(1)
	}

	opts := catalog.Options{
		Source:    newSource(cfg.Source),
		Clean:     cfg.CleanOptions(),
		Resolver:  resolver,
		MapPolicy: policy,
		Metrics:   m,
		CacheSize: cfg.Cache.Size,
		Logger:    logger,
	}

	// Optional snapshot store
	if cfg.Database.Enabled() {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		st := store.New(pool, cfg.Database.SnapshotRetention)
		if err := st.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare snapshot schema", "error", err)
			os.Exit(1)
		}
		opts.Store = st
	}

	cat, err := catalog.New(opts)
	if err != nil {
		logger.Error("failed to create catalog", "error", err)
		os.Exit(1)
	}

	// Serve the last saved table until the first refresh lands
	if opts.Store != nil {
		if _, err := cat.Restore(ctx); err != nil && !errors.Is(err, store.ErrNoSnapshot) {
			logger.Warn("failed to restore snapshot", "error", err)
		}
	}

	server := web.NewServer(cat, cfg, reg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.Refresh.Interval > 0 {
		go cat.StartRefreshScheduler(jobCtx, cfg.Refresh.Interval)
	} else {
		go func() {
			if _, err := cat.Refresh(jobCtx); err != nil {
				logger.Error("initial refresh failed", "error", err)
			}
		}()
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// newSource builds the configured extract source.
func newSource(cfg config.SourceConfig) ingest.Source {
	if cfg.URL != "" {
		return ingest.HTTPSource{
			URL:     cfg.URL,
			Client:  &http.Client{Timeout: cfg.Timeout},
			MaxSize: cfg.MaxSize,
		}
	}
	return ingest.FileSource{Path: cfg.Path}
}

// loadResolver reads the polygon vocabulary and alias table.
// Without a polygon file the resolver is empty and every country is unresolved.
func loadResolver(cfg config.MapConfig) (*geo.NameResolver, error) {
	aliases := geo.DefaultAliases()
	if cfg.AliasesPath != "" {
		f, err := os.Open(cfg.AliasesPath)
		if err != nil {
			return nil, fmt.Errorf("open aliases: %w", err)
		}
		defer f.Close()
		extra, err := geo.LoadAliases(f)
		if err != nil {
			return nil, fmt.Errorf("load aliases %s: %w", cfg.AliasesPath, err)
		}
		aliases = geo.MergeAliases(aliases, extra)
	}

	var polygons []geo.Polygon
	if cfg.PolygonsPath != "" {
		f, err := os.Open(cfg.PolygonsPath)
		if err != nil {
			return nil, fmt.Errorf("open polygons: %w", err)
		}
		defer f.Close()
		polygons, err = geo.LoadPolygons(f, cfg.IDProperty, cfg.NameProperty)
		if err != nil {
			return nil, fmt.Errorf("load polygons %s: %w", cfg.PolygonsPath, err)
		}
	} else {
		slog.Warn("GEO_POLYGONS_PATH not set; map queries will report every country unresolved")
	}

	return geo.NewNameResolver(polygons, aliases)
}

// connect opens and verifies the snapshot database pool.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
