// Package catalog owns the canonical table currently in service.
//
// A Catalog fetches, cleans and installs tables. Installation is an atomic
// pointer swap: readers always see either the old table or the new one, and a
// failed refresh leaves the old table in place. Queries against a snapshot are
// pure and may run concurrently without coordination.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/tbrates/internal/geo"
	"github.com/JonMunkholm/tbrates/internal/ingest"
	"github.com/JonMunkholm/tbrates/internal/metrics"
	"github.com/JonMunkholm/tbrates/internal/store"
	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

var (
	// ErrNoData is returned by queries before any table has been installed.
	ErrNoData = errors.New("no data loaded")

	// ErrNoSource is returned by Refresh when the catalog has no Source.
	ErrNoSource = errors.New("no data source configured")
)

// SnapshotStore persists installed tables. *store.Store satisfies it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, meta store.SnapshotMeta, records []surveillance.Record) error
	LoadLatest(ctx context.Context) (store.SnapshotMeta, []surveillance.Record, error)
}

// Snapshot is one installed canonical table and its provenance.
type Snapshot struct {
	Version  uuid.UUID
	Table    *surveillance.Table
	Report   surveillance.CleanReport
	Source   string
	LoadedAt time.Time
}

// Options configures a Catalog. Only Resolver is required for map queries;
// everything else has a usable zero value.
type Options struct {
	Source    ingest.Source
	Clean     surveillance.CleanOptions
	Resolver  *geo.NameResolver
	MapPolicy geo.MapPolicy
	Store     SnapshotStore
	Metrics   *metrics.Metrics
	CacheSize int // Query results kept per catalog; 0 disables caching
	Logger    *slog.Logger
}

// Catalog serves the current snapshot and serialises refreshes.
type Catalog struct {
	opts    Options
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
	cache   *lru.Cache[string, any]

	mu    sync.Mutex // held for the whole of a refresh
	group singleflight.Group
}

// New creates an empty Catalog. Queries return ErrNoData until Refresh or
// Restore installs a table.
func New(opts Options) (*Catalog, error) {
	if opts.Clean == (surveillance.CleanOptions{}) {
		opts.Clean = surveillance.DefaultCleanOptions()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MapPolicy == (geo.MapPolicy{}) {
		opts.MapPolicy = geo.DefaultMapPolicy()
	}

	c := &Catalog{opts: opts, logger: opts.Logger}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, any](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create query cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Current returns the snapshot in service.
func (c *Catalog) Current() (*Snapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, ErrNoData
	}
	return snap, nil
}

// MapPolicy returns the policy used by map queries.
func (c *Catalog) MapPolicy() geo.MapPolicy { return c.opts.MapPolicy }

// Polygons returns the size of the map vocabulary.
func (c *Catalog) Polygons() int { return c.opts.Resolver.Len() }

// Refresh fetches and cleans the source and installs the result.
// Concurrent callers share one in-flight refresh. On any failure, including a
// DuplicateKeyError, the previous snapshot stays in service.
func (c *Catalog) Refresh(ctx context.Context) (*Snapshot, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Catalog) refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.Source == nil {
		return nil, ErrNoSource
	}

	start := time.Now()
	logger := c.logger.With("source", c.opts.Source.Name())
	logger.Info("refresh started")

	rows, err := ingest.Load(ctx, c.opts.Source)
	if err != nil {
		c.opts.Metrics.RefreshFailed()
		logger.Error("refresh failed", "stage", "fetch", "error", err)
		return nil, fmt.Errorf("refresh: %w", err)
	}

	table, report, err := surveillance.Clean(rows, c.opts.Clean)
	if err != nil {
		c.opts.Metrics.RefreshFailed()
		logger.Error("refresh rejected", "stage", "clean", "error", err)
		return nil, fmt.Errorf("refresh: %w", err)
	}
	for _, dropped := range report.Dropped {
		logger.Debug("row dropped", "row", dropped.Row, "field", dropped.Field, "value", dropped.Value, "reason", dropped.Reason)
	}

	snap := &Snapshot{
		Version:  uuid.New(),
		Table:    table,
		Report:   report,
		Source:   c.opts.Source.Name(),
		LoadedAt: time.Now().UTC(),
	}

	if c.opts.Store != nil {
		meta := store.SnapshotMeta{Version: snap.Version, Source: snap.Source, LoadedAt: snap.LoadedAt, Rows: table.Len()}
		if err := c.opts.Store.SaveSnapshot(ctx, meta, table.Records()); err != nil {
			// The new table is still valid; serve it and retry persistence next refresh.
			logger.Error("snapshot save failed", "version", snap.Version, "error", err)
		}
	}

	c.install(snap)

	c.opts.Metrics.RefreshSucceeded(time.Since(start).Seconds(), table.Len(), report.DroppedCount())
	logger.Info("refresh completed",
		"version", snap.Version,
		"input_rows", report.Input,
		"kept_rows", report.Kept,
		"dropped_rows", report.DroppedCount(),
		"below_min_year", report.BelowMinYear,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}

// Restore installs the newest persisted snapshot, if any.
// It returns store.ErrNoSnapshot when nothing has been saved.
func (c *Catalog) Restore(ctx context.Context) (*Snapshot, error) {
	if c.opts.Store == nil {
		return nil, store.ErrNoSnapshot
	}

	meta, records, err := c.opts.Store.LoadLatest(ctx)
	if err != nil {
		return nil, err
	}
	table, err := surveillance.NewTable(records)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %s: %w", meta.Version, err)
	}

	snap := &Snapshot{
		Version:  meta.Version,
		Table:    table,
		Report:   surveillance.CleanReport{Input: len(records), Kept: len(records)},
		Source:   meta.Source,
		LoadedAt: meta.LoadedAt,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A refresh that finished first wins over an older persisted table.
	if c.current.Load() != nil {
		return c.current.Load(), nil
	}
	c.install(snap)
	c.opts.Metrics.SetTableRows(table.Len())
	c.logger.Info("snapshot restored", "version", snap.Version, "rows", table.Len(), "loaded_at", snap.LoadedAt)
	return snap, nil
}

// Install puts an already-built table in service under a fresh version.
func (c *Catalog) Install(table *surveillance.Table, report surveillance.CleanReport, source string) *Snapshot {
	snap := &Snapshot{
		Version:  uuid.New(),
		Table:    table,
		Report:   report,
		Source:   source,
		LoadedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.install(snap)
	c.opts.Metrics.SetTableRows(table.Len())
	return snap
}

// install swaps the snapshot in. Callers hold c.mu.
func (c *Catalog) install(snap *Snapshot) {
	c.current.Store(snap)
	if c.cache != nil {
		// Keys carry the version, so old entries can never be served; purge to free memory.
		c.cache.Purge()
	}
}
