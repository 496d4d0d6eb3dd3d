package catalog

import (
	"context"
	"time"
)

// DefaultRefreshInterval is used when StartRefreshScheduler gets a zero interval.
const DefaultRefreshInterval = 24 * time.Hour

// StartRefreshScheduler refreshes the catalog immediately, then every interval,
// until ctx is cancelled. A failed refresh is logged and the previous table
// keeps serving; the scheduler itself never stops on error.
func (c *Catalog) StartRefreshScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	c.logger.Info("refresh scheduler started", "interval", interval.String())

	c.runRefreshJob(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			c.runRefreshJob(ctx)
		}
	}
}

// runRefreshJob performs one refresh and reports its outcome.
func (c *Catalog) runRefreshJob(ctx context.Context) {
	if _, err := c.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		if snap, cerr := c.Current(); cerr == nil {
			c.logger.Warn("scheduled refresh failed, serving previous table",
				"version", snap.Version,
				"loaded_at", snap.LoadedAt,
				"error", err,
			)
			return
		}
		c.logger.Error("scheduled refresh failed, no table in service", "error", err)
	}
}
