package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tbrates/internal/geo"
	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// ScalarResult is one population-weighted rate for a selection.
type ScalarResult struct {
	Year      int                 `json:"year"`
	Metric    surveillance.Metric `json:"metric"`
	Rate      float64             `json:"rate"`
	Records   int                 `json:"records"`
	Countries []string            `json:"countries,omitempty"`
}

// SeriesQuery selects per-country time series.
type SeriesQuery struct {
	Countries surveillance.CountrySet
	Years     surveillance.YearRange
	Metric    surveillance.Metric
}

// DashboardQuery combines the three views a dashboard page renders at once.
type DashboardQuery struct {
	Selection surveillance.Selection
	Metric    surveillance.Metric
	Years     surveillance.YearRange
}

// Dashboard is the combined result of a DashboardQuery.
type Dashboard struct {
	Summary surveillance.Summary       `json:"summary"`
	Series  []surveillance.SeriesPoint `json:"series"`
	Map     geo.MapSummary             `json:"map"`
	Scalar  ScalarResult               `json:"scalar"`
}

// Reader answers queries against one snapshot, however many refreshes happen
// while it is in use.
type Reader struct {
	c    *Catalog
	snap *Snapshot
}

// Reader returns a Reader pinned to the snapshot currently in service.
func (c *Catalog) Reader() (*Reader, error) {
	snap, err := c.Current()
	if err != nil {
		return nil, err
	}
	return &Reader{c: c, snap: snap}, nil
}

// Snapshot returns the pinned snapshot.
func (r *Reader) Snapshot() *Snapshot { return r.snap }

// Scalar returns the weighted rate of m over the selection.
func (r *Reader) Scalar(sel surveillance.Selection, m surveillance.Metric) (ScalarResult, error) {
	if err := checkMetric(m); err != nil {
		return ScalarResult{}, err
	}

	key := fmt.Sprintf("scalar|%s|%d|%s", m, sel.Year, sel.Countries.Key())
	return cached(r, key, func() ScalarResult {
		view := surveillance.Filter(r.snap.Table, sel)
		res := ScalarResult{
			Year:    sel.Year,
			Metric:  m,
			Rate:    surveillance.AggregateScalar(view, m),
			Records: view.Len(),
		}
		if !sel.Countries.IsAll() {
			res.Countries = sel.Countries.Names()
		}
		return res
	}), nil
}

// Summary returns value-box totals and rates for every metric over the selection.
func (r *Reader) Summary(sel surveillance.Selection) surveillance.Summary {
	key := fmt.Sprintf("summary|%d|%s", sel.Year, sel.Countries.Key())
	return cached(r, key, func() surveillance.Summary {
		return surveillance.Summarize(surveillance.Filter(r.snap.Table, sel))
	})
}

// Series returns per-country points ordered by country, then year.
// The returned slice may be shared with other callers and must not be modified.
func (r *Reader) Series(q SeriesQuery) ([]surveillance.SeriesPoint, error) {
	if err := checkMetric(q.Metric); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("series|%s|%d-%d|%s", q.Metric, q.Years.From, q.Years.To, q.Countries.Key())
	return cached(r, key, func() []surveillance.SeriesPoint {
		return surveillance.AggregateSeries(r.snap.Table, q.Countries, q.Years, q.Metric)
	}), nil
}

// Map returns the choropleth summary for year under the configured policy.
// Countries without a polygon are logged and counted, never fatal.
func (r *Reader) Map(year int) geo.MapSummary {
	c := r.c
	key := fmt.Sprintf("map|%d", year)
	return cached(r, key, func() geo.MapSummary {
		summary := geo.BuildMapSummary(r.snap.Table, year, c.opts.Resolver, c.opts.MapPolicy)
		c.opts.Metrics.SetUnresolved(len(summary.Unresolved))
		if len(summary.Unresolved) > 0 {
			names := make([]string, len(summary.Unresolved))
			for i, w := range summary.Unresolved {
				names[i] = w.String()
			}
			c.logger.Warn("countries left off map",
				"version", r.snap.Version,
				"year", year,
				"count", len(summary.Unresolved),
				"countries", strings.Join(names, "; "),
			)
		}
		return summary
	})
}

// Dashboard computes summary, series, map and scalar concurrently against the
// pinned snapshot.
func (r *Reader) Dashboard(ctx context.Context, q DashboardQuery) (Dashboard, error) {
	if err := checkMetric(q.Metric); err != nil {
		return Dashboard{}, err
	}
	if err := ctx.Err(); err != nil {
		return Dashboard{}, err
	}

	var (
		d Dashboard
		g errgroup.Group
	)
	g.Go(func() error {
		d.Summary = r.Summary(q.Selection)
		return nil
	})
	g.Go(func() error {
		var err error
		d.Series, err = r.Series(SeriesQuery{Countries: q.Selection.Countries, Years: q.Years, Metric: q.Metric})
		return err
	})
	g.Go(func() error {
		d.Map = r.Map(q.Selection.Year)
		return nil
	})
	g.Go(func() error {
		var err error
		d.Scalar, err = r.Scalar(q.Selection, q.Metric)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Scalar is Reader().Scalar.
func (c *Catalog) Scalar(sel surveillance.Selection, m surveillance.Metric) (ScalarResult, error) {
	r, err := c.Reader()
	if err != nil {
		return ScalarResult{}, err
	}
	return r.Scalar(sel, m)
}

// Summary is Reader().Summary.
func (c *Catalog) Summary(sel surveillance.Selection) (surveillance.Summary, error) {
	r, err := c.Reader()
	if err != nil {
		return surveillance.Summary{}, err
	}
	return r.Summary(sel), nil
}

// Series is Reader().Series.
func (c *Catalog) Series(q SeriesQuery) ([]surveillance.SeriesPoint, error) {
	r, err := c.Reader()
	if err != nil {
		return nil, err
	}
	return r.Series(q)
}

// Map is Reader().Map.
func (c *Catalog) Map(year int) (geo.MapSummary, error) {
	r, err := c.Reader()
	if err != nil {
		return geo.MapSummary{}, err
	}
	return r.Map(year), nil
}

// Dashboard is Reader().Dashboard.
func (c *Catalog) Dashboard(ctx context.Context, q DashboardQuery) (Dashboard, error) {
	r, err := c.Reader()
	if err != nil {
		return Dashboard{}, err
	}
	return r.Dashboard(ctx, q)
}

func checkMetric(m surveillance.Metric) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", surveillance.ErrUnknownMetric, m)
	}
	return nil
}

// cached returns the value stored under the snapshot version and key, computing
// and storing it on a miss. Values must be treated as immutable.
func cached[T any](r *Reader, key string, compute func() T) T {
	c := r.c
	if c.cache == nil {
		return compute()
	}

	k := r.snap.Version.String() + "|" + key
	if v, ok := c.cache.Get(k); ok {
		if t, ok := v.(T); ok {
			c.opts.Metrics.CacheHit()
			return t
		}
	}
	c.opts.Metrics.CacheMiss()
	v := compute()
	c.cache.Add(k, v)
	return v
}
