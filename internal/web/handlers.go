package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tbrates/internal/catalog"
	"github.com/JonMunkholm/tbrates/internal/geo"
	"github.com/JonMunkholm/tbrates/internal/logging"
	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// CountriesResponse lists the countries in the current table.
type CountriesResponse struct {
	Version   uuid.UUID `json:"version"`
	Countries []string  `json:"countries"`
}

// YearsResponse lists the years in the current table.
type YearsResponse struct {
	Version uuid.UUID `json:"version"`
	Years   []int     `json:"years"`
	Latest  int       `json:"latest"`
}

// ScalarResponse is one weighted rate.
type ScalarResponse struct {
	Version uuid.UUID `json:"version"`
	catalog.ScalarResult
}

// SummaryResponse carries value-box figures for a selection.
type SummaryResponse struct {
	Version uuid.UUID `json:"version"`
	Year    int       `json:"year"`
	surveillance.Summary
}

// SeriesResponse carries per-country time series points.
type SeriesResponse struct {
	Version uuid.UUID                  `json:"version"`
	Metric  surveillance.Metric        `json:"metric"`
	Years   surveillance.YearRange     `json:"years"`
	Points  []surveillance.SeriesPoint `json:"points"`
}

// MapResponse is the choropleth payload.
type MapResponse struct {
	Version uuid.UUID     `json:"version"`
	Policy  geo.MapPolicy `json:"policy"`
	geo.MapSummary
}

// DashboardResponse bundles every view for one selection.
type DashboardResponse struct {
	Version uuid.UUID `json:"version"`
	catalog.Dashboard
}

// StatusResponse describes the table in service.
type StatusResponse struct {
	Version   uuid.UUID                `json:"version"`
	Source    string                   `json:"source"`
	LoadedAt  time.Time                `json:"loaded_at"`
	Rows      int                      `json:"rows"`
	Countries int                      `json:"countries"`
	Years     []int                    `json:"years"`
	Report    surveillance.CleanReport `json:"report"`
	Dropped   int                      `json:"dropped_rows"`
	Polygons  int                      `json:"polygons"`
	Policy    geo.MapPolicy            `json:"map_policy"`
}

// handleHealth reports liveness. The service is alive even before data loads.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := s.catalog.Current()
	writeJSON(w, map[string]any{
		"status":      "ok",
		"data_loaded": err == nil,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Current()
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, s.status(snap))
}

func (s *Server) status(snap *catalog.Snapshot) StatusResponse {
	return StatusResponse{
		Version:   snap.Version,
		Source:    snap.Source,
		LoadedAt:  snap.LoadedAt,
		Rows:      snap.Table.Len(),
		Countries: len(snap.Table.Countries()),
		Years:     snap.Table.Years(),
		Report:    snap.Report,
		Dropped:   snap.Report.DroppedCount(),
		Polygons:  s.catalog.Polygons(),
		Policy:    s.catalog.MapPolicy(),
	}
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Current()
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, CountriesResponse{Version: snap.Version, Countries: snap.Table.Countries()})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Current()
	if err != nil {
		respondError(w, r, err)
		return
	}
	latest, _ := snap.Table.LatestYear()
	writeJSON(w, YearsResponse{Version: snap.Version, Years: snap.Table.Years(), Latest: latest})
}

func (s *Server) handleScalar(w http.ResponseWriter, r *http.Request) {
	reader, err := s.catalog.Reader()
	if err != nil {
		respondError(w, r, err)
		return
	}
	metric, err := parseMetric(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	sel, err := parseSelection(r, reader.Snapshot())
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := reader.Scalar(sel, metric)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, ScalarResponse{Version: reader.Snapshot().Version, ScalarResult: res})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	reader, err := s.catalog.Reader()
	if err != nil {
		respondError(w, r, err)
		return
	}
	sel, err := parseSelection(r, reader.Snapshot())
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, SummaryResponse{
		Version: reader.Snapshot().Version,
		Year:    sel.Year,
		Summary: reader.Summary(sel),
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	reader, err := s.catalog.Reader()
	if err != nil {
		respondError(w, r, err)
		return
	}
	q, err := parseSeriesQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	points, err := reader.Series(q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, SeriesResponse{
		Version: reader.Snapshot().Version,
		Metric:  q.Metric,
		Years:   q.Years,
		Points:  points,
	})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	reader, err := s.catalog.Reader()
	if err != nil {
		respondError(w, r, err)
		return
	}
	year, err := parseYear(r, reader.Snapshot())
	if err != nil {
		respondError(w, r, err)
		return
	}

	summary := reader.Map(year)
	if len(summary.Unresolved) > 0 {
		logging.FromContext(r.Context()).Debug("map has unresolved countries",
			"year", year, "unresolved", len(summary.Unresolved))
	}
	writeJSON(w, MapResponse{
		Version:    reader.Snapshot().Version,
		Policy:     s.catalog.MapPolicy(),
		MapSummary: summary,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reader, err := s.catalog.Reader()
	if err != nil {
		respondError(w, r, err)
		return
	}
	sel, err := parseSelection(r, reader.Snapshot())
	if err != nil {
		respondError(w, r, err)
		return
	}
	q, err := parseSeriesQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	d, err := reader.Dashboard(r.Context(), catalog.DashboardQuery{
		Selection: sel,
		Metric:    q.Metric,
		Years:     q.Years,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, DashboardResponse{Version: reader.Snapshot().Version, Dashboard: d})
}

// handleRefresh reloads the source. The refresh outlives a disconnected
// client but is bounded by the refresh timeout.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.Refresh.Timeout)
	defer cancel()

	logger := logging.FromContext(r.Context())
	logger.Info("refresh requested", "remote_addr", r.RemoteAddr)

	snap, err := s.catalog.Refresh(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, s.status(snap))
}

// parseSeriesQuery reads metric, countries and the optional year range.
func parseSeriesQuery(r *http.Request) (catalog.SeriesQuery, error) {
	metric, err := parseMetric(r)
	if err != nil {
		return catalog.SeriesQuery{}, err
	}
	countries, err := parseCountries(r)
	if err != nil {
		return catalog.SeriesQuery{}, err
	}
	years, err := parseYearRange(r)
	if err != nil {
		return catalog.SeriesQuery{}, err
	}
	return catalog.SeriesQuery{Countries: countries, Years: years, Metric: metric}, nil
}
