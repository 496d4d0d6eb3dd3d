package geo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// Window selects which years feed a country's map value.
type Window string

const (
	// WindowUpToYear averages every available year up to and including the map year.
	WindowUpToYear Window = "up_to_year"
	// WindowSingleYear uses the map year only.
	WindowSingleYear Window = "single_year"
)

// Averaging selects how per-year values combine into one map value.
type Averaging string

const (
	// AverageUnweighted is the plain mean of per-year rates.
	AverageUnweighted Averaging = "unweighted"
	// AverageWeighted is summed counts over summed population across the years.
	AverageWeighted Averaging = "weighted"
)

// MapPolicy controls BuildMapSummary.
type MapPolicy struct {
	Window    Window              `json:"window"`
	Averaging Averaging           `json:"averaging"`
	Metric    surveillance.Metric `json:"metric"`
}

// DefaultMapPolicy is the unweighted mean of incidence rates up to the map year.
func DefaultMapPolicy() MapPolicy {
	return MapPolicy{Window: WindowUpToYear, Averaging: AverageUnweighted, Metric: surveillance.TBIncidence}
}

// ParseWindow converts a configured window name.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case WindowUpToYear, WindowSingleYear:
		return w, nil
	default:
		return "", fmt.Errorf("unknown map window %q (want %s or %s)", s, WindowUpToYear, WindowSingleYear)
	}
}

// ParseAveraging converts a configured averaging name.
func ParseAveraging(s string) (Averaging, error) {
	switch a := Averaging(strings.ToLower(strings.TrimSpace(s))); a {
	case AverageUnweighted, AverageWeighted:
		return a, nil
	default:
		return "", fmt.Errorf("unknown map averaging %q (want %s or %s)", s, AverageUnweighted, AverageWeighted)
	}
}

// CountrySummary is the map value attached to one polygon.
type CountrySummary struct {
	PolygonID        string  `json:"polygon_id"`
	Country          string  `json:"country"`
	AvgIncidenceRate float64 `json:"avg_incidence_rate"`
	Years            int     `json:"years"`
}

// UnresolvedCountryWarning reports a country left off the map.
type UnresolvedCountryWarning struct {
	Country string `json:"country"`
	Reason  string `json:"reason"`
}

func (w UnresolvedCountryWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Country, w.Reason)
}

// MapSummary is the choropleth payload for one year.
// A polygon with no data is absent from Entries, never present with a zero.
type MapSummary struct {
	Year       int                        `json:"year"`
	Entries    map[string]CountrySummary  `json:"entries"`
	Unresolved []UnresolvedCountryWarning `json:"unresolved"`
}

// PolygonIDs returns the identifiers present in the summary, ascending.
func (m MapSummary) PolygonIDs() []string {
	ids := make([]string, 0, len(m.Entries))
	for id := range m.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildMapSummary computes one value per country that has a record for year,
// reduced over its years according to p, and keys it by polygon identifier.
// Countries the resolver cannot place, or that share a polygon with another
// country, are listed in Unresolved and omitted.
func BuildMapSummary(t *surveillance.Table, year int, r *NameResolver, p MapPolicy) MapSummary {
	p = withDefaults(p)
	summary := MapSummary{
		Year:       year,
		Entries:    make(map[string]CountrySummary),
		Unresolved: []UnresolvedCountryWarning{},
	}

	collided := make(map[string]bool)
	view := surveillance.Filter(t, surveillance.Selection{Countries: surveillance.AllCountries(), Year: year})
	for i := 0; i < view.Len(); i++ {
		country := view.At(i).Country

		poly, ok := r.Resolve(country)
		if !ok {
			summary.Unresolved = append(summary.Unresolved, UnresolvedCountryWarning{
				Country: country, Reason: "no matching polygon",
			})
			continue
		}
		if collided[poly.ID] {
			summary.Unresolved = append(summary.Unresolved, UnresolvedCountryWarning{
				Country: country, Reason: fmt.Sprintf("polygon %s claimed by several countries", poly.ID),
			})
			continue
		}
		if prev, taken := summary.Entries[poly.ID]; taken {
			// Neither claimant can be trusted with the polygon.
			delete(summary.Entries, poly.ID)
			collided[poly.ID] = true
			reason := fmt.Sprintf("polygon %s claimed by several countries", poly.ID)
			summary.Unresolved = append(summary.Unresolved,
				UnresolvedCountryWarning{Country: prev.Country, Reason: reason},
				UnresolvedCountryWarning{Country: country, Reason: reason},
			)
			continue
		}

		rate, years := countryRate(t, country, year, p)
		summary.Entries[poly.ID] = CountrySummary{
			PolygonID:        poly.ID,
			Country:          country,
			AvgIncidenceRate: rate,
			Years:            years,
		}
	}
	sort.Slice(summary.Unresolved, func(i, j int) bool {
		return summary.Unresolved[i].Country < summary.Unresolved[j].Country
	})
	return summary
}

func withDefaults(p MapPolicy) MapPolicy {
	def := DefaultMapPolicy()
	if p.Window == "" {
		p.Window = def.Window
	}
	if p.Averaging == "" {
		p.Averaging = def.Averaging
	}
	if p.Metric == "" {
		p.Metric = def.Metric
	}
	return p
}

// countryRate reduces one country's rates over the policy window.
// The country always has a record for year, so years >= 1.
func countryRate(t *surveillance.Table, country string, year int, p MapPolicy) (float64, int) {
	window := surveillance.YearRange{From: year, To: year}
	if p.Window == WindowUpToYear {
		window = surveillance.YearRange{To: year}
	}

	var rateSum, countSum, popSum float64
	var n int
	for _, y := range t.Years() {
		if !window.Contains(y) {
			continue
		}
		rec, ok := t.Lookup(country, y)
		if !ok {
			continue
		}
		n++
		rateSum += rec.Rate(p.Metric)
		countSum += rec.Count(p.Metric)
		popSum += rec.Population
	}

	if n == 0 {
		return 0, 0
	}
	if p.Averaging == AverageWeighted {
		return surveillance.Rate(countSum, popSum), n
	}
	return rateSum / float64(n), n
}
