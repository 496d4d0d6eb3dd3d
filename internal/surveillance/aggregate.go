package surveillance

// aggregate.go reduces filtered views to display values.
//
// Cross-country combinations are always population-weighted: counts and
// populations are summed first and Rate is applied once. Averaging per-country
// rates would give a small country the same weight as a large one.

// AggregateScalar returns the population-weighted rate of metric m across
// every record in v. An empty view yields 0 so value boxes always render.
func AggregateScalar(v View, m Metric) float64 {
	var count, pop float64
	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		count += r.Count(m)
		pop += r.Population
	}
	if pop <= 0 {
		return 0
	}
	return Rate(count, pop)
}

// MetricSummary is the combined total and weighted rate of one metric.
type MetricSummary struct {
	Metric Metric  `json:"metric"`
	Count  float64 `json:"count"`
	Rate   float64 `json:"rate"`
}

// Summary holds value-box figures for a view.
type Summary struct {
	Countries  int             `json:"countries"`
	Population float64         `json:"population"`
	Metrics    []MetricSummary `json:"metrics"`
}

// Metric returns the summary entry for m.
func (s Summary) Metric(m Metric) (MetricSummary, bool) {
	for _, ms := range s.Metrics {
		if ms.Metric == m {
			return ms, true
		}
	}
	return MetricSummary{}, false
}

// Summarize computes totals and weighted rates for every metric over v.
// Rates are 0 for an empty view.
func Summarize(v View) Summary {
	totals := make(map[Metric]float64, len(AllMetrics))
	countries := make(map[string]struct{})
	var pop float64

	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		pop += r.Population
		countries[r.Country] = struct{}{}
		for _, m := range AllMetrics {
			totals[m] += r.Count(m)
		}
	}

	s := Summary{Countries: len(countries), Population: pop}
	for _, m := range AllMetrics {
		ms := MetricSummary{Metric: m, Count: totals[m]}
		if pop > 0 {
			ms.Rate = Rate(totals[m], pop)
		}
		s.Metrics = append(s.Metrics, ms)
	}
	return s
}

// YearRange is an inclusive range of years. A zero bound is open.
type YearRange struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

// Contains reports whether year falls inside the range.
func (yr YearRange) Contains(year int) bool {
	return (yr.From == 0 || year >= yr.From) && (yr.To == 0 || year <= yr.To)
}

// SeriesPoint is one country's own rate for one year.
type SeriesPoint struct {
	Country string  `json:"country"`
	Year    int     `json:"year"`
	Rate    float64 `json:"rate"`
}

// AggregateSeries emits one point per (country, year) in t matching countries
// and years, each carrying that country's own rate of metric m. Points are
// ordered by country ascending, then year ascending.
func AggregateSeries(t *Table, countries CountrySet, years YearRange, m Metric) []SeriesPoint {
	if t.Len() == 0 || countries.IsEmpty() {
		return []SeriesPoint{}
	}

	// The table is sorted by (country, year), so a scan yields the output order.
	points := make([]SeriesPoint, 0)
	for _, r := range t.records {
		if !countries.Contains(r.Country) || !years.Contains(r.Year) {
			continue
		}
		points = append(points, SeriesPoint{Country: r.Country, Year: r.Year, Rate: r.Rate(m)})
	}
	return points
}
