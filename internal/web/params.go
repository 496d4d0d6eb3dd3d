package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tbrates/internal/catalog"
	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// parseMetric reads ?metric=, defaulting to tb_incidence.
func parseMetric(r *http.Request) (surveillance.Metric, error) {
	raw := r.URL.Query().Get("metric")
	if raw == "" {
		return surveillance.TBIncidence, nil
	}
	return surveillance.ParseMetric(raw)
}

// parseCountries reads the country selection. all=true selects every country
// and overrides any listed names; otherwise country may repeat or hold a
// comma-separated list. No country at all is an empty selection, not an error.
// Names are matched exactly, so surrounding whitespace is trimmed but case is kept.
func parseCountries(r *http.Request) (surveillance.CountrySet, error) {
	q := r.URL.Query()

	if raw := q.Get("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			return surveillance.CountrySet{}, fmt.Errorf("%w: all=%q is not a boolean", surveillance.ErrInvalidSelection, raw)
		}
		if all {
			return surveillance.AllCountries(), nil
		}
	}

	var names []string
	for _, v := range q["country"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return surveillance.Countries(names...), nil
}

// parseYearParam reads an optional year. ok is false when the parameter is absent.
func parseYearParam(r *http.Request, name string) (year int, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	year, err = strconv.Atoi(raw)
	if err != nil || year <= 0 {
		return 0, false, fmt.Errorf("%w: %s=%q is not a year", surveillance.ErrInvalidSelection, name, raw)
	}
	return year, true, nil
}

// parseYear reads ?year=, defaulting to the latest year in the snapshot.
func parseYear(r *http.Request, snap *catalog.Snapshot) (int, error) {
	year, ok, err := parseYearParam(r, "year")
	if err != nil {
		return 0, err
	}
	if ok {
		return year, nil
	}
	latest, ok := snap.Table.LatestYear()
	if !ok {
		return 0, catalog.ErrNoData
	}
	return latest, nil
}

// parseYearRange reads ?from= and ?to=; either may be omitted.
func parseYearRange(r *http.Request) (surveillance.YearRange, error) {
	from, _, err := parseYearParam(r, "from")
	if err != nil {
		return surveillance.YearRange{}, err
	}
	to, _, err := parseYearParam(r, "to")
	if err != nil {
		return surveillance.YearRange{}, err
	}
	if from != 0 && to != 0 && from > to {
		return surveillance.YearRange{}, fmt.Errorf("%w: from %d is after to %d", surveillance.ErrInvalidSelection, from, to)
	}
	return surveillance.YearRange{From: from, To: to}, nil
}

// parseSelection combines the country set and year for single-year queries.
func parseSelection(r *http.Request, snap *catalog.Snapshot) (surveillance.Selection, error) {
	countries, err := parseCountries(r)
	if err != nil {
		return surveillance.Selection{}, err
	}
	year, err := parseYear(r, snap)
	if err != nil {
		return surveillance.Selection{}, err
	}
	return surveillance.Selection{Countries: countries, Year: year}, nil
}
