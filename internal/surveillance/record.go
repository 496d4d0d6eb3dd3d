package surveillance

import (
	"fmt"
	"strings"
)

// RawRow is one loosely-typed input row keyed by source column name.
type RawRow map[string]string

// Record is one canonical country-year row.
type Record struct {
	Country        string  `json:"country"`
	Year           int     `json:"year"`
	Population     float64 `json:"population"`
	TBIncidence    float64 `json:"tb_incidence_count"`
	TBMortality    float64 `json:"tb_mortality_count"`
	TBHIVIncidence float64 `json:"tbhiv_incidence_count"`
	TBHIVMortality float64 `json:"tbhiv_mortality_count"`
}

// Count returns the raw count backing metric m.
func (r Record) Count(m Metric) float64 {
	switch m {
	case TBIncidence:
		return r.TBIncidence
	case TBMortality:
		return r.TBMortality
	case TBHIVIncidence:
		return r.TBHIVIncidence
	case TBHIVMortality:
		return r.TBHIVMortality
	default:
		return 0
	}
}

// Rate returns the per-100k rate of metric m for this record.
func (r Record) Rate(m Metric) float64 {
	return Rate(r.Count(m), r.Population)
}

// Metric names a count that can be turned into a rate.
type Metric string

const (
	TBIncidence    Metric = "tb_incidence"
	TBMortality    Metric = "tb_mortality"
	TBHIVIncidence Metric = "tbhiv_incidence"
	TBHIVMortality Metric = "tbhiv_mortality"
)

// AllMetrics lists the supported metrics in display order.
var AllMetrics = []Metric{TBIncidence, TBMortality, TBHIVIncidence, TBHIVMortality}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	for _, known := range AllMetrics {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMetric converts a metric name (case-insensitive) to a Metric.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
	return m, nil
}
