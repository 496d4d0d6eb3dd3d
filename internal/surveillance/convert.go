package surveillance

// convert.go coerces loosely-typed surveillance cells to numbers.
//
// Source extracts arrive with the usual CSV noise: Excel formula prefixes,
// stray quotes, thousands separators and a zoo of null markers. Anything that
// does not survive cleanup as a plain decimal is treated as missing.

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex matches integers, decimals and scientific notation after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// missingMarkers are cell values that mean "no data" in surveillance extracts.
var missingMarkers = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"-":    true,
	"..":   true,
}

// CleanCell removes common CSV artifacts from a cell value:
// surrounding whitespace, an Excel formula prefix (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// IsMissing reports whether a cleaned cell is a null marker.
func IsMissing(s string) bool {
	return missingMarkers[strings.ToLower(CleanCell(s))]
}

// ParseNumber converts a cell to float64.
// Returns false for null markers and anything that is not a finite decimal.
func ParseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if IsMissing(s) {
		return 0, false
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if !numericRegex.MatchString(s) {
		return 0, false
	}

	// pgtype.Numeric rejects exponents
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil || !n.Valid {
		return 0, false
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid || math.IsInf(f.Float64, 0) || math.IsNaN(f.Float64) {
		return 0, false
	}
	return f.Float64, true
}

// ParseYear converts a cell to an integral year.
// "2019" and "2019.0" are accepted; "2019.5" is not.
func ParseYear(s string) (int, bool) {
	f, ok := ParseNumber(s)
	if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
