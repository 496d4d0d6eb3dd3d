package surveillance

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey marks two cleaned rows sharing a (country, year) key.
	ErrDuplicateKey = errors.New("duplicate country-year key")

	// ErrUnknownMetric is returned by ParseMetric for unsupported names.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrInvalidRecord is returned by NewTable for records that break the
	// canonical invariants (empty country, non-positive population, negative count).
	ErrInvalidRecord = errors.New("invalid canonical record")

	// ErrInvalidSelection marks a query selection that cannot be evaluated,
	// such as an empty country set or a malformed year.
	ErrInvalidSelection = errors.New("invalid selection")
)

// DataFormatError describes a raw row that was dropped during cleaning.
// It is reported, never returned: one bad row does not abort a refresh.
type DataFormatError struct {
	Row    int    // Position of the row in the input sequence (0-based)
	Field  string // Source column name, empty when the row as a whole is rejected
	Value  string // The offending value
	Reason string // Human-readable reason
}

func (e DataFormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d: %s: %s (value %q)", e.Row, e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// DuplicateKeyError is returned when two surviving rows resolve to the same
// (country, year). It signals an upstream data defect and fails the refresh.
type DuplicateKeyError struct {
	Country string
	Year    int
	Rows    []int // Input positions of the clashing rows
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: %s %d (rows %v)", ErrDuplicateKey, e.Country, e.Year, e.Rows)
}

// Unwrap lets errors.Is match ErrDuplicateKey.
func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }
