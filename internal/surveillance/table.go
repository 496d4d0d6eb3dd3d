package surveillance

import (
	"fmt"
	"sort"
)

// recordKey identifies a canonical row.
type recordKey struct {
	country string
	year    int
}

// Table is the canonical country-year dataset.
//
// It is built once per data refresh and never modified afterwards. Records are
// kept sorted by country then year; accessors hand out copies.
type Table struct {
	records   []Record
	index     map[recordKey]int
	countries []string
	years     []int
}

// NewTable builds a Table from already-canonical records, e.g. a persisted
// snapshot. Records are validated and sorted; the input slice is not retained.
// A repeated key yields a *DuplicateKeyError whose Rows are input positions.
func NewTable(records []Record) (*Table, error) {
	seen := make(map[recordKey]int, len(records))
	for i, r := range records {
		if err := validateRecord(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		k := recordKey{r.Country, r.Year}
		if first, dup := seen[k]; dup {
			return nil, &DuplicateKeyError{Country: r.Country, Year: r.Year, Rows: []int{first, i}}
		}
		seen[k] = i
	}
	return newTable(records), nil
}

// newTable sorts a copy of records and builds the lookup indexes.
// Callers have already enforced uniqueness and field invariants.
func newTable(records []Record) *Table {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Country != sorted[j].Country {
			return sorted[i].Country < sorted[j].Country
		}
		return sorted[i].Year < sorted[j].Year
	})

	t := &Table{
		records: sorted,
		index:   make(map[recordKey]int, len(sorted)),
	}
	yearSet := make(map[int]bool)
	for i, r := range sorted {
		t.index[recordKey{r.Country, r.Year}] = i
		if i == 0 || sorted[i-1].Country != r.Country {
			t.countries = append(t.countries, r.Country)
		}
		if !yearSet[r.Year] {
			yearSet[r.Year] = true
			t.years = append(t.years, r.Year)
		}
	}
	sort.Ints(t.years)
	return t
}

func validateRecord(r Record) error {
	switch {
	case r.Country == "":
		return fmt.Errorf("%w: empty country", ErrInvalidRecord)
	case !(r.Population > 0):
		return fmt.Errorf("%w: %s %d: population %v", ErrInvalidRecord, r.Country, r.Year, r.Population)
	}
	for _, m := range AllMetrics {
		if c := r.Count(m); !(c >= 0) {
			return fmt.Errorf("%w: %s %d: %s count %v", ErrInvalidRecord, r.Country, r.Year, m, c)
		}
	}
	return nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the i-th record in (country, year) order.
func (t *Table) At(i int) Record { return t.records[i] }

// Records returns a copy of all records in (country, year) order.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Lookup returns the record for a country and year.
func (t *Table) Lookup(country string, year int) (Record, bool) {
	if t == nil {
		return Record{}, false
	}
	i, ok := t.index[recordKey{country, year}]
	if !ok {
		return Record{}, false
	}
	return t.records[i], true
}

// Countries returns the distinct country names, ascending.
func (t *Table) Countries() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.countries...)
}

// Years returns the distinct years, ascending.
func (t *Table) Years() []int {
	if t == nil {
		return nil
	}
	return append([]int(nil), t.years...)
}

// LatestYear returns the most recent year in the table.
func (t *Table) LatestYear() (int, bool) {
	if t.Len() == 0 {
		return 0, false
	}
	return t.years[len(t.years)-1], true
}
