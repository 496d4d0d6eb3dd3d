package surveillance

import (
	"strings"
)

// DefaultMinYear is the earliest year kept by Clean unless configured otherwise.
const DefaultMinYear = 2010

// FieldMap names the source columns that feed each canonical field.
type FieldMap struct {
	Country        string
	Year           string
	Population     string
	TBIncidence    string
	TBMortality    string
	TBHIVIncidence string
	TBHIVMortality string
}

// WHOFields is the column naming of the WHO global TB burden estimates extract.
var WHOFields = FieldMap{
	Country:        "country",
	Year:           "year",
	Population:     "e_pop_num",
	TBIncidence:    "e_inc_num",
	TBMortality:    "e_mort_exc_tbhiv_num",
	TBHIVIncidence: "e_inc_tbhiv_num",
	TBHIVMortality: "e_mort_tbhiv_num",
}

// CleanOptions controls Clean.
type CleanOptions struct {
	MinYear int      // Rows before this year are skipped (not reported as errors)
	Fields  FieldMap // Source column names
}

// DefaultCleanOptions returns the WHO column naming with DefaultMinYear.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{MinYear: DefaultMinYear, Fields: WHOFields}
}

// CleanReport summarises a Clean run.
type CleanReport struct {
	Input        int               `json:"input_rows"`
	Kept         int               `json:"kept_rows"`
	BelowMinYear int               `json:"below_min_year"`
	Dropped      []DataFormatError `json:"-"`
}

// DroppedCount returns the number of rows dropped for format problems.
func (r CleanReport) DroppedCount() int { return len(r.Dropped) }

// Clean validates and normalises raw rows into a canonical Table.
//
// Rows before MinYear are skipped. Rows with a missing or non-numeric field,
// a negative count or a non-positive population are dropped and listed in the
// report. If two surviving rows share a (country, year) the whole clean fails
// with a *DuplicateKeyError. rows is never modified.
func Clean(rows []RawRow, opts CleanOptions) (*Table, CleanReport, error) {
	if opts.Fields == (FieldMap{}) {
		opts.Fields = WHOFields
	}

	report := CleanReport{Input: len(rows)}
	records := make([]Record, 0, len(rows))
	positions := make(map[recordKey]int, len(rows))

	for i, row := range rows {
		rec, skip, ferr := cleanRow(i, row, opts)
		if ferr != nil {
			report.Dropped = append(report.Dropped, *ferr)
			continue
		}
		if skip {
			report.BelowMinYear++
			continue
		}

		k := recordKey{rec.Country, rec.Year}
		if first, dup := positions[k]; dup {
			return nil, report, &DuplicateKeyError{Country: rec.Country, Year: rec.Year, Rows: []int{first, i}}
		}
		positions[k] = i
		records = append(records, rec)
	}

	report.Kept = len(records)
	return newTable(records), report, nil
}

// cleanRow converts one raw row. It returns skip=true for rows before MinYear
// and a non-nil error for rows that must be dropped.
func cleanRow(pos int, row RawRow, opts CleanOptions) (Record, bool, *DataFormatError) {
	f := opts.Fields

	country := CleanCell(field(row, f.Country))
	if IsMissing(country) {
		return Record{}, false, &DataFormatError{Row: pos, Field: f.Country, Value: country, Reason: "missing country"}
	}

	rawYear := field(row, f.Year)
	year, ok := ParseYear(rawYear)
	if !ok {
		return Record{}, false, &DataFormatError{Row: pos, Field: f.Year, Value: rawYear, Reason: "invalid year"}
	}
	if year < opts.MinYear {
		return Record{}, true, nil
	}

	rec := Record{Country: country, Year: year}

	rawPop := field(row, f.Population)
	pop, ok := ParseNumber(rawPop)
	if !ok {
		return Record{}, false, &DataFormatError{Row: pos, Field: f.Population, Value: rawPop, Reason: "missing or non-numeric value"}
	}
	if pop <= 0 {
		return Record{}, false, &DataFormatError{Row: pos, Field: f.Population, Value: rawPop, Reason: "population must be positive"}
	}
	rec.Population = pop

	counts := []struct {
		column string
		dst    *float64
	}{
		{f.TBIncidence, &rec.TBIncidence},
		{f.TBMortality, &rec.TBMortality},
		{f.TBHIVIncidence, &rec.TBHIVIncidence},
		{f.TBHIVMortality, &rec.TBHIVMortality},
	}
	for _, c := range counts {
		raw := field(row, c.column)
		v, ok := ParseNumber(raw)
		if !ok {
			return Record{}, false, &DataFormatError{Row: pos, Field: c.column, Value: raw, Reason: "missing or non-numeric value"}
		}
		if v < 0 {
			return Record{}, false, &DataFormatError{Row: pos, Field: c.column, Value: raw, Reason: "count must be non-negative"}
		}
		*c.dst = v
	}

	return rec, false, nil
}

// field looks a column up by exact name, falling back to lowercase.
func field(row RawRow, name string) string {
	if v, ok := row[name]; ok {
		return v
	}
	return row[strings.ToLower(name)]
}
