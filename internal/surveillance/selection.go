package surveillance

import (
	"sort"
	"strings"
)

// CountrySet is either the all-countries wildcard or an explicit set of names.
// The zero value is an empty explicit set, which matches nothing.
type CountrySet struct {
	all   bool
	names map[string]struct{}
}

// AllCountries returns the wildcard set: every country present in the table.
func AllCountries() CountrySet {
	return CountrySet{all: true}
}

// Countries returns an explicit set. Names are trimmed; blanks are ignored.
func Countries(names ...string) CountrySet {
	cs := CountrySet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cs.names[n] = struct{}{}
		}
	}
	return cs
}

// IsAll reports whether the set is the wildcard.
func (cs CountrySet) IsAll() bool { return cs.all }

// IsEmpty reports whether the set can match nothing.
func (cs CountrySet) IsEmpty() bool { return !cs.all && len(cs.names) == 0 }

// Contains reports whether country matches the set.
func (cs CountrySet) Contains(country string) bool {
	if cs.all {
		return true
	}
	_, ok := cs.names[country]
	return ok
}

// Names returns the explicit names, ascending. The wildcard has none.
func (cs CountrySet) Names() []string {
	if cs.all {
		return nil
	}
	out := make([]string, 0, len(cs.names))
	for n := range cs.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Key returns a stable string form of the set, used for cache keys.
func (cs CountrySet) Key() string {
	if cs.all {
		return "*all*"
	}
	// NUL cannot appear in a cleaned country name
	return strings.Join(cs.Names(), "\x00")
}

// Selection picks countries for a single year.
type Selection struct {
	Countries CountrySet
	Year      int
}

// View is a read-only subset of a Table: indices into the parent, no copying.
type View struct {
	table   *Table
	indices []int
}

// Len returns the number of records in the view.
func (v View) Len() int { return len(v.indices) }

// At returns the i-th record of the view.
func (v View) At(i int) Record { return v.table.records[v.indices[i]] }

// Records returns a copy of the view's records in (country, year) order.
func (v View) Records() []Record {
	out := make([]Record, len(v.indices))
	for i, idx := range v.indices {
		out[i] = v.table.records[idx]
	}
	return out
}

// Filter returns the records of t for sel.Year whose country matches
// sel.Countries. An empty explicit set, an absent year and unknown country
// names all produce an empty view rather than an error.
func Filter(t *Table, sel Selection) View {
	v := View{table: t}
	if t.Len() == 0 || sel.Countries.IsEmpty() {
		return v
	}

	// Explicit sets resolve through the key index instead of scanning.
	if !sel.Countries.IsAll() {
		for _, name := range sel.Countries.Names() {
			if i, ok := t.index[recordKey{name, sel.Year}]; ok {
				v.indices = append(v.indices, i)
			}
		}
		return v
	}

	for i, r := range t.records {
		if r.Year == sel.Year {
			v.indices = append(v.indices, i)
		}
	}
	return v
}
