package geo

import (
	"fmt"
	"sort"
	"strings"
)

// NameResolver maps surveillance country names to polygon identifiers.
//
// Resolution is exact-match only, in this order: alias table → polygon name,
// then the country as a polygon name, then the country as a polygon identifier
// (for sources that already carry ISO codes). There is no case folding or
// fuzzy matching; a near miss is reported as unresolved rather than joined to
// the wrong polygon.
type NameResolver struct {
	byName  map[string]Polygon
	byID    map[string]Polygon
	aliases map[string]string
}

// NewNameResolver builds a resolver from the polygon vocabulary and an alias
// table. Blank, duplicated identifiers and duplicated names are errors.
func NewNameResolver(polygons []Polygon, aliases map[string]string) (*NameResolver, error) {
	r := &NameResolver{
		byName:  make(map[string]Polygon, len(polygons)),
		byID:    make(map[string]Polygon, len(polygons)),
		aliases: make(map[string]string, len(aliases)),
	}

	for _, p := range polygons {
		p.ID, p.Name = strings.TrimSpace(p.ID), strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("polygon %+v: blank identifier or name", p)
		}
		if prev, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("polygon id %q used by %q and %q", p.ID, prev.Name, p.Name)
		}
		if prev, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("polygon name %q used by %q and %q", p.Name, prev.ID, p.ID)
		}
		r.byID[p.ID] = p
		r.byName[p.Name] = p
	}

	for from, to := range aliases {
		r.aliases[from] = to
	}
	return r, nil
}

// Resolve returns the polygon for a surveillance country name.
func (r *NameResolver) Resolve(country string) (Polygon, bool) {
	if r == nil {
		return Polygon{}, false
	}
	if target, ok := r.aliases[country]; ok {
		p, ok := r.byName[target]
		return p, ok
	}
	if p, ok := r.byName[country]; ok {
		return p, true
	}
	p, ok := r.byID[country]
	return p, ok
}

// Contains reports whether id is a polygon identifier in the vocabulary.
func (r *NameResolver) Contains(id string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byID[id]
	return ok
}

// Len returns the vocabulary size.
func (r *NameResolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}

// Polygons returns the vocabulary sorted by identifier.
func (r *NameResolver) Polygons() []Polygon {
	if r == nil {
		return nil
	}
	out := make([]Polygon, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
