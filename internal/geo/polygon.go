// Package geo joins country-level surveillance summaries onto the polygon
// identifiers of an external boundary dataset for choropleth rendering.
//
// Only polygon identifiers and names are read; geometry is never decoded.
package geo

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Polygon is one entry of the boundary dataset's naming vocabulary.
type Polygon struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Natural Earth admin-0 property names.
const (
	DefaultIDProperty   = "ADM0_A3"
	DefaultNameProperty = "ADMIN"
)

// featureCollection decodes just enough of a GeoJSON FeatureCollection.
// Geometry members are skipped by the decoder.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         any            `json:"id"`
	Properties map[string]any `json:"properties"`
}

// LoadPolygons reads a GeoJSON FeatureCollection and returns the polygon
// vocabulary. idProp and nameProp name the feature properties holding the
// identifier and country name; an empty idProp uses the feature "id" member.
// Features with a blank identifier or name are skipped.
func LoadPolygons(r io.Reader, idProp, nameProp string) ([]Polygon, error) {
	if nameProp == "" {
		nameProp = DefaultNameProperty
	}

	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode geojson: type %q, want FeatureCollection", fc.Type)
	}

	polygons := make([]Polygon, 0, len(fc.Features))
	for _, f := range fc.Features {
		id := f.ID
		if idProp != "" {
			id = f.Properties[idProp]
		}
		p := Polygon{
			ID:   propertyString(id),
			Name: propertyString(f.Properties[nameProp]),
		}
		if p.ID == "" || p.Name == "" {
			continue
		}
		polygons = append(polygons, p)
	}
	return polygons, nil
}

// propertyString renders a GeoJSON property value as a trimmed string.
func propertyString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
