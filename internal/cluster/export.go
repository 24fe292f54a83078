package cluster

import (
	"encoding/json"
	"fmt"
)

// GeoJSON types for exchanging clustering results with map renderers
// and the comparison tooling.

// GeoJSONGeometry is a GeoJSON point geometry.
type GeoJSONGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// GeoJSONFeature is a GeoJSON feature with a point geometry.
type GeoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   GeoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string           `json:"type"`
	Features []GeoJSONFeature `json:"features"`
}

// ToGeoJSON converts the result to a FeatureCollection: clusters first
// (in result order), then unclustered passthrough features. Cluster
// properties carry cluster, cluster_id, point_count, and flattened
// attribute statistics (<key>_min/_max/_mean, <key>_mode/_distinct).
func (r Result) ToGeoJSON() *FeatureCollection {
	features := make([]GeoJSONFeature, 0, len(r.Clusters)+len(r.Unclustered))

	for _, c := range r.Clusters {
		props := map[string]interface{}{
			"cluster":     true,
			"cluster_id":  c.ID,
			"point_count": c.Count,
		}
		for k, stats := range c.Attributes {
			if stats.Numeric != nil {
				props[k+"_min"] = stats.Numeric.Min
				props[k+"_max"] = stats.Numeric.Max
				props[k+"_mean"] = stats.Numeric.Mean
			}
			if stats.Categorical != nil {
				props[k+"_mode"] = stats.Categorical.Mode
				props[k+"_distinct"] = stats.Categorical.DistinctCount
			}
		}
		features = append(features, GeoJSONFeature{
			Type:       "Feature",
			Geometry:   GeoJSONGeometry{Type: "Point", Coordinates: []float64{c.Centroid.X, c.Centroid.Y}},
			Properties: props,
		})
	}

	for _, f := range r.Unclustered {
		props := map[string]interface{}{
			"cluster": false,
			"id":      f.ID,
		}
		for k, v := range f.Attributes {
			props[k] = v
		}
		features = append(features, GeoJSONFeature{
			Type:       "Feature",
			Geometry:   GeoJSONGeometry{Type: "Point", Coordinates: []float64{f.X, f.Y}},
			Properties: props,
		})
	}

	return &FeatureCollection{Type: "FeatureCollection", Features: features}
}

// FeaturesFromGeoJSON converts a FeatureCollection into engine input
// features. Non-point geometries are skipped. A feature's ID comes
// from an "id" property when present, otherwise from its position in
// the collection. Coordinate validity is not checked here; the engine
// diverts malformed coordinates to Result.Skipped itself.
func FeaturesFromGeoJSON(fc *FeatureCollection) []Feature {
	feats := make([]Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		if gf.Geometry.Type != "Point" || len(gf.Geometry.Coordinates) < 2 {
			continue
		}
		id := fmt.Sprintf("feature-%d", i)
		attrs := make(map[string]interface{}, len(gf.Properties))
		for k, v := range gf.Properties {
			if k == "id" {
				if s, ok := v.(string); ok {
					id = s
					continue
				}
			}
			attrs[k] = v
		}
		feats = append(feats, Feature{
			ID:         id,
			X:          gf.Geometry.Coordinates[0],
			Y:          gf.Geometry.Coordinates[1],
			Attributes: attrs,
		})
	}
	return feats
}

// ParseFeatureCollection decodes GeoJSON bytes into a FeatureCollection.
func ParseFeatureCollection(data []byte) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	return &fc, nil
}
