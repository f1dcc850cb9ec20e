// Package dataset loads city feature collections from GeoJSON and
// shapefile sources and hands their free-form property maps to the
// resolution and projection pipeline.
package dataset

import "time"

// Record is one geographic point of interest: its raw property map
// plus marker coordinates when the feature carries a point geometry.
// Properties are read-only for the duration of processing.
type Record struct {
	Props    map[string]any
	Lon, Lat float64
	HasPoint bool
}

// Collection is one loaded dataset.
type Collection struct {
	Source   string
	Records  []Record
	LoadedAt time.Time
}

// First returns the property map of the representative record used for
// collection-level key resolution, or nil for an empty collection.
func (c *Collection) First() map[string]any {
	if c == nil || len(c.Records) == 0 {
		return nil
	}
	return c.Records[0].Props
}
