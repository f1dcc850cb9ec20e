package dataset

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ReadShapefile loads point features from a shapefile. Attribute
// fields become the property map (string values, as stored in the
// DBF); point shapes supply marker coordinates.
func ReadShapefile(path string) ([]Record, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		// DBF field names are NUL-padded.
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var records []Record
	for reader.Next() {
		_, shape := reader.Shape()

		props := make(map[string]any, len(names))
		for i, name := range names {
			if name == "" {
				continue
			}
			props[name] = strings.TrimSpace(reader.Attribute(i))
		}

		rec := Record{Props: props}
		if p := pointFromShape(shape); p != nil {
			rec.Lon = p.X()
			rec.Lat = p.Y()
			rec.HasPoint = true
		}

		records = append(records, rec)
	}

	return records, nil
}

// pointFromShape converts a shapefile point shape to a geom.Point with
// SRID 4326. Non-point shapes return nil; city markers need a single
// coordinate pair.
func pointFromShape(s shp.Shape) *geom.Point {
	p, ok := s.(*shp.Point)
	if !ok || p == nil {
		return nil
	}
	return geom.NewPointFlat(geom.XY, []float64{p.X, p.Y}).SetSRID(4326)
}
