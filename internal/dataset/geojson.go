package dataset

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geojson "github.com/twpayne/go-geom/encoding/geojson"

	"github.com/urbanlens/usi-cli/internal/fetcher"
)

// ParseGeoJSON decodes a GeoJSON feature collection into records.
func ParseGeoJSON(data []byte) ([]Record, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "dataset: parse geojson")
	}
	return fromFeatureCollection(&fc), nil
}

// ReadGeoJSON decodes a GeoJSON feature collection from a stream.
func ReadGeoJSON(r io.Reader) ([]Record, error) {
	fc, err := fetcher.DecodeJSONObject[geojson.FeatureCollection](r)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: parse geojson")
	}
	return fromFeatureCollection(fc), nil
}

// fromFeatureCollection converts decoded features to records. Features
// without properties get an empty map; features without a point
// geometry keep HasPoint false and are still processed.
func fromFeatureCollection(fc *geojson.FeatureCollection) []Record {
	records := make([]Record, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}

		rec := Record{Props: f.Properties}
		if rec.Props == nil {
			rec.Props = map[string]any{}
		}

		if p, ok := f.Geometry.(*geom.Point); ok && p != nil {
			rec.Lon = p.X()
			rec.Lat = p.Y()
			rec.HasPoint = true
		}

		records = append(records, rec)
	}

	return records
}
