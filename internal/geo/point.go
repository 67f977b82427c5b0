// Package geo provides area centroids, great-circle distance, and the
// neighbor relation between areas.
package geo

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference of every point produced here (WGS 84).
const SRID = 4326

// EarthRadiusKM is the mean Earth radius used by HaversineKM.
const EarthRadiusKM = 6371.0

// NewPoint returns an XY point (X=lon, Y=lat) tagged with SRID 4326.
func NewPoint(lat, lon float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(SRID)
}

// LatLon returns the latitude and longitude of p.
func LatLon(p *geom.Point) (lat, lon float64) {
	return p.Y(), p.X()
}

// HaversineKM returns the great-circle distance in kilometers between two points.
func HaversineKM(a, b *geom.Point) float64 {
	lat1, lon1 := LatLon(a)
	lat2, lon2 := LatLon(b)
	return haversineKM(lat1, lon1, lat2, lon2)
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Centroid returns the median latitude and median longitude of the given
// coordinates. Each axis is sorted independently and the upper median
// (sorted[n/2]) is taken. Returns false when no coordinates are given.
func Centroid(lats, lons []float64) (*geom.Point, bool) {
	n := len(lats)
	if n == 0 || n != len(lons) {
		return nil, false
	}
	sortedLat := append([]float64(nil), lats...)
	sortedLon := append([]float64(nil), lons...)
	sort.Float64s(sortedLat)
	sort.Float64s(sortedLon)
	return NewPoint(sortedLat[n/2], sortedLon[n/2]), true
}

// EncodeEWKB converts a point to EWKB bytes with SRID 4326.
func EncodeEWKB(p *geom.Point) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses EWKB bytes into a point.
func DecodeEWKB(data []byte) (*geom.Point, error) {
	if len(data) == 0 {
		return nil, eris.New("geo: empty EWKB")
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geo: decode EWKB")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("geo: expected point, got %T", g)
	}
	return p, nil
}
