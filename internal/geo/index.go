package geo

import (
	"sort"

	"github.com/twpayne/go-geom"
)

// DefaultRadiusKM is the neighbor radius used by the batch pass.
const DefaultRadiusKM = 20.0

// Index holds one centroid per area and the symmetric neighbor relation
// between areas whose centroids lie within the radius. It is immutable once
// built.
type Index struct {
	radiusKM  float64
	centroids map[string]*geom.Point
	neighbors map[string][]string
	areas     []string
}

// NewIndex computes the neighbor relation over all area pairs. Areas with a
// nil centroid are left out.
func NewIndex(centroids map[string]*geom.Point, radiusKM float64) *Index {
	idx := &Index{
		radiusKM:  radiusKM,
		centroids: make(map[string]*geom.Point, len(centroids)),
		neighbors: make(map[string][]string, len(centroids)),
	}
	for area, p := range centroids {
		if p == nil {
			continue
		}
		idx.centroids[area] = p
		idx.areas = append(idx.areas, area)
	}
	sort.Strings(idx.areas)

	// Each unordered pair is visited once and recorded on both sides.
	for i, a := range idx.areas {
		for _, b := range idx.areas[i+1:] {
			if HaversineKM(idx.centroids[a], idx.centroids[b]) <= radiusKM {
				idx.neighbors[a] = append(idx.neighbors[a], b)
				idx.neighbors[b] = append(idx.neighbors[b], a)
			}
		}
	}
	for a := range idx.neighbors {
		sort.Strings(idx.neighbors[a])
	}
	return idx
}

// RadiusKM returns the neighbor radius the index was built with.
func (idx *Index) RadiusKM() float64 { return idx.radiusKM }

// Areas returns the indexed area codes in ascending order.
func (idx *Index) Areas() []string {
	return append([]string(nil), idx.areas...)
}

// Centroid returns the representative point of an area.
func (idx *Index) Centroid(area string) (*geom.Point, bool) {
	p, ok := idx.centroids[area]
	return p, ok
}

// NeighborsOf returns the sorted neighbor areas of area. Unknown areas have
// no neighbors.
func (idx *Index) NeighborsOf(area string) []string {
	return append([]string(nil), idx.neighbors[area]...)
}

// IsNeighbor reports whether a and b are neighbors.
func (idx *Index) IsNeighbor(a, b string) bool {
	for _, n := range idx.neighbors[a] {
		if n == b {
			return true
		}
	}
	return false
}

// Distance returns the great-circle distance between two indexed areas.
func (idx *Index) Distance(a, b string) (float64, bool) {
	pa, okA := idx.centroids[a]
	pb, okB := idx.centroids[b]
	if !okA || !okB {
		return 0, false
	}
	return HaversineKM(pa, pb), true
}
