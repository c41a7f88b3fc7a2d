// Package mesh implements Delaunay meshing of point sets.
//
// Triangulations work on the horizontal plane and tetrahedralizations in world
// space. Both keep every vertex they were given, minus the ones closer than
// the tolerance to an already inserted vertex, and rebuild the mesh on each
// insertion.
package mesh

import (
	"math"

	"github.com/aukilabs/tessera/geom"
)

const (
	ErrTypeUpstreamFailure = "upstream-failure"

	// DefaultEpsilon is the tolerance used when none is given.
	DefaultEpsilon = 1e-9
)

// Triangulator builds a 2D Delaunay triangulation.
type Triangulator interface {
	// Inserts points into the triangulation. Points within tolerance of an
	// already inserted point are duplicates: they are skipped when
	// allowDuplicates is true and make the insertion fail otherwise. A failed
	// insertion leaves the triangulation unchanged.
	InsertVertices(points []geom.Point, tolerance float64, allowDuplicates bool) error

	// Returns the triangles as triples of vertices.
	Tris() [][3]geom.Point

	// Returns the inserted vertices.
	Vertices() []geom.Point

	NumTris() int
}

// Tetrahedralizer builds a 3D Delaunay tetrahedralization.
type Tetrahedralizer interface {
	// Inserts vertices into the tetrahedralization, with the same duplicate
	// handling as Triangulator.InsertVertices.
	InsertVertices(vertices []geom.Vertex, tolerance float64, allowDuplicates bool) error

	// Returns the tetrahedra as quadruples of vertices.
	Tets() [][4]geom.Vertex

	// Returns the inserted vertices.
	Vertices() []geom.Vertex

	NumTets() int
}

func resolveTolerance(tolerance, fallback float64) float64 {
	if !geom.IsFinite(tolerance) || tolerance <= 0 {
		tolerance = fallback
	}
	if !geom.IsFinite(tolerance) || tolerance <= 0 {
		tolerance = DefaultEpsilon
	}
	return tolerance
}

type cellKey [3]int64

// proximityIndex finds previously added points that are within a tolerance of
// a new one. Points are hashed into cells as large as the tolerance so that
// only the neighboring cells need to be searched.
type proximityIndex struct {
	tolerance float64
	dims      int
	cells     map[cellKey][][3]float64
}

func newProximityIndex(tolerance float64, dims int) *proximityIndex {
	return &proximityIndex{
		tolerance: tolerance,
		dims:      dims,
		cells:     make(map[cellKey][][3]float64),
	}
}

func (idx *proximityIndex) key(p [3]float64) cellKey {
	var k cellKey
	for i := 0; i < idx.dims; i++ {
		k[i] = int64(math.Floor(p[i] / idx.tolerance))
	}
	return k
}

func (idx *proximityIndex) near(p [3]float64) bool {
	k := idx.key(p)

	var dz int64
	if idx.dims == 3 {
		dz = 1
	}

	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for z := -dz; z <= dz; z++ {
				neighbor := cellKey{k[0] + dx, k[1] + dy, k[2] + z}
				for _, q := range idx.cells[neighbor] {
					if distance(p, q) <= idx.tolerance {
						return true
					}
				}
			}
		}
	}
	return false
}

func (idx *proximityIndex) add(p [3]float64) {
	k := idx.key(p)
	idx.cells[k] = append(idx.cells[k], p)
}

func distance(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
