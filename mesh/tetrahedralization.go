package mesh

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tessera/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	superVertexCount = 4

	// The super tetrahedron is a regular tetrahedron whose inscribed sphere is
	// this many times larger than the bounding sphere of the input.
	superScale = 20

	// Relative difference allowed between the summed volume of the
	// tetrahedra and the volume they tile.
	volumeTolerance = 1e-9
)

// Tetrahedralization is a 3D Delaunay tetrahedralization built with the
// Bowyer-Watson algorithm.
type Tetrahedralization struct {
	epsilon  float64
	vertices []geom.Vertex
	tets     [][4]int
}

// NewTetrahedralization creates an empty tetrahedralization. Epsilon is the
// duplicate tolerance used when an insertion does not give one.
func NewTetrahedralization(epsilon float64) *Tetrahedralization {
	return &Tetrahedralization{
		epsilon: resolveTolerance(epsilon, DefaultEpsilon),
	}
}

func (t *Tetrahedralization) InsertVertices(vertices []geom.Vertex, tolerance float64, allowDuplicates bool) error {
	tolerance = resolveTolerance(tolerance, t.epsilon)

	proximity := newProximityIndex(tolerance, 3)
	for _, v := range t.vertices {
		proximity.add([3]float64{v.X, v.Y, v.Z})
	}

	all := make([]geom.Vertex, len(t.vertices), len(t.vertices)+len(vertices))
	copy(all, t.vertices)

	for i, v := range vertices {
		if !v.IsFinite() {
			return errors.New("vertex has a non-finite coordinate").
				WithType(ErrTypeUpstreamFailure).
				WithTag("index", i)
		}

		key := [3]float64{v.X, v.Y, v.Z}
		if proximity.near(key) {
			if allowDuplicates {
				continue
			}
			return errors.New("duplicate vertex").
				WithType(ErrTypeUpstreamFailure).
				WithTag("index", i).
				WithTag("tolerance", tolerance)
		}

		proximity.add(key)
		all = append(all, v)
	}

	if len(all) < 4 {
		return errors.New("tetrahedralization needs at least 4 distinct vertices").
			WithType(ErrTypeUpstreamFailure).
			WithTag("vertices", len(all))
	}

	tets, err := bowyerWatson(all)
	if err != nil {
		return err
	}
	if len(tets) == 0 {
		return errors.New("vertices are coplanar").
			WithType(ErrTypeUpstreamFailure).
			WithTag("vertices", len(all))
	}

	t.vertices = all
	t.tets = tets
	return nil
}

func (t *Tetrahedralization) Tets() [][4]geom.Vertex {
	tets := make([][4]geom.Vertex, len(t.tets))
	for i, tet := range t.tets {
		tets[i] = [4]geom.Vertex{
			t.vertices[tet[0]],
			t.vertices[tet[1]],
			t.vertices[tet[2]],
			t.vertices[tet[3]],
		}
	}
	return tets
}

func (t *Tetrahedralization) Vertices() []geom.Vertex {
	return t.vertices
}

func (t *Tetrahedralization) NumTets() int {
	return len(t.tets)
}

type face [3]int

func newFace(a, b, c int) face {
	// sorted so that shared faces compare equal
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return face{a, b, c}
}

func tetFaces(v [4]int) [4]face {
	return [4]face{
		newFace(v[0], v[1], v[2]),
		newFace(v[0], v[1], v[3]),
		newFace(v[0], v[2], v[3]),
		newFace(v[1], v[2], v[3]),
	}
}

// bowyerWatson returns the tetrahedra of the Delaunay tetrahedralization of
// vertices, as indices into vertices.
//
// Points on a circumsphere are treated as outside of it, which resolves
// co-spherical input as if each point was inserted infinitesimally above the
// previous ones.
func bowyerWatson(vertices []geom.Vertex) ([][4]int, error) {
	points := make([]r3.Vec, 0, len(vertices)+superVertexCount)
	points = append(points, superTetrahedron(vertices)...)
	for _, v := range vertices {
		points = append(points, r3.Vec{X: v.X, Y: v.Y, Z: v.Z})
	}

	tets := [][4]int{{0, 1, 2, 3}}

	for i := superVertexCount; i < len(points); i++ {
		p := points[i]

		faces := make(map[face]int)
		kept := tets[:0]
		for _, v := range tets {
			if inSphere(points[v[0]], points[v[1]], points[v[2]], points[v[3]], p) {
				for _, f := range tetFaces(v) {
					faces[f]++
				}
				continue
			}
			kept = append(kept, v)
		}
		tets = kept

		if len(faces) == 0 {
			return nil, errors.New("vertex is outside of the mesh").
				WithType(ErrTypeUpstreamFailure).
				WithTag("index", i-superVertexCount)
		}

		for f, n := range faces {
			if n != 1 {
				continue
			}
			if orient(points[f[0]], points[f[1]], points[f[2]], p) == 0 {
				return nil, errors.New("cavity is not star-shaped").
					WithType(ErrTypeUpstreamFailure).
					WithTag("index", i-superVertexCount)
			}
			tets = append(tets, [4]int{f[0], f[1], f[2], i})
		}
	}

	if err := validateTetrahedralization(points, tets); err != nil {
		return nil, err
	}

	res := make([][4]int, 0, len(tets))
	for _, v := range tets {
		if v[0] < superVertexCount ||
			v[1] < superVertexCount ||
			v[2] < superVertexCount ||
			v[3] < superVertexCount {
			continue
		}

		res = append(res, [4]int{
			v[0] - superVertexCount,
			v[1] - superVertexCount,
			v[2] - superVertexCount,
			v[3] - superVertexCount,
		})
	}
	return res, nil
}

// validateTetrahedralization checks that tets tile the super tetrahedron:
// every inner face is shared by exactly two tetrahedra and the volumes add up
// to the volume of the super tetrahedron.
func validateTetrahedralization(points []r3.Vec, tets [][4]int) error {
	outer := make(map[face]bool, 4)
	for _, f := range tetFaces([4]int{0, 1, 2, 3}) {
		outer[f] = true
	}

	faces := make(map[face]int, 2*len(tets))
	var volume float64
	for _, v := range tets {
		for _, f := range tetFaces(v) {
			faces[f]++
		}
		volume += tetVolume(points, v)
	}

	for f, n := range faces {
		want := 2
		if outer[f] {
			want = 1
		}
		if n != want {
			return errors.New("tetrahedralization has a non-manifold face").
				WithType(ErrTypeUpstreamFailure).
				WithTag("face_count", n)
		}
	}

	superVolume := tetVolume(points, [4]int{0, 1, 2, 3})
	if math.Abs(volume-superVolume) > volumeTolerance*superVolume {
		return errors.New("tetrahedra overlap").
			WithType(ErrTypeUpstreamFailure).
			WithTag("volume", volume).
			WithTag("expected_volume", superVolume)
	}
	return nil
}

func tetVolume(points []r3.Vec, v [4]int) float64 {
	a := points[v[0]]
	return math.Abs(det3(r3.Sub(points[v[1]], a), r3.Sub(points[v[2]], a), r3.Sub(points[v[3]], a))) / 6
}

func superTetrahedron(vertices []geom.Vertex) []r3.Vec {
	min := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range vertices {
		min = r3.Vec{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y), Z: math.Min(min.Z, v.Z)}
		max = r3.Vec{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y), Z: math.Max(max.Z, v.Z)}
	}

	center := r3.Scale(0.5, r3.Add(min, max))
	radius := 0.5 * r3.Norm(r3.Sub(max, min))
	if radius == 0 {
		radius = 1
	}

	// The inscribed sphere of this tetrahedron has a radius of s/√3.
	s := superScale * radius * math.Sqrt(3)
	return []r3.Vec{
		r3.Add(center, r3.Vec{X: s, Y: s, Z: s}),
		r3.Add(center, r3.Vec{X: s, Y: -s, Z: -s}),
		r3.Add(center, r3.Vec{X: -s, Y: s, Z: -s}),
		r3.Add(center, r3.Vec{X: -s, Y: -s, Z: s}),
	}
}
