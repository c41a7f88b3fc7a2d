package mesh

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tessera/geom"
	"github.com/fogleman/delaunay"
)

// Triangulation is a 2D Delaunay triangulation.
type Triangulation struct {
	epsilon  float64
	vertices []geom.Point
	tris     [][3]int
}

// NewTriangulation creates an empty triangulation. Epsilon is the duplicate
// tolerance used when an insertion does not give one.
func NewTriangulation(epsilon float64) *Triangulation {
	return &Triangulation{
		epsilon: resolveTolerance(epsilon, DefaultEpsilon),
	}
}

func (t *Triangulation) InsertVertices(points []geom.Point, tolerance float64, allowDuplicates bool) error {
	tolerance = resolveTolerance(tolerance, t.epsilon)

	proximity := newProximityIndex(tolerance, 2)
	for _, v := range t.vertices {
		proximity.add([3]float64{v.X, v.Y})
	}

	vertices := make([]geom.Point, len(t.vertices), len(t.vertices)+len(points))
	copy(vertices, t.vertices)

	for i, p := range points {
		if !p.IsFinite() {
			return errors.New("vertex has a non-finite coordinate").
				WithType(ErrTypeUpstreamFailure).
				WithTag("index", i)
		}

		key := [3]float64{p.X, p.Y}
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
		vertices = append(vertices, p)
	}

	if len(vertices) < 3 {
		return errors.New("triangulation needs at least 3 distinct vertices").
			WithType(ErrTypeUpstreamFailure).
			WithTag("vertices", len(vertices))
	}

	in := make([]delaunay.Point, len(vertices))
	for i, v := range vertices {
		in[i] = delaunay.Point{X: v.X, Y: v.Y}
	}

	res, err := delaunay.Triangulate(in)
	if err != nil {
		return errors.New("triangulating vertices failed").
			WithType(ErrTypeUpstreamFailure).
			WithTag("vertices", len(vertices)).
			Wrap(err)
	}

	tris := make([][3]int, 0, len(res.Triangles)/3)
	for i := 0; i+2 < len(res.Triangles); i += 3 {
		tris = append(tris, [3]int{
			res.Triangles[i],
			res.Triangles[i+1],
			res.Triangles[i+2],
		})
	}

	t.vertices = vertices
	t.tris = tris
	return nil
}

func (t *Triangulation) Tris() [][3]geom.Point {
	tris := make([][3]geom.Point, len(t.tris))
	for i, tri := range t.tris {
		tris[i] = [3]geom.Point{
			t.vertices[tri[0]],
			t.vertices[tri[1]],
			t.vertices[tri[2]],
		}
	}
	return tris
}

func (t *Triangulation) Vertices() []geom.Point {
	return t.vertices
}

func (t *Triangulation) NumTris() int {
	return len(t.tris)
}
