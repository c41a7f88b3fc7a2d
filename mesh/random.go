package mesh

import (
	"math/rand"

	"github.com/aukilabs/tessera/geom"
)

// Dimension selects whether generated vertices lie on the ground plane.
type Dimension string

const (
	DimensionTwo   Dimension = "TWO"
	DimensionThree Dimension = "THREE"

	MaxRandomVertices = 100

	randomExtent = 5.0
)

// MinVertices returns the smallest vertex count that can be meshed in the
// given dimension.
func (d Dimension) MinVertices() int {
	if d == DimensionThree {
		return 4
	}
	return 3
}

func (d Dimension) Valid() bool {
	return d == DimensionTwo || d == DimensionThree
}

// RandomVertices returns n vertices drawn uniformly in [-2.5, 2.5) on each
// axis. Vertices of DimensionTwo have a zero elevation. N is clamped to what
// the dimension can mesh and to MaxRandomVertices.
func RandomVertices(rng *rand.Rand, n int, dim Dimension) []geom.Vertex {
	n = max(dim.MinVertices(), min(n, MaxRandomVertices))

	vertices := make([]geom.Vertex, n)
	for i := range vertices {
		v := geom.Vertex{
			X: randomCoord(rng),
			Z: randomCoord(rng),
		}
		if dim == DimensionThree {
			v.Y = randomCoord(rng)
		}
		vertices[i] = v
	}
	return vertices
}

func randomCoord(rng *rand.Rand) float64 {
	return (rng.Float64() - 0.5) * randomExtent
}
