package cluster

import (
	"fmt"

	"github.com/aukilabs/tessera/geom"
	"github.com/aukilabs/tessera/grid"
)

// Cluster is the set of vertices that fell into one grid cell.
type Cluster struct {
	ID       string        `json:"id"`
	Bounds   Bounds        `json:"bounds"`
	Vertices []geom.Vertex `json:"vertices"`
}

// Bounds holds the corners of a grid cell, embedded in world space with a zero
// elevation.
type Bounds struct {
	BottomLeft  geom.Vertex `json:"bottom_left"`
	BottomRight geom.Vertex `json:"bottom_right"`
	TopRight    geom.Vertex `json:"top_right"`
	TopLeft     geom.Vertex `json:"top_left"`
}

// Width returns the extent of the bounds along the x axis.
func (b Bounds) Width() float64 {
	return b.BottomRight.X - b.BottomLeft.X
}

// Depth returns the extent of the bounds along the z axis.
func (b Bounds) Depth() float64 {
	return b.TopLeft.Z - b.BottomLeft.Z
}

func (b Bounds) Area() float64 {
	return b.Width() * b.Depth()
}

// ID returns the identifier of the cluster built from the cell at c.
func ID(c grid.Coord) string {
	return fmt.Sprintf("cluster_%d_%d", c.X, c.Y)
}

// Build turns every occupied cell of idx into a cluster. Clusters are ordered
// by cell x then cell y, and vertices keep the order of their cell.
func Build(idx *grid.Index) []Cluster {
	coords := idx.Coords()
	clusters := make([]Cluster, 0, len(coords))

	for _, c := range coords {
		bin, ok := idx.Bin(c.X, c.Y)
		if !ok || len(bin) == 0 {
			continue
		}

		vertices := make([]geom.Vertex, len(bin))
		for i, p := range bin {
			vertices[i] = geom.Embed(p.Point)
		}

		clusters = append(clusters, Cluster{
			ID:       ID(c),
			Bounds:   cellBounds(idx, c),
			Vertices: vertices,
		})
	}

	return clusters
}

func cellBounds(idx *grid.Index, c grid.Coord) Bounds {
	min, max := idx.CellBounds(c)

	return Bounds{
		BottomLeft:  geom.Vertex{X: min.X, Y: 0, Z: min.Y},
		BottomRight: geom.Vertex{X: max.X, Y: 0, Z: min.Y},
		TopRight:    geom.Vertex{X: max.X, Y: 0, Z: max.Y},
		TopLeft:     geom.Vertex{X: min.X, Y: 0, Z: max.Y},
	}
}
