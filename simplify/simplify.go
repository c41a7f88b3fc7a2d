package simplify

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/tessera/cluster"
	"github.com/aukilabs/tessera/geom"
	"github.com/aukilabs/tessera/grid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	ErrTypeEmptyInput = "empty-input"
)

// Reduce returns the weighted centroid of the given points. The mean is taken
// over offsets from the first point so that coincident points reduce to that
// exact point.
func Reduce(points []grid.WeightedPoint) (geom.Point, error) {
	if len(points) == 0 {
		return geom.Point{}, errors.New("no points to reduce").
			WithType(ErrTypeEmptyInput)
	}

	p0 := points[0].Point
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	weights := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X - p0.X
		ys[i] = p.Y - p0.Y
		weights[i] = p.Weight
	}

	if total := floats.Sum(weights); !geom.IsFinite(total) || total <= 0 {
		return geom.Point{}, errors.New("total weight must be a positive number").
			WithType(grid.ErrTypeInvalidParameter).
			WithTag("total_weight", total)
	}

	return geom.Point{
		X: p0.X + stat.Mean(xs, weights),
		Y: p0.Y + stat.Mean(ys, weights),
	}, nil
}

// Simplify returns one representative point per occupied cell of idx along with
// the total weight it stands for. Representatives follow the cluster order.
func Simplify(idx *grid.Index) ([]geom.Point, []float64, error) {
	coords := idx.Coords()
	if len(coords) == 0 {
		return nil, nil, errors.New("index has no bins").
			WithType(ErrTypeEmptyInput)
	}

	points := make([]geom.Point, 0, len(coords))
	weights := make([]float64, 0, len(coords))

	for _, c := range coords {
		bin, ok := idx.Bin(c.X, c.Y)
		if !ok || len(bin) == 0 {
			continue
		}

		p, err := Reduce(bin)
		if err != nil {
			return nil, nil, err
		}

		var w float64
		for _, wp := range bin {
			w += wp.Weight
		}

		points = append(points, p)
		weights = append(weights, w)
	}

	return points, weights, nil
}

// SimplifyCluster returns the centroid of the cluster members, with a zero
// elevation.
func SimplifyCluster(c cluster.Cluster) (geom.Vertex, error) {
	if len(c.Vertices) == 0 {
		return geom.Vertex{}, errors.New("cluster has no vertices").
			WithType(ErrTypeEmptyInput).
			WithTag("cluster_id", c.ID)
	}

	points := make([]grid.WeightedPoint, len(c.Vertices))
	for i, v := range c.Vertices {
		points[i] = grid.WeightedPoint{
			Point:  geom.Project(v),
			Weight: 1,
		}
	}

	p, err := Reduce(points)
	if err != nil {
		return geom.Vertex{}, err
	}
	return geom.Embed(p), nil
}

// SimplifyClusters reduces each cluster to its centroid. Clusters that cannot
// be reduced are skipped and their ids returned.
func SimplifyClusters(clusters []cluster.Cluster) ([]geom.Vertex, []string) {
	vertices := make([]geom.Vertex, 0, len(clusters))
	var skipped []string

	for _, c := range clusters {
		v, err := SimplifyCluster(c)
		if err != nil {
			logs.WithTag("cluster_id", c.ID).
				Warn(errors.New("skipping cluster").Wrap(err))
			skipped = append(skipped, c.ID)
			continue
		}
		vertices = append(vertices, v)
	}

	return vertices, skipped
}
