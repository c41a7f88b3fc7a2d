package grid

import (
	"math"
	"sort"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tessera/geom"
)

// Uniform Grid Index
//
// A sparse, uniformly sub-divided grid over the horizontal plane. The
// particularities are:
//  - the origin is the per-axis minimum of the indexed points, so the lowest
//    occupied cell is always (0, 0).
//  - the bin size defines how large a cell is. A bin size of 1 makes each cell
//    hold a 1x1 meter subdivision of the plane.
//  - only occupied cells are stored. Points keep their input order inside a
//    cell.

const (
	ErrTypeInvalidParameter = "invalid-parameter"

	defaultWeight = 1.0

	// Largest cell coordinate magnitude. Every integer up to it is exact in a
	// float64 and fits an int.
	maxCoord = 1 << 53
)

// Coord is the integer coordinate of a cell.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// WeightedPoint is a point held by a cell.
type WeightedPoint struct {
	geom.Point
	Weight float64
}

type Index struct {
	points  []geom.Point
	binSize float64
	origin  geom.Point
	bins    map[Coord][]WeightedPoint
	coords  []Coord

	numBinsX int
	numBinsY int
}

// Build indexes points with a unit weight each.
func Build(points []geom.Point, binSize float64) (*Index, error) {
	return BuildWeighted(points, nil, binSize)
}

// BuildWeighted indexes points with the given per-point weights. A nil weights
// slice gives every point a weight of 1.
func BuildWeighted(points []geom.Point, weights []float64, binSize float64) (*Index, error) {
	if !geom.IsFinite(binSize) || binSize <= 0 {
		return nil, errors.New("bin size must be a positive number").
			WithType(ErrTypeInvalidParameter).
			WithTag("bin_size", binSize)
	}

	if weights != nil && len(weights) != len(points) {
		return nil, errors.New("weights do not match points").
			WithType(ErrTypeInvalidParameter).
			WithTag("points", len(points)).
			WithTag("weights", len(weights))
	}

	origin := geom.Point{X: math.Inf(1), Y: math.Inf(1)}
	for i, p := range points {
		if !p.IsFinite() {
			return nil, errors.New("point has a non-finite coordinate").
				WithType(ErrTypeInvalidParameter).
				WithTag("index", i)
		}
		origin.X = math.Min(origin.X, p.X)
		origin.Y = math.Min(origin.Y, p.Y)
	}

	for i, w := range weights {
		if !geom.IsFinite(w) || w <= 0 {
			return nil, errors.New("weight must be a positive number").
				WithType(ErrTypeInvalidParameter).
				WithTag("index", i).
				WithTag("weight", w)
		}
	}

	idx := &Index{
		points:  points,
		binSize: binSize,
		origin:  origin,
		bins:    make(map[Coord][]WeightedPoint),
	}

	for i, p := range points {
		w := defaultWeight
		if weights != nil {
			w = weights[i]
		}

		c, ok := idx.coordOf(p)
		if !ok {
			return nil, errors.New("bin size is too small for the extent of the points").
				WithType(ErrTypeInvalidParameter).
				WithTag("bin_size", binSize).
				WithTag("index", i)
		}
		idx.bins[c] = append(idx.bins[c], WeightedPoint{Point: p, Weight: w})
	}

	idx.coords = make([]Coord, 0, len(idx.bins))
	for c := range idx.bins {
		idx.coords = append(idx.coords, c)
	}
	sort.Slice(idx.coords, func(i, j int) bool {
		if idx.coords[i].X != idx.coords[j].X {
			return idx.coords[i].X < idx.coords[j].X
		}
		return idx.coords[i].Y < idx.coords[j].Y
	})

	if len(idx.coords) != 0 {
		minX, maxX := idx.coords[0].X, idx.coords[len(idx.coords)-1].X
		minY, maxY := idx.coords[0].Y, idx.coords[0].Y
		for _, c := range idx.coords {
			minY = min(minY, c.Y)
			maxY = max(maxY, c.Y)
		}
		idx.numBinsX = maxX - minX + 1
		idx.numBinsY = maxY - minY + 1
	}

	return idx, nil
}

// coordOf returns the cell holding p. It reports false when the cell
// coordinate is out of the int range.
func (idx *Index) coordOf(p geom.Point) (Coord, bool) {
	x := math.Floor((p.X - idx.origin.X) / idx.binSize)
	y := math.Floor((p.Y - idx.origin.Y) / idx.binSize)
	if !(math.Abs(x) <= maxCoord && math.Abs(y) <= maxCoord) {
		return Coord{}, false
	}
	return Coord{X: int(x), Y: int(y)}, true
}

// Bin returns the points held by the cell at (x, y).
func (idx *Index) Bin(x, y int) ([]WeightedPoint, bool) {
	bin, ok := idx.bins[Coord{X: x, Y: y}]
	return bin, ok
}

// Coords returns the occupied cells, x major then y. This is the order in
// which clusters and representatives are produced.
func (idx *Index) Coords() []Coord {
	return idx.coords
}

// NumBins returns the number of occupied cells.
func (idx *Index) NumBins() int {
	return len(idx.bins)
}

// NumBinsX returns the number of columns spanned by the occupied cells.
func (idx *Index) NumBinsX() int {
	return idx.numBinsX
}

// NumBinsY returns the number of rows spanned by the occupied cells.
func (idx *Index) NumBinsY() int {
	return idx.numBinsY
}

func (idx *Index) BinSize() float64 {
	return idx.binSize
}

// Origin returns the bottom left corner of cell (0, 0). It is +Inf on both
// axes for an empty index.
func (idx *Index) Origin() geom.Point {
	return idx.origin
}

func (idx *Index) Points() []geom.Point {
	return idx.points
}

func (idx *Index) Len() int {
	return len(idx.points)
}

// CellBounds returns the bottom left and top right corners of a cell.
func (idx *Index) CellBounds(c Coord) (geom.Point, geom.Point) {
	min := geom.Point{
		X: idx.origin.X + float64(c.X)*idx.binSize,
		Y: idx.origin.Y + float64(c.Y)*idx.binSize,
	}
	max := geom.Point{
		X: min.X + idx.binSize,
		Y: min.Y + idx.binSize,
	}
	return min, max
}
