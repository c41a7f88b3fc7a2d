package geom

import (
	"encoding/binary"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Point is a position in the horizontal plane. X maps to the world x axis and
// Y maps to the world z axis.
type Point struct {
	X float64
	Y float64
}

// Vertex is a position in world space, as exchanged with clients.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Triangle struct {
	A Vertex `json:"a"`
	B Vertex `json:"b"`
	C Vertex `json:"c"`
}

type Tetrahedron struct {
	A Vertex `json:"a"`
	B Vertex `json:"b"`
	C Vertex `json:"c"`
	D Vertex `json:"d"`
}

// Project drops the vertical component of v.
func Project(v Vertex) Point {
	return Point{X: v.X, Y: v.Z}
}

// ProjectAll projects every vertex onto the (x, z) plane.
func ProjectAll(vertices []Vertex) []Point {
	points := make([]Point, len(vertices))
	for i, v := range vertices {
		points[i] = Project(v)
	}
	return points
}

// Embed places p back in world space with a zero elevation.
func Embed(p Point) Vertex {
	return Vertex{X: p.X, Y: 0, Z: p.Y}
}

func EmbedAll(points []Point) []Vertex {
	vertices := make([]Vertex, len(points))
	for i, p := range points {
		vertices[i] = Embed(p)
	}
	return vertices
}

func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (p Point) IsFinite() bool {
	return IsFinite(p.X) && IsFinite(p.Y)
}

func (v Vertex) IsFinite() bool {
	return IsFinite(v.X) && IsFinite(v.Y) && IsFinite(v.Z)
}

func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Lift maps v onto the paraboloid y = x² + z².
func Lift(v Vertex) Vertex {
	return Vertex{X: v.X, Y: v.X*v.X + v.Z*v.Z, Z: v.Z}
}

func LiftTriangle(t Triangle) Triangle {
	return Triangle{A: Lift(t.A), B: Lift(t.B), C: Lift(t.C)}
}

// Fingerprint returns the Keccak-256 hash of the vertex coordinates in order.
// Two vertex sets share a fingerprint only if they are bitwise identical.
func Fingerprint(vertices []Vertex) common.Hash {
	buf := make([]byte, 0, len(vertices)*24)
	for _, v := range vertices {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.X))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.Y))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.Z))
	}
	return crypto.Keccak256Hash(buf)
}
