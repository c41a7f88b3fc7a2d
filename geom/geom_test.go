package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectAndEmbed(t *testing.T) {
	v := Vertex{X: 1.5, Y: 42, Z: -3}

	p := Project(v)
	require.Equal(t, Point{X: 1.5, Y: -3}, p)
	require.Equal(t, Vertex{X: 1.5, Y: 0, Z: -3}, Embed(p))
}

func TestProjectAll(t *testing.T) {
	points := ProjectAll([]Vertex{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}})
	require.Equal(t, []Point{{X: 1, Y: 3}, {X: 4, Y: 6}}, points)
	require.Empty(t, ProjectAll(nil))
}

func TestIsFinite(t *testing.T) {
	require.True(t, Point{X: 1, Y: 2}.IsFinite())
	require.False(t, Point{X: math.NaN(), Y: 2}.IsFinite())
	require.False(t, Vertex{X: 0, Y: math.Inf(1), Z: 0}.IsFinite())
}

func TestLift(t *testing.T) {
	require.Equal(t, Vertex{X: 2, Y: 13, Z: 3}, Lift(Vertex{X: 2, Y: 0, Z: 3}))

	tri := LiftTriangle(Triangle{
		A: Vertex{X: 0, Z: 0},
		B: Vertex{X: 1, Z: 0},
		C: Vertex{X: 0, Z: 2},
	})
	require.Equal(t, 0.0, tri.A.Y)
	require.Equal(t, 1.0, tri.B.Y)
	require.Equal(t, 4.0, tri.C.Y)
}

func TestFingerprint(t *testing.T) {
	a := []Vertex{{X: 0, Y: 0, Z: 0}, {X: 0.4, Y: 0, Z: 0.4}}
	b := []Vertex{{X: 0, Y: 0, Z: 0}, {X: 0.4, Y: 0, Z: 0.4}}
	c := []Vertex{{X: 0.4, Y: 0, Z: 0.4}, {X: 0, Y: 0, Z: 0}}

	require.Equal(t, Fingerprint(a), Fingerprint(b))
	require.NotEqual(t, Fingerprint(a), Fingerprint(c))
	require.NotEqual(t, Fingerprint(a), Fingerprint(nil))
}
