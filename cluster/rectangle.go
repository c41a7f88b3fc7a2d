package cluster

import (
	"fmt"
	"hash/fnv"
	"math"
)

const (
	goldenRatioConjugate = 0.618033988749895

	rectangleSaturation = 0.65
	rectangleLightness  = 0.55
)

// Rectangle is the display outline of a cluster.
type Rectangle struct {
	ID          string `json:"id"`
	Bounds      Bounds `json:"bounds"`
	VertexCount int    `json:"vertex_count"`
	Color       string `json:"color"`
}

// Rectangles returns one outline per cluster, in cluster order.
func Rectangles(clusters []Cluster) []Rectangle {
	rects := make([]Rectangle, len(clusters))
	for i, c := range clusters {
		rects[i] = Rectangle{
			ID:          c.ID,
			Bounds:      c.Bounds,
			VertexCount: len(c.Vertices),
			Color:       Color(c.ID),
		}
	}
	return rects
}

// Color returns the display color of a cluster as #rrggbb. The same id always
// yields the same color.
func Color(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))

	hue := math.Mod(float64(h.Sum32())*goldenRatioConjugate, 1)
	r, g, b := hslToRGB(hue, rectangleSaturation, rectangleLightness)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	return channel(p, q, h+1.0/3), channel(p, q, h), channel(p, q, h-1.0/3)
}

func channel(p, q, t float64) uint8 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}

	var v float64
	switch {
	case t < 1.0/6:
		v = p + (q-p)*6*t
	case t < 0.5:
		v = q
	case t < 2.0/3:
		v = p + (q-p)*(2.0/3-t)*6
	default:
		v = p
	}
	return uint8(math.Round(v * 255))
}
