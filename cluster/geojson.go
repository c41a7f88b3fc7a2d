package cluster

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection exports the cluster cells as closed polygons on the (x, z)
// plane.
func FeatureCollection(clusters []Cluster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, c := range clusters {
		b := c.Bounds
		ring := orb.Ring{
			{b.BottomLeft.X, b.BottomLeft.Z},
			{b.BottomRight.X, b.BottomRight.Z},
			{b.TopRight.X, b.TopRight.Z},
			{b.TopLeft.X, b.TopLeft.Z},
			{b.BottomLeft.X, b.BottomLeft.Z},
		}

		feature := geojson.NewFeature(orb.Polygon{ring})
		feature.ID = c.ID
		feature.Properties = geojson.Properties{
			"id":           c.ID,
			"vertex_count": len(c.Vertices),
			"color":        Color(c.ID),
		}
		fc.Append(feature)
	}

	return fc
}
