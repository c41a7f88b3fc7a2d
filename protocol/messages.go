package protocol

import (
	"github.com/aukilabs/tessera/cluster"
	"github.com/aukilabs/tessera/geom"
)

type PingResponse struct {
	Timestamp int64 `json:"timestamp"`
}

type SessionJoinRequest struct {
	// The session to join. Empty joins a new session.
	SessionID string `json:"session_id,omitempty"`
}

type SessionJoinResponse struct {
	SessionID string `json:"session_id"`
}

type ClusterVerticesRequest struct {
	Vertices []geom.Vertex `json:"vertices"`

	// The bin size of the grid. Omitted uses the server default.
	GridSize *float64 `json:"grid_size,omitempty"`
}

type ClusterVerticesResponse struct {
	Clusters          []cluster.Cluster   `json:"clusters"`
	ClusterRectangles []cluster.Rectangle `json:"cluster_rectangles"`
	Stats             cluster.Stats       `json:"stats"`
	CacheHit          bool                `json:"cache_hit"`
}

// Simplification modes.
const (
	// Simplify the grid index cached by the last clustering of the session.
	SimplifyModeSession = "session"

	// Simplify the clusters given in the request.
	SimplifyModeClusters = "clusters"
)

type SimplifyClustersRequest struct {
	Clusters []cluster.Cluster `json:"clusters"`
	Mode     string            `json:"mode,omitempty"`
}

type SimplifyClustersResponse struct {
	SimplifiedVertices []geom.Vertex `json:"simplified_vertices"`
	Weights            []float64     `json:"weights,omitempty"`
	SkippedClusterIDs  []string      `json:"skipped_cluster_ids,omitempty"`
}

type TriangulateRequest struct {
	Vertices []geom.Vertex `json:"vertices"`
	Epsilon  float64       `json:"epsilon"`
}

type TriangulateResponse struct {
	Triangles []geom.Triangle `json:"triangles"`
	Vertices  []geom.Vertex   `json:"vertices"`
}

type TetrahedralizeRequest struct {
	Vertices []geom.Vertex `json:"vertices"`
	Epsilon  float64       `json:"epsilon"`
}

type TetrahedralizeResponse struct {
	Tetrahedra []geom.Tetrahedron `json:"tetrahedra"`
	Vertices   []geom.Vertex      `json:"vertices"`
}

type LiftRequest struct {
	Vertices  []geom.Vertex   `json:"vertices"`
	Triangles []geom.Triangle `json:"triangles"`
}

type LiftResponse struct {
	Vertices  []geom.Vertex   `json:"vertices"`
	Triangles []geom.Triangle `json:"triangles"`
}

type GenerateVerticesRequest struct {
	Count     int    `json:"count"`
	Dimension string `json:"dimension"`
}

type GenerateVerticesResponse struct {
	Vertices []geom.Vertex `json:"vertices"`
}

type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
