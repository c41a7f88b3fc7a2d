package featureflag

type Flag string

const (
	FlagInvalidateOnVertexChange Flag = "INVALIDATE_ON_VERTEX_CHANGE"
	FlagDisableClusterRectangles Flag = "DISABLE_CLUSTER_RECTANGLES"
	FlagDisableSimplifyWeights   Flag = "DISABLE_SIMPLIFY_WEIGHTS"
	FlagDisableMeshing           Flag = "DISABLE_MESHING"
)
