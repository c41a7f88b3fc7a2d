package cluster

// Stats summarizes a clustering result.
type Stats struct {
	TotalClusters             int     `json:"total_clusters"`
	TotalVertices             int     `json:"total_vertices"`
	AverageVerticesPerCluster float64 `json:"average_vertices_per_cluster"`
	LargestClusterSize        int     `json:"largest_cluster_size"`
	SmallestClusterSize       int     `json:"smallest_cluster_size"`
	TotalArea                 float64 `json:"total_area"`
	AverageArea               float64 `json:"average_area"`
}

func ComputeStats(clusters []Cluster) Stats {
	var stats Stats
	if len(clusters) == 0 {
		return stats
	}

	stats.TotalClusters = len(clusters)
	stats.SmallestClusterSize = len(clusters[0].Vertices)

	for _, c := range clusters {
		n := len(c.Vertices)
		stats.TotalVertices += n
		stats.LargestClusterSize = max(stats.LargestClusterSize, n)
		stats.SmallestClusterSize = min(stats.SmallestClusterSize, n)
		stats.TotalArea += c.Bounds.Area()
	}

	stats.AverageVerticesPerCluster = float64(stats.TotalVertices) / float64(stats.TotalClusters)
	stats.AverageArea = stats.TotalArea / float64(stats.TotalClusters)
	return stats
}
