package models

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	cacheResultLabel = "result"

	cacheResultHit  = "hit"
	cacheResultMiss = "miss"
)

var (
	clusterSessionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cluster_session_count",
		Help: "The number of cluster sessions.",
	})

	clusterSessionCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cluster_session_count_total",
		Help: "The total number of cluster sessions.",
	})

	clusterCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cluster_cache_lookups_total",
		Help: "The number of clustering requests by grid index cache result.",
	}, []string{cacheResultLabel})

	gridIndexBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "grid_index_build_latency",
		Help: "The time to build a grid index.",
	})
)

func instrumentIncreaseSessionGauge() {
	clusterSessionCount.Inc()
}

func instrumentDecreaseSessionGauge() {
	clusterSessionCount.Dec()
}

func instrumentCountSession() {
	clusterSessionCountTotal.Inc()
}

func instrumentClusterCache(hit bool) {
	result := cacheResultMiss
	if hit {
		result = cacheResultHit
	}

	clusterCacheLookups.
		With(prometheus.Labels{cacheResultLabel: result}).
		Inc()
}

func instrumentIndexBuild(d time.Duration) {
	gridIndexBuildLatency.Observe(d.Seconds())
}
