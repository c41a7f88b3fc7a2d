package clustering

import (
	"github.com/aukilabs/tessera/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	msgTypeLabel   = "msg_type"
	errorCodeLabel = "error_code"
)

var (
	clusteringFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clustering_failures_total",
		Help: "The number of clustering requests answered with an error.",
	}, []string{
		msgTypeLabel,
		errorCodeLabel,
	})

	simplifySkippedClusters = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simplify_skipped_clusters_total",
		Help: "The number of empty clusters skipped by simplification.",
	})
)

func instrumentFailure(msgType protocol.MsgType, err error) {
	clusteringFailures.
		With(prometheus.Labels{
			msgTypeLabel:   string(msgType),
			errorCodeLabel: string(protocol.ErrorCodeFromError(err)),
		}).
		Inc()
}

func instrumentSkippedClusters(n int) {
	simplifySkippedClusters.Add(float64(n))
}
