package meshing

import (
	"github.com/aukilabs/tessera/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	msgTypeLabel = "msg_type"
)

var (
	meshFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_failures_total",
		Help: "The number of meshing requests that produced no mesh.",
	}, []string{msgTypeLabel})
)

func instrumentMeshFailure(msgType protocol.MsgType) {
	meshFailures.
		With(prometheus.Labels{msgTypeLabel: string(msgType)}).
		Inc()
}
