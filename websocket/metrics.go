package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tessera/modules"
	"github.com/aukilabs/tessera/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	errTypeLabel        = "error_type"
	errCodeLabel        = "error_code"
	msgTypeLabel        = "msg_type"
	moduleLabel         = "module"
	publicEndpointLabel = "public_endpoint"

	defaultModule = "tessera"
)

var (
	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected clients.",
	}, []string{
		publicEndpointLabel,
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of messages received from WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})

	wsReceivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_bytes",
		Help: "The number of bytes received from WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})

	wsReceiveError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_receive_errors",
		Help: "The errors that occured while receiving a websocket message.",
	}, []string{
		publicEndpointLabel,
		errTypeLabel,
	})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})

	wsSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending a websocket message.",
	}, []string{
		publicEndpointLabel,
		errTypeLabel,
		msgTypeLabel,
	})

	wsErrorResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_error_responses",
		Help: "The number of error messages sent to clients by error code.",
	}, []string{
		publicEndpointLabel,
		errCodeLabel,
	})

	wsMsgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ws_msg_latency",
		Help: "The time to process a WebSocket msg.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
		moduleLabel,
	})
)

func HandlerWithMetrics(h Handler, publicEndpoint string) Handler {
	return &handlerWithMetrics{
		Handler:        h,
		publicEndpoint: publicEndpoint,
	}
}

type handlerWithMetrics struct {
	Handler

	publicEndpoint string
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	wsConnectedClients.With(h.labels()).Inc()
	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, sender protocol.ResponseSender, msg protocol.Msg) error {
	return h.measureLatency(msg, defaultModule, func() error {
		return h.Handler.HandlePing(ctx, sender, msg)
	})
}

func (h *handlerWithMetrics) HandleSessionJoin(ctx context.Context, sender protocol.ResponseSender, msg protocol.Msg) error {
	return h.measureLatency(msg, defaultModule, func() error {
		return h.Handler.HandleSessionJoin(ctx, sender, msg)
	})
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	wsConnectedClients.With(h.labels()).Dec()
	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) HandleWithModule(ctx context.Context, module modules.Module, sender protocol.ResponseSender, msg protocol.Msg) error {
	return h.measureLatency(msg, module.Name(), func() error {
		return h.Handler.HandleWithModule(ctx, module, sender, msg)
	})
}

func (h *handlerWithMetrics) Receiver() protocol.Receiver {
	receive := h.Handler.Receiver()

	return func() (protocol.Msg, int, error) {
		msg, n, err := receive()
		if err != nil {
			wsReceiveError.With(h.labels(errTypeLabel, errors.Type(err))).Inc()
		} else {
			wsReceivedMsgs.With(h.labels(msgTypeLabel, msg.TypeString())).Inc()
		}

		if n != 0 {
			wsReceivedBytes.
				With(h.labels(msgTypeLabel, msg.TypeString())).
				Add(float64(n))
		}
		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() protocol.Sender {
	sender := h.Handler.Sender()

	return func(msg protocol.Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil {
			wsSendError.
				With(h.labels(msgTypeLabel, msgType, errTypeLabel, errors.Type(err))).
				Inc()
		}
		if n == 0 {
			return n, err
		}

		wsSentMsgs.With(h.labels(msgTypeLabel, msgType)).Inc()
		wsSentBytes.With(h.labels(msgTypeLabel, msgType)).Add(float64(n))

		if msg.Type == protocol.MsgTypeError {
			var res protocol.ErrorResponse
			if msg.DataTo(&res) == nil {
				wsErrorResponses.With(h.labels(errCodeLabel, string(res.Code))).Inc()
			}
		}
		return n, err
	}
}

func (h *handlerWithMetrics) measureLatency(msg protocol.Msg, module string, f func() error) error {
	start := time.Now()

	err := f()
	if errors.IsType(err, protocol.ErrTypeMsgSkip) {
		return err
	}

	wsMsgLatency.
		With(h.labels(msgTypeLabel, msg.TypeString(), moduleLabel, module)).
		Observe(time.Since(start).Seconds())
	return err
}

// labels returns the public endpoint label followed by the given key value
// pairs.
func (h *handlerWithMetrics) labels(kv ...string) prometheus.Labels {
	labels := prometheus.Labels{publicEndpointLabel: h.publicEndpoint}
	for i := 0; i+1 < len(kv); i += 2 {
		labels[kv[i]] = kv[i+1]
	}
	return labels
}
