package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/tessera/protocol"
	"golang.org/x/net/websocket"
)

func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	originalRequest *http.Request

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int

	sessionMutex sync.Mutex
	sessionID    string
}

type httpHeaders struct {
	UserAgent               string `json:"user_agent,omitempty"`
	XForwardedFor           string `json:"x_forwarded_for,omitempty"`
	CloudFrontCountryName   string `json:"cloudfront_viewer_country,omitempty"`
	CloudFrontViewerAddress string `json:"cloudfront_viewer_address,omitempty"`
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	h.originalRequest = conn.Request()
	h.updateSessionID()

	logs.WithClientID(h.GetClientID()).
		WithTag(logs.SessionIDTag, h.currentSessionID()).
		WithTag("http_headers", h.httpHeaders()).
		Info("new client is connected")
}

func (h *handlerWithLogs) HandleSessionJoin(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	previousSessionID := h.currentSessionID()

	if err := h.Handler.HandleSessionJoin(ctx, respond, msg); err != nil {
		return err
	}
	h.updateSessionID()

	if h.currentSessionID() == previousSessionID {
		var req protocol.SessionJoinRequest
		// Check for error here is unecessary since it would never go here
		// if the request parsing failed in h.Handler.HandleSessionJoin.
		msg.DataTo(&req)

		if req.SessionID == previousSessionID {
			return nil
		}

		logs.WithClientID(h.GetClientID()).
			WithTag(logs.SessionIDTag, req.SessionID).
			WithTag("request_id", msg.RequestID).
			Info("client failed to join a session")
		return nil
	}

	logs.WithClientID(h.GetClientID()).
		WithTag(logs.SessionIDTag, h.currentSessionID()).
		WithTag("previous_session_id", previousSessionID).
		WithTag("request_id", msg.RequestID).
		Info("client joined a session")
	return nil
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	entry := logs.WithClientID(h.GetClientID()).
		WithTag(logs.SessionIDTag, h.currentSessionID())
	if err != nil {
		entry = entry.WithTag("reason", err.Error())
	}
	entry.Info("client disconnected")
}

func (h *handlerWithLogs) Receiver() protocol.Receiver {
	receive := h.Handler.Receiver()

	return func() (protocol.Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			logs.WithClientID(h.GetClientID()).
				WithTag(logs.SessionIDTag, h.currentSessionID()).
				Error(errors.New("receiving message failed").Wrap(err))
		} else if err == nil {
			logs.WithClientID(h.GetClientID()).
				WithTag(logs.SessionIDTag, h.currentSessionID()).
				WithTag("msg_type", msg.TypeString()).
				WithTag("request_id", msg.RequestID).
				Debug("message received")
			h.incCounter(msg.TypeString())
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() protocol.Sender {
	sender := h.Handler.Sender()

	return func(msg protocol.Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			logs.WithClientID(h.GetClientID()).
				WithTag(logs.SessionIDTag, h.currentSessionID()).
				WithTag("msg_type", msgType).
				Error(errors.New("sending message failed").Wrap(err))
		} else if err == nil {
			logs.WithClientID(h.GetClientID()).
				WithTag(logs.SessionIDTag, h.currentSessionID()).
				WithTag("msg_type", msgType).
				WithTag("request_id", msg.RequestID).
				Debug("message sent")
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) httpHeaders() httpHeaders {
	if h.originalRequest == nil {
		return httpHeaders{}
	}

	return httpHeaders{
		UserAgent:               h.originalRequest.UserAgent(),
		XForwardedFor:           h.originalRequest.Header.Get(httpcmn.XForwardedForHeaderKey),
		CloudFrontCountryName:   h.originalRequest.Header.Get(httpcmn.CloudFrontCountryNameHeaderKey),
		CloudFrontViewerAddress: h.originalRequest.Header.Get(httpcmn.CloudFrontViewerAddressHeaderKey),
	}
}

func (h *handlerWithLogs) updateSessionID() {
	var id string
	if session := h.CurrentSession(); session != nil {
		id = session.ID
	}

	h.sessionMutex.Lock()
	defer h.sessionMutex.Unlock()
	h.sessionID = id
}

// The receive and send goroutines read the session id while the handler loop
// updates it.
func (h *handlerWithLogs) currentSessionID() string {
	h.sessionMutex.Lock()
	defer h.sessionMutex.Unlock()
	return h.sessionID
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(msgType string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[msgType]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.
		WithClientID(h.GetClientID()).
		WithTag(logs.SessionIDTag, h.currentSessionID()).
		WithTag("time_interval", h.summaryInterval)

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("inbound message summary")
}
