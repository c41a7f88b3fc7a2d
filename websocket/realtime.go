package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/modules"
	"github.com/aukilabs/tessera/protocol"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const (
	msgSessionNotFound = "Session not found."
)

// RealtimeHandler represents a service that answers the clustering and
// meshing requests of a client connection.
type RealtimeHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains all the server sessions.
	Sessions *models.SessionStore

	// The modules that handle the domain messages.
	Modules []modules.Module

	conn           *websocket.Conn
	currentSession *models.ClusterSession

	// Whether the current session was created by this client.
	ownsSession bool

	clientID string
}

// HandleConnect identifies the client and joins the default session.
func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(httpcmn.HeaderPosemeshClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	h.conn = conn
	h.joinSession(h.Sessions.Default(), false)
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	respond.Send(msg, protocol.PingResponse{
		Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

// HandleSessionJoin switches the client to another session. An empty session
// id creates a session that lives as long as the client connection.
func (h *RealtimeHandler) HandleSessionJoin(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.SessionJoinRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.currentSession != nil && h.currentSession.ID == req.SessionID {
		respond.Send(msg, protocol.SessionJoinResponse{
			SessionID: h.currentSession.ID,
		})
		return nil
	}

	if req.SessionID == "" {
		h.leaveSession()
		h.joinSession(h.Sessions.New(), true)
	} else {
		session, ok := h.Sessions.Get(req.SessionID)
		if !ok {
			protocol.SendErrorMessage(respond, msg, protocol.ErrorCodeBadRequest, msgSessionNotFound)
			return nil
		}

		h.leaveSession()
		h.joinSession(session, false)
	}

	respond.Send(msg, protocol.SessionJoinResponse{
		SessionID: h.currentSession.ID,
	})
	return nil
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
	h.leaveSession()
}

func (h *RealtimeHandler) HandleWithModule(ctx context.Context, m modules.Module, respond protocol.ResponseSender, msg protocol.Msg) error {
	if h.CurrentSession() == nil {
		return protocol.ErrModuleMsgSkip
	}

	err := m.HandleMsg(ctx, respond, msg)
	if errors.IsType(err, protocol.ErrTypeMsgSkip) {
		return err
	}
	if err != nil {
		return errors.New("handling message with module failed").
			WithTag("module", m.Name()).
			Wrap(err)
	}
	return nil
}

func (h *RealtimeHandler) Receiver() protocol.Receiver {
	return func() (protocol.Msg, int, error) {
		var b []byte
		if err := websocket.Message.Receive(h.conn, &b); err != nil {
			return protocol.Msg{}, 0, err
		}

		msg, err := protocol.Decode(b)
		return msg, len(b), err
	}
}

func (h *RealtimeHandler) Sender() protocol.Sender {
	return func(msg protocol.Msg) (int, error) {
		b, err := msg.Encode()
		if err != nil {
			return 0, errors.New("encoding message failed").
				WithTag("msg_type", msg.Type).
				Wrap(err)
		}

		if err := websocket.Message.Send(h.conn, string(b)); err != nil {
			return 0, err
		}
		return len(b), nil
	}
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) GetSessions() *models.SessionStore {
	return h.Sessions
}

func (h *RealtimeHandler) GetModules() []modules.Module {
	return h.Modules
}

func (h *RealtimeHandler) CurrentSession() *models.ClusterSession {
	return h.currentSession
}

func (h *RealtimeHandler) GetClientID() string {
	return h.clientID
}

func (h *RealtimeHandler) joinSession(session *models.ClusterSession, owned bool) {
	h.currentSession = session
	h.ownsSession = owned

	for _, m := range h.Modules {
		m.Init(session)
	}
}

func (h *RealtimeHandler) leaveSession() {
	session := h.currentSession
	if session == nil {
		return
	}

	for _, m := range h.Modules {
		m.HandleDisconnect()
	}

	if h.ownsSession {
		h.Sessions.Remove(session.ID)
	}

	h.currentSession = nil
	h.ownsSession = false
}
