package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/modules"
	"github.com/aukilabs/tessera/protocol"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 64

	msgUnknownType = "Unknown message type."
)

// Handler represents a tessera handler.
type Handler interface {
	// Handles a ping request.
	HandlePing(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a request to join a session.
	HandleSessionJoin(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Handle a message with a module.
	HandleWithModule(ctx context.Context, module modules.Module, respond protocol.ResponseSender, msg protocol.Msg) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() protocol.Receiver

	// Creates a message sender passed in service methods in order to send
	// messages.
	Sender() protocol.Sender

	// Closes the service and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Returns the session store.
	GetSessions() *models.SessionStore

	// Returns the modules.
	GetModules() []modules.Module

	// The currently joined session.
	CurrentSession() *models.ClusterSession

	// Get ClientID
	GetClientID() string
}

// Handle handles the given service.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The tessera handler.
	Handler Handler

	sendChan       chan protocol.Msg
	receiveChan    chan protocol.Msg
	sender         protocol.Sender
	receiver       protocol.Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan protocol.Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan protocol.Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	var responder = responseSender{
		send:    h.send,
		sendMsg: h.sendMsg,
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.disconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", h.Handler.IdleTimeout()))

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				h.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	wg.Wait()
}

func (h *handler) send(req protocol.Msg, data any) {
	msg, err := protocol.NewMsg(req.Type.Response(), req.RequestID, data)
	if err != nil {
		logs.WithTag("msg_type", req.Type).
			WithClientID(h.Handler.GetClientID()).
			Debug(err)
		return
	}
	h.sendChan <- msg
}

func (h *handler) sendMsg(msg protocol.Msg) {
	h.sendChan <- msg
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			msg, _, err := h.receiver()
			if err != nil {
				h.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}

			select {
			case <-ctx.Done():
				return
			case h.receiveChan <- msg:
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg protocol.Msg, responder protocol.ResponseSender) error {
	switch msg.Type {
	case protocol.MsgTypePing:
		return h.Handler.HandlePing(ctx, responder, msg)

	case protocol.MsgTypeSessionJoin:
		return h.Handler.HandleSessionJoin(ctx, responder, msg)
	}

	if h.Handler.CurrentSession() == nil {
		return errors.New("session not joined").
			WithType(protocol.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	var handled bool
	for _, m := range h.Handler.GetModules() {
		err := h.Handler.HandleWithModule(ctx, m, responder, msg)
		if errors.IsType(err, protocol.ErrTypeMsgSkip) {
			continue
		}
		if err != nil {
			return err
		}
		handled = true
	}

	if !handled {
		protocol.SendErrorMessage(responder, msg, protocol.ErrorCodeBadRequest, msgUnknownType)
	}
	return nil
}

func (h *handler) disconnect(err error) {
	h.disconnectChan <- err
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	send    func(protocol.Msg, any)
	sendMsg func(protocol.Msg)
}

func (r responseSender) Send(req protocol.Msg, data any) {
	r.send(req, data)
}

func (r responseSender) SendMsg(msg protocol.Msg) {
	r.sendMsg(msg)
}
