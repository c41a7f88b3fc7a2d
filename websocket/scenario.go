package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tessera/protocol"
	"golang.org/x/net/websocket"
)

const (
	defaultScenarioTimeout = 10 * time.Second
)

// ReceiveFunc inspects a message received during a scenario. Returning an
// error typed protocol.ErrTypeMsgSkip makes the scenario wait for the next
// message. Any other error stops the scenario.
type ReceiveFunc func(protocol.Msg) error

// FilterByType skips messages that are not of the given type.
func FilterByType(t protocol.MsgType) ReceiveFunc {
	return func(msg protocol.Msg) error {
		if msg.Type != t {
			return protocol.ErrModuleMsgSkip
		}
		return nil
	}
}

// FilterByRequestID skips messages that do not answer the given request.
func FilterByRequestID(id uint32) ReceiveFunc {
	return func(msg protocol.Msg) error {
		if msg.RequestID != id {
			return protocol.ErrModuleMsgSkip
		}
		return nil
	}
}

// DecodeTo decodes the message data into v.
func DecodeTo(v any) ReceiveFunc {
	return func(msg protocol.Msg) error {
		return msg.DataTo(v)
	}
}

// Scenario is a sequence of messages to send to a server and of messages to
// expect from it.
type Scenario struct {
	conn  *websocket.Conn
	steps []scenarioStep
}

type scenarioStep struct {
	send    func() (protocol.Msg, error)
	receive []ReceiveFunc
}

func NewScenario(conn *websocket.Conn) *Scenario {
	return &Scenario{conn: conn}
}

// Send adds a step that sends a request.
func (s *Scenario) Send(msgType protocol.MsgType, requestID uint32, data any) *Scenario {
	s.steps = append(s.steps, scenarioStep{
		send: func() (protocol.Msg, error) {
			return protocol.NewMsg(msgType, requestID, data)
		},
	})
	return s
}

// SendWith adds a step that sends a request whose data is built when the step
// runs. It lets a request use data decoded by a previous step.
func (s *Scenario) SendWith(msgType protocol.MsgType, requestID uint32, data func() any) *Scenario {
	s.steps = append(s.steps, scenarioStep{
		send: func() (protocol.Msg, error) {
			return protocol.NewMsg(msgType, requestID, data())
		},
	})
	return s
}

// Receive adds a step that waits for a message accepted by all the given
// funcs.
func (s *Scenario) Receive(funcs ...ReceiveFunc) *Scenario {
	s.steps = append(s.steps, scenarioStep{
		receive: funcs,
	})
	return s
}

// Run executes the steps in order. It stops at the first failing step or when
// the context deadline is exceeded.
func (s *Scenario) Run(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultScenarioTimeout)
	}
	s.conn.SetReadDeadline(deadline)
	defer s.conn.SetReadDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for i, step := range s.steps {
		var err error
		if step.send != nil {
			err = s.send(step.send)
		} else {
			err = s.receive(step.receive)
		}

		if err != nil {
			return errors.New("scenario step failed").
				WithTag("step", i).
				Wrap(err)
		}
	}
	return nil
}

func (s *Scenario) send(build func() (protocol.Msg, error)) error {
	msg, err := build()
	if err != nil {
		return err
	}

	b, err := msg.Encode()
	if err != nil {
		return err
	}
	return websocket.Message.Send(s.conn, string(b))
}

func (s *Scenario) receive(funcs []ReceiveFunc) error {
	for {
		var b []byte
		if err := websocket.Message.Receive(s.conn, &b); err != nil {
			return errors.New("receiving message failed").Wrap(err)
		}

		msg, err := protocol.Decode(b)
		if err != nil {
			return err
		}

		skipped, err := accept(funcs, msg)
		if err != nil {
			return err
		}
		if !skipped {
			return nil
		}
	}
}

func accept(funcs []ReceiveFunc, msg protocol.Msg) (bool, error) {
	for _, f := range funcs {
		err := f(msg)
		if errors.IsType(err, protocol.ErrTypeMsgSkip) {
			return true, nil
		}
		if err != nil {
			return false, errors.New("unexpected message").
				WithTag("msg_type", msg.Type).
				WithTag("request_id", msg.RequestID).
				Wrap(err)
		}
	}
	return false, nil
}
