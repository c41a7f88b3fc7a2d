package protocol

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const (
	// Indicates that a handler did not handle a message.
	ErrTypeMsgSkip = "msg-skip"

	// Indicates that a message could not be decoded.
	ErrTypeMsgDecode = "msg-decode"

	// Indicates that a message requires a joined session.
	ErrTypeSessionNotJoined = "session-not-joined"

	responseSuffix = "_response"
)

// ErrModuleMsgSkip is returned by modules that do not handle a message.
var ErrModuleMsgSkip = errors.New("module skipped message").WithType(ErrTypeMsgSkip)

// MsgType identifies the kind of a message.
type MsgType string

const (
	MsgTypePing             MsgType = "ping"
	MsgTypePong             MsgType = "pong"
	MsgTypeSessionJoin      MsgType = "session_join"
	MsgTypeClusterVertices  MsgType = "cluster_vertices"
	MsgTypeSimplifyClusters MsgType = "simplify_clusters"
	MsgTypeTriangulate      MsgType = "triangulate"
	MsgTypeTetrahedralize   MsgType = "tetrahedralize"
	MsgTypeLift             MsgType = "lift"
	MsgTypeGenerateVertices MsgType = "generate_vertices"
	MsgTypeError            MsgType = "error"
)

// Response returns the type of the message answering t.
func (t MsgType) Response() MsgType {
	if t == MsgTypePing {
		return MsgTypePong
	}
	return t + responseSuffix
}

// Msg is the envelope of every message exchanged over a connection.
type Msg struct {
	Type      MsgType         `json:"type"`
	RequestID uint32          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMsg encodes data into a message of the given type.
func NewMsg(msgType MsgType, requestID uint32, data any) (Msg, error) {
	msg := Msg{
		Type:      msgType,
		RequestID: requestID,
	}
	if data == nil {
		return msg, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithTag("msg_type", msgType).
			Wrap(err)
	}
	msg.Data = b
	return msg, nil
}

// DataTo decodes the message data into v. A message without data leaves v
// untouched.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeMsgDecode).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// Encode returns the wire representation of the message.
func (m Msg) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a message from its wire representation.
func Decode(b []byte) (Msg, error) {
	var msg Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return Msg{}, errors.New("decoding message failed").
			WithType(ErrTypeMsgDecode).
			Wrap(err)
	}

	if msg.Type == "" {
		return Msg{}, errors.New("message has no type").
			WithType(ErrTypeMsgDecode)
	}
	return msg, nil
}

// ResponseSender sends messages to the client that made a request.
type ResponseSender interface {
	// Sends data as the response to the given request.
	Send(req Msg, data any)

	// Sends an already built message.
	SendMsg(Msg)
}

// Receiver receives a message. It returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender sends a message. It returns the number of bytes written.
type Sender func(Msg) (int, error)
