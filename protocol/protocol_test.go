package protocol

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tessera/geom"
	"github.com/aukilabs/tessera/grid"
	"github.com/aukilabs/tessera/mesh"
	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/simplify"
	"github.com/stretchr/testify/require"
)

func TestMsgTypeResponse(t *testing.T) {
	require.Equal(t, MsgTypePong, MsgTypePing.Response())
	require.Equal(t, MsgType("cluster_vertices_response"), MsgTypeClusterVertices.Response())
	require.Equal(t, MsgType("simplify_clusters_response"), MsgTypeSimplifyClusters.Response())
}

func TestDecode(t *testing.T) {
	t.Run("request", func(t *testing.T) {
		msg, err := Decode([]byte(`{
			"type": "cluster_vertices",
			"request_id": 7,
			"data": {"vertices": [{"x": 1, "y": 2, "z": 3}], "grid_size": 0.5}
		}`))
		require.NoError(t, err)
		require.Equal(t, MsgTypeClusterVertices, msg.Type)
		require.Equal(t, uint32(7), msg.RequestID)

		var req ClusterVerticesRequest
		require.NoError(t, msg.DataTo(&req))
		require.Equal(t, []geom.Vertex{{X: 1, Y: 2, Z: 3}}, req.Vertices)
		require.NotNil(t, req.GridSize)
		require.Equal(t, 0.5, *req.GridSize)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":`))
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeMsgDecode))
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := Decode([]byte(`{"request_id": 1}`))
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeMsgDecode))
	})
}

func TestMsgDataTo(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		req := SessionJoinRequest{SessionID: "unchanged"}
		require.NoError(t, Msg{Type: MsgTypeSessionJoin}.DataTo(&req))
		require.Equal(t, "unchanged", req.SessionID)
	})

	t.Run("bad data", func(t *testing.T) {
		var req GenerateVerticesRequest
		err := Msg{Type: MsgTypeGenerateVertices, Data: []byte(`{"count":"many"}`)}.DataTo(&req)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeMsgDecode))
	})
}

func TestNewMsgEncode(t *testing.T) {
	msg, err := NewMsg(MsgTypeSessionJoin.Response(), 3, SessionJoinResponse{SessionID: "abc"})
	require.NoError(t, err)

	b, err := msg.Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "session_join_response",
		"request_id": 3,
		"data": {"session_id": "abc"}
	}`, string(b))

	decoded, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, msg.Type, decoded.Type)
	require.Equal(t, msg.RequestID, decoded.RequestID)
}

func TestNewMsgWithoutData(t *testing.T) {
	msg, err := NewMsg(MsgTypePong, 1, nil)
	require.NoError(t, err)
	require.Empty(t, msg.Data)
	require.Equal(t, "pong", msg.TypeString())
	require.Equal(t, "unknown", Msg{}.TypeString())
}

func TestErrorCodeFromError(t *testing.T) {
	tests := []struct {
		errType string
		code    ErrorCode
	}{
		{grid.ErrTypeInvalidParameter, ErrorCodeInvalidParameter},
		{simplify.ErrTypeEmptyInput, ErrorCodeEmptyInput},
		{models.ErrTypeNoClustererAvailable, ErrorCodeNoClustererAvailable},
		{mesh.ErrTypeUpstreamFailure, ErrorCodeUpstreamFailure},
		{ErrTypeBadRequest, ErrorCodeBadRequest},
		{ErrTypeMsgDecode, ErrorCodeBadRequest},
		{"something-else", ErrorCodeInternal},
	}

	for _, test := range tests {
		t.Run(test.errType, func(t *testing.T) {
			err := errors.New("test").WithType(test.errType)
			require.Equal(t, test.code, ErrorCodeFromError(err))
		})
	}
}

type recordSender struct {
	msgs []Msg
}

func (r *recordSender) Send(req Msg, data any) {
	msg, _ := NewMsg(req.Type.Response(), req.RequestID, data)
	r.msgs = append(r.msgs, msg)
}

func (r *recordSender) SendMsg(msg Msg) {
	r.msgs = append(r.msgs, msg)
}

func TestSendError(t *testing.T) {
	var sender recordSender
	req := Msg{Type: MsgTypeSimplifyClusters, RequestID: 12}

	SendError(&sender, req, errors.New("no index").WithType(models.ErrTypeNoClustererAvailable))
	SendErrorMessage(&sender, req, ErrorCodeEmptyInput, "No clusters provided for simplification")
	require.Len(t, sender.msgs, 2)

	for _, msg := range sender.msgs {
		require.Equal(t, MsgTypeError, msg.Type)
		require.Equal(t, uint32(12), msg.RequestID)
	}

	var res ErrorResponse
	require.NoError(t, sender.msgs[0].DataTo(&res))
	require.Equal(t, ErrorCodeNoClustererAvailable, res.Code)
	require.NotEmpty(t, res.Message)

	require.NoError(t, sender.msgs[1].DataTo(&res))
	require.Equal(t, ErrorCodeEmptyInput, res.Code)
	require.Equal(t, "No clusters provided for simplification", res.Message)
}

func TestNewErrorResponseInvalidParameter(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name: "grid size",
			err: errors.New("grid size must be a positive number").
				WithType(grid.ErrTypeInvalidParameter).
				WithTag("grid_size", -0.5),
			message: "Invalid parameter: grid size must be a positive number (grid size -0.5).",
		},
		{
			name: "wrapped bin size",
			err: errors.New("clustering failed").Wrap(
				errors.New("bin size is too small for the extent of the points").
					WithType(grid.ErrTypeInvalidParameter).
					WithTag("bin_size", 0.001),
			),
			message: "Invalid parameter: bin size is too small for the extent of the points (grid size 0.001).",
		},
		{
			name: "without grid size",
			err: errors.New("weights do not match points").
				WithType(grid.ErrTypeInvalidParameter),
			message: "Invalid parameter: weights do not match points.",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := NewErrorResponse(test.err)
			require.Equal(t, ErrorCodeInvalidParameter, res.Code)
			require.Equal(t, test.message, res.Message)
		})
	}
}

func TestSendErrorInvalidParameter(t *testing.T) {
	var sender recordSender
	req := Msg{Type: MsgTypeClusterVertices, RequestID: 3}

	SendError(&sender, req, errors.New("grid size must be a positive number").
		WithType(grid.ErrTypeInvalidParameter).
		WithTag("grid_size", 0))
	require.Len(t, sender.msgs, 1)

	var res ErrorResponse
	require.NoError(t, sender.msgs[0].DataTo(&res))
	require.Equal(t, ErrorCodeInvalidParameter, res.Code)
	require.Contains(t, res.Message, "grid size 0")
}
