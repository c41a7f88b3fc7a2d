package smoketest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/tessera/geom"
	"github.com/aukilabs/tessera/protocol"
	twebsocket "github.com/aukilabs/tessera/websocket"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	defaultTimeout = 10 * time.Second
)

type Options struct {
	// The endpoint of this server. Used as the target when a request does not
	// specify one.
	Endpoint string

	UserAgent string

	// Called with the result of each smoke test.
	SendResult func(context.Context, Results) error
}

// Request is the body of a smoke test request.
type Request struct {
	Endpoint string        `json:"endpoint,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Results describes the outcome of a smoke test.
type Results struct {
	FromEndpoint    string  `json:"from_endpoint"`
	ToEndpoint      string  `json:"to_endpoint"`
	Status          string  `json:"status"`
	LatencyMilliSec float64 `json:"latency_ms"`
	Clusters        int     `json:"clusters"`
	Error           string  `json:"error,omitempty"`
}

type testCtxKey string

var testCtxKeyValue testCtxKey = "test-context"

type testContext struct {
	context.Context
	Cancel func()
}

func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("reading body failed").Wrap(err))
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
				return
			}
		}
		if req.Endpoint == "" {
			req.Endpoint = opts.Endpoint
		}
		if req.Timeout <= 0 {
			req.Timeout = defaultTimeout
		}

		go func() {
			defer func() {
				// if context is of testContext
				// cancel context on exit to signal function exited
				// this is used for testing
				if tctx := ctx.Value(testCtxKeyValue); tctx != nil {
					testCtx := tctx.(testContext)
					if testCtx.Cancel != nil {
						testCtx.Cancel()
					}
				}
			}()

			res, err := Run(ctx, opts, req)
			if err != nil {
				logs.WithTag("to_endpoint", req.Endpoint).Warn(err)
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("from_endpoint", opts.Endpoint).
					WithTag("to_endpoint", req.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}

var smokeTestVertices = []geom.Vertex{
	{X: 0, Y: 0, Z: 0},
	{X: 0.4, Y: 0, Z: 0.4},
	{X: 5, Y: 0, Z: 5},
}

// Run connects to the requested endpoint and runs a clustering and
// simplification round trip in a new session.
func Run(ctx context.Context, opts Options, req Request) (Results, error) {
	res := Results{
		FromEndpoint: opts.Endpoint,
		ToEndpoint:   req.Endpoint,
		Status:       StatusFailed,
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	conn, err := dial(req.Endpoint, opts.UserAgent)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	defer conn.Close()

	var clustered protocol.ClusterVerticesResponse
	var simplified protocol.SimplifyClustersResponse

	start := time.Now()
	err = twebsocket.NewScenario(conn).
		Send(protocol.MsgTypeSessionJoin, 1, protocol.SessionJoinRequest{}).
		Receive(
			twebsocket.FilterByRequestID(1),
			twebsocket.FilterByType(protocol.MsgTypeSessionJoin.Response()),
		).
		Send(protocol.MsgTypeClusterVertices, 2, protocol.ClusterVerticesRequest{
			Vertices: smokeTestVertices,
		}).
		Receive(
			twebsocket.FilterByRequestID(2),
			expectType(protocol.MsgTypeClusterVertices.Response()),
			twebsocket.DecodeTo(&clustered),
		).
		SendWith(protocol.MsgTypeSimplifyClusters, 3, func() any {
			return protocol.SimplifyClustersRequest{
				Clusters: clustered.Clusters,
				Mode:     protocol.SimplifyModeClusters,
			}
		}).
		Receive(
			twebsocket.FilterByRequestID(3),
			expectType(protocol.MsgTypeSimplifyClusters.Response()),
			twebsocket.DecodeTo(&simplified),
		).
		Run(ctx)
	if err != nil {
		err = errors.New("smoke test scenario failed").
			WithTag("to_endpoint", req.Endpoint).
			Wrap(err)
		res.Error = err.Error()
		return res, err
	}

	res.Status = StatusSuccess
	res.LatencyMilliSec = float64(time.Since(start).Microseconds()) / 1000
	res.Clusters = len(clustered.Clusters)
	return res, nil
}

// expectType fails on error responses and skips messages of other types.
func expectType(t protocol.MsgType) twebsocket.ReceiveFunc {
	return func(msg protocol.Msg) error {
		if msg.Type == protocol.MsgTypeError {
			var res protocol.ErrorResponse
			msg.DataTo(&res)
			return errors.New("server answered with an error").
				WithTag("code", res.Code).
				WithTag("message", res.Message)
		}
		if msg.Type != t {
			return protocol.ErrModuleMsgSkip
		}
		return nil
	}
}

func dial(endpoint, userAgent string) (*websocket.Conn, error) {
	wsEndpoint := strings.Replace(endpoint, "http", "ws", 1)

	config, err := websocket.NewConfig(wsEndpoint, endpoint)
	if err != nil {
		return nil, errors.New("creating websocket config failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}
	config.Header.Set("User-Agent", userAgent)
	config.Header.Set(httpcmn.HeaderPosemeshClientID, uuid.NewString())

	conn, err := websocket.DialConfig(config)
	if err != nil {
		return nil, errors.New("dialing endpoint failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}
	return conn, nil
}
