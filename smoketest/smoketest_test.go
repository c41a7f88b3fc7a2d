package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/modules"
	"github.com/aukilabs/tessera/modules/clustering"
	twebsocket "github.com/aukilabs/tessera/websocket"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTesseraServer(t *testing.T) *httptest.Server {
	sessions := &models.SessionStore{}

	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := &twebsocket.RealtimeHandler{
				ClientIdleTimeout: time.Minute,
				Sessions:          sessions,
				Modules: []modules.Module{
					&clustering.Module{DefaultGridSize: 1},
				},
			}
			defer h.Close()

			twebsocket.Handle(context.Background(), conn, h)
		},
	})
	t.Cleanup(server.Close)
	return server
}

func runSmokeTest(t *testing.T, endpoint string) (Results, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ctx = context.WithValue(ctx, testCtxKeyValue, testContext{
		Context: ctx,
		Cancel:  cancel,
	})

	var res Results
	var gotResult bool
	smokeTest := HandleSmokeTest(ctx, Options{
		Endpoint:  "http://localtessera",
		UserAgent: "smoke-test",
		SendResult: func(_ context.Context, r Results) error {
			res = r
			gotResult = true
			return nil
		},
	})

	body, err := json.Marshal(Request{
		Endpoint: endpoint,
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "http://localtessera", bytes.NewBuffer(body))

	smokeTest.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	<-ctx.Done()
	return res, gotResult
}

func TestSmokeTest(t *testing.T) {
	t.Run("smoke test success", func(t *testing.T) {
		server := newTesseraServer(t)

		res, ok := runSmokeTest(t, server.URL)
		require.True(t, ok)
		require.Equal(t, "http://localtessera", res.FromEndpoint)
		require.Equal(t, server.URL, res.ToEndpoint)
		require.Equal(t, StatusSuccess, res.Status)
		require.Equal(t, 2, res.Clusters)
		require.Greater(t, res.LatencyMilliSec, float64(0))
		require.Empty(t, res.Error)
	})

	t.Run("smoke test failed - offline", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		offline := server.URL
		server.Close()

		res, ok := runSmokeTest(t, offline)
		require.True(t, ok)
		require.Equal(t, offline, res.ToEndpoint)
		require.Equal(t, StatusFailed, res.Status)
		require.Zero(t, res.LatencyMilliSec)
		require.NotEmpty(t, res.Error)
	})

	t.Run("bad request", func(t *testing.T) {
		smokeTest := HandleSmokeTest(context.Background(), Options{
			SendResult: func(context.Context, Results) error {
				return nil
			},
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "http://localtessera", bytes.NewBufferString("{"))

		smokeTest.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
