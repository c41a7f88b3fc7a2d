package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

// newTestEnv serves a fresh handler per connection and dials two clients.
// Logs go to t until the returned func closes the environment.
func newTestEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	var mutex sync.Mutex
	closed := false

	errors.Encoder = json.Marshal
	logs.SetIndentEncoder()
	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()
		if !closed {
			t.Log(e)
		}
	})

	server := httptest.NewServer(websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := newHandler()
			defer h.Close()
			Handle(context.Background(), conn, h)
		},
	})

	dial := func() *websocket.Conn {
		config, err := websocket.NewConfig("ws"+strings.TrimPrefix(server.URL, "http"), server.URL)
		require.NoError(t, err)
		config.Header.Set(httpcmn.HeaderPosemeshClientID, uuid.NewString())

		conn, err := websocket.DialConfig(config)
		require.NoError(t, err)
		return conn
	}

	clientA, clientB := dial(), dial()
	return clientA, clientB, func() {
		mutex.Lock()
		closed = true
		mutex.Unlock()

		clientA.Close()
		clientB.Close()
		server.Close()
	}
}
