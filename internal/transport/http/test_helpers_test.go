package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/config"
	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/log"
	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/service/messaging"
	"github.com/vovakirdan/pairchat/internal/store/sqlite"
)

type testEnv struct {
	ts       *httptest.Server
	auth     *auth.Service
	registry *core.Registry
}

// newTestEnv wires the full server over an in-memory SQLite store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.InboundPerMinute = 0

	logger := log.Nop()
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	registry := core.NewRegistry()
	router := core.NewRouter(registry, logger)
	gateway := messaging.New(st, router, logger)

	server := NewServer(router, authService, gateway, &cfg, logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, auth: authService, registry: registry}
}

// user registers a user and returns its id and token.
func (e *testEnv) user(t *testing.T, name string) (string, string) {
	t.Helper()
	token, err := e.auth.Register(context.Background(), name, "password123")
	require.NoError(t, err)
	claims, err := e.auth.ValidateToken(token)
	require.NoError(t, err)
	return claims.UserID, token
}

// do sends a JSON request and decodes the response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// dial opens a push connection and completes setup.
func (e *testEnv) dial(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	send(t, ctx, conn, proto.InboundTypeSetup, proto.SetupData{Token: token})
	env := readEvent(t, ctx, conn, proto.EventConnected)
	var data proto.ConnectedData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.ConnectionID)
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, kind string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: kind, Data: raw}))
}

// readEvent reads frames until the named event arrives.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) proto.Envelope {
	t.Helper()
	for {
		var env proto.Envelope
		require.NoError(t, wsjson.Read(ctx, conn, &env))
		if env.Type == proto.OutboundTypeEvent && env.Event == event {
			return env
		}
	}
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.Envelope {
	t.Helper()
	var env proto.Envelope
	require.NoError(t, wsjson.Read(ctx, conn, &env))
	return env
}

// eventually polls cond until it holds.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}
