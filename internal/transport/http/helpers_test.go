package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/auth"
	"github.com/vovakirdan/channelhub/internal/channels"
	"github.com/vovakirdan/channelhub/internal/config"
	"github.com/vovakirdan/channelhub/internal/core"
	"github.com/vovakirdan/channelhub/internal/proto"
	"github.com/vovakirdan/channelhub/internal/store/sqlite"
)

type testServer struct {
	ts   *httptest.Server
	auth *auth.Service
	hub  *core.Hub
}

// startTestServer wires the full stack over an in-memory store.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.ReadHeaderTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.Nop()
	authService := auth.NewService(st, auth.JWTConfigFrom(&cfg))
	channelSvc := channels.New(st, channels.Options{KickThreshold: cfg.KickThreshold, HistoryLimit: cfg.HistoryLimit}, &logger)
	hub := core.NewHub(channelSvc, core.Options{TypingTTL: cfg.TypingTTL}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, authService, channelSvc, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(cancel)

	return &testServer{ts: ts, auth: authService, hub: hub}
}

func (s *testServer) wsURL() string {
	return strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws"
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()

	token, err := s.auth.Register(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return token
}

// dialHello connects and authenticates with a hello frame.
func (s *testServer) dialHello(ctx context.Context, t *testing.T, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, s.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	send(ctx, t, conn, proto.InboundTypeHello, "", proto.HelloData{Token: token})
	readEvent(ctx, t, conn, "user:list")
	return conn
}

type frame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	Error   *proto.Error    `json:"error"`
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ, channel string, data any) {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		raw = b
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Channel: channel, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readEvent reads frames until one named name arrives. The name "error"
// matches protocol-level error frames.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, name string) frame {
	t.Helper()

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("waiting for %s: %v", name, err)
		}
		if f.Event == name || (name == proto.OutboundTypeError && f.Type == proto.OutboundTypeError) {
			return f
		}
	}
}
