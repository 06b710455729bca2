package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"toolgate/internal/domain"
	"toolgate/internal/infra/config"
)

// --- test doubles ---

type testBus struct {
	mu       sync.Mutex
	handlers []domain.EventHandler
}

func (b *testBus) Publish(ctx context.Context, event domain.Event) {
	b.mu.Lock()
	hs := make([]domain.EventHandler, len(b.handlers))
	copy(hs, b.handlers)
	b.mu.Unlock()
	for _, h := range hs {
		h(ctx, event)
	}
}

func (b *testBus) Subscribe(_ domain.EventType, _ domain.EventHandler) func() { return func() {} }

func (b *testBus) SubscribeAll(handler domain.EventHandler) func() {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers = nil
	}
}

func newWSAuth() Authenticator {
	return NewStaticTokenAuth([]config.GatewayTokenEntry{
		{Token: "test-token", Name: "tester", CallerID: 5},
	})
}

func startTestServer(t *testing.T, bus domain.EventBus) *Server {
	t.Helper()
	srv := NewServer(bus, newWSAuth(), ServerOptions{Addr: "127.0.0.1:0"}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	started := make(chan struct{})
	go func() {
		go func() {
			for srv.BoundAddr() == "" {
				time.Sleep(5 * time.Millisecond)
			}
			close(started)
		}()
		_ = srv.Start(ctx)
	}()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("server did not start in time")
	}

	t.Cleanup(func() {
		srv.Stop(context.Background())
	})

	return srv
}

func dialWS(t *testing.T, addr, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, "ws://"+addr+"/ws?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close(websocket.StatusNormalClosure, "") })
	return ws
}

// --- tests ---

func TestServerLifecycle(t *testing.T) {
	srv := startTestServer(t, &testBus{})

	if srv.BoundAddr() == "" {
		t.Fatal("BoundAddr is empty")
	}
}

func TestServerAuthReject(t *testing.T) {
	srv := startTestServer(t, &testBus{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := websocket.Dial(ctx, "ws://"+srv.BoundAddr()+"/ws?token=bad-token", nil)
	if err == nil {
		t.Fatal("expected auth rejection")
	}
}

func TestServerRPCRoundtrip(t *testing.T) {
	srv := startTestServer(t, &testBus{})

	// Echo handler that also reports the ambient caller the connection set.
	srv.RegisterHandler("echo", func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		out := map[string]any{
			"caller_id": domain.CallerIDFromContext(ctx),
			"client":    client.Name,
		}
		return json.Marshal(out)
	})

	ws := dialWS(t, srv.BoundAddr(), "test-token")
	ctx := context.Background()

	req := Frame{
		Type:   FrameTypeRequest,
		ID:     1,
		Method: "echo",
	}
	if err := wsjson.Write(ctx, ws, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp Frame
	if err := wsjson.Read(ctx, ws, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Type != FrameTypeResponse {
		t.Errorf("type = %q", resp.Type)
	}
	if resp.ID != 1 {
		t.Errorf("ID = %d", resp.ID)
	}
	if resp.Error != "" {
		t.Errorf("error = %q", resp.Error)
	}

	var out struct {
		CallerID int64  `json:"caller_id"`
		Client   string `json:"client"`
	}
	if err := json.Unmarshal(resp.Payload, &out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if out.CallerID != 5 {
		t.Errorf("caller_id = %d, want 5", out.CallerID)
	}
	if out.Client != "tester" {
		t.Errorf("client = %q", out.Client)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	srv := startTestServer(t, &testBus{})

	ws := dialWS(t, srv.BoundAddr(), "test-token")
	ctx := context.Background()

	req := Frame{
		Type:   FrameTypeRequest,
		ID:     2,
		Method: "nonexistent",
	}
	if err := wsjson.Write(ctx, ws, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp Frame
	if err := wsjson.Read(ctx, ws, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Error == "" {
		t.Error("expected error for unknown method")
	}
}

func TestServerEventForwarding(t *testing.T) {
	bus := &testBus{}
	srv := startTestServer(t, bus)

	ws := dialWS(t, srv.BoundAddr(), "test-token")

	// Give the connection time to be registered.
	time.Sleep(100 * time.Millisecond)

	bus.Publish(context.Background(), domain.Event{
		Type:      domain.EventAudit,
		Timestamp: time.Now(),
		Payload:   json.RawMessage(`{"type":"tool.request.start"}`),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var frame Frame
	if err := wsjson.Read(ctx, ws, &frame); err != nil {
		t.Fatalf("read event: %v", err)
	}

	if frame.Type != FrameTypeEvent {
		t.Errorf("type = %q, want event", frame.Type)
	}

	var event domain.Event
	if err := json.Unmarshal(frame.Payload, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Type != domain.EventAudit {
		t.Errorf("event type = %q", event.Type)
	}
}
