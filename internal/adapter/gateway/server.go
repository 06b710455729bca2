package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"toolgate/internal/domain"
	"toolgate/internal/infra/middleware"
)

// RPCHandler handles a single RPC method call.
type RPCHandler func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error)

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	info      *ClientInfo
	ws        *websocket.Conn
	sendCh    chan Frame // buffered outbound queue
	done      chan struct{}
	closeOnce sync.Once
}

// ServerOptions carries the listener-level settings.
type ServerOptions struct {
	Addr           string
	RequestsPerMin int
	Burst          int
	TrustedProxies []string
}

// Server is the WebSocket gateway that exposes RPC methods and forwards
// audit and pack events to connected clients.
type Server struct {
	bus        domain.EventBus
	clients    sync.Map // connID (uint64) -> *clientConn
	auth       Authenticator
	handlersMu sync.RWMutex
	handlers   map[string]RPCHandler
	logger     *slog.Logger
	opts       ServerOptions
	httpSrv    *http.Server
	boundAddr  string
	nextID     atomic.Uint64
	unsubAll   func()
}

// NewServer creates a gateway server. bus may be nil; event forwarding is
// then disabled.
func NewServer(bus domain.EventBus, auth Authenticator, opts ServerOptions, logger *slog.Logger) *Server {
	return &Server{
		bus:      bus,
		auth:     auth,
		handlers: make(map[string]RPCHandler),
		logger:   logger,
		opts:     opts,
	}
}

// RegisterHandler adds an RPC handler for the given method name.
// Safe to call concurrently with active connections.
func (s *Server) RegisterHandler(method string, handler RPCHandler) {
	s.handlersMu.Lock()
	s.handlers[method] = handler
	s.handlersMu.Unlock()
}

// Start begins accepting WebSocket connections. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)

	var handler http.Handler = mux
	if s.opts.RequestsPerMin > 0 {
		limit := middleware.RateLimit(ctx, middleware.RateLimitConfig{
			RequestsPerMin: s.opts.RequestsPerMin,
			BurstSize:      s.opts.Burst,
			TrustedProxies: s.opts.TrustedProxies,
		})
		handler = limit(handler)
	}
	handler = middleware.SecurityHeaders(handler)

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()

	s.httpSrv = &http.Server{Handler: handler}

	// Subscribe to all events and forward to connected clients.
	if s.bus != nil {
		s.unsubAll = s.bus.SubscribeAll(func(_ context.Context, event domain.Event) {
			payload, err := json.Marshal(event)
			if err != nil {
				return
			}
			frame := Frame{
				Type:    FrameTypeEvent,
				Payload: payload,
			}
			s.clients.Range(func(_, value any) bool {
				cc := value.(*clientConn)
				select {
				case cc.sendCh <- frame:
				default:
					s.logger.Warn("gateway: dropped event for slow client")
				}
				return true
			})
		})
	}

	s.logger.Info("gateway started", "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the gateway server.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubAll != nil {
		s.unsubAll()
	}

	s.clients.Range(func(key, value any) bool {
		cc := value.(*clientConn)
		cc.closeOnce.Do(func() { close(cc.done) })
		cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})

	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// BoundAddr returns the actual address the server bound to. Only valid after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	// Authenticate via query param.
	token := r.URL.Query().Get("token")
	clientInfo, err := s.auth.Authenticate(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	connID := s.nextID.Add(1)
	cc := &clientConn{
		info:   clientInfo,
		ws:     ws,
		sendCh: make(chan Frame, 64),
		done:   make(chan struct{}),
	}
	s.clients.Store(connID, cc)

	s.logger.Info("gateway client connected",
		"conn_id", connID, "client", clientInfo.Name, "caller_id", clientInfo.CallerID)

	go s.writeLoop(cc)

	// Read loop (blocking).
	s.readLoop(r.Context(), cc)

	cc.closeOnce.Do(func() { close(cc.done) })
	s.clients.Delete(connID)
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("gateway client disconnected", "conn_id", connID)
}

func (s *Server) readLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		default:
		}

		var frame Frame
		err := wsjson.Read(ctx, cc.ws, &frame)
		if err != nil {
			return // connection closed or error
		}

		if frame.Type != FrameTypeRequest {
			continue
		}

		go s.dispatchRPC(ctx, cc, frame)
	}
}

func (s *Server) writeLoop(cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case frame := <-cc.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, cc.ws, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatchRPC(ctx context.Context, cc *clientConn, req Frame) {
	s.handlersMu.RLock()
	handler, ok := s.handlers[req.Method]
	s.handlersMu.RUnlock()
	if !ok {
		s.sendResponse(cc, req.ID, nil, domain.ErrRPCMethodNotFound)
		return
	}

	// Make the connection's caller identity ambient for the router.
	if cc.info.CallerID > 0 {
		ctx = domain.ContextWithCallerID(ctx, cc.info.CallerID)
	}

	result, err := handler(ctx, cc.info, req.Payload)
	s.sendResponse(cc, req.ID, result, err)
}

func (s *Server) sendResponse(cc *clientConn, id uint64, result json.RawMessage, err error) {
	resp := Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		Payload: result,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	select {
	case cc.sendCh <- resp:
	default:
		s.logger.Warn("gateway: dropped RPC response for slow client", "frame_id", id)
	}
}
