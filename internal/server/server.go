package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lotas/tabpreview/internal/applog"
	"nhooyr.io/websocket"
)

// ErrNotConnected is returned when a request is made with no extension
// connected.
var ErrNotConnected = errors.New("extension not connected")

// IncomingMsg is a message from the extension. Responses carry the ID of
// the request they answer; events carry a Type.
type IncomingMsg struct {
	Type  string `json:"type,omitempty"`
	TabID int    `json:"tabId,omitempty"`
	// Response fields
	ID       string          `json:"id,omitempty"`
	OK       *bool           `json:"ok,omitempty"`
	Error    string          `json:"error,omitempty"`
	Tab      json.RawMessage `json:"tab,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// OutgoingMsg is a request to the extension.
type OutgoingMsg struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	TabID  *int   `json:"tabId,omitempty"`
}

// Server manages the WebSocket connection to the extension.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	connCh  chan struct{}
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	pending map[string]chan IncomingMsg
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port:    port,
		msgs:    make(chan IncomingMsg, 64),
		connCh:  make(chan struct{}, 1),
		pending: make(map[string]chan IncomingMsg),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of unsolicited events from the extension.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// WaitConnected blocks until an extension connects or ctx is done.
func (s *Server) WaitConnected(ctx context.Context) error {
	for {
		if s.Connected() {
			return nil
		}
		select {
		case <-s.connCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send writes a message to the connected extension.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn := s.conn
	ctx := s.connCtx
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	applog.Info("ws.send", "action", msg.Action, "id", msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Request sends msg with a fresh ID and waits for the matching response.
func (s *Server) Request(ctx context.Context, msg OutgoingMsg) (IncomingMsg, error) {
	msg.ID = uuid.NewString()
	ch := make(chan IncomingMsg, 1)

	s.mu.Lock()
	s.pending[msg.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.Send(msg); err != nil {
		return IncomingMsg{}, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		applog.Error("ws.timeout", ctx.Err(), "action", msg.Action, "id", msg.ID)
		return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, ctx.Err())
	}
}

// deliver routes a response to its waiting request. It reports false for
// messages that no request is waiting for.
func (s *Server) deliver(msg IncomingMsg) bool {
	if msg.ID == "" || msg.OK == nil {
		return false
	}
	s.mu.Lock()
	ch, ok := s.pending[msg.ID]
	s.mu.Unlock()
	if !ok {
		applog.Info("ws.orphan", "id", msg.ID)
		return true
	}
	select {
	case ch <- msg:
	default:
	}
	return true
}

// failPending answers every outstanding request with a disconnect error.
func (s *Server) failPending() {
	f := false
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.pending {
		select {
		case ch <- IncomingMsg{ID: id, OK: &f, Error: ErrNotConnected.Error()}:
		default:
		}
	}
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(1 << 20)

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced")
			s.conn.CloseNow()
		}
		s.conn = conn
		s.connCtx = ctx
		s.mu.Unlock()

		select {
		case s.connCh <- struct{}{}:
		default:
		}
		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			current := s.conn == conn
			if current {
				s.conn = nil
				s.connCtx = nil
			}
			s.mu.Unlock()
			if current {
				s.failPending()
			}
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			if s.deliver(msg) {
				continue
			}
			applog.Info("ws.recv", "type", msg.Type)
			select {
			case s.msgs <- msg:
			default:
			}
		}
	})
}

// Routes mounts the WebSocket endpoint at / and a health check at /healthz.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"connected": s.Connected()})
	})
	r.Handle("/", s.Handler())
	return r
}

// ListenAndServe starts the server on 127.0.0.1 at the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: s.Routes()}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	return srv.ListenAndServe()
}
