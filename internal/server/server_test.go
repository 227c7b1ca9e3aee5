package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func dialTestServer(t *testing.T, srv *Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	if err := srv.WaitConnected(ctx); err != nil {
		t.Fatalf("wait connected: %v", err)
	}
	return conn, ctx
}

func TestServerForwardsEvents(t *testing.T) {
	srv := New(0) // port 0 = pick any free port
	conn, ctx := dialTestServer(t, srv)

	data, _ := json.Marshal(IncomingMsg{Type: EventTabActivated, TabID: 4})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case msg := <-srv.Messages():
		if msg.Type != EventTabActivated || msg.TabID != 4 {
			t.Errorf("got %+v, want tab.activated for tab 4", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestServerRequestResponse(t *testing.T) {
	srv := New(0)
	conn, ctx := dialTestServer(t, srv)

	go func() {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req OutgoingMsg
		json.Unmarshal(data, &req)
		ok := true
		resp, _ := json.Marshal(IncomingMsg{ID: req.ID, OK: &ok, Tab: json.RawMessage(`{"id":9}`)})
		conn.Write(ctx, websocket.MessageText, resp)
	}()

	resp, err := srv.Request(ctx, OutgoingMsg{Action: ActionQueryActiveTab})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.OK == nil || !*resp.OK || string(resp.Tab) != `{"id":9}` {
		t.Errorf("unexpected response %+v", resp)
	}

	// Responses are never forwarded as events.
	select {
	case msg := <-srv.Messages():
		t.Errorf("response leaked to Messages(): %+v", msg)
	default:
	}
}

func TestServerRequestNotConnected(t *testing.T) {
	srv := New(0)
	_, err := srv.Request(context.Background(), OutgoingMsg{Action: ActionQueryActiveTab})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestServerRequestTimeout(t *testing.T) {
	srv := New(0)
	_, ctx := dialTestServer(t, srv)

	reqCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := srv.Request(reqCtx, OutgoingMsg{Action: ActionQueryActiveTab})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestHealthz(t *testing.T) {
	srv := New(0)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["connected"] {
		t.Error("connected = true with no extension")
	}
}
