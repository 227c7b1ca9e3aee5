package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lotas/tabpreview/internal/resolver"
	"nhooyr.io/websocket"
)

// fakeExtension answers requests the way the browser extension does.
func fakeExtension(ctx context.Context, conn *websocket.Conn, answer func(OutgoingMsg) IncomingMsg) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req OutgoingMsg
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		resp := answer(req)
		resp.ID = req.ID
		out, _ := json.Marshal(resp)
		if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
			return
		}
	}
}

func TestHostResolvesThroughExtension(t *testing.T) {
	srv := New(0)
	conn, ctx := dialTestServer(t, srv)

	ok := true
	go fakeExtension(ctx, conn, func(req OutgoingMsg) IncomingMsg {
		switch req.Action {
		case ActionQueryActiveTab:
			return IncomingMsg{OK: &ok, Tab: json.RawMessage(`{"id":5,"url":"https://example.com/a","title":"A","favIconUrl":"https://example.com/f.png"}`)}
		case ActionExtractMetadata:
			if req.TabID == nil || *req.TabID != 5 {
				f := false
				return IncomingMsg{OK: &f, Error: "wrong tab"}
			}
			return IncomingMsg{OK: &ok, Metadata: json.RawMessage(`{"url":"https://example.com/a","title":"Page A","description":"About A"}`)}
		}
		f := false
		return IncomingMsg{OK: &f, Error: "unknown action"}
	})

	m, err := resolver.New(NewHost(srv, time.Second)).Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Title != "Page A" || m.Description != "About A" || m.Favicon != "https://example.com/f.png" {
		t.Errorf("got %+v", m)
	}
}

func TestHostFallsBackWhenExtractionRefused(t *testing.T) {
	srv := New(0)
	conn, ctx := dialTestServer(t, srv)

	go fakeExtension(ctx, conn, func(req OutgoingMsg) IncomingMsg {
		if req.Action == ActionQueryActiveTab {
			ok := true
			return IncomingMsg{OK: &ok, Tab: json.RawMessage(`{"id":1,"url":"chrome://settings/","title":"Settings"}`)}
		}
		f := false
		return IncomingMsg{OK: &f, Error: "Cannot access a chrome:// URL"}
	})

	m, err := resolver.New(NewHost(srv, time.Second)).Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.URL != "chrome://settings/" || m.Title != "Settings" || m.Description != "" {
		t.Errorf("got %+v", m)
	}
}

func TestHostNoActiveTab(t *testing.T) {
	srv := New(0)
	conn, ctx := dialTestServer(t, srv)

	go fakeExtension(ctx, conn, func(req OutgoingMsg) IncomingMsg {
		ok := true
		return IncomingMsg{OK: &ok}
	})

	tab, err := NewHost(srv, time.Second).QueryActiveTab(ctx)
	if err != nil || tab != nil {
		t.Errorf("got %+v, %v; want nil, nil", tab, err)
	}
}
