// Package cdp is a TabHost for a Chromium browser started with
// --remote-debugging-port. The extraction routine runs in the page over
// the DevTools protocol; DevTools reports no favicon, so resolved records
// from this host use the placeholder.
package cdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/lotas/tabpreview/internal/applog"
	"github.com/lotas/tabpreview/internal/extract"
	"github.com/lotas/tabpreview/internal/types"
	"github.com/ysmood/gson"
)

const visibilityScript = `() => document.visibilityState`

// Host connects lazily to the DevTools endpoint on first use.
type Host struct {
	endpoint string
	timeout  time.Duration

	mu      sync.Mutex
	browser *rod.Browser
	ws      *cdp.WebSocket
}

// NewHost returns a Host for a DevTools endpoint such as
// http://127.0.0.1:9222 or a ws:// browser URL.
func NewHost(endpoint string, timeout time.Duration) *Host {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Host{endpoint: endpoint, timeout: timeout}
}

func (h *Host) connect(ctx context.Context) (*rod.Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser != nil {
		return h.browser, nil
	}

	wsURL, err := launcher.ResolveURL(h.endpoint)
	if err != nil {
		return nil, fmt.Errorf("cdp: resolve %s: %w", h.endpoint, err)
	}
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, wsURL, nil); err != nil {
		return nil, fmt.Errorf("cdp: dial: %w", err)
	}
	// Each call bounds itself with Context; the connection is long-lived.
	b := rod.New().Client(cdp.New().Start(ws))
	if err := b.Connect(); err != nil {
		ws.Close()
		return nil, fmt.Errorf("cdp: connect: %w", err)
	}
	applog.Info("cdp.connected", "url", wsURL)
	h.browser, h.ws = b, ws
	return b, nil
}

// Close drops the DevTools connection. The browser itself keeps running.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ws == nil {
		return nil
	}
	// Browser.Close would quit Chromium, so only the socket is closed.
	err := h.ws.Close()
	h.browser, h.ws = nil, nil
	return err
}

// QueryActiveTab returns the first visible page target, or the first page
// target when none reports itself visible.
func (h *Host) QueryActiveTab(ctx context.Context) (*types.Tab, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	b, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("cdp: list pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}

	states := make([]string, len(pages))
	for i, p := range pages {
		res, err := p.Context(ctx).Eval(visibilityScript)
		if err != nil {
			applog.Error("cdp.visibility", err, "target", p.TargetID)
			continue
		}
		states[i] = res.Value.Str()
	}
	page := pages[pickActive(states)]

	info, err := page.Context(ctx).Info()
	if err != nil {
		return nil, fmt.Errorf("cdp: target info: %w", err)
	}
	return &types.Tab{
		ID:    string(page.TargetID),
		URL:   info.URL,
		Title: info.Title,
	}, nil
}

// ExecuteInTab evaluates the extraction routine in the target's page.
func (h *Host) ExecuteInTab(ctx context.Context, tabID string) (*types.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	b, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	page, err := b.Context(ctx).PageFromTarget(proto.TargetTargetID(tabID))
	if err != nil {
		return nil, fmt.Errorf("cdp: attach %s: %w", tabID, err)
	}
	res, err := page.Context(ctx).Eval(extract.Script)
	if err != nil {
		return nil, fmt.Errorf("cdp: eval: %w", err)
	}
	return decodeExtraction(res.Value), nil
}

// pickActive returns the index of the first "visible" state, or 0.
func pickActive(states []string) int {
	for i, s := range states {
		if s == "visible" {
			return i
		}
	}
	return 0
}

func decodeExtraction(v gson.JSON) *types.Extraction {
	if v.Nil() {
		return nil
	}
	return &types.Extraction{
		URL:         str(v, "url"),
		Title:       str(v, "title"),
		Description: str(v, "description"),
	}
}

func str(v gson.JSON, key string) string {
	field, ok := v.Gets(key)
	if !ok || field.Nil() {
		return ""
	}
	return field.Str()
}
