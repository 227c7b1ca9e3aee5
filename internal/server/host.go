package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lotas/tabpreview/internal/types"
)

// Actions understood by the extension.
const (
	ActionQueryActiveTab  = "query-active-tab"
	ActionExtractMetadata = "extract-metadata"
)

// Events sent by the extension without a request.
const (
	EventTabActivated = "tab.activated"
	EventTabUpdated   = "tab.updated"
)

// Host is a TabHost backed by the browser extension.
type Host struct {
	srv     *Server
	timeout time.Duration
}

// NewHost returns a Host that waits at most timeout for each response.
func NewHost(srv *Server, timeout time.Duration) *Host {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Host{srv: srv, timeout: timeout}
}

// QueryActiveTab asks the extension for the active tab of the current
// window.
func (h *Host) QueryActiveTab(ctx context.Context) (*types.Tab, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.srv.Request(ctx, OutgoingMsg{Action: ActionQueryActiveTab})
	if err != nil {
		return nil, err
	}
	if !*resp.OK {
		return nil, fmt.Errorf("%s: %s", ActionQueryActiveTab, resp.Error)
	}
	return ParseTab(resp.Tab)
}

// ExecuteInTab asks the extension to run the extraction routine in the
// given tab. A refusal (privileged page, closed tab) is returned as an
// error.
func (h *Host) ExecuteInTab(ctx context.Context, tabID string) (*types.Extraction, error) {
	id, err := strconv.Atoi(tabID)
	if err != nil {
		return nil, fmt.Errorf("invalid tab id %q: %w", tabID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.srv.Request(ctx, OutgoingMsg{Action: ActionExtractMetadata, TabID: &id})
	if err != nil {
		return nil, err
	}
	if !*resp.OK {
		if resp.Error == "" {
			return nil, errors.New("extraction refused")
		}
		return nil, errors.New(resp.Error)
	}
	return ParseExtraction(resp.Metadata)
}
