// Package resolver produces a Metadata record for the active tab from a
// TabHost: it asks the host for the active tab, runs the extraction
// routine in that tab, and falls back to the host-reported tab state when
// the page cannot be scripted.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lotas/tabpreview/internal/applog"
	"github.com/lotas/tabpreview/internal/types"
)

var (
	// ErrNoActiveTab means the host reported no active tab, or one
	// without a stable identifier.
	ErrNoActiveTab = errors.New("no active tab")

	// ErrMetadataUnavailable means both in-page extraction and the
	// host-reported fallback failed.
	ErrMetadataUnavailable = errors.New("metadata unavailable")
)

// TabHost is the browser capability the resolver depends on.
//
// QueryActiveTab returns (nil, nil) when the current window has no active
// tab. ExecuteInTab returns (nil, nil) or an error when the extraction
// routine cannot be injected.
type TabHost interface {
	QueryActiveTab(ctx context.Context) (*types.Tab, error)
	ExecuteInTab(ctx context.Context, tabID string) (*types.Extraction, error)
}

// Resolver resolves the active tab's metadata through a TabHost.
type Resolver struct {
	host TabHost
}

// New creates a Resolver backed by host.
func New(host TabHost) *Resolver {
	return &Resolver{host: host}
}

// Resolve returns a fully populated Metadata record or one of
// ErrNoActiveTab / ErrMetadataUnavailable.
func (r *Resolver) Resolve(ctx context.Context) (*types.Metadata, error) {
	start := time.Now()
	applog.Info("resolve.start")

	tab, err := r.host.QueryActiveTab(ctx)
	if err != nil {
		applog.Error("resolve.failed", err, "step", "query")
		return nil, fmt.Errorf("%w: %v", ErrNoActiveTab, err)
	}
	if tab == nil || tab.ID == "" {
		applog.Info("resolve.failed", "step", "query", "reason", "no tab")
		return nil, ErrNoActiveTab
	}

	favicon := tab.Favicon

	ext, err := r.host.ExecuteInTab(ctx, tab.ID)
	if err != nil || ext == nil {
		if err != nil {
			applog.Error("resolve.fallback", err, "tab", tab.ID)
		} else {
			applog.Info("resolve.fallback", "tab", tab.ID)
		}
		ext, err = fallback(tab)
		if err != nil {
			applog.Info("resolve.failed", "step", "fallback", "tab", tab.ID)
			return nil, err
		}
	}

	pageURL := ext.URL
	if pageURL == "" {
		pageURL = tab.URL
	}
	if pageURL == "" {
		applog.Info("resolve.failed", "step", "merge", "tab", tab.ID, "reason", "no url")
		return nil, ErrMetadataUnavailable
	}

	m := &types.Metadata{
		URL:         pageURL,
		Title:       ext.Title,
		Description: ext.Description,
		Favicon:     favicon,
	}
	applog.Info("resolve.done", "tab", tab.ID, "url", m.URL, "ms", time.Since(start).Milliseconds())
	return m, nil
}

// fallback builds an extraction from the host's last-known tab state.
func fallback(tab *types.Tab) (*types.Extraction, error) {
	if tab.URL == "" {
		return nil, ErrMetadataUnavailable
	}
	return &types.Extraction{URL: tab.URL, Title: tab.Title}, nil
}
