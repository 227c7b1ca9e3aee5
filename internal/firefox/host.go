package firefox

import (
	"context"

	"github.com/lotas/tabpreview/internal/applog"
	"github.com/lotas/tabpreview/internal/extract"
	"github.com/lotas/tabpreview/internal/types"
)

// SessionHost is a TabHost that reads the active tab from a Firefox
// profile's session file. A session file cannot run scripts, so
// ExecuteInTab either fetches the page over HTTP (Fetch) or reports that
// extraction is impossible, which makes the resolver use the session's
// own URL and title.
type SessionHost struct {
	ProfileDir string
	Fetch      bool

	// fetch is swapped out in tests.
	fetch func(ctx context.Context, url string) (*types.Extraction, error)
}

// NewSessionHost returns a SessionHost for the given profile directory.
func NewSessionHost(profileDir string, fetch bool) *SessionHost {
	return &SessionHost{ProfileDir: profileDir, Fetch: fetch, fetch: extract.Fetch}
}

func (h *SessionHost) QueryActiveTab(ctx context.Context) (*types.Tab, error) {
	data, err := ReadSessionFile(h.ProfileDir)
	if err != nil {
		return nil, err
	}
	return ActiveTab(data)
}

func (h *SessionHost) ExecuteInTab(ctx context.Context, tabID string) (*types.Extraction, error) {
	if !h.Fetch {
		return nil, nil
	}
	data, err := ReadSessionFile(h.ProfileDir)
	if err != nil {
		return nil, err
	}
	tab, err := TabByID(data, tabID)
	if err != nil || tab == nil || tab.URL == "" {
		return nil, err
	}
	fetch := h.fetch
	if fetch == nil {
		fetch = extract.Fetch
	}
	ext, err := fetch(ctx, tab.URL)
	if err != nil {
		applog.Error("firefox.fetch", err, "url", tab.URL)
		return nil, err
	}
	return ext, nil
}
