// Package preview derives the values the view displays from a Metadata
// snapshot. Everything here is a pure function of the snapshot.
package preview

import (
	"github.com/lotas/tabpreview/internal/types"
	"github.com/lotas/tabpreview/internal/urlfmt"
)

// UndefinedURL stands in for a missing URL when formatting for display.
// It is never stored in a snapshot.
const UndefinedURL = "https://undefined.com/"

// PlaceholderFavicon is the generic globe icon shown when the tab has no
// favicon.
const PlaceholderFavicon = "https://api.iconify.design/mdi/web.svg?color=gray"

// View holds the derived display values.
type View struct {
	URL     string
	Title   string
	Favicon string
}

// Of computes all display values for m. A nil m yields the values shown
// for an unresolved record.
func Of(m *types.Metadata) View {
	return View{
		URL:     DisplayURL(m),
		Title:   DisplayTitle(m),
		Favicon: DisplayFavicon(m),
	}
}

// DisplayURL is the breadcrumb form of the snapshot URL.
func DisplayURL(m *types.Metadata) string {
	if m == nil || m.URL == "" {
		return urlfmt.Breadcrumb(urlfmt.Breadcrumb(UndefinedURL))
	}
	return urlfmt.Breadcrumb(m.URL)
}

// DisplayTitle is the snapshot title, or the hostname of the displayed
// URL when the title is empty.
func DisplayTitle(m *types.Metadata) string {
	if m != nil && m.Title != "" {
		return m.Title
	}
	return urlfmt.Hostname(DisplayURL(m))
}

// DisplayFavicon is the snapshot favicon or PlaceholderFavicon.
func DisplayFavicon(m *types.Metadata) string {
	if m != nil && m.Favicon != "" {
		return m.Favicon
	}
	return PlaceholderFavicon
}
