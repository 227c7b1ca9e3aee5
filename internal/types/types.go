package types

// Tab is the host's view of a browser tab.
type Tab struct {
	ID      string // stable host identifier; empty if the host has none
	URL     string
	Title   string
	Favicon string // favIconUrl as reported by the host, may be empty
}

// Extraction is the result of the in-page extraction routine.
type Extraction struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Metadata is the editable working record for the active tab.
// An empty Description means the page has none; an unresolved record
// is represented by a nil *Metadata.
type Metadata struct {
	URL         string
	Title       string
	Description string
	Favicon     string // empty if the host reported none
}

// Field names a Metadata field.
type Field string

const (
	FieldURL         Field = "url"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldFavicon     Field = "favicon"
)

// Fields lists the editable fields in display order.
var Fields = []Field{FieldTitle, FieldURL, FieldDescription, FieldFavicon}

// With returns a copy of m with one field replaced. Unknown fields
// return m unchanged.
func (m Metadata) With(f Field, value string) Metadata {
	switch f {
	case FieldURL:
		m.URL = value
	case FieldTitle:
		m.Title = value
	case FieldDescription:
		m.Description = value
	case FieldFavicon:
		m.Favicon = value
	}
	return m
}

// Get returns the value of a field.
func (m Metadata) Get(f Field) string {
	switch f {
	case FieldURL:
		return m.URL
	case FieldTitle:
		return m.Title
	case FieldDescription:
		return m.Description
	case FieldFavicon:
		return m.Favicon
	}
	return ""
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}
