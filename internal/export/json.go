package export

import (
	"encoding/json"
	"time"

	"github.com/lotas/tabpreview/internal/preview"
	"github.com/lotas/tabpreview/internal/types"
	"github.com/lotas/tabpreview/internal/urlfmt"
)

type jsonExport struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Favicon     string    `json:"favicon,omitempty"`
	Domain      string    `json:"domain"`
	Display     jsonView  `json:"display"`
	ExportedAt  time.Time `json:"exported_at"`
}

type jsonView struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Favicon string `json:"favicon"`
}

// JSON formats the working copy and its display values as a JSON document.
func JSON(m types.Metadata) (string, error) {
	v := preview.Of(&m)
	out := jsonExport{
		URL:         m.URL,
		Title:       m.Title,
		Description: m.Description,
		Favicon:     m.Favicon,
		Domain:      urlfmt.Hostname(m.URL),
		Display:     jsonView{URL: v.URL, Title: v.Title, Favicon: v.Favicon},
		ExportedAt:  time.Now(),
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
