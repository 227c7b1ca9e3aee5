package export

import (
	"fmt"
	"strings"

	"github.com/lotas/tabpreview/internal/preview"
	"github.com/lotas/tabpreview/internal/types"
)

// Link formats the working copy as a single markdown link.
func Link(m types.Metadata) string {
	return fmt.Sprintf("[%s](%s)", escapeText(preview.DisplayTitle(&m)), m.URL)
}

// Markdown formats the working copy as a link followed by its
// description as a quote, if it has one.
func Markdown(m types.Metadata) string {
	var b strings.Builder
	b.WriteString(Link(m))
	b.WriteByte('\n')
	if m.Description != "" {
		for _, line := range strings.Split(m.Description, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
	}
	return b.String()
}

func escapeText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
