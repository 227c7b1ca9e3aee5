package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabpreview/internal/preview"
	"github.com/lotas/tabpreview/internal/types"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	cardBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
	formBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusedLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
)

// renderCard renders the share preview of m.
func renderCard(m *types.Metadata, width int) string {
	v := preview.Of(m)
	inner := width - 4 // border + padding
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder
	b.WriteString(mutedStyle.Render(truncate(v.Favicon, inner)) + "\n")
	b.WriteString(titleStyle.Render(truncate(v.Title, inner)) + "\n")
	b.WriteString(urlStyle.Render(truncate(v.URL, inner)) + "\n")

	if m != nil && m.Description != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(inner).Render(m.Description))
	} else {
		b.WriteString("\n" + mutedStyle.Render("No description"))
	}

	return cardBorder.Width(inner).Render(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
