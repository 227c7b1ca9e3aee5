package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/tabpreview/internal/types"
)

var fieldLabels = map[types.Field]string{
	types.FieldTitle:       "Title",
	types.FieldURL:         "URL",
	types.FieldDescription: "Description",
	types.FieldFavicon:     "Favicon",
}

// FormModel edits every field of a Metadata record at once.
type FormModel struct {
	inputs  []textinput.Model
	initial types.Metadata
	focus   int
}

// NewForm returns a form filled from m with the first field focused.
func NewForm(m types.Metadata, width int) FormModel {
	f := FormModel{initial: m}
	for _, field := range types.Fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 2048
		ti.Width = width
		ti.SetValue(m.Get(field))
		ti.CursorEnd()
		f.inputs = append(f.inputs, ti)
	}
	f.inputs[0].Focus()
	return f
}

// Next moves focus to the next field, wrapping around.
func (f *FormModel) Next() {
	f.move(1)
}

// Prev moves focus to the previous field, wrapping around.
func (f *FormModel) Prev() {
	f.move(-1)
}

func (f *FormModel) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// Value returns the current text of field.
func (f FormModel) Value(field types.Field) string {
	for i, fl := range types.Fields {
		if fl == field {
			return f.inputs[i].Value()
		}
	}
	return ""
}

// Initial returns the record the form was opened with.
func (f FormModel) Initial() types.Metadata {
	return f.initial
}

// Focused returns the field that currently has focus.
func (f FormModel) Focused() types.Field {
	return types.Fields[f.focus]
}

// Changes returns the fields whose values differ from the record the form
// was opened with, in display order.
func (f FormModel) Changes() []Change {
	var out []Change
	for i, field := range types.Fields {
		if v := f.inputs[i].Value(); v != f.initial.Get(field) {
			out = append(out, Change{Field: field, Value: v})
		}
	}
	return out
}

// Change is one edited field.
type Change struct {
	Field types.Field
	Value string
}

// Update forwards key input to the focused field.
func (f FormModel) Update(msg tea.Msg) (FormModel, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f FormModel) View() string {
	var b strings.Builder
	for i, field := range types.Fields {
		style := labelStyle
		if i == f.focus {
			style = focusedLabel
		}
		b.WriteString(style.Render(fieldLabels[field]) + "\n")
		b.WriteString(f.inputs[i].View())
		if i < len(types.Fields)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
