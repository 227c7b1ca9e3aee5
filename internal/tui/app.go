package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabpreview/internal/applog"
	"github.com/lotas/tabpreview/internal/export"
	"github.com/lotas/tabpreview/internal/resolver"
	"github.com/lotas/tabpreview/internal/server"
	"github.com/lotas/tabpreview/internal/store"
)

// connectTimeout bounds how long a live-mode resolution waits for the
// extension to connect.
const connectTimeout = 10 * time.Second

// --- Messages ---

type resolvedMsg struct{ err error }
type storeChangedMsg struct{}
type wsEventMsg struct{ msg server.IncomingMsg }
type wsDisconnectedMsg struct{}
type copiedMsg struct{ err error }

// Options configures the preview panel.
type Options struct {
	Store  *store.Store
	Source string         // shown in the status bar
	Server *server.Server // nil unless the source is the extension bridge
	Follow bool           // re-resolve when the extension reports a tab change
	// Copy writes text to the clipboard; defaults to clipboard.WriteAll.
	Copy func(string) error
}

// Model is the bubbletea model for the preview panel.
type Model struct {
	store   *store.Store
	changes <-chan struct{}
	source  string
	server  *server.Server
	follow  bool
	write   func(string) error

	editing bool
	form    FormModel

	status    string
	statusErr bool
	width     int
	height    int
}

// NewModel creates the preview panel model.
func NewModel(opts Options) Model {
	write := opts.Copy
	if write == nil {
		write = clipboard.WriteAll
	}
	return Model{
		store:   opts.Store,
		changes: opts.Store.Subscribe(),
		source:  opts.Source,
		server:  opts.Server,
		follow:  opts.Follow,
		write:   write,
		width:   80,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChange(m.changes), resolveCmd(m.store, m.server)}
	if m.server != nil {
		cmds = append(cmds, startWSServer(m.server), listenWebSocket(m.server))
	}
	return tea.Batch(cmds...)
}

// --- Commands ---

func resolveCmd(st *store.Store, srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if srv != nil && !srv.Connected() {
			waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
			srv.WaitConnected(waitCtx)
			cancel()
		}
		return resolvedMsg{err: st.Reresolve(ctx)}
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

func startWSServer(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		if err := srv.ListenAndServe(context.Background()); err != nil {
			applog.Error("server.stop", err)
		}
		return wsDisconnectedMsg{}
	}
}

func listenWebSocket(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-srv.Messages()
		if !ok {
			return wsDisconnectedMsg{}
		}
		return wsEventMsg{msg: msg}
	}
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case storeChangedMsg:
		return m, waitForChange(m.changes)

	case resolvedMsg:
		switch {
		case msg.err == nil:
			m.setStatus("Resolved", false)
		case errors.Is(msg.err, store.ErrSuperseded):
			// A newer resolution owns the status line.
		case m.store.Current() != nil:
			m.setStatus("Refresh failed: "+msg.err.Error(), true)
		default:
			m.status = ""
		}
		return m, nil

	case wsEventMsg:
		cmds := []tea.Cmd{listenWebSocket(m.server)}
		if m.follow && !m.editing {
			switch msg.msg.Type {
			case server.EventTabActivated, server.EventTabUpdated:
				cmds = append(cmds, resolveCmd(m.store, m.server))
			}
		}
		return m, tea.Batch(cmds...)

	case wsDisconnectedMsg:
		m.setStatus("Extension bridge stopped", true)
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setStatus("Copy failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("Copied link to clipboard", false)
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateForm(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.setStatus("Refreshing...", false)
			return m, resolveCmd(m.store, m.server)
		case "e", "enter":
			cur := m.store.Current()
			if cur == nil {
				return m, nil
			}
			m.editing = true
			m.form = NewForm(*cur, m.width-8)
			return m, nil
		case "c":
			cur := m.store.Current()
			if cur == nil {
				return m, nil
			}
			return m, copyCmd(m.write, export.Markdown(*cur))
		}
	}
	return m, nil
}

// updateForm applies each keystroke to the store so the card tracks the
// form. esc restores the values the form was opened with.
func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		initial := m.form.Initial()
		for _, c := range m.form.Changes() {
			m.store.SetField(c.Field, initial.Get(c.Field))
		}
		m.editing = false
		m.setStatus("Edit reverted", false)
		return m, nil
	case "tab", "down":
		m.form.Next()
		return m, nil
	case "shift+tab", "up":
		m.form.Prev()
		return m, nil
	case "enter":
		m.editing = false
		m.setStatus(fmt.Sprintf("Updated %d field(s)", len(m.form.Changes())), false)
		return m, nil
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	field := m.form.Focused()
	if cur := m.store.Current(); cur != nil && cur.Get(field) != m.form.Value(field) {
		m.store.SetField(field, m.form.Value(field))
	}
	return m, cmd
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// --- View ---

func (m Model) View() string {
	cur := m.store.Current()
	state := m.store.State()

	if cur == nil {
		switch state {
		case store.Failed:
			return m.viewNoTab()
		default:
			if m.server != nil && !m.server.Connected() {
				return fmt.Sprintf("\n  Waiting for extension connection on :%d...\n", m.server.Port())
			}
			return "\n  Resolving active tab...\n"
		}
	}

	body := renderCard(cur, m.width-2)
	if m.editing {
		body = lipgloss.JoinVertical(lipgloss.Left, body, formBorder.Width(m.width-6).Render(m.form.View()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar(state))
}

func (m Model) viewNoTab() string {
	msg := "No active tab"
	if errors.Is(m.store.Err(), resolver.ErrMetadataUnavailable) {
		msg = "Could not read this tab's metadata"
	}
	var details string
	if err := m.store.Err(); err != nil {
		details = "\n  " + mutedStyle.Render(err.Error())
	}
	return "\n  " + errorStyle.Render(msg) + details + "\n\n  " +
		mutedStyle.Render("r retry · q quit") + "\n"
}

func (m Model) statusBar(state store.State) string {
	left := "[" + m.source + "]"
	if m.server != nil {
		if m.server.Connected() {
			left += " ● connected"
		} else {
			left += " ○ waiting"
		}
	}
	if state == store.Resolving {
		left += " · resolving"
	}

	help := "e edit · r refresh · c copy · q quit"
	if m.editing {
		help = "tab next · enter done · esc revert"
	}

	status := m.status
	if m.statusErr {
		status = errorStyle.Render(status)
	}
	return statusStyle.Render(left+"  "+help) + "\n" + status
}
