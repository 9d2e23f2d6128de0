package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/muesli/reflow/wordwrap"
)

type entryMsg Entry

type transcriptMsg string

type eventMsg struct{ event events.Event }

type sentMsg struct {
	text string
	err  error
}

type errMsg struct{ err error }

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("#25A065")).Padding(0, 1)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	interimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	roleStyles   = map[Role]lipgloss.Style{
		RoleUser:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		RoleAssistant: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		RoleMenu:      lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true),
		RoleSystem:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		RoleError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

const helpText = "enter send · ctrl+v voice · ctrl+s speech · ctrl+t call · esc quit"

type model struct {
	ctx  context.Context
	host *Host

	viewport viewport.Model
	input    textinput.Model
	entries  []Entry
	interim  string
	status   string
	sending  bool
	ready    bool
	width    int
}

func newModel(ctx context.Context, host *Host) model {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	return model{
		ctx:    ctx,
		host:   host,
		input:  input,
		status: "chat",
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// Update never calls into the host directly: host calls report back through
// Program.Send, which would block the event loop.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.sending {
				return m, nil
			}
			m.sending = true
			return m, m.send(text)
		case tea.KeyCtrlV:
			return m, m.toggleVoiceInput()
		case tea.KeyCtrlS:
			return m, m.toggleSpeech()
		case tea.KeyCtrlT:
			return m, m.toggleCall()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		height := max(1, msg.Height-headerHeight-footerHeight)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(10, msg.Width-4)
		m.refresh()

	case entryMsg:
		m.entries = append(m.entries, Entry(msg))
		m.refresh()

	case transcriptMsg:
		m.interim = ""
		m.input.SetValue(string(msg))
		m.input.CursorEnd()

	case eventMsg:
		m.handleEvent(msg.event)

	case sentMsg:
		m.sending = false
		// A failed message stays in the input for another try.
		if msg.err == nil && strings.TrimSpace(m.input.Value()) == msg.text {
			m.input.Reset()
		}

	case errMsg:
		m.entries = append(m.entries, Entry{Role: RoleError, Text: msg.err.Error()})
		m.refresh()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.CaptureTranscriptUpdated:
		m.interim = e.Transcript
	case events.CaptureStopped, events.CaptureFailed, events.CaptureUnavailable:
		m.interim = ""
	case events.SessionStateChanged:
		if e.To == "disconnected" {
			m.status = "chat"
		} else {
			m.status = fmt.Sprintf("call · %s · %s", e.Menu, e.To)
		}
	}
}

func (m model) send(text string) tea.Cmd {
	return func() tea.Msg {
		return sentMsg{text: text, err: m.host.Send(m.ctx, text)}
	}
}

func (m model) toggleVoiceInput() tea.Cmd {
	return func() tea.Msg {
		if m.host.IsListening() {
			m.host.StopVoiceInput()
			return nil
		}
		if err := m.host.StartVoiceInput(m.ctx); err != nil && !errors.Is(err, ErrCallActive) {
			logger.Warn("voice input failed to start", "error", err)
		}
		return nil
	}
}

func (m model) toggleSpeech() tea.Cmd {
	return func() tea.Msg {
		m.host.SetSpeechEnabled(!m.host.SpeechEnabled())
		state := "off"
		if m.host.SpeechEnabled() {
			state = "on"
		}
		return entryMsg{Role: RoleSystem, Text: "Speech output " + state + "."}
	}
}

func (m model) toggleCall() tea.Cmd {
	return func() tea.Msg {
		if m.host.InCall() {
			if err := m.host.EndCall(m.ctx); err != nil {
				return errMsg{err}
			}
			return entryMsg{Role: RoleSystem, Text: "Call ended."}
		}
		// StartCall reports its own failure as an entry
		_ = m.host.StartCall(m.ctx)
		return nil
	}
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.contentView())
	m.viewport.GotoBottom()
}

func (m model) contentView() string {
	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	for _, entry := range m.entries {
		label := roleStyles[entry.Role].Render(string(entry.Role))
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wordwrap.String(entry.Text, width))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s", m.headerView(), m.viewport.View(), m.footerView())
}

func (m model) headerView() string {
	title := headerStyle.Render("ema-ivr")
	status := statusStyle.Render(" " + m.status)
	line := strings.Repeat("─", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(status)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, status, line)
}

func (m model) footerView() string {
	lines := []string{}
	if m.interim != "" {
		lines = append(lines, interimStyle.Render("… "+m.interim))
	}
	lines = append(lines, m.input.View(), statusStyle.Render(helpText))
	return strings.Join(lines, "\n")
}

// relay forwards host callbacks to the program once it is running.
type relay struct {
	mu      sync.Mutex
	program *tea.Program
}

func (r *relay) attach(program *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = program
}

func (r *relay) send(msg tea.Msg) {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}

func (r *relay) entry(entry Entry)        { r.send(entryMsg(entry)) }
func (r *relay) transcript(text string)   { r.send(transcriptMsg(text)) }
func (r *relay) event(event events.Event) { r.send(eventMsg{event: event}) }

// Run builds the host with newHost and runs the console until the user quits.
func Run(ctx context.Context, newHost func(opts ...HostOption) (*Host, error)) error {
	r := &relay{}
	host, err := newHost(
		WithEntryHandler(r.entry),
		WithTranscriptHandler(r.transcript),
		WithEventHandler(r.event),
	)
	if err != nil {
		return err
	}
	defer host.Close(context.WithoutCancel(ctx))

	program := tea.NewProgram(newModel(ctx, host), tea.WithAltScreen(), tea.WithContext(ctx))
	r.attach(program)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("console stopped: %w", err)
	}
	return nil
}
