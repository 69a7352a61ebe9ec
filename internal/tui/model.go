// Package tui is the interactive chat front end: a transcript, a question box
// and upload/clear commands driving one session.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
	"docchat/internal/service"
)

// Session is the TUI-facing subset of service.Session.
type Session interface {
	UploadFile(ctx context.Context, path string) (service.Notice, error)
	Submit(ctx context.Context, question string) domain.ChatMessage
	Clear()
	Transcript() []domain.ChatMessage
	Document() string
}

// UploadMsg asks the model to upload the file at Path. It is what /upload
// produces and what the inbox watcher sends from outside the program.
type UploadMsg struct{ Path string }

// snapshot is the session state read off the event loop, after the work
// that changed it.
type snapshot struct {
	document   string
	transcript []domain.ChatMessage
}

type uploadDoneMsg struct {
	path   string
	notice service.Notice
	err    error
	snapshot
}

type answerMsg struct {
	reply domain.ChatMessage
	snapshot
}

type clearedMsg struct{ snapshot }

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	session  Session
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	markdown *glamour.TermRenderer

	summary string
	status  string
	ready   bool
	// View and Update only read this copy; the session may be locked by
	// work in flight.
	state snapshot

	busy    bool
	pending string
	cancel  context.CancelFunc
	queue   []string
}

// New creates the chat model. If initial is set it is uploaded on start.
func New(session Session, initial string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /upload <path>"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	m := Model{
		session:  session,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Upload a PDF or text file to start: /upload <path>",
	}
	if initial != "" {
		m.queue = []string{initial}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if len(m.queue) > 0 {
		path := m.queue[0]
		return tea.Batch(textinput.Blink, func() tea.Msg { return UploadMsg{Path: path} })
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.markdown = newMarkdown(m.viewport.Width - 4)
		m.refresh()
		return m, nil

	case UploadMsg:
		if m.busy {
			m.queue = append(m.queue, msg.Path)
			return m, nil
		}
		m.queue = dropPath(m.queue, msg.Path)
		return m.startUpload(msg.Path)

	case uploadDoneMsg:
		m.finish()
		m.state = msg.snapshot
		if msg.err != nil {
			m.summary = ""
			m.status = "❌ " + msg.err.Error()
		} else {
			m.summary = msg.notice.Summary
			m.status = msg.notice.String()
		}
		m.refresh()
		return m.next()

	case answerMsg:
		m.finish()
		m.state = msg.snapshot
		switch msg.reply.Kind {
		case domain.KindError:
			m.status = "Request failed."
		case domain.KindWarning:
			m.status = "No document loaded."
		default:
			m.status = "Ready: " + m.state.document
		}
		m.refresh()
		return m.next()

	case clearedMsg:
		m.state = msg.snapshot
		m.status = "Conversation cleared."
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case tea.KeyEsc:
			if m.busy && m.cancel != nil {
				m.cancel()
				m.status = "Cancelling…"
			}
			return m, nil
		case tea.KeyCtrlL:
			if m.busy {
				return m, nil
			}
			return m, m.clear()
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m.command(line)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) command(line string) (tea.Model, tea.Cmd) {
	switch {
	case line == "/clear":
		return m, m.clear()
	case line == "/quit":
		return m, tea.Quit
	case strings.HasPrefix(line, "/upload"):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/upload"))
		if path == "" {
			m.status = "Usage: /upload <path>"
			return m, nil
		}
		return m.startUpload(path)
	}
	return m.startAsk(line)
}

func (m Model) startUpload(path string) (tea.Model, tea.Cmd) {
	ctx := m.begin("Indexing " + path + "…")
	session := m.session
	upload := func() tea.Msg {
		n, err := session.UploadFile(ctx, path)
		return uploadDoneMsg{path: path, notice: n, err: err, snapshot: take(session)}
	}
	return m, tea.Batch(upload, m.spinner.Tick)
}

func (m Model) startAsk(question string) (tea.Model, tea.Cmd) {
	ctx := m.begin("Thinking…")
	m.pending = question
	m.refresh()
	session := m.session
	ask := func() tea.Msg {
		reply := session.Submit(ctx, question)
		return answerMsg{reply: reply, snapshot: take(session)}
	}
	return m, tea.Batch(ask, m.spinner.Tick)
}

func (m *Model) begin(status string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	m.busy = true
	m.cancel = cancel
	m.status = status
	return ctx
}

func (m *Model) finish() {
	if m.cancel != nil {
		m.cancel()
	}
	m.busy = false
	m.cancel = nil
	m.pending = ""
}

// next starts the oldest queued upload, if any.
func (m Model) next() (tea.Model, tea.Cmd) {
	if len(m.queue) == 0 {
		return m, nil
	}
	path := m.queue[0]
	m.queue = m.queue[1:]
	return m.startUpload(path)
}

// clear runs off the event loop like every other session call.
func (m Model) clear() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		session.Clear()
		return clearedMsg{take(session)}
	}
}

func take(s Session) snapshot {
	return snapshot{document: s.Document(), transcript: s.Transcript()}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "Document Chat"
	if doc := m.state.document; doc != "" {
		title += " · " + doc
	}
	header := headerStyle.Render(title)
	summary := summaryStyle.Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	history := m.state.transcript
	if len(history) == 0 && m.pending == "" {
		return "No messages yet."
	}
	parts := make([]string, 0, len(history)+1)
	for _, msg := range history {
		parts = append(parts, m.renderMessage(msg))
	}
	if m.pending != "" {
		parts = append(parts, m.renderMessage(domain.ChatMessage{Role: domain.RoleUser, Content: m.pending}))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg domain.ChatMessage) string {
	if msg.Role == domain.RoleUser {
		return userStyle.Render("You:") + " " + msg.Content
	}
	switch msg.Kind {
	case domain.KindWarning:
		return warningStyle.Render(msg.Content)
	case domain.KindError:
		return errorStyle.Render(msg.Content)
	}
	return assistantStyle.Render("Assistant:") + "\n" + m.renderMarkdown(msg.Content)
}

func (m Model) renderMarkdown(content string) string {
	if m.markdown == nil {
		return content
	}
	out, err := m.markdown.Render(content)
	if err != nil {
		return content
	}
	// glamour pads the output with blank lines
	return strings.Trim(out, "\n")
}

func newMarkdown(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(max(20, width)),
	)
	if err != nil {
		return nil
	}
	return r
}

func dropPath(queue []string, path string) []string {
	out := queue[:0]
	for _, p := range queue {
		if p != path {
			out = append(out, p)
		}
	}
	return out
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle        = lipgloss.NewStyle().Bold(true)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	spinnerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	warningStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
