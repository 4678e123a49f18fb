package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docbuddy/internal/domain"
	"docbuddy/internal/service"
)

// IndexerPort is the TUI-facing subset of the indexing service.
type IndexerPort interface {
	Index(ctx context.Context, path string) (service.Result, error)
}

// ChatPort is the TUI-facing subset of the chat engine.
type ChatPort interface {
	Ask(ctx context.Context, question string) (domain.Message, error)
	History() []domain.Message
	Reset()
}

type state int

const (
	statePrompt state = iota
	stateIndexing
	stateChat
	stateAnswering
)

// Model is the Bubble Tea model for the application.
type Model struct {
	indexer IndexerPort
	engine  ChatPort
	changes <-chan struct{}

	state    state
	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	docPath  string
	docID    string
	docTitle string
	summary  string
	chunks   int
	status   string
	ready    bool
	width    int

	// Set when the watched file changes while indexing or answering is in
	// flight; the re-index starts once the current operation finishes.
	pendingReindex bool
}

type indexDoneMsg struct {
	res service.Result
	err error
}

type answerMsg struct {
	msg domain.Message
	err error
}

type fileChangedMsg struct{}

// New creates the TUI model. If docPath is non-empty, indexing starts
// immediately; otherwise the user is prompted for a path first. changes may
// be nil when file watching is disabled.
func New(indexer IndexerPort, engine ChatPort, docPath string, changes <-chan struct{}) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		indexer:  indexer,
		engine:   engine,
		changes:  changes,
		input:    ti,
		viewport: viewport.New(0, 0),
		spin:     sp,
		docPath:  docPath,
	}
	if docPath == "" {
		m.state = statePrompt
		m.input.Placeholder = "Path to a PDF (or .txt/.md) and press Enter"
		m.status = "Pick a document to chat with."
	} else {
		m.state = stateIndexing
		m.input.Placeholder = "Type your message here..."
		m.status = "Indexing " + docPath + "..."
	}
	return m
}

// Init starts the spinner and, when a path was given up front, the indexing run.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spin.Tick}
	if m.state == stateIndexing {
		cmds = append(cmds, indexCmd(m.indexer, m.docPath))
	}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	return tea.Batch(cmds...)
}

func indexCmd(indexer IndexerPort, path string) tea.Cmd {
	return func() tea.Msg {
		res, err := indexer.Index(context.Background(), path)
		return indexDoneMsg{res: res, err: err}
	}
}

func askCmd(engine ChatPort, question string) tea.Cmd {
	return func() tea.Msg {
		msg, err := engine.Ask(context.Background(), question)
		return answerMsg{msg: msg, err: err}
	}
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return fileChangedMsg{}
	}
}

// Update handles key, window, and async pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.resize(msg.Width, msg.Height)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch m.state {
		case statePrompt:
			if msg.String() == "enter" {
				path := strings.TrimSpace(m.input.Value())
				if path == "" {
					return m, nil
				}
				m.docPath = path
				m.state = stateIndexing
				m.status = "Indexing " + path + "..."
				m.input.SetValue("")
				return m, tea.Batch(m.spin.Tick, indexCmd(m.indexer, path))
			}
		case stateChat:
			switch msg.String() {
			case "enter":
				q := strings.TrimSpace(m.input.Value())
				if q == "" {
					return m, nil
				}
				m.state = stateAnswering
				m.status = "Thinking..."
				m.input.SetValue("")
				// Show the user turn right away; the engine appends it to
				// the transcript as part of Ask.
				m.viewport.SetContent(m.renderTranscript() + "\n" + userStyle.Render("You: ") + q)
				m.viewport.GotoBottom()
				return m, tea.Batch(m.spin.Tick, askCmd(m.engine, q))
			case "up":
				m.viewport.LineUp(1)
				return m, nil
			case "down":
				m.viewport.LineDown(1)
				return m, nil
			}
		}

	case indexDoneMsg:
		if msg.err != nil {
			m.state = statePrompt
			m.status = errorStyle.Render(friendlyIndexError(msg.err))
			m.input.Placeholder = "Path to a PDF (or .txt/.md) and press Enter"
			return m.startPendingReindex()
		}
		m.state = stateChat
		m.docTitle = msg.res.Document.Title
		m.summary = msg.res.Summary
		m.chunks = msg.res.Chunks
		// A watch refresh of the same document keeps the conversation; only
		// a new document starts a fresh transcript.
		if msg.res.Document.ID != m.docID {
			m.engine.Reset()
			m.docID = msg.res.Document.ID
		}
		m.input.Placeholder = "Type your message here..."
		m.status = fmt.Sprintf("Indexed %d chunks from %q. Ask away!", msg.res.Chunks, msg.res.Document.Title)
		m.viewport.SetContent(m.renderTranscript())
		return m.startPendingReindex()

	case answerMsg:
		m.state = stateChat
		if msg.err != nil {
			m.status = errorStyle.Render("Error: " + msg.err.Error())
		} else {
			m.status = "Ready."
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m.startPendingReindex()

	case fileChangedMsg:
		if m.docPath == "" {
			return m, waitForChange(m.changes)
		}
		if m.state == stateIndexing || m.state == stateAnswering {
			m.pendingReindex = true
			return m, waitForChange(m.changes)
		}
		m.state = stateIndexing
		m.status = "Document changed on disk, re-indexing..."
		return m, tea.Batch(m.spin.Tick, indexCmd(m.indexer, m.docPath), waitForChange(m.changes))

	case spinner.TickMsg:
		if m.state == stateIndexing || m.state == stateAnswering {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the full screen: header, summary, transcript, input, status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("docbuddy — chat with your document"))
	b.WriteString("\n")
	if m.docTitle != "" {
		b.WriteString(docStyle.Render(fmt.Sprintf("%s  (%d chunks)", m.docTitle, m.chunks)))
		b.WriteString("\n")
	}
	if m.summary != "" {
		b.WriteString(summaryStyle.Width(max(20, m.width-2)).Render(m.summary))
		b.WriteString("\n")
	}
	b.WriteString(transcriptBoxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(m.input.View()))
	b.WriteString("\n")
	if m.state == stateIndexing || m.state == stateAnswering {
		b.WriteString(m.spin.View() + " " + m.status)
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	return b.String()
}

// startPendingReindex kicks off the re-index recorded while a long operation
// was running. The watcher channel was already re-armed when the change was
// recorded.
func (m Model) startPendingReindex() (tea.Model, tea.Cmd) {
	if !m.pendingReindex || m.docPath == "" {
		return m, nil
	}
	m.pendingReindex = false
	m.state = stateIndexing
	m.status = "Document changed on disk, re-indexing..."
	return m, tea.Batch(m.spin.Tick, indexCmd(m.indexer, m.docPath))
}

func (m *Model) resize(width, height int) {
	_, th := transcriptBoxStyle.GetFrameSize()
	_, ih := inputBoxStyle.GetFrameSize()
	reserved := 3 + ih + 1 // header, doc line, status, input frame, spacer
	vh := height - reserved - th
	if m.summary != "" {
		vh -= 2
	}
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = max(20, width-2)
	m.viewport.Height = vh
}

func (m Model) renderTranscript() string {
	history := m.engine.History()
	if len(history) == 0 {
		return helpStyle.Render("No messages yet. Ask something about the document.")
	}
	var b strings.Builder
	for i, msg := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You: ") + msg.Content)
		case domain.RoleAssistant:
			b.WriteString(assistantStyle.Render("Buddy: ") + msg.Content)
		}
	}
	return b.String()
}

// friendlyIndexError maps the indexing error ladder onto user-facing text.
func friendlyIndexError(err error) string {
	switch {
	case errors.Is(err, domain.ErrFileNotFound):
		return "That file does not exist. Check the path and try again."
	case errors.Is(err, domain.ErrNoContent):
		return "No text could be extracted from that document."
	case errors.Is(err, domain.ErrNoChunks):
		return "The document produced nothing to index."
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Could not reach the vector store: " + err.Error()
	default:
		return "Indexing failed: " + err.Error()
	}
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	docStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")).Bold(true)
	spinnerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
