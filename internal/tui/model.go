package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/resilient"
	"docqa/internal/session"
	"docqa/internal/textutil"
)

// EmptyQuestionWarning is shown when Enter is pressed on blank input.
const EmptyQuestionWarning = "Please enter a question."

// Chat is the TUI-facing subset of a chat session.
type Chat interface {
	Ask(ctx context.Context, question string, warn resilient.WarnFunc) (session.Reply, error)
}

// Mode selects how much of the conversation is shown.
type Mode int

const (
	// ModeHistory shows the whole transcript.
	ModeHistory Mode = iota
	// ModeSingleShot shows only the latest question and answer.
	ModeSingleShot
)

type replyMsg struct {
	reply session.Reply
	err   error
}

type warningMsg resilient.Warning

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx        context.Context
	chat       Chat
	mode       Mode
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	transcript []domain.Message
	summary    string
	status     string
	warning    bool
	busy       bool
	ready      bool
	warnings   chan resilient.Warning
}

// New creates a chat model. ctx bounds every question asked through chat.
func New(ctx context.Context, chat Chat, summary string, mode Mode) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		chat:     chat,
		mode:     mode,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Documents indexed. Ask away.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, and query events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around transcript and input boxes
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, input, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case warningMsg:
		// a warning buffered behind the reply is stale
		if !m.busy {
			return m, nil
		}
		m.status = fmt.Sprintf("Rate limited (attempt %d). Retrying in %s...", msg.Attempt+1, msg.Wait)
		m.warning = true
		return m, waitForWarning(m.warnings)

	case replyMsg:
		m.busy = false
		m.warnings = nil
		m.warning = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.warning = true
		} else {
			m.transcript = append(m.transcript, msg.reply.Message)
			m.status = fmt.Sprintf("Answered after %d attempt(s).", msg.reply.Response.Attempts)
			if msg.reply.Response.Exhausted {
				m.status = "All attempts failed."
				m.warning = true
			}
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit validates the input and starts answering it in the background.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		m.status = EmptyQuestionWarning
		m.warning = true
		return m, nil
	}
	m.input.Reset()
	m.busy = true
	m.warning = false
	m.status = "Thinking..."
	if m.mode == ModeSingleShot {
		m.transcript = nil
	}
	m.transcript = append(m.transcript, domain.Message{Role: domain.RoleUser, Content: q})
	m.refresh()

	m.warnings = make(chan resilient.Warning, 8)
	return m, tea.Batch(m.ask(q), waitForWarning(m.warnings), m.spinner.Tick)
}

// ask runs the question on chat and closes the warning channel when done.
func (m Model) ask(q string) tea.Cmd {
	ch := m.warnings
	return func() tea.Msg {
		defer close(ch)
		reply, err := m.chat.Ask(m.ctx, q, func(w resilient.Warning) { ch <- w })
		return replyMsg{reply: reply, err: err}
	}
}

func waitForWarning(ch <-chan resilient.Warning) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		w, ok := <-ch
		if !ok {
			return nil
		}
		return warningMsg(w)
	}
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Document Q&A")
	summary := summaryStyle.Render(m.summary)
	body := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.warning {
		status = warningStyle.Render(m.status)
	}
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" + body + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	var lastQuestion string
	for i, msg := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case domain.RoleUser:
			lastQuestion = msg.Content
			b.WriteString(userStyle.Render("You: ") + msg.Content)
		case domain.RoleAssistant:
			b.WriteString(assistantStyle.Render("Assistant: ") + highlightBestSentence(msg.Content, lastQuestion))
		}
	}
	return b.String()
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightBestSentence emphasizes the sentence of text sharing the most
// words with query. Single-sentence answers are left as is.
func highlightBestSentence(text, query string) string {
	sentences := chunker.SplitSentences(text)
	if len(sentences) < 2 {
		return text
	}
	qTokens := textutil.TokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		if score := textutil.Overlap(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}
