package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"resumatch/internal/domain"
)

// MatchPort is the TUI-facing subset of the match service.
type MatchPort interface {
	Query(description string, topK int) ([]domain.Match, error)
	Resume(id string) (domain.Document, error)
}

type focus int

const (
	focusInput focus = iota
	focusResults
)

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service  MatchPort
	topK     int
	input    textarea.Model
	viewport viewport.Model
	results  []domain.Match
	header   string
	status   string
	cursor   int
	focus    focus
	ready    bool
}

// New creates a new TUI model instance.
func New(service MatchPort, topK int, header string) Model {
	ta := textarea.New()
	ta.Placeholder = "Paste a job description, ctrl+s to match"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(4)
	ta.Focus()
	vp := viewport.New(0, 0)
	if topK <= 0 {
		topK = 10
	}
	return Model{
		service:  service,
		topK:     topK,
		input:    ta,
		viewport: vp,
		header:   header,
		status:   "ctrl+s match · tab switch pane · ctrl+c quit",
	}
}

// Init initializes the model (cursor blink).
func (m Model) Init() tea.Cmd { return textarea.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		qw, qh := queryBoxStyle.GetFrameSize()
		m.input.SetWidth(max(20, msg.Width-qw))
		reserved := 2 + 1 + m.input.Height() + qh
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlS:
			return m.submit(), nil
		case tea.KeyTab:
			if m.focus == focusInput {
				m.focus = focusResults
				m.input.Blur()
				return m, nil
			}
			m.focus = focusInput
			return m, m.input.Focus()
		}
		if m.focus == focusResults {
			return m.navigate(msg)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() Model {
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		m.status = "Job description is empty"
		return m
	}
	res, err := m.service.Query(q, m.topK)
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
	} else {
		m.status = fmt.Sprintf("%d resumes ranked", len(res))
		m.results = res
		m.cursor = 0
		m.focus = focusResults
		m.input.Blur()
	}
	m.viewport.SetContent(m.renderCurrentResult())
	m.viewport.GotoTop()
	return m
}

func (m Model) navigate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down", "j":
		if len(m.results) > 0 {
			m.cursor = (m.cursor + 1) % len(m.results)
		}
	case "up", "k":
		if len(m.results) > 0 {
			m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.viewport.SetContent(m.renderCurrentResult())
	m.viewport.GotoTop()
	return m, nil
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Resume Matcher")
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.header)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + sub + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Resume %d/%d  %s  score=%.3f", m.cursor+1, len(m.results), r.Filename, r.Score)
	body := r.Snippet
	if doc, err := m.service.Resume(r.ID); err == nil {
		body = highlightSnippet(doc.Text, r.Snippet)
	}
	return title + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightSnippet renders the first occurrence of snippet in text highlighted.
// A snippet that is not a verbatim part of text is shown above it.
func highlightSnippet(text, snippet string) string {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return text
	}
	i := strings.Index(text, snippet)
	if i < 0 {
		return highlightStyle.Render(snippet) + "\n\n" + text
	}
	return text[:i] + highlightStyle.Render(snippet) + text[i+len(snippet):]
}
