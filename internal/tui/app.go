// Package tui renders a chat.Controller in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nexus-chat/internal/chat"
	"nexus-chat/internal/tfidf"
)

const snippetLimit = 200

// stateChangedMsg is sent whenever the controller reports a change.
type stateChangedMsg struct{}

// submittedMsg is sent when a Submit call returns.
type submittedMsg struct {
	accepted bool
}

type Model struct {
	ctrl     *chat.Controller
	state    chat.State
	input    textinput.Model
	spin     spinner.Model
	width    int
	height   int
	offset   int // lines scrolled up from the bottom
	quitting bool
}

func NewModel(ctrl *chat.Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message to the AI..."
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctrl:   ctrl,
		state:  ctrl.State(),
		input:  ti,
		spin:   sp,
		width:  100,
		height: 30,
	}
}

func waitForChange(ctrl *chat.Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctrl.Updates()
		return stateChangedMsg{}
	}
}

func submit(ctrl *chat.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{accepted: ctrl.Submit(context.Background(), text)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, waitForChange(m.ctrl))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-6)
		return m, nil

	case stateChangedMsg:
		m.state = m.ctrl.State()
		return m, waitForChange(m.ctrl)

	case submittedMsg:
		m.state = m.ctrl.State()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" || m.ctrl.Busy() {
			return m, nil
		}
		m.input.Reset()
		m.offset = 0
		return m, submit(m.ctrl, text)

	case "ctrl+l":
		m.ctrl.Clear()
		m.state = m.ctrl.State()
		m.offset = 0
		return m, nil

	case "ctrl+r":
		m.ctrl.Reset()
		m.state = m.ctrl.State()
		m.input.SetValue(m.state.Draft)
		m.offset = 0
		return m, nil

	case "esc":
		m.ctrl.DismissError()
		m.state = m.ctrl.State()
		return m, nil

	case "pgup":
		m.offset += m.pageSize()
		return m, nil

	case "pgdown":
		m.offset = max(0, m.offset-m.pageSize())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetDraft(m.input.Value())
	return m, cmd
}

func (m Model) pageSize() int {
	return max(1, m.transcriptHeight()-2)
}

// header, banner, input, footer
func (m Model) transcriptHeight() int {
	chrome := 5
	if m.state.Error != "" {
		chrome++
	}
	return max(1, m.height-chrome)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	status := statusStyle.Render("● Online")
	if m.state.Busy {
		status = m.spin.View() + " " + dimStyle.Render("AI is thinking...")
	}
	b.WriteString(titleStyle.Render("NEXUS AI Assistant") + " " + status + "\n")
	if m.state.Error != "" {
		b.WriteString(errorBannerStyle.Render(m.state.Error+"  [esc] ×") + "\n")
	}

	lines := renderTranscript(m.state.Turns, max(20, m.width-2))
	height := m.transcriptHeight()
	end := len(lines) - min(m.offset, max(0, len(lines)-height))
	start := max(0, end-height)
	visible := lines[start:end]
	for i := len(visible); i < height; i++ {
		b.WriteString("\n")
	}
	for _, l := range visible {
		b.WriteString(l + "\n")
	}

	b.WriteString(inputStyle.Render(m.input.View()) + "\n")
	b.WriteString(dimStyle.Render(messageCount(len(m.state.Turns))) + "  ")
	b.WriteString(helpStyle.Render("enter send · ctrl+l clear · ctrl+r reset · esc dismiss · pgup/pgdn scroll · ctrl+c quit"))
	return b.String()
}

func renderTranscript(turns []chat.Turn, width int) []string {
	var lines []string
	for _, t := range turns {
		lines = append(lines, renderTurn(t, width)...)
		lines = append(lines, "")
	}
	return lines
}

func renderTurn(t chat.Turn, width int) []string {
	role := userRoleStyle.Render(" You ")
	if t.IsFromAssistant {
		role = assistantRoleStyle.Render(" NEXUS ")
	}
	header := role + " " + dimStyle.Render(t.Timestamp())
	if t.UsedContext {
		header += " " + contextTagStyle.Render("(with context)")
	}

	lines := []string{header}
	lines = append(lines, wrap(t.Text, width)...)
	for i, r := range t.RankedResults {
		lines = append(lines, renderResult(i, r, width)...)
	}
	return lines
}

func renderResult(i int, r tfidf.Result, width int) []string {
	head := resultIndexStyle.Render(fmt.Sprintf("  #%d", i+1)) + " " + scoreStyle.Render(FormatScore(r.Score))
	if r.SourceID != "" {
		head += " " + dimStyle.Render(r.SourceID)
	}
	lines := []string{head}
	for _, l := range wrap(Snippet(r.Text, snippetLimit), width-4) {
		lines = append(lines, "    "+l)
	}
	return lines
}

func wrap(text string, width int) []string {
	return strings.Split(lipgloss.NewStyle().Width(width).Render(text), "\n")
}

// FormatScore renders a relevance score as a percentage.
func FormatScore(score float64) string {
	return fmt.Sprintf("Score: %.1f%%", score*100)
}

// Snippet shortens text to limit runes, ending with an ellipsis when cut.
func Snippet(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return strings.TrimSpace(string(r[:limit])) + "…"
}

func messageCount(n int) string {
	if n == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", n)
}
