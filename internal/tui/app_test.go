package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus-chat/internal/chat"
	"nexus-chat/internal/tfidf"
)

type stubBackend struct {
	resp *tfidf.Response
	err  error
}

func (s stubBackend) Send(ctx context.Context, query string, limit int) (*tfidf.Response, error) {
	return s.resp, s.err
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func TestModel_EnterSubmitsAndClearsInput(t *testing.T) {
	ctrl := chat.New(stubBackend{resp: &tfidf.Response{Results: []tfidf.Result{{SourceID: "a.pdf", Text: "hello", Score: 0.42}}}})
	m := typeText(t, NewModel(ctrl), "what is tf-idf")
	assert.Equal(t, "what is tf-idf", ctrl.State().Draft)

	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	next, _ := m.Update(cmd())
	m = next.(Model)

	require.Len(t, m.state.Turns, 3)
	assert.Equal(t, "Found 1 relevant result. See details below.", m.state.Turns[2].Text)
	view := m.View()
	assert.Contains(t, view, "Score: 42.0%")
	assert.Contains(t, view, "a.pdf")
	assert.Contains(t, view, "3 messages")
}

func TestModel_EnterOnBlankInputDoesNothing(t *testing.T) {
	ctrl := chat.New(stubBackend{})
	m := typeText(t, NewModel(ctrl), "   ")

	_, cmd := press(t, m, tea.KeyEnter)

	assert.Nil(t, cmd)
	assert.Len(t, ctrl.State().Turns, 1)
}

func TestModel_ErrorBannerAndDismiss(t *testing.T) {
	ctrl := chat.New(stubBackend{err: errors.New("connection refused")})
	m := typeText(t, NewModel(ctrl), "hello")
	m, cmd := press(t, m, tea.KeyEnter)
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Contains(t, m.View(), "Backend connection failed: connection refused")

	m, _ = press(t, m, tea.KeyEscape)
	assert.Empty(t, m.state.Error)
	assert.NotContains(t, m.View(), "Backend connection failed")
}

func TestModel_ClearAndReset(t *testing.T) {
	ctrl := chat.New(stubBackend{resp: &tfidf.Response{}})
	m := typeText(t, NewModel(ctrl), "hello")
	m, cmd := press(t, m, tea.KeyEnter)
	m.Update(cmd())

	m, _ = press(t, m, tea.KeyCtrlL)
	require.Len(t, m.state.Turns, 1)
	assert.Contains(t, m.View(), "Chat cleared.")

	m = typeText(t, m, "half")
	m, _ = press(t, m, tea.KeyCtrlR)
	require.Len(t, m.state.Turns, 1)
	assert.Empty(t, m.input.Value())
	assert.Empty(t, ctrl.State().Draft)
	assert.Contains(t, m.View(), "System rebooted.")
}

func TestModel_StateChangedRefreshesAndKeepsListening(t *testing.T) {
	ctrl := chat.New(stubBackend{})
	m := NewModel(ctrl)
	ctrl.Clear()

	next, cmd := m.Update(stateChangedMsg{})

	assert.NotNil(t, cmd)
	assert.Contains(t, next.(Model).View(), "Chat cleared.")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short", 200))

	long := strings.Repeat("é", 250)
	got := Snippet(long, 200)
	assert.Equal(t, 201, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "Score: 42.0%", FormatScore(0.42))
	assert.Equal(t, "Score: 100.0%", FormatScore(1))
}

func TestMessageCount(t *testing.T) {
	assert.Equal(t, "1 message", messageCount(1))
	assert.Equal(t, "4 messages", messageCount(4))
}
