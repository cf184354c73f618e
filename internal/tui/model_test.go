package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/jrbench/internal/engine"
	"github.com/joeycumines/jrbench/internal/jsonvalue"
	"github.com/joeycumines/jrbench/internal/logging"
	"github.com/joeycumines/jrbench/internal/workbench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	loadErr error
}

func (e *stubEngine) Load(context.Context) error { return e.loadErr }
func (e *stubEngine) Close() error               { return nil }

func (e *stubEngine) NewProcessor(reference any) (engine.Processor, error) {
	if _, ok := reference.(*jsonvalue.Record); !ok {
		return nil, errors.New("reference must be an object")
	}
	return stubProcessor{}, nil
}

type stubProcessor struct{}

func (stubProcessor) Payload(input any) (any, error) {
	return jsonvalue.NewMap(jsonvalue.Entry{Key: "echo", Value: input}), nil
}
func (stubProcessor) Response(any) (any, error) { return nil, errors.New("response not supported") }
func (stubProcessor) Entity(any) (any, error)   { return []any{}, nil }

func newTestModel(t *testing.T, eng engine.Engine, logs *logging.Buffer) Model {
	t.Helper()
	var logger *slog.Logger
	if logs != nil {
		logger = slog.New(logs.Handler(slog.LevelDebug))
	}
	wb := workbench.New(eng, logger)
	return NewModel(context.Background(), Options{Workbench: wb, Logs: logs, Reference: `{"a": 1}`})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, m.loadEngine()())
	return m
}

func TestModel_SectionsFollowReadiness(t *testing.T) {
	m := newTestModel(t, &stubEngine{}, nil)

	view := m.View()
	assert.Contains(t, view, "Loading engine module...")
	assert.NotContains(t, view, "Reference data")

	m = loaded(t, m)
	view = m.View()
	assert.Contains(t, view, "Engine loaded, can initialize processor now")
	assert.Contains(t, view, "Reference data")
	assert.Contains(t, view, "Initialize Processor")
	assert.NotContains(t, view, "Payload")

	m, _ = update(t, m, key(tea.KeyCtrlS))
	view = m.View()
	assert.Contains(t, view, "Processor initialized")
	assert.Contains(t, view, "Reload Processor")
	for _, title := range []string{"Payload", "Response", "Entity"} {
		assert.Contains(t, view, title)
	}
}

func TestModel_ExecuteFocusedSection(t *testing.T) {
	m := loaded(t, newTestModel(t, &stubEngine{}, nil))
	m, _ = update(t, m, key(tea.KeyCtrlR))
	require.True(t, m.wb.Session.HasProcessor())

	m, _ = update(t, m, key(tea.KeyTab))
	require.Equal(t, 1, m.focus)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(`{"x": 1}`)})
	assert.Equal(t, `{"x": 1}`, m.sections[1].editor.Value())

	m, _ = update(t, m, key(tea.KeyCtrlS))
	assert.Equal(t, "Executed 'payload'", m.wb.Status().Text)
	assert.Equal(t, "{\n  \"echo\": {\n    \"x\": 1\n  }\n}", m.wb.Session.Result())
	assert.Contains(t, m.View(), `"echo": {`)

	// a failure keeps the previous result on screen
	m, _ = update(t, m, key(tea.KeyTab))
	m, _ = update(t, m, key(tea.KeyCtrlS))
	assert.Equal(t, workbench.SeverityError, m.wb.Status().Severity)
	assert.Contains(t, m.View(), `"echo": {`)
}

func TestModel_FocusWraps(t *testing.T) {
	m := loaded(t, newTestModel(t, &stubEngine{}, nil))
	m, _ = update(t, m, key(tea.KeyShiftTab))
	assert.Equal(t, 0, m.focus, "only the reference section is visible")

	m, _ = update(t, m, key(tea.KeyCtrlS))
	m, _ = update(t, m, key(tea.KeyShiftTab))
	assert.Equal(t, 3, m.focus)
	m, _ = update(t, m, key(tea.KeyTab))
	assert.Equal(t, 0, m.focus)
}

func TestModel_InvalidReference(t *testing.T) {
	m := loaded(t, newTestModel(t, &stubEngine{}, nil))
	m.sections[0].editor.SetValue(`[1, 2`)

	m, _ = update(t, m, key(tea.KeyCtrlS))
	status := m.wb.Status()
	assert.Equal(t, workbench.SeverityError, status.Severity)
	assert.True(t, strings.HasPrefix(status.Text, "Failed to initialize processor: "), status.Text)
	assert.NotContains(t, m.View(), "Payload")
}

func TestModel_EngineLoadFailure(t *testing.T) {
	m := loaded(t, newTestModel(t, &stubEngine{loadErr: errors.New("bad module")}, nil))

	m, _ = update(t, m, key(tea.KeyCtrlR))
	m, _ = update(t, m, key(tea.KeyCtrlS))

	view := m.View()
	assert.Contains(t, view, "Failed to load engine module: bad module")
	assert.NotContains(t, view, "Reference data")
	assert.False(t, m.wb.Session.HasProcessor())
}

func TestModel_LogPane(t *testing.T) {
	logs := logging.NewBuffer(10)
	m := loaded(t, newTestModel(t, &stubEngine{}, logs))

	assert.NotContains(t, m.View(), "Log (")
	m, _ = update(t, m, key(tea.KeyCtrlL))
	view := m.View()
	assert.Contains(t, view, "Log (")
	assert.Contains(t, view, "Engine loaded, can initialize processor now")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &stubEngine{}, nil)
	for _, k := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		_, cmd := update(t, m, key(k))
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
	}
}

func TestModel_WindowSize(t *testing.T) {
	m := newTestModel(t, &stubEngine{}, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 90})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, defaultResultHeight, m.result.Height)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 10, Height: 6})
	assert.Equal(t, 20, m.width)
	assert.Equal(t, 3, m.result.Height)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "日本…", truncate("日本語テキスト", 6))
	assert.Equal(t, "", truncate("anything", 0))
}

func TestScrollbar(t *testing.T) {
	assert.Empty(t, scrollbar(10, 0, 0))

	rows := strings.Split(scrollbar(4, 4, 0), "\n")
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.NotContains(t, r, "│", "content that fits is all thumb")
	}

	rows = strings.Split(scrollbar(40, 4, 36), "\n")
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0], "│")
	assert.NotContains(t, rows[3], "│")
}
