// Package tui is the interactive terminal surface of the workbench.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/jrbench/internal/logging"
	"github.com/joeycumines/jrbench/internal/workbench"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultWidth        = 80
	defaultResultHeight = 12
	editorHeight        = 5
	logLines            = 8
)

// Options configure a Model.
type Options struct {
	Workbench *workbench.Workbench
	// Logs, when set, backs the log pane.
	Logs *logging.Buffer
	// Reference prefills the reference editor.
	Reference    string
	ResultHeight int
	// Color is one of auto, always, never.
	Color string
}

// engineLoadedMsg carries the outcome of the engine load.
type engineLoadedMsg struct{ err error }

// section is an editor pane: the reference or one operation category.
type section struct {
	title    string
	category workbench.Category
	// reference marks the reference pane; category is unused then.
	reference bool
	editor    textarea.Model
}

// Model is the bubbletea model.
type Model struct {
	wb   *workbench.Workbench
	logs *logging.Buffer
	ctx  context.Context

	sections []section
	focus    int

	result       viewport.Model
	resultHeight int
	showLog      bool

	width int
}

// NewModel builds the model. ctx bounds the engine load started by Init.
func NewModel(ctx context.Context, opts Options) Model {
	applyColorMode(opts.Color)

	resultHeight := opts.ResultHeight
	if resultHeight <= 0 {
		resultHeight = defaultResultHeight
	}

	title := cases.Title(language.English)

	sections := []section{{
		title:     "Reference data",
		reference: true,
		editor:    newEditor("Reference data as JSON", opts.Reference),
	}}
	for _, c := range workbench.Categories() {
		sections = append(sections, section{
			title:    title.String(c.String()),
			category: c,
			editor:   newEditor(title.String(c.String())+" input as JSON", ""),
		})
	}

	m := Model{
		wb:           opts.Workbench,
		logs:         opts.Logs,
		ctx:          ctx,
		sections:     sections,
		result:       viewport.New(defaultWidth-3, resultHeight),
		resultHeight: resultHeight,
		width:        defaultWidth,
	}
	m.resize(defaultWidth)
	return m
}

func newEditor(placeholder, value string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(editorHeight)
	ta.SetValue(value)
	ta.Blur()
	return ta
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadEngine())
}

func (m Model) loadEngine() tea.Cmd {
	return func() tea.Msg {
		return engineLoadedMsg{err: m.wb.Load(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width)
		m.result.Height = max(3, min(m.resultHeight, msg.Height/3))
		return m, nil

	case engineLoadedMsg:
		// the outcome is already recorded in the session status
		return m, m.refocus()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			return m, m.moveFocus(1)
		case "shift+tab":
			return m, m.moveFocus(-1)
		case "ctrl+s":
			return m, m.submit()
		case "ctrl+r":
			m.initialize()
			return m, m.refocus()
		case "ctrl+l":
			m.showLog = !m.showLog
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.result, cmd = m.result.Update(msg)
			return m, cmd
		}
	}

	if s := m.focused(); s != nil {
		var cmd tea.Cmd
		s.editor, cmd = s.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

// visible returns the indexes of the sections currently shown: nothing
// until the engine is ready, the categories only once a processor exists.
func (m *Model) visible() []int {
	if m.wb.Session.Readiness() != workbench.Ready {
		return nil
	}
	if !m.wb.Session.HasProcessor() {
		return []int{0}
	}
	out := make([]int, len(m.sections))
	for i := range out {
		out[i] = i
	}
	return out
}

func (m *Model) focused() *section {
	for _, i := range m.visible() {
		if i == m.focus {
			return &m.sections[i]
		}
	}
	return nil
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	vis := m.visible()
	if len(vis) == 0 {
		return nil
	}
	pos := 0
	for i, idx := range vis {
		if idx == m.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(vis)) % len(vis)
	m.focus = vis[pos]
	return m.refocus()
}

// refocus makes the focused editor the only focused one, falling back to the
// first visible section.
func (m *Model) refocus() tea.Cmd {
	if m.focused() == nil {
		if vis := m.visible(); len(vis) > 0 {
			m.focus = vis[0]
		}
	}
	var cmd tea.Cmd
	for i := range m.sections {
		if i == m.focus && m.focused() != nil {
			cmd = m.sections[i].editor.Focus()
		} else {
			m.sections[i].editor.Blur()
		}
	}
	return cmd
}

func (m *Model) submit() tea.Cmd {
	s := m.focused()
	switch {
	case s == nil:
		return nil
	case s.reference:
		m.initialize()
		return m.refocus()
	default:
		// errors are reported through the session status
		_, _ = m.wb.Execute(s.category, s.editor.Value())
		m.showResult()
		return nil
	}
}

func (m *Model) initialize() {
	if m.wb.Session.Readiness() != workbench.Ready {
		return
	}
	_ = m.wb.Initialize(m.sections[0].editor.Value())
	m.showResult()
}

func (m *Model) showResult() {
	m.result.SetContent(m.wb.Session.Result())
	m.result.GotoTop()
}

func (m *Model) resize(width int) {
	m.width = max(20, width)
	inner := m.width - sectionStyle.GetHorizontalFrameSize()
	for i := range m.sections {
		m.sections[i].editor.SetWidth(inner)
	}
	m.result.Width = inner - 1
}

func (m Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("jrbench")
	if id := m.wb.Session.ID; len(id) >= 8 {
		header += hintStyle.Render("  session " + id[:8])
	}
	b.WriteString(header + "\n")

	status := m.wb.Status()
	b.WriteString(statusStyles[status.Severity].Render(truncate(status.Text, m.width)) + "\n")

	for _, i := range m.visible() {
		b.WriteString(m.renderSection(i) + "\n")
	}

	if m.wb.Session.Result() != "" {
		body := lipgloss.JoinHorizontal(lipgloss.Top,
			m.result.View(),
			scrollbar(m.result.TotalLineCount(), m.result.Height, m.result.YOffset),
		)
		b.WriteString(sectionStyle.Render(labelStyle.Render("Result") + "\n" + body) + "\n")
	}

	if m.showLog {
		b.WriteString(m.renderLog() + "\n")
	}

	b.WriteString(hintStyle.Render(truncate("tab/shift+tab focus • ctrl+s submit • ctrl+r initialize • pgup/pgdn scroll result • ctrl+l log • esc quit", m.width)))
	return b.String()
}

func (m Model) renderSection(i int) string {
	s := m.sections[i]

	var button string
	switch {
	case s.reference && m.wb.Session.HasProcessor():
		button = "Reload Processor"
	case s.reference:
		button = "Initialize Processor"
	default:
		button = "Execute " + s.title
	}

	style := sectionStyle
	if i == m.focus {
		style = focusedSectionStyle
	}
	return style.Render(
		labelStyle.Render(s.title) + "\n" +
			s.editor.View() + "\n" +
			buttonStyle.Render(button) + hintStyle.Render(" ctrl+s"),
	)
}

func (m Model) renderLog() string {
	if m.logs == nil {
		return sectionStyle.Render(hintStyle.Render("logging disabled"))
	}
	entries := m.logs.Recent(logLines)
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, labelStyle.Render(fmt.Sprintf("Log (%d)", m.logs.Len())))
	for _, e := range entries {
		lines = append(lines, truncate(e.String(), m.width-sectionStyle.GetHorizontalFrameSize()))
	}
	return sectionStyle.Render(strings.Join(lines, "\n"))
}
