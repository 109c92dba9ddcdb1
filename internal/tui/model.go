// Package tui is the terminal front end. Each bubbletea update turns key
// presses into session events and runs one session frame.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nutrition-tracker/internal/ledger"
	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/nutrition"
	"nutrition-tracker/internal/tracker"
)

type mode int

const (
	modeBrowse mode = iota
	modeEditCell
	modeAddFood
	modeChangeFood
	modeTitle
	modeNotes
)

const (
	foodColumnWidth  = 20
	valueColumnWidth = 10
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	notesStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	dirtyMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Render("●")
	tableStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

// FoodsReloadedMsg carries a table reloaded by the file watcher.
type FoodsReloadedMsg struct {
	Table *nutrition.Table
}

// Model is the bubbletea model over one session.
type Model struct {
	session *tracker.Session
	state   tracker.RenderState

	table table.Model
	input textinput.Model
	help  help.Model
	keys  keyMap

	mode     mode
	column   models.Field
	inputErr error

	now       func() time.Time
	lastFrame time.Time
	width     int
	height    int
}

// New creates the terminal model for session.
func New(session *tracker.Session) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 256

	t := table.New(
		table.WithFocused(true),
		table.WithHeight(10),
	)

	m := Model{
		session: session,
		table:   t,
		input:   input,
		help:    help.New(),
		keys:    keys,
		column:  models.Weight,
		now:     time.Now,
	}
	m.lastFrame = m.now()
	m.state = session.State()
	m.refreshTable()
	return m
}

// State returns the state drawn by the last frame.
func (m Model) State() tracker.RenderState {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if h := msg.Height - 12; h > 3 {
			m.table.SetHeight(h)
		}

	case FoodsReloadedMsg:
		m.session.Post(tracker.ReplaceFoods{Table: msg.Table})

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.mode == modeBrowse {
			var quit bool
			cmd, quit = m.handleBrowseKey(msg)
			if quit {
				return m, tea.Quit
			}
		} else {
			cmd = m.handleInputKey(msg)
		}
	}

	m.frame()
	return m, cmd
}

// frame runs one session update and redraws the table from its result.
func (m *Model) frame() {
	now := m.now()
	dt := now.Sub(m.lastFrame)
	m.lastFrame = now

	rowsBefore := len(m.state.Rows)
	m.state = m.session.Update(dt)
	m.refreshTable()
	if len(m.state.Rows) > rowsBefore {
		m.table.SetCursor(len(m.state.Rows) - 1)
	}
}

func (m *Model) handleBrowseKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return nil, true

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		m.table.MoveUp(1)

	case key.Matches(msg, m.keys.Down):
		m.table.MoveDown(1)

	case key.Matches(msg, m.keys.Left):
		if m.column > models.Protein {
			m.column--
		}

	case key.Matches(msg, m.keys.Right):
		if m.column < models.Weight {
			m.column++
		}

	case key.Matches(msg, m.keys.Edit):
		value := m.state.Total[m.column]
		if row, ok := m.selectedRow(); ok {
			value = m.state.Rows[row].Values[m.column]
		}
		return m.startInput(modeEditCell, formatValue(value), m.column.String()), false

	case key.Matches(msg, m.keys.Add):
		return m.startInput(modeAddFood, "", "food name"), false

	case key.Matches(msg, m.keys.Change):
		if row, ok := m.selectedRow(); ok {
			return m.startInput(modeChangeFood, m.state.Rows[row].Food, "food name"), false
		}

	case key.Matches(msg, m.keys.Remove):
		if row, ok := m.selectedRow(); ok {
			m.session.Post(tracker.RemoveRow{Index: row})
		}

	case key.Matches(msg, m.keys.Title):
		return m.startInput(modeTitle, m.state.Title, "meal title"), false

	case key.Matches(msg, m.keys.Notes):
		return m.startInput(modeNotes, m.state.Notes, "meal notes"), false

	case key.Matches(msg, m.keys.Save):
		m.session.Post(tracker.Save{})
	}
	return nil, false
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopInput()
		return nil

	case key.Matches(msg, m.keys.Accept):
		if err := m.commitInput(); err != nil {
			m.inputErr = err
			return nil
		}
		m.stopInput()
		return nil

	case key.Matches(msg, m.keys.Complete) && (m.mode == modeAddFood || m.mode == modeChangeFood):
		typed := m.input.Value()
		if matches := m.session.Foods().Complete(typed); len(matches) > 0 {
			if prefix := commonPrefix(matches); len(prefix) >= len(typed) {
				m.input.SetValue(prefix)
				m.input.CursorEnd()
			}
		}
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) commitInput() error {
	value := m.input.Value()

	switch m.mode {
	case modeEditCell:
		v, err := parseValue(value)
		if err != nil {
			return err
		}
		if row, ok := m.selectedRow(); ok {
			m.session.Post(tracker.EditCell{Index: row, Field: m.column, Value: v})
		} else {
			m.session.Post(tracker.EditTotal{Field: m.column, Value: v})
		}

	case modeAddFood:
		food, err := m.resolveFood(value)
		if err != nil {
			return err
		}
		m.session.Post(tracker.AddRow{Food: food})

	case modeChangeFood:
		food, err := m.resolveFood(value)
		if err != nil {
			return err
		}
		if row, ok := m.selectedRow(); ok {
			m.session.Post(tracker.SelectFood{Index: row, Food: food})
		}

	case modeTitle:
		m.session.Post(tracker.SetTitle{Title: strings.TrimSpace(value)})

	case modeNotes:
		m.session.Post(tracker.SetNotes{Notes: value})
	}
	return nil
}

// resolveFood accepts an exact name or a prefix matching exactly one food.
func (m *Model) resolveFood(input string) (string, error) {
	input = strings.TrimSpace(input)
	foods := m.session.Foods()
	if _, ok := foods.Lookup(input); ok {
		return input, nil
	}
	matches := foods.Complete(input)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("%q: %w", input, nutrition.ErrUnknownFood)
	default:
		return "", fmt.Errorf("%q matches %d foods", input, len(matches))
	}
}

func (m *Model) startInput(md mode, value, placeholder string) tea.Cmd {
	m.mode = md
	m.inputErr = nil
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.table.Blur()
	return m.input.Focus()
}

func (m *Model) stopInput() {
	m.mode = modeBrowse
	m.inputErr = nil
	m.input.Blur()
	m.input.Reset()
	m.table.Focus()
}

// selectedRow returns the ledger row under the cursor; false on the total row.
func (m *Model) selectedRow() (int, bool) {
	cursor := m.table.Cursor()
	if cursor >= 0 && cursor < len(m.state.Rows) {
		return cursor, true
	}
	return 0, false
}

func (m *Model) refreshTable() {
	columns := []table.Column{{Title: "Food", Width: foodColumnWidth}}
	for i := 0; i < models.NumFields; i++ {
		f := models.Field(i)
		title := f.String()
		if f == m.column {
			title = "[" + title + "]"
		}
		columns = append(columns, table.Column{Title: title, Width: valueColumnWidth})
	}

	rows := make([]table.Row, 0, len(m.state.Rows)+1)
	for _, r := range m.state.Rows {
		rows = append(rows, valueRow(r.Food, r.Values))
	}
	rows = append(rows, valueRow(ledger.TotalName, m.state.Total))

	// Columns go first: rendering indexes the columns by row cell.
	m.table.SetColumns(columns)
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(len(rows) - 1)
	}
}

func valueRow(name string, values models.Values) table.Row {
	row := table.Row{name}
	for _, v := range values {
		row = append(row, formatValue(v))
	}
	return row
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "g"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("enter a number")
	}
	return v, nil
}

// commonPrefix shortens by whole runes so the result stays valid UTF-8.
func commonPrefix(names []string) string {
	prefix := []rune(names[0])
	for _, name := range names[1:] {
		for !strings.HasPrefix(name, string(prefix)) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return string(prefix)
}

func (m Model) View() string {
	var b strings.Builder

	title := m.state.Title
	if title == "" {
		title = "Untitled meal"
	}
	header := titleStyle.Render(title)
	if m.state.Dirty {
		header += " " + dirtyMark
	}
	b.WriteString(header + "\n")
	if m.state.Notes != "" {
		b.WriteString(notesStyle.Render(m.state.Notes) + "\n")
	}
	b.WriteString(tableStyle.Render(m.table.View()) + "\n")

	if m.mode != modeBrowse {
		b.WriteString(promptStyle.Render(m.input.Placeholder+":") + " " + m.input.View() + "\n")
	}

	switch {
	case m.inputErr != nil:
		b.WriteString(errorStyle.Render(m.inputErr.Error()) + "\n")
	case m.state.Err != nil:
		b.WriteString(errorStyle.Render(m.state.Err.Error()) + "\n")
	case m.state.Status != "":
		b.WriteString(statusStyle.Render(m.state.Status) + "\n")
	}

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).MarginTop(1).Render(m.help.View(m.keys)))
	return b.String()
}
