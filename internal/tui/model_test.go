package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/nutrition"
	"nutrition-tracker/internal/tracker"
)

func testSession(t *testing.T) *tracker.Session {
	t.Helper()

	foods := nutrition.NewTable(
		nutrition.Profile{Name: "oats", Coefficients: models.Values{0.125, 0.625, 0.0625, 4, 1}},
		nutrition.Profile{Name: "olive oil", Coefficients: models.Values{0, 0, 1, 8, 1}},
		nutrition.Profile{Name: "banana", Coefficients: models.Values{0.015625, 0.25, 0.00390625, 1, 1}},
	)
	return tracker.NewSession(foods, filepath.Join(t.TempDir(), "day.json"))
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()

	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestAddFoodAndEditWeight(t *testing.T) {
	t.Parallel()

	m := New(testSession(t))
	m = send(t, m,
		runes("a"), runes("ban"), tea.KeyMsg{Type: tea.KeyEnter},
		tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyBackspace}, runes("120"), tea.KeyMsg{Type: tea.KeyEnter},
	)

	state := m.State()
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if len(state.Rows) != 1 || state.Rows[0].Food != "banana" {
		t.Fatalf("expected a banana row, got %+v", state.Rows)
	}
	if state.Rows[0].Values != (models.Values{1.875, 30, 0.46875, 120, 120}) {
		t.Fatalf("unexpected values %v", state.Rows[0].Values)
	}
	if !strings.Contains(m.View(), "banana") {
		t.Fatal("expected the row to be drawn")
	}
}

func TestEditSelectedColumn(t *testing.T) {
	t.Parallel()

	m := New(testSession(t))
	m = send(t, m, runes("a"), runes("oats"), tea.KeyMsg{Type: tea.KeyEnter})

	// Weight is selected first; move four columns back to Protein.
	for i := 0; i < 6; i++ {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	}
	if m.column != models.Protein {
		t.Fatalf("expected protein column, got %v", m.column)
	}

	m = send(t, m, runes("e"))
	m.input.SetValue("5")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if got := m.State().Rows[0].Values; got != (models.Values{5, 25, 2.5, 160, 40}) {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestEditTotalRow(t *testing.T) {
	t.Parallel()

	session := testSession(t)
	_ = session.Apply(tracker.AddRow{Food: "oats"})
	_ = session.Apply(tracker.EditCell{Index: 0, Field: models.Weight, Value: 40})

	m := New(session)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if _, ok := m.selectedRow(); ok {
		t.Fatal("expected the cursor to be on the total row")
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m.input.SetValue("80g")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	state := m.State()
	if state.Total[models.Weight] != 80 || state.Rows[0].Values != (models.Values{10, 50, 5, 320, 80}) {
		t.Fatalf("unexpected state after total edit: %+v", state)
	}
}

func TestInvalidInputKeepsEditing(t *testing.T) {
	t.Parallel()

	m := New(testSession(t))
	m = send(t, m, runes("a"), runes("o"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeAddFood || m.inputErr == nil {
		t.Fatal("expected an ambiguous food to keep the prompt open with an error")
	}
	if !strings.Contains(m.View(), "matches 2 foods") {
		t.Fatalf("expected the error to be drawn, got %q", m.View())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.input.Value() != "o" {
		t.Fatalf("expected completion to keep the common prefix, got %q", m.input.Value())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeBrowse || len(m.State().Rows) != 0 {
		t.Fatal("expected escape to cancel without adding a row")
	}

	m = send(t, m, runes("a"), runes("oat"), tea.KeyMsg{Type: tea.KeyEnter}, runes("e"))
	m.input.SetValue("lots")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeEditCell || m.inputErr == nil {
		t.Fatal("expected a non-number to be rejected")
	}
}

func TestTabCompletesUniqueFood(t *testing.T) {
	t.Parallel()

	m := New(testSession(t))
	m = send(t, m, runes("a"), runes("ol"), tea.KeyMsg{Type: tea.KeyTab})
	if m.input.Value() != "olive oil" {
		t.Fatalf("expected completion to olive oil, got %q", m.input.Value())
	}
}

func TestChangeAndRemoveRow(t *testing.T) {
	t.Parallel()

	session := testSession(t)
	_ = session.Apply(tracker.AddRow{Food: "oats"})
	_ = session.Apply(tracker.EditCell{Index: 0, Field: models.Weight, Value: 40})

	m := New(session)
	m = send(t, m, runes("c"))
	m.input.SetValue("banana")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	state := m.State()
	if state.Rows[0].Food != "banana" || state.Rows[0].Values != (models.Values{}) {
		t.Fatalf("expected a cleared banana row, got %+v", state.Rows[0])
	}

	m = send(t, m, runes("x"))
	if len(m.State().Rows) != 0 {
		t.Fatalf("expected row removed, got %+v", m.State().Rows)
	}

	// Nothing to remove on the total row.
	m = send(t, m, runes("x"))
	if m.State().Err != nil {
		t.Fatalf("unexpected error %v", m.State().Err)
	}
}

func TestTitleNotesAndSave(t *testing.T) {
	t.Parallel()

	m := New(testSession(t))
	m = send(t, m, runes("t"), runes("Lunch"), tea.KeyMsg{Type: tea.KeyEnter})
	m = send(t, m, runes("n"), runes("quick"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.State().Title != "Lunch" || m.State().Notes != "quick" || !m.State().Dirty {
		t.Fatalf("unexpected state %+v", m.State())
	}

	m = send(t, m, runes("s"))
	if m.State().Dirty || !strings.Contains(m.State().Status, "saved") {
		t.Fatalf("expected clean saved state, got %+v", m.State())
	}
}

func TestFramesAccumulateElapsedTime(t *testing.T) {
	t.Parallel()

	m := New(testSession(t))
	clock := m.lastFrame
	m.now = func() time.Time {
		clock = clock.Add(20 * time.Millisecond)
		return clock
	}
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40}, runes("?"))
	if m.State().Elapsed != 40*time.Millisecond {
		t.Fatalf("expected 40ms elapsed, got %v", m.State().Elapsed)
	}
	if !m.help.ShowAll {
		t.Fatal("expected full help after toggle")
	}
}

func TestFoodsReloadedMsg(t *testing.T) {
	t.Parallel()

	m := New(testSession(t))
	table := nutrition.NewTable(nutrition.Profile{Name: "rye", Coefficients: models.Values{1, 1, 1, 1, 1}})
	m = send(t, m, FoodsReloadedMsg{Table: table})
	if len(m.State().Foods) != 1 || m.State().Foods[0] != "rye" {
		t.Fatalf("expected reloaded foods, got %v", m.State().Foods)
	}
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m := New(testSession(t))
	if _, cmd := m.Update(runes("q")); cmd == nil {
		t.Fatal("expected quit command")
	}

	m = send(t, m, runes("t"))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected ctrl+c to quit while editing")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected a quit message")
	}
	if next.(Model).input.Value() != "" {
		t.Fatal("expected ctrl+c not to be typed into the input")
	}
}

func TestCommonPrefixKeepsWholeRunes(t *testing.T) {
	t.Parallel()

	// é and è share their first UTF-8 byte.
	if got := commonPrefix([]string{"café au lait", "cafè latte"}); got != "caf" {
		t.Fatalf("expected caf, got %q", got)
	}
	if got := commonPrefix([]string{"olive oil", "olives"}); got != "olive" {
		t.Fatalf("expected olive, got %q", got)
	}
}
