package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/nutrition"
	"nutrition-tracker/internal/storage"
	"nutrition-tracker/internal/tracker"
)

type wireResponse struct {
	Result *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error string `json:"error"`
}

func testFoods() *nutrition.Table {
	return nutrition.NewTable(
		nutrition.Profile{Name: "oats", Coefficients: models.Values{0.125, 0.625, 0.0625, 4, 1}},
		nutrition.Profile{Name: "banana", Coefficients: models.Values{0.015625, 0.25, 0.00390625, 1, 1}},
	)
}

func newTestServer(t *testing.T, archive LedgerArchive) (*ToolServer, *tracker.Session) {
	t.Helper()

	session := tracker.NewSession(testFoods(), filepath.Join(t.TempDir(), "day.json"))
	return NewToolServer(session, archive, zerolog.Nop()), session
}

func serveLines(t *testing.T, srv *ToolServer, lines ...string) []wireResponse {
	t.Helper()

	out := new(bytes.Buffer)
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	if err := srv.Serve(context.Background(), in, out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var responses []wireResponse
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var resp wireResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func decodeText(t *testing.T, resp wireResponse, target interface{}) {
	t.Helper()

	if resp.Error != "" {
		t.Fatalf("unexpected error response: %s", resp.Error)
	}
	if resp.Result == nil || len(resp.Result.Content) != 1 || resp.Result.Content[0].Type != "text" {
		t.Fatalf("expected one text content, got %+v", resp.Result)
	}
	if err := json.Unmarshal([]byte(resp.Result.Content[0].Text), target); err != nil {
		t.Fatalf("decode content: %v", err)
	}
}

func call(name, args string) string {
	return fmt.Sprintf(`{"name": %q, "arguments": %s}`, name, args)
}

func TestServeLedgerTools(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	responses := serveLines(t, srv,
		call("add_row", `{"food": "oats"}`),
		call("edit_cell", `{"index": 0, "field": "weight", "value": 40}`),
		call("add_row", `{"food": "banana"}`),
		call("edit_cell", `{"index": 1, "field": "carbo", "value": 30}`),
		call("set_title", `{"title": "Porridge"}`),
		call("edit_total", `{"field": "weight", "value": 80}`),
	)
	if len(responses) != 6 {
		t.Fatalf("expected 6 responses, got %d", len(responses))
	}

	var view LedgerView
	decodeText(t, responses[3], &view)
	if view.Rows[1].Values != (models.Values{1.875, 30, 0.46875, 120, 120}) {
		t.Fatalf("unexpected banana row %v", view.Rows[1].Values)
	}

	decodeText(t, responses[5], &view)
	if view.Title != "Porridge" || !view.Dirty {
		t.Fatalf("unexpected ledger view %+v", view)
	}
	if view.Total[models.Weight] != 80 {
		t.Fatalf("expected total weight 80, got %v", view.Total[models.Weight])
	}
	if view.Rows[0].Values != (models.Values{2.5, 12.5, 1.25, 80, 20}) {
		t.Fatalf("unexpected rescaled oats row %v", view.Rows[0].Values)
	}
}

func TestServeReportsErrors(t *testing.T) {
	t.Parallel()

	srv, session := newTestServer(t, nil)
	responses := serveLines(t, srv,
		`not json`,
		call("explode", `{}`),
		call("add_row", `{"food": "tofu"}`),
		call("remove_row", `{"index": 3}`),
		call("remove_row", `{}`),
		call("edit_cell", `{"index": 0, "field": "fiber", "value": 1}`),
		call("edit_total", `{"field": "fat"}`),
		call("list_archive", `{}`),
		"",
		call("get_ledger", `{}`),
	)
	if len(responses) != 9 {
		t.Fatalf("expected 9 responses (blank lines are skipped), got %d", len(responses))
	}
	for i, resp := range responses[:8] {
		if resp.Error == "" {
			t.Fatalf("response %d: expected error", i)
		}
	}
	if !strings.Contains(responses[2].Error, "unknown food") {
		t.Fatalf("expected unknown food error, got %q", responses[2].Error)
	}
	if !strings.Contains(responses[3].Error, "out of range") {
		t.Fatalf("expected out of range error, got %q", responses[3].Error)
	}
	if session.State().Dirty {
		t.Fatal("expected failed calls to leave the session untouched")
	}
}

func TestServeListFoods(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	responses := serveLines(t, srv, call("list_foods", `{}`))

	var names []string
	decodeText(t, responses[0], &names)
	if strings.Join(names, ",") != "banana,oats" {
		t.Fatalf("unexpected foods %v", names)
	}
}

func TestReplaceFoodsKeepsNewest(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	replacement := nutrition.NewTable(nutrition.Profile{Name: "rye", Coefficients: models.Values{1, 1, 1, 1, 1}})
	srv.ReplaceFoods(testFoods())
	srv.ReplaceFoods(replacement)

	if got := <-srv.reloads; got != replacement {
		t.Fatal("expected only the newest reloaded table to be pending")
	}
}

func TestServeAppliesReloadBetweenRequests(t *testing.T) {
	t.Parallel()

	srv, session := newTestServer(t, nil)
	replacement := nutrition.NewTable(nutrition.Profile{Name: "rye", Coefficients: models.Values{1, 1, 1, 1, 1}})

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(context.Background(), inR, outW)
		outW.Close()
	}()

	srv.ReplaceFoods(replacement)
	responses := bufio.NewScanner(outR)
	reloaded := false
	for i := 0; i < 50 && !reloaded; i++ {
		if _, err := io.WriteString(inW, call("list_foods", `{}`)+"\n"); err != nil {
			t.Fatalf("write request: %v", err)
		}
		if !responses.Scan() {
			t.Fatalf("expected a response: %v", responses.Err())
		}
		var resp wireResponse
		if err := json.Unmarshal(responses.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		var names []string
		decodeText(t, resp, &names)
		reloaded = len(names) == 1 && names[0] == "rye"
	}
	inW.Close()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !reloaded || session.Foods() != replacement {
		t.Fatal("expected the reloaded table to be applied by the serving loop")
	}
}

func TestServeSaveAndArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stor, err := storage.NewSQLiteStorage(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer stor.Close()

	session := tracker.NewSession(testFoods(), filepath.Join(dir, "day.json"), tracker.WithArchive(stor))
	srv := NewToolServer(session, stor, zerolog.Nop())

	responses := serveLines(t, srv,
		call("add_row", `{"food": "oats"}`),
		call("edit_cell", `{"index": 0, "field": "protein", "value": 5}`),
		call("set_notes", `{"notes": "pre-run"}`),
		call("save", `{}`),
		call("list_archive", `{"limit": 5}`),
	)

	var view LedgerView
	decodeText(t, responses[3], &view)
	if view.Dirty || !strings.Contains(view.Status, "archived") {
		t.Fatalf("expected clean archived state, got %+v", view)
	}

	var archived []models.ArchivedLedger
	decodeText(t, responses[4], &archived)
	if len(archived) != 1 || archived[0].Document.Notes != "pre-run" {
		t.Fatalf("unexpected archive listing %+v", archived)
	}

	responses = serveLines(t, srv,
		call("remove_row", `{"index": 0}`),
		call("load_archive", fmt.Sprintf(`{"id": %q}`, archived[0].ID)),
		call("load_archive", `{"id": "nope"}`),
	)
	decodeText(t, responses[1], &view)
	if len(view.Rows) != 1 || view.Rows[0].Values[models.Weight] != 40 {
		t.Fatalf("expected archived row to be restored, got %+v", view.Rows)
	}
	if responses[2].Error == "" {
		t.Fatal("expected error for unknown archive id")
	}
}
