// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/tracker"
)

type AddRowParams struct {
	Food string `json:"food" description:"Name of a food from the database"`
}

type RemoveRowParams struct {
	Index *int `json:"index" description:"Zero-based row index"`
}

type SelectFoodParams struct {
	Index *int   `json:"index" description:"Zero-based row index"`
	Food  string `json:"food" description:"Name of the new food"`
}

type EditCellParams struct {
	Index *int     `json:"index" description:"Zero-based row index"`
	Field string   `json:"field" description:"protein, carbo, fat, calories or weight"`
	Value *float64 `json:"value" description:"New value of the cell"`
}

type EditTotalParams struct {
	Field string   `json:"field" description:"protein, carbo, fat, calories or weight"`
	Value *float64 `json:"value" description:"New value of the total cell"`
}

type SetTitleParams struct {
	Title string `json:"title" description:"Meal title"`
}

type SetNotesParams struct {
	Notes string `json:"notes" description:"Free-text notes"`
}

type ListArchiveParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of ledgers to return"`
}

type LoadArchiveParams struct {
	ID string `json:"id" description:"Archived ledger id"`
}

// LedgerView is the JSON body returned by ledger-changing tools.
type LedgerView struct {
	Title  string        `json:"title"`
	Notes  string        `json:"notes"`
	Rows   []models.Row  `json:"rows"`
	Total  models.Values `json:"total"`
	Dirty  bool          `json:"dirty"`
	Status string        `json:"status,omitempty"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	return nil
}

func requireIndex(index *int) (int, error) {
	if index == nil {
		return 0, fmt.Errorf("row index is required")
	}
	return *index, nil
}

func requireValue(value *float64) (float64, error) {
	if value == nil {
		return 0, fmt.Errorf("value is required")
	}
	return *value, nil
}

func (s *ToolServer) registerTools() {
	s.tools = map[string]toolHandler{
		"list_foods":   s.handleListFoods,
		"get_ledger":   s.handleGetLedger,
		"add_row":      s.handleAddRow,
		"remove_row":   s.handleRemoveRow,
		"select_food":  s.handleSelectFood,
		"edit_cell":    s.handleEditCell,
		"edit_total":   s.handleEditTotal,
		"set_title":    s.handleSetTitle,
		"set_notes":    s.handleSetNotes,
		"save":         s.handleSave,
		"list_archive": s.handleListArchive,
		"load_archive": s.handleLoadArchive,
	}
}

// apply runs an event and answers with the resulting ledger.
func (s *ToolServer) apply(ev tracker.Event) (*protocol.CallToolResult, error) {
	if err := s.session.Apply(ev); err != nil {
		return nil, err
	}
	return s.ledgerResponse()
}

func (s *ToolServer) ledgerResponse() (*protocol.CallToolResult, error) {
	state := s.session.State()
	return s.createJSONResponse(LedgerView{
		Title:  state.Title,
		Notes:  state.Notes,
		Rows:   state.Rows,
		Total:  state.Total,
		Dirty:  state.Dirty,
		Status: state.Status,
	})
}

func (s *ToolServer) handleListFoods(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(s.session.Foods().Names())
}

func (s *ToolServer) handleGetLedger(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.ledgerResponse()
}

func (s *ToolServer) handleAddRow(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AddRowParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if params.Food == "" {
		return nil, fmt.Errorf("food is required")
	}
	return s.apply(tracker.AddRow{Food: params.Food})
}

func (s *ToolServer) handleRemoveRow(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params RemoveRowParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	index, err := requireIndex(params.Index)
	if err != nil {
		return nil, err
	}
	return s.apply(tracker.RemoveRow{Index: index})
}

func (s *ToolServer) handleSelectFood(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SelectFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	index, err := requireIndex(params.Index)
	if err != nil {
		return nil, err
	}
	if params.Food == "" {
		return nil, fmt.Errorf("food is required")
	}
	return s.apply(tracker.SelectFood{Index: index, Food: params.Food})
}

func (s *ToolServer) handleEditCell(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EditCellParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	index, err := requireIndex(params.Index)
	if err != nil {
		return nil, err
	}
	field, err := models.ParseField(params.Field)
	if err != nil {
		return nil, err
	}
	value, err := requireValue(params.Value)
	if err != nil {
		return nil, err
	}
	return s.apply(tracker.EditCell{Index: index, Field: field, Value: value})
}

func (s *ToolServer) handleEditTotal(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EditTotalParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	field, err := models.ParseField(params.Field)
	if err != nil {
		return nil, err
	}
	value, err := requireValue(params.Value)
	if err != nil {
		return nil, err
	}
	return s.apply(tracker.EditTotal{Field: field, Value: value})
}

func (s *ToolServer) handleSetTitle(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SetTitleParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return s.apply(tracker.SetTitle{Title: params.Title})
}

func (s *ToolServer) handleSetNotes(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SetNotesParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return s.apply(tracker.SetNotes{Notes: params.Notes})
}

func (s *ToolServer) handleSave(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.apply(tracker.Save{})
}

func (s *ToolServer) handleListArchive(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("archive is not configured")
	}
	var params ListArchiveParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	// Set defaults
	if params.Limit <= 0 {
		params.Limit = 20
	}

	ledgers, err := s.archive.GetLedgers(ctx, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve ledgers: %w", err)
	}
	return s.createJSONResponse(ledgers)
}

func (s *ToolServer) handleLoadArchive(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("archive is not configured")
	}
	var params LoadArchiveParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if params.ID == "" {
		return nil, fmt.Errorf("id is required")
	}

	archived, err := s.archive.LoadLedger(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return s.apply(tracker.Restore{Document: archived.Document})
}
