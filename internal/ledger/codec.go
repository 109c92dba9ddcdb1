package ledger

import (
	"encoding/json"
	"fmt"

	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/nutrition"
)

// Document returns the save-file view of the ledger.
func (l *Ledger) Document() models.Document {
	return models.Document{
		Title: l.Title,
		Notes: l.Notes,
		Rows:  l.Rows(),
	}
}

// Restore replaces the ledger contents with doc and recomputes the totals.
func (l *Ledger) Restore(doc models.Document) {
	l.Title = doc.Title
	l.Notes = doc.Notes
	l.rows = make([]models.Row, len(doc.Rows))
	copy(l.rows, doc.Rows)
	l.recalculateTotal()
}

// Marshal encodes the ledger in the save-file format.
func (l *Ledger) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(l.Document(), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a save file into a new ledger bound to foods.
func Unmarshal(data []byte, foods *nutrition.Table) (*Ledger, error) {
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, err
	}
	l := New(foods)
	l.Restore(doc)
	return l, nil
}

type savedRow struct {
	Name   *string   `json:"name"`
	Values []*float64 `json:"values"`
}

type savedLedger struct {
	Title *string          `json:"title"`
	Notes *string          `json:"notes"`
	Rows  *json.RawMessage `json:"rows"`
}

// DecodeDocument parses a save file. Title and notes are optional; rows, when
// present, must be a list of {name, values[5]} records.
func DecodeDocument(data []byte) (models.Document, error) {
	var saved savedLedger
	if err := json.Unmarshal(data, &saved); err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", ErrMalformedSave, err)
	}

	var doc models.Document
	if saved.Title != nil {
		doc.Title = *saved.Title
	}
	if saved.Notes != nil {
		doc.Notes = *saved.Notes
	}
	if saved.Rows == nil {
		return doc, nil
	}

	var rows []savedRow
	if err := json.Unmarshal(*saved.Rows, &rows); err != nil {
		return models.Document{}, fmt.Errorf("%w: rows: %v", ErrMalformedSave, err)
	}

	doc.Rows = make([]models.Row, 0, len(rows))
	for i, row := range rows {
		if row.Name == nil {
			return models.Document{}, fmt.Errorf("%w: row %d has no name", ErrMalformedSave, i)
		}
		if len(row.Values) != models.NumFields {
			return models.Document{}, fmt.Errorf("%w: row %d has %d values, want %d",
				ErrMalformedSave, i, len(row.Values), models.NumFields)
		}
		r := models.Row{Food: *row.Name}
		for j, v := range row.Values {
			if v == nil {
				return models.Document{}, fmt.Errorf("%w: row %d (%s) value %d is null",
					ErrMalformedSave, i, *row.Name, j)
			}
			r.Values[j] = *v
		}
		doc.Rows = append(doc.Rows, r)
	}
	return doc, nil
}
