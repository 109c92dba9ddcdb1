package tracker

import (
	"errors"
	"fmt"

	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/nutrition"
)

// Event is a user intent applied to a Session.
type Event interface {
	name() string
	apply(s *Session) error
}

// AddRow appends a row for a food from the table.
type AddRow struct {
	Food string
}

func (AddRow) name() string { return "add row" }

func (e AddRow) apply(s *Session) error {
	if _, err := s.foods.Profile(e.Food); err != nil {
		return err
	}
	s.ledger.AddRow(e.Food)
	s.dirty = true
	return nil
}

// RemoveRow deletes the row at Index.
type RemoveRow struct {
	Index int
}

func (RemoveRow) name() string { return "remove row" }

func (e RemoveRow) apply(s *Session) error {
	if err := s.ledger.RemoveRow(e.Index); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// SelectFood switches the food of an existing row, clearing its values.
type SelectFood struct {
	Index int
	Food  string
}

func (SelectFood) name() string { return "select food" }

func (e SelectFood) apply(s *Session) error {
	if _, err := s.foods.Profile(e.Food); err != nil {
		return err
	}
	if err := s.ledger.SelectFood(e.Index, e.Food); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// EditCell sets one value of a row.
type EditCell struct {
	Index int
	Field models.Field
	Value float64
}

func (EditCell) name() string { return "edit cell" }

func (e EditCell) apply(s *Session) error {
	if err := s.ledger.EditCell(e.Index, e.Field, e.Value); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// EditTotal sets one cell of the total row, rescaling the ledger.
type EditTotal struct {
	Field models.Field
	Value float64
}

func (EditTotal) name() string { return "edit total" }

func (e EditTotal) apply(s *Session) error {
	if err := s.ledger.EditTotal(e.Field, e.Value); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// SetTitle replaces the meal title.
type SetTitle struct {
	Title string
}

func (SetTitle) name() string { return "set title" }

func (e SetTitle) apply(s *Session) error {
	if s.ledger.Title != e.Title {
		s.ledger.Title = e.Title
		s.dirty = true
	}
	return nil
}

// SetNotes replaces the meal notes.
type SetNotes struct {
	Notes string
}

func (SetNotes) name() string { return "set notes" }

func (e SetNotes) apply(s *Session) error {
	if s.ledger.Notes != e.Notes {
		s.ledger.Notes = e.Notes
		s.dirty = true
	}
	return nil
}

// Save writes the ledger to the save file and the archive.
type Save struct{}

func (Save) name() string { return "save" }

func (Save) apply(s *Session) error {
	return s.save(s.ctx)
}

// ReplaceFoods swaps in a freshly loaded food table.
type ReplaceFoods struct {
	Table *nutrition.Table
}

func (ReplaceFoods) name() string { return "replace foods" }

func (e ReplaceFoods) apply(s *Session) error {
	if e.Table == nil {
		return errors.New("nil food table")
	}
	s.foods = e.Table
	s.ledger.SetFoods(e.Table)
	s.status = fmt.Sprintf("food database reloaded (%d foods)", e.Table.Len())
	s.logger.Info().Int("foods", e.Table.Len()).Msg("food table replaced")
	return nil
}

// Restore replaces the ledger contents, as when loading an archived meal.
type Restore struct {
	Document models.Document
}

func (Restore) name() string { return "restore" }

func (e Restore) apply(s *Session) error {
	s.ledger.Restore(e.Document)
	s.dirty = true
	return nil
}
