// Package ledger keeps the rows of one meal and their column totals consistent.
package ledger

import (
	"errors"
	"fmt"
	"math"

	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/nutrition"
)

var (
	ErrIndexOutOfRange = errors.New("row index out of range")
	ErrInvalidField    = errors.New("invalid field")
	ErrInvalidValue    = errors.New("value is not a finite number")
	ErrMalformedSave   = errors.New("malformed save")

	// Re-exported so callers only need this package to classify edit errors.
	ErrUnknownFood    = nutrition.ErrUnknownFood
	ErrDivisionByZero = nutrition.ErrDivisionByZero
)

// Epsilon is the magnitude below which a total is treated as zero.
const Epsilon = 1.1920929e-07

// TotalName labels the total row.
const TotalName = "Total"

// Ledger is an ordered list of meal rows plus their column-wise total.
// It is not safe for concurrent use.
type Ledger struct {
	Title string
	Notes string

	rows  []models.Row
	total models.Values
	foods *nutrition.Table
}

// New creates an empty ledger resolving foods through the given table.
func New(foods *nutrition.Table) *Ledger {
	return &Ledger{foods: foods}
}

// SetFoods replaces the table used to resolve row foods.
func (l *Ledger) SetFoods(foods *nutrition.Table) {
	l.foods = foods
}

// Foods returns the table the ledger resolves rows against.
func (l *Ledger) Foods() *nutrition.Table {
	return l.foods
}

// Len returns the number of rows.
func (l *Ledger) Len() int {
	return len(l.rows)
}

// Rows returns a copy of the rows in insertion order.
func (l *Ledger) Rows() []models.Row {
	out := make([]models.Row, len(l.rows))
	copy(out, l.rows)
	return out
}

// Row returns the row at index.
func (l *Ledger) Row(index int) (models.Row, error) {
	if err := l.checkIndex(index); err != nil {
		return models.Row{}, err
	}
	return l.rows[index], nil
}

// Total returns the total row values.
func (l *Ledger) Total() models.Values {
	return l.total
}

// AddRow appends a zeroed row for food and returns its index. The food is
// resolved only when the row is edited.
func (l *Ledger) AddRow(food string) int {
	l.rows = append(l.rows, models.Row{Food: food})
	return len(l.rows) - 1
}

// RemoveRow deletes the row at index, keeping the order of the others.
func (l *Ledger) RemoveRow(index int) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	l.rows = append(l.rows[:index], l.rows[index+1:]...)
	l.recalculateTotal()
	return nil
}

// SelectFood points the row at a different food and clears its values.
func (l *Ledger) SelectFood(index int, food string) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	l.rows[index] = models.Row{Food: food}
	l.recalculateTotal()
	return nil
}

// EditCell sets one value of a row and derives the others from the row's
// food profile. On error the row is left as it was.
func (l *Ledger) EditCell(index int, field models.Field, value float64) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	if !field.Valid() {
		return fmt.Errorf("%d: %w", int(field), ErrInvalidField)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%v: %w", value, ErrInvalidValue)
	}

	row := l.rows[index]
	values, err := Recompute(l.foods, row.Food, field, value)
	if err != nil {
		return err
	}

	l.rows[index].Values = values
	l.recalculateTotal()
	return nil
}

// Recompute returns the values of a row of food whose field was set to value.
func Recompute(foods *nutrition.Table, food string, field models.Field, value float64) (models.Values, error) {
	profile, err := foods.Profile(food)
	if err != nil {
		return models.Values{}, err
	}

	weight, err := nutrition.WeightFromValue(profile, field, value)
	if err != nil {
		return models.Values{}, err
	}

	var values models.Values
	for i := range values {
		other := models.Field(i)
		if other == field {
			continue
		}
		if values[i], err = nutrition.ValueFromWeight(profile, other, weight); err != nil {
			return models.Values{}, err
		}
	}
	values[field] = value
	return values, nil
}

// EditTotal sets one total cell and scales every row value and every other
// total cell by the same ratio. A total that is currently zero cannot be
// scaled and is reset to zero instead.
func (l *Ledger) EditTotal(field models.Field, value float64) error {
	if !field.Valid() {
		return fmt.Errorf("%d: %w", int(field), ErrInvalidField)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%v: %w", value, ErrInvalidValue)
	}

	prev := l.total[field]
	if math.Abs(prev) < Epsilon {
		l.total[field] = 0
		return nil
	}

	scale := value / prev
	for i := range l.rows {
		l.rows[i].Values = l.rows[i].Values.Scale(scale)
	}
	l.total = l.total.Scale(scale)
	l.total[field] = value
	return nil
}

func (l *Ledger) recalculateTotal() {
	var total models.Values
	for _, row := range l.rows {
		total = total.Add(row.Values)
	}
	l.total = total
}

func (l *Ledger) checkIndex(index int) error {
	if index < 0 || index >= len(l.rows) {
		return fmt.Errorf("index %d with %d rows: %w", index, len(l.rows), ErrIndexOutOfRange)
	}
	return nil
}
