// Package nutrition holds the food table and the weight-proportional
// conversion between nutrient amounts and weight.
package nutrition

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"nutrition-tracker/internal/models"
)

var (
	ErrDivisionByZero = errors.New("division by zero coefficient")
	ErrUnknownFood    = errors.New("unknown food")
	ErrInvalidRecord  = errors.New("invalid food record")
)

// InvalidRecordError names the database entry that failed validation.
type InvalidRecordError struct {
	Food   string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid food record %q: %s", e.Food, e.Reason)
}

func (e *InvalidRecordError) Unwrap() error {
	return ErrInvalidRecord
}

// Profile is the fixed per-unit composition of one food.
type Profile struct {
	Name         string
	Coefficients models.Values
}

// ValueFromWeight returns the amount of field contained in weight units of the food.
func ValueFromWeight(p Profile, field models.Field, weight float64) (float64, error) {
	if !field.Valid() {
		return 0, fmt.Errorf("field %d out of range", int(field))
	}
	divisor := p.Coefficients[models.Weight]
	if divisor == 0 {
		return 0, fmt.Errorf("%s weight coefficient: %w", p.Name, ErrDivisionByZero)
	}
	return weight * p.Coefficients[field] / divisor, nil
}

// WeightFromValue returns the weight of the food that contains value of field.
func WeightFromValue(p Profile, field models.Field, value float64) (float64, error) {
	if !field.Valid() {
		return 0, fmt.Errorf("field %d out of range", int(field))
	}
	divisor := p.Coefficients[field]
	if divisor == 0 {
		return 0, fmt.Errorf("%s %s coefficient: %w", p.Name, field.Key(), ErrDivisionByZero)
	}
	return value * p.Coefficients[models.Weight] / divisor, nil
}

// Table maps food names to profiles. It is read-only once built.
type Table struct {
	profiles map[string]Profile
	names    []string
}

// NewTable builds a table from profiles. Later duplicates replace earlier ones.
func NewTable(profiles ...Profile) *Table {
	t := &Table{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		t.profiles[p.Name] = p
	}
	t.names = make([]string, 0, len(t.profiles))
	for name := range t.profiles {
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t
}

// Lookup returns the profile for name and whether it exists.
func (t *Table) Lookup(name string) (Profile, bool) {
	if t == nil {
		return Profile{}, false
	}
	p, ok := t.profiles[name]
	return p, ok
}

// Profile is Lookup with an ErrUnknownFood error on a miss.
func (t *Table) Profile(name string) (Profile, error) {
	p, ok := t.Lookup(name)
	if !ok {
		return Profile{}, fmt.Errorf("%q: %w", name, ErrUnknownFood)
	}
	return p, nil
}

// Names returns the food names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len is the number of foods.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Complete returns the sorted names starting with prefix, ignoring case.
func (t *Table) Complete(prefix string) []string {
	if t == nil {
		return nil
	}
	prefix = strings.ToLower(prefix)
	var out []string
	for _, name := range t.names {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			out = append(out, name)
		}
	}
	return out
}
