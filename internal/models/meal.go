// internal/models/meal.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Field indexes the nutrition values of a food or a meal row.
type Field int

const (
	Protein Field = iota
	Carbo
	Fat
	Calories
	Weight
)

// NumFields is the length of every Values vector.
const NumFields = 5

// Nutrients are the fields stored per food in the database, in file order.
var Nutrients = [...]Field{Protein, Carbo, Fat, Calories}

var fieldKeys = [NumFields]string{"protein", "carbo", "fat", "calories", "weight"}

var fieldTitles = [NumFields]string{"Protein", "Carbo", "Fat", "Calories", "Weight"}

// Valid reports whether f is one of the five known fields.
func (f Field) Valid() bool {
	return f >= Protein && f <= Weight
}

// Key is the lower-case JSON key of the field.
func (f Field) Key() string {
	if !f.Valid() {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldKeys[f]
}

func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldTitles[f]
}

// ParseField resolves a field from its key, case-insensitively.
func ParseField(s string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, k := range fieldKeys {
		if k == key {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// Values holds one number per Field.
type Values [NumFields]float64

// Scale returns v with every field multiplied by factor.
func (v Values) Scale(factor float64) Values {
	for i := range v {
		v[i] *= factor
	}
	return v
}

// Add returns the field-wise sum of v and o.
func (v Values) Add(o Values) Values {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

// Row is one ledger entry: a food reference and its current amounts.
type Row struct {
	Food   string `json:"name"`
	Values Values `json:"values"`
}

// Document is the save-file shape of a ledger.
type Document struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
	Rows  []Row  `json:"rows"`
}

// ArchivedLedger is a ledger snapshot stored in the archive.
type ArchivedLedger struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Document  Document  `json:"document"`
}
