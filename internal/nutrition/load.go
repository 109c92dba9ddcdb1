package nutrition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"nutrition-tracker/internal/models"
)

// Format selects which coefficients a food database record carries.
type Format string

const (
	// FormatPerUnit records hold the four nutrients per unit of weight;
	// the weight coefficient is 1.
	FormatPerUnit Format = "per-unit"
	// FormatWeighted records also hold a "weight" key the nutrients refer to.
	FormatWeighted Format = "weighted"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPerUnit, FormatWeighted:
		return Format(s), nil
	case "":
		return FormatPerUnit, nil
	default:
		return "", fmt.Errorf("unknown food database format %q", s)
	}
}

func (f Format) fields() []models.Field {
	if f == FormatWeighted {
		return []models.Field{models.Protein, models.Carbo, models.Fat, models.Calories, models.Weight}
	}
	return models.Nutrients[:]
}

// LoadTable parses a food database. The first invalid record, in name order,
// aborts the load and no table is returned.
func LoadTable(r io.Reader, format Format) (*Table, error) {
	if format == "" {
		format = FormatPerUnit
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode food database: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to decode food database: not an object")
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	profiles := make([]Profile, 0, len(names))
	for _, name := range names {
		p, err := parseRecord(name, raw[name], format.fields())
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return NewTable(profiles...), nil
}

// LoadFile opens path and calls LoadTable.
func LoadFile(path string, format Format) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open food database: %w", err)
	}
	defer f.Close()

	return LoadTable(f, format)
}

func parseRecord(name string, data json.RawMessage, fields []models.Field) (Profile, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil || record == nil {
		return Profile{}, &InvalidRecordError{Food: name, Reason: "not an object"}
	}
	if len(record) != len(fields) {
		return Profile{}, &InvalidRecordError{
			Food:   name,
			Reason: fmt.Sprintf("expected %d fields, got %d", len(fields), len(record)),
		}
	}

	p := Profile{Name: name}
	p.Coefficients[models.Weight] = 1
	for _, field := range fields {
		value, ok := record[field.Key()]
		if !ok {
			return Profile{}, &InvalidRecordError{Food: name, Reason: "missing " + field.Key()}
		}
		if err := decodeNumber(value, &p.Coefficients[field]); err != nil {
			return Profile{}, &InvalidRecordError{Food: name, Reason: field.Key() + " is not a number"}
		}
	}
	return p, nil
}

func decodeNumber(data json.RawMessage, dst *float64) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("null")
	}
	return json.Unmarshal(data, dst)
}
