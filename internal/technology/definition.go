// Package technology implements the technology-catalog resolution and
// metadata-normalization layer: turbine/solar definition lookup across local
// overrides and the upstream library, power-curve unit inference, and the
// validation of user-submitted technology configs.
package technology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is a raw technology definition document: a YAML mapping of
// named numeric/string fields, read fresh from disk on every lookup.
type Definition map[string]any

// ParseDefinition decodes a YAML document into a Definition. Documents whose
// top level is not a mapping are rejected.
func ParseDefinition(data []byte) (Definition, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	mapping, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("definition top level is not a mapping: %w", ErrInvalidDefinition)
	}
	return Definition(mapping), nil
}

// LoadDefinition reads and parses a definition file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition %s: %w", path, err)
	}
	return ParseDefinition(data)
}

// toFloat coerces the numeric types the YAML and JSON decoders produce.
// Strings and other types are not coerced.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func (d Definition) floatField(key string) (float64, bool) {
	v, ok := d[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func (d Definition) stringField(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

func (d Definition) listField(key string) ([]any, bool) {
	v, ok := d[key].([]any)
	return v, ok
}
