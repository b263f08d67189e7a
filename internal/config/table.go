package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ValueKind is the type a configuration value is parsed as. It is decided
// by the key name alone.
type ValueKind int

// Value kinds.
const (
	KindString ValueKind = iota
	KindFloat
	KindInt
)

// KindOf returns the value kind for key: keys containing "min" or "max"
// are floats, keys containing "num" or "state" are integers, everything
// else is a string.
func KindOf(key string) ValueKind {
	switch {
	case strings.Contains(key, "min") || strings.Contains(key, "max"):
		return KindFloat
	case strings.Contains(key, "num") || strings.Contains(key, "state"):
		return KindInt
	default:
		return KindString
	}
}

// Table is an ordered two-column key/value configuration table.
type Table struct {
	Path   string
	keys   []string
	values map[string]string
}

// ReadTable reads a headerless two-column CSV file. Columns past the
// second are ignored; later duplicates of a key override earlier ones.
func ReadTable(path string) (*Table, error) {
	//nolint:gosec // G304: configuration path is chosen by the operator
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	t, err := ParseTable(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// ParseTable parses a headerless two-column CSV table.
func ParseTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	t := &Table{values: make(map[string]string)}
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("invalid record length at row %d: got %d, want 2", row, len(record))
		}
		t.Set(strings.TrimSpace(record[0]), strings.TrimSpace(record[1]))
	}
	return t, nil
}

// Set stores a value, keeping the first-seen key order.
func (t *Table) Set(key, value string) {
	if t.values == nil {
		t.values = make(map[string]string)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Keys returns the keys in file order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.values[key]
	return ok
}

// String returns the raw value of key.
func (t *Table) String(key string) (string, error) {
	v, ok := t.values[key]
	if !ok {
		return "", t.errorf(key, "", ErrMissingKey)
	}
	return v, nil
}

// Float parses key as a float.
func (t *Table) Float(key string) (float64, error) {
	raw, err := t.String(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, t.errorf(key, raw, ErrInvalidValue)
	}
	return v, nil
}

// Int parses key as an integer.
func (t *Table) Int(key string) (int, error) {
	raw, err := t.String(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, t.errorf(key, raw, ErrInvalidValue)
	}
	return v, nil
}

// Floats parses a comma-separated list of floats.
func (t *Table) Floats(key string) ([]float64, error) {
	raw, err := t.String(key)
	if err != nil {
		return nil, err
	}
	out, err := parseFloats(raw)
	if err != nil {
		return nil, t.errorf(key, raw, ErrInvalidValue)
	}
	return out, nil
}

// Ints parses a comma-separated list of integers.
func (t *Table) Ints(key string) ([]int, error) {
	raw, err := t.String(key)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, t.errorf(key, raw, ErrInvalidValue)
		}
		out = append(out, v)
	}
	return out, nil
}

// Groups parses semicolon-separated groups of comma-separated floats.
func (t *Table) Groups(key string) ([][]float64, error) {
	raw, err := t.String(key)
	if err != nil {
		return nil, err
	}
	var out [][]float64
	for _, group := range strings.Split(raw, ";") {
		vals, err := parseFloats(group)
		if err != nil {
			return nil, t.errorf(key, raw, ErrInvalidValue)
		}
		out = append(out, vals)
	}
	return out, nil
}

// Validate checks that every value parses as the kind its key implies.
func (t *Table) Validate() error {
	for _, key := range t.keys {
		var err error
		switch KindOf(key) {
		case KindFloat:
			_, err = t.Float(key)
		case KindInt:
			_, err = t.Int(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) errorf(key, value string, err error) error {
	return &ConfigError{Path: t.Path, Key: key, Value: value, Wrapped: err}
}

func parseFloats(raw string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
