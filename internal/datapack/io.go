package datapack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a datapack file does not exist.
var ErrNotFound = errors.New("datapack file not found")

// ErrNotArray is returned when a file decodes to something other than a JSON array.
var ErrNotArray = errors.New("top-level JSON value is not an array")

// ErrTrailingData is returned when a file holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after top-level JSON value")

// Record is one JSON object from a datapack array. Fields are kept as decoded so they
// round-trip unchanged.
type Record = map[string]any

func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ReadRawArray reads path and returns the elements of its top-level array without
// decoding them further.
func ReadRawArray(path string) ([]json.RawMessage, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return decodeRawArray(path, data)
}

func decodeRawArray(path string, data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("parse %s: invalid JSON", path)
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("parse %s: %w", path, ErrNotArray)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

// ReadArray decodes a top-level JSON array of objects.
func ReadArray(path string) ([]Record, error) {
	items, err := ReadRawArray(path)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(items))
	for i, item := range items {
		var rec Record
		if err := decodeNumbers(item, &rec); err != nil {
			return nil, fmt.Errorf("parse %s: element %d: %w", path, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadInto decodes the whole file into v.
func ReadInto(path string, v any) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := decodeNumbers(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// decodeNumbers keeps numeric literals as json.Number so ids and prices are not rewritten
// through float64 on the way back out. Anything after the first value is an error.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

// Marshal renders v the way every datapack output file is written: 2-space indent,
// trailing newline, no HTML escaping.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v to path, creating parent directories as needed.
func WriteJSON(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
