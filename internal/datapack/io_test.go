package datapack

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadArray_MissingFile(t *testing.T) {
	_, err := ReadArray(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReadArray_RejectsObject(t *testing.T) {
	path := writeFile(t, t.TempDir(), "obj.json", `{"id":"a"}`)
	_, err := ReadArray(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotArray))
}

func TestReadArray_RejectsInvalidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.json", `[{"id":`)
	_, err := ReadArray(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestReadArray_KeepsNumbersExact(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prices.json", `[{"sku":"x","price":19.990000000000002,"qty":12345678901234567}]`)
	records, err := ReadArray(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, json.Number("19.990000000000002"), records[0]["price"])
	assert.Equal(t, json.Number("12345678901234567"), records[0]["qty"])
}

func TestWriteJSON_CreatesDirectoriesAndIndents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.json")

	require.NoError(t, WriteJSON(path, map[string]any{"a": map[string]any{"id": "a"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": {\n    \"id\": \"a\"\n  }\n}\n", string(data))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "here.json", `[]`)

	ok, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadInto_RejectsTrailingContent(t *testing.T) {
	dir := t.TempDir()

	var v map[string]any
	err := ReadInto(writeFile(t, dir, "trailing.json", `{"a":1} }garbage{`), &v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTrailingData))

	err = ReadInto(writeFile(t, dir, "second.json", `{"a":1} {"b":2}`), &v)
	assert.True(t, errors.Is(err, ErrTrailingData))

	require.NoError(t, ReadInto(writeFile(t, dir, "ok.json", "{\"a\":1}\n\n"), &v))
	assert.Equal(t, json.Number("1"), v["a"])
}
