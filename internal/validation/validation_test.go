package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonArray(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":"item-%d"}`, i)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func stageValidData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"products.json":    jsonArray(10),
		"variants.json":    jsonArray(20),
		"metadata.json":    jsonArray(5),
		"price-books.json": jsonArray(1),
		"prices.json":      jsonArray(30),
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func checkByName(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not in report: %+v", name, report.Checks)
	return Check{}
}

func hasCheck(report Report, name string) bool {
	for _, c := range report.Checks {
		if c.Name == name {
			return true
		}
	}
	return false
}

func TestEntityCountInRange_Boundaries(t *testing.T) {
	tests := []struct {
		count int
		want  bool
	}{
		{count: 0, want: false},
		{count: 1, want: true},
		{count: 250, want: true},
		{count: 500, want: true},
		{count: 501, want: false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.count), func(t *testing.T) {
			got := EntityCountInRange(tc.count, 1, 500, "products")
			if got.Passed != tc.want {
				t.Fatalf("EntityCountInRange(%d, 1, 500) passed = %v, want %v (%s)", tc.count, got.Passed, tc.want, got.Message)
			}
		})
	}
}

func TestPreIngestionChecks_AllPass(t *testing.T) {
	v := New(stageValidData(t))

	report, err := v.PreIngestionChecks(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.GreaterOrEqual(t, len(report.Checks), 5)
	assert.Empty(t, report.Failed())
	// price-books has no count check
	assert.False(t, hasCheck(report, "price-books count in range"))
	assert.True(t, hasCheck(report, "prices count in range"))
}

func TestPreIngestionChecks_MissingFileSkipsDownstreamChecks(t *testing.T) {
	for _, f := range expectedFiles {
		t.Run(f.name, func(t *testing.T) {
			dir := stageValidData(t)
			require.NoError(t, os.Remove(filepath.Join(dir, f.file)))

			report, err := New(dir).PreIngestionChecks(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrChecksFailed))
			assert.False(t, report.Passed)

			assert.False(t, checkByName(t, report, f.name+" file exists").Passed)
			assert.False(t, hasCheck(report, f.name+" valid JSON array"))
			assert.False(t, hasCheck(report, f.name+" count in range"))
		})
	}
}

func TestPreIngestionChecks_RunsEveryCheckAfterFailure(t *testing.T) {
	dir := stageValidData(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.json"), []byte(`{"not":"array"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices.json"), []byte(jsonArray(0)), 0644))

	report, err := New(dir).PreIngestionChecks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of")

	assert.False(t, checkByName(t, report, "products valid JSON array").Passed)
	assert.False(t, hasCheck(report, "products count in range"))
	assert.True(t, checkByName(t, report, "variants count in range").Passed)
	assert.False(t, checkByName(t, report, "prices count in range").Passed)
	assert.Len(t, report.Failed(), 2)
}

func TestPostIngestionChecks_AlwaysSkipped(t *testing.T) {
	v := New(filepath.Join(t.TempDir(), "does-not-exist"))

	report, err := v.PostIngestionChecks(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.True(t, report.Skipped)
	assert.NotEmpty(t, report.Reason)
}

func TestRunValidationChecks_UnknownPhase(t *testing.T) {
	_, err := New(t.TempDir()).RunValidationChecks(context.Background(), "mid-ingest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPhase))
	assert.Contains(t, err.Error(), `"mid-ingest"`)
}

func TestRunValidationChecks_Dispatch(t *testing.T) {
	v := New(stageValidData(t))

	pre, err := v.RunValidationChecks(context.Background(), PhasePreIngest)
	require.NoError(t, err)
	assert.Equal(t, PhasePreIngest, pre.Phase)

	post, err := v.RunValidationChecks(context.Background(), PhasePostIngest)
	require.NoError(t, err)
	assert.True(t, post.Skipped)
}
