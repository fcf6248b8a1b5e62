package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/samber/lo"
)

const (
	PhasePreIngest  = "pre-ingest"
	PhasePostIngest = "post-ingest"
)

var (
	ErrUnknownPhase = errors.New("unknown phase")
	ErrChecksFailed = errors.New("validation checks failed")
)

// expectedFile describes one staged data file. Files without a count range only get the
// existence and shape checks.
type expectedFile struct {
	name     string
	file     string
	hasRange bool
	min      int
	max      int
}

var expectedFiles = []expectedFile{
	{name: "products", file: "products.json", hasRange: true, min: 1, max: 500},
	{name: "variants", file: "variants.json", hasRange: true, min: 1, max: 1000},
	{name: "attributes", file: "metadata.json", hasRange: true, min: 1, max: 100},
	{name: "price-books", file: "price-books.json"},
	{name: "prices", file: "prices.json", hasRange: true, min: 1, max: 5000},
}

// Report is the result of one validation phase.
type Report struct {
	Phase   string  `json:"phase"`
	Passed  bool    `json:"passed"`
	Skipped bool    `json:"skipped,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Checks  []Check `json:"checks"`
}

// Failed returns the checks that did not pass.
func (r Report) Failed() []Check {
	return lo.Reject(r.Checks, func(c Check, _ int) bool { return c.Passed })
}

type Validator struct {
	DataDir string
}

func New(dataDir string) *Validator {
	return &Validator{DataDir: dataDir}
}

// RunValidationChecks dispatches to the checks for phase.
func (v *Validator) RunValidationChecks(ctx context.Context, phase string) (Report, error) {
	switch phase {
	case PhasePreIngest:
		return v.PreIngestionChecks(ctx)
	case PhasePostIngest:
		return v.PostIngestionChecks(ctx)
	default:
		return Report{Phase: phase}, fmt.Errorf("%w %q: expected %q or %q", ErrUnknownPhase, phase, PhasePreIngest, PhasePostIngest)
	}
}

// PreIngestionChecks runs the whole checklist before reporting, so every problem is
// visible in one run.
func (v *Validator) PreIngestionChecks(ctx context.Context) (Report, error) {
	slog.InfoContext(ctx, "running pre-ingestion checks", "data_dir", v.DataDir)

	var checks []Check
	for _, f := range expectedFiles {
		path := filepath.Join(v.DataDir, f.file)

		exists := FileExists(path, f.name)
		checks = append(checks, exists)
		if !exists.Passed {
			continue
		}

		shape, count := ValidJSONArray(path, f.name)
		checks = append(checks, shape)
		if !shape.Passed || !f.hasRange {
			continue
		}

		checks = append(checks, EntityCountInRange(count, f.min, f.max, f.name))
	}

	for _, c := range checks {
		if c.Passed {
			slog.InfoContext(ctx, "check passed", "check", c.Name, "message", c.Message)
		} else {
			slog.ErrorContext(ctx, "check failed", "check", c.Name, "message", c.Message)
		}
	}

	report := Report{Phase: PhasePreIngest, Checks: checks}
	failed := len(report.Failed())
	if failed > 0 {
		slog.ErrorContext(ctx, "pre-ingestion checks failed", "failed", failed, "total", len(checks))
		return report, fmt.Errorf("%w: %d of %d checks failed", ErrChecksFailed, failed, len(checks))
	}

	report.Passed = true
	slog.InfoContext(ctx, "pre-ingestion checks passed", "total", len(checks))
	return report, nil
}

// PostIngestionChecks always reports skipped: the content platform offers no reliable
// way to read back ingested counts.
func (v *Validator) PostIngestionChecks(ctx context.Context) (Report, error) {
	const reason = "content platform exposes no reliable ingested-count endpoint"
	slog.InfoContext(ctx, "post-ingestion checks skipped", "reason", reason)
	return Report{
		Phase:   PhasePostIngest,
		Passed:  true,
		Skipped: true,
		Reason:  reason,
		Checks:  []Check{},
	}, nil
}
