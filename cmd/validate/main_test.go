package main

import (
	"context"
	"datapack/internal/validation"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRunWritesReportOnFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "products.json"), []byte(`[{"id":"p1"}]`), 0644); err != nil {
		t.Fatalf("seed products: %v", err)
	}
	reportPath := filepath.Join(t.TempDir(), "reports", "pre-ingest.json")

	err := run(context.Background(), validation.New(dir), validation.PhasePreIngest, reportPath)
	if !errors.Is(err, validation.ErrChecksFailed) {
		t.Fatalf("expected ErrChecksFailed, got %v", err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report validation.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Passed || report.Phase != validation.PhasePreIngest {
		t.Fatalf("unexpected report header %+v", report)
	}
	if len(report.Failed()) != 4 {
		t.Fatalf("expected 4 missing files, got %d failures", len(report.Failed()))
	}
}

func TestRunPostIngestSkips(t *testing.T) {
	if err := run(context.Background(), validation.New(t.TempDir()), validation.PhasePostIngest, ""); err != nil {
		t.Fatalf("post-ingest should pass: %v", err)
	}
}

func TestRunUnknownPhase(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.json")
	err := run(context.Background(), validation.New(t.TempDir()), "mid-ingest", reportPath)
	if !errors.Is(err, validation.ErrUnknownPhase) {
		t.Fatalf("expected ErrUnknownPhase, got %v", err)
	}
	if _, err := os.Stat(reportPath); !os.IsNotExist(err) {
		t.Fatalf("no report expected for an unknown phase, stat err %v", err)
	}
}
