// Package servicedata re-keys datapack arrays into the id-indexed JSON files the
// service loads at startup.
package servicedata

import (
	"context"
	"datapack/internal/datapack"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/samber/lo"
)

const (
	TemplatesFile = "templates.json"
	VariantsFile  = "variants.json"
	PackagesFile  = "packages.json"
	BOMFile       = "bom-product-criteria.json"
)

// Result describes one transform. Written is false when the source was absent.
type Result struct {
	Name        string
	Source      string
	Destination string
	Count       int
	Written     bool
}

// BOMCriteria maps construction phase -> product type -> matching rule.
type BOMCriteria map[string]map[string]json.RawMessage

type Generator struct {
	SourceDir string
	Sink      Sink
}

func New(sourceDir string, sink Sink) *Generator {
	return &Generator{SourceDir: sourceDir, Sink: sink}
}

// Templates keys templates.json by id.
func (g *Generator) Templates(ctx context.Context) (map[string]datapack.Record, Result, error) {
	return g.keyed(ctx, "templates", "templates.json", TemplatesFile, "id")
}

// Variants keys template-variants.json by id.
func (g *Generator) Variants(ctx context.Context) (map[string]datapack.Record, Result, error) {
	return g.keyed(ctx, "variants", "template-variants.json", VariantsFile, "id")
}

// Packages keys material-packages.json by id.
func (g *Generator) Packages(ctx context.Context) (map[string]datapack.Record, Result, error) {
	return g.keyed(ctx, "packages", "material-packages.json", PackagesFile, "id")
}

// BOM passes the criteria mapping through unchanged.
func (g *Generator) BOM(ctx context.Context) (BOMCriteria, Result, error) {
	src := filepath.Join(g.SourceDir, "bom-product-criteria.json")
	res := Result{Name: "bom-criteria", Source: src, Destination: g.Sink.Location(BOMFile)}

	var criteria BOMCriteria
	if err := datapack.ReadInto(src, &criteria); err != nil {
		if errors.Is(err, datapack.ErrNotFound) {
			slog.WarnContext(ctx, "no source data, skipping", "transform", res.Name, "source", src)
			return nil, res, nil
		}
		return nil, res, err
	}

	rules := lo.Sum(lo.MapToSlice(criteria, func(_ string, byType map[string]json.RawMessage) int {
		return len(byType)
	}))
	slog.InfoContext(ctx, "loaded BOM criteria", "phases", len(criteria), "rules", rules)

	if err := g.write(ctx, BOMFile, criteria); err != nil {
		return nil, res, err
	}
	res.Count = rules
	res.Written = true
	return criteria, res, nil
}

func (g *Generator) keyed(ctx context.Context, name, source, dest, idField string) (map[string]datapack.Record, Result, error) {
	src := filepath.Join(g.SourceDir, source)
	res := Result{Name: name, Source: src, Destination: g.Sink.Location(dest)}

	records, err := datapack.ReadArray(src)
	if err != nil {
		if errors.Is(err, datapack.ErrNotFound) {
			slog.WarnContext(ctx, "no source data, skipping", "transform", name, "source", src)
			return nil, res, nil
		}
		return nil, res, err
	}

	keyed := KeyByID(ctx, records, idField)
	slog.InfoContext(ctx, "transformed records", "transform", name, "records", len(records), "keys", len(keyed))

	if err := g.write(ctx, dest, keyed); err != nil {
		return nil, res, err
	}
	res.Count = len(keyed)
	res.Written = true
	return keyed, res, nil
}

func (g *Generator) write(ctx context.Context, dest string, v any) error {
	data, err := datapack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", dest, err)
	}
	if err := g.Sink.Put(ctx, dest, data); err != nil {
		return err
	}
	slog.InfoContext(ctx, "wrote service data", "file", g.Sink.Location(dest), "bytes", len(data))
	return nil
}

// KeyByID indexes records by idField. Records without a usable id are dropped with a
// warning; on duplicate ids the later record wins.
func KeyByID(ctx context.Context, records []datapack.Record, idField string) map[string]datapack.Record {
	withID, withoutID := lo.FilterReject(records, func(r datapack.Record, _ int) bool {
		_, ok := recordID(r, idField)
		return ok
	})
	if len(withoutID) > 0 {
		slog.WarnContext(ctx, "dropping records without an id", "field", idField, "count", len(withoutID))
	}

	keyed := lo.KeyBy(withID, func(r datapack.Record) string {
		id, _ := recordID(r, idField)
		return id
	})
	if dupes := len(withID) - len(keyed); dupes > 0 {
		slog.WarnContext(ctx, "duplicate ids, later records win", "field", idField, "duplicates", dupes)
	}
	return keyed
}

func recordID(r datapack.Record, field string) (string, bool) {
	switch v := r[field].(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// Run executes every transform; a missing source only skips its own transform.
func (g *Generator) Run(ctx context.Context) ([]Result, error) {
	var results []Result

	_, res, err := g.Templates(ctx)
	if err != nil {
		return results, fmt.Errorf("templates: %w", err)
	}
	results = append(results, res)

	_, res, err = g.Variants(ctx)
	if err != nil {
		return results, fmt.Errorf("variants: %w", err)
	}
	results = append(results, res)

	_, res, err = g.Packages(ctx)
	if err != nil {
		return results, fmt.Errorf("packages: %w", err)
	}
	results = append(results, res)

	_, res, err = g.BOM(ctx)
	if err != nil {
		return results, fmt.Errorf("bom criteria: %w", err)
	}
	results = append(results, res)

	written := lo.FilterMap(results, func(r Result, _ int) (string, bool) {
		return r.Destination, r.Written
	})
	slog.InfoContext(ctx, "service data generation complete", "files", written, "skipped", len(results)-len(written))
	return results, nil
}
