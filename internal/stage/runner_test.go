package stage_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"folio/internal/book"
	"folio/internal/config"
	"folio/internal/gate"
	"folio/internal/ocr"
	"folio/internal/services"
	"folio/internal/stage"
	"folio/internal/testsupport"
)

func newRunner(t *testing.T, cfg *config.Config, engine *testsupport.StubEngine, converter *testsupport.StubConverter, composer *testsupport.StubComposer) *stage.Runner {
	t.Helper()
	g, err := gate.New(gate.Options{Slots: cfg.OCR.AcceleratorSlots})
	if err != nil {
		t.Fatal(err)
	}
	runner, err := stage.NewRunner(cfg, engine, converter, composer, g, nil)
	if err != nil {
		t.Fatal(err)
	}
	return runner
}

func writeTestPage(t *testing.T, ordinal int, bands [][2]int) book.Page {
	t.Helper()
	dir := t.TempDir()
	img := testsupport.SyntheticPage(800, 1000, bands)
	path := testsupport.WritePageImage(t, dir, ordinal, img)
	return book.Page{Index: ordinal, SourcePath: path, DPI: 300, Width: 800, Height: 1000}
}

func TestRunnerProcessesPage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := &testsupport.StubEngine{Text: "天地玄黃"}
	composer := &testsupport.StubComposer{}
	runner := newRunner(t, cfg, engine, &testsupport.StubConverter{}, composer)

	page := writeTestPage(t, 1, [][2]int{{100, 160}, {300, 360}, {500, 560}})
	outcome, err := runner.Run(context.Background(), page)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Columns != 3 {
		t.Fatalf("columns = %d, want 3", outcome.Columns)
	}
	if outcome.MeanConfidence == 0 {
		t.Error("expected nonzero confidence from stub engine")
	}

	// Fragment written atomically with the composer payload.
	data, err := os.ReadFile(outcome.FragmentPath)
	if err != nil {
		t.Fatalf("read fragment: %v", err)
	}
	if string(data) != "%PDF-stub\n" {
		t.Errorf("fragment content = %q", data)
	}

	// Sidecars parse back and agree with the outcome.
	arts := runner.Artifacts()
	var cols stage.ColumnsDocument
	readJSON(t, arts.ColumnsPath(1), &cols)
	if cols.Page != 1 || len(cols.Columns) != 3 {
		t.Errorf("columns.json: page %d with %d columns", cols.Page, len(cols.Columns))
	}
	var rec stage.RecognitionDocument
	readJSON(t, arts.RecognitionPath(1), &rec)
	if len(rec.Columns) != 3 {
		t.Fatalf("ocr_results.json has %d columns", len(rec.Columns))
	}
	for i, col := range rec.Columns {
		if col.Traditional != "天地玄黃" {
			t.Errorf("column %d traditional = %q", i, col.Traditional)
		}
		if col.Simplified != col.Traditional {
			t.Errorf("column %d simplified = %q with pass-through converter", i, col.Simplified)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := os.Stat(arts.CropPath(1, i)); err != nil {
			t.Errorf("missing crop %d: %v", i, err)
		}
	}
	if rendered := composer.Rendered(); len(rendered) != 1 || len(rendered[0].Columns) != 3 {
		t.Errorf("composer saw %v pages", len(rendered))
	}
}

func TestRunnerColumnDetectionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := &testsupport.StubEngine{}
	runner := newRunner(t, cfg, engine, &testsupport.StubConverter{}, &testsupport.StubComposer{})

	page := writeTestPage(t, 2, nil) // blank page, nothing to partition
	_, err := runner.Run(context.Background(), page)
	if err == nil {
		t.Fatal("expected detection failure on blank page")
	}
	if kind := services.ErrorKind(err); kind != "column_detection" {
		t.Fatalf("error kind = %q, want column_detection", kind)
	}
	if engine.Calls() != 0 {
		t.Errorf("recognition ran despite detection failure (%d calls)", engine.Calls())
	}
}

func TestRunnerConversionInvariantViolation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	converter := &testsupport.StubConverter{Output: "短"} // wrong character count
	runner := newRunner(t, cfg, &testsupport.StubEngine{Text: "天地玄黃"}, converter, &testsupport.StubComposer{})

	page := writeTestPage(t, 3, [][2]int{{100, 160}, {300, 360}, {500, 560}})
	_, err := runner.Run(context.Background(), page)
	if err == nil {
		t.Fatal("expected conversion invariant violation")
	}
	if kind := services.ErrorKind(err); kind != "conversion_invariant" {
		t.Fatalf("error kind = %q, want conversion_invariant", kind)
	}
}

func TestRunnerRetriesUnavailableBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.OCR.RetryLimit = 3
	engine := &testsupport.StubEngine{Text: "天地玄黃", FailuresBeforeSuccess: 2}
	runner := newRunner(t, cfg, engine, &testsupport.StubConverter{}, &testsupport.StubComposer{})

	page := writeTestPage(t, 4, [][2]int{{100, 160}, {300, 360}, {500, 560}})
	outcome, err := runner.Run(context.Background(), page)
	if err != nil {
		t.Fatalf("Run should succeed after retries: %v", err)
	}
	if outcome.Columns != 3 {
		t.Fatalf("columns = %d", outcome.Columns)
	}
	// Two failed attempts then one success per remaining column.
	if engine.Calls() != 5 {
		t.Errorf("engine calls = %d, want 5", engine.Calls())
	}
}

func TestRunnerFailsWhenBackendStaysUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.OCR.RetryLimit = 2
	engine := &testsupport.StubEngine{Err: ocr.ErrUnavailable}
	runner := newRunner(t, cfg, engine, &testsupport.StubConverter{}, &testsupport.StubComposer{})

	page := writeTestPage(t, 5, [][2]int{{100, 160}, {300, 360}, {500, 560}})
	_, err := runner.Run(context.Background(), page)
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if kind := services.ErrorKind(err); kind != "recognition_unavailable" {
		t.Fatalf("error kind = %q, want recognition_unavailable", kind)
	}
	if engine.Calls() != 3 {
		t.Errorf("engine calls = %d, want retry limit + 1", engine.Calls())
	}
}

func TestRunnerMissingSourceImage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newRunner(t, cfg, &testsupport.StubEngine{}, &testsupport.StubConverter{}, &testsupport.StubComposer{})

	page := book.Page{Index: 6, SourcePath: filepath.Join(t.TempDir(), "absent.png"), DPI: 300}
	_, err := runner.Run(context.Background(), page)
	if err == nil {
		t.Fatal("expected error for missing source image")
	}
	if kind := services.ErrorKind(err); kind != "validation" {
		t.Fatalf("error kind = %q, want validation", kind)
	}
}

func TestRunnerHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newRunner(t, cfg, &testsupport.StubEngine{}, &testsupport.StubConverter{}, &testsupport.StubComposer{})

	checks := runner.HealthCheck()
	if len(checks) == 0 {
		t.Fatal("no health checks reported")
	}
	for _, hc := range checks {
		if !hc.Ready {
			t.Errorf("%s unexpectedly unhealthy: %s", hc.Name, hc.Detail)
		}
	}
}

func readJSON(t *testing.T, path string, out any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
}
