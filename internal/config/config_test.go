package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config, got %s", path)
	}
	if cfg.Pipeline.DPI != 400 {
		t.Fatalf("dpi default = %d", cfg.Pipeline.DPI)
	}
	if cfg.OCR.Language != "chi_tra_vert" {
		t.Fatalf("language default = %q", cfg.OCR.Language)
	}
	if cfg.Workflow.MaxParallelism != 4 {
		t.Fatalf("max parallelism default = %d", cfg.Workflow.MaxParallelism)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.toml")
	body := strings.Join([]string{
		`[paths]`,
		`work_dir = "` + filepath.Join(dir, "work") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		`[pipeline]`,
		`expected_columns = 3`,
		`[ocr]`,
		`accelerator_slots = 0`,
		`[workflow]`,
		`max_parallelism = 2`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Pipeline.ExpectedColumns != 3 {
		t.Fatalf("expected_columns = %d", cfg.Pipeline.ExpectedColumns)
	}
	if cfg.OCR.AcceleratorSlots != 0 {
		t.Fatalf("accelerator_slots = %d", cfg.OCR.AcceleratorSlots)
	}
	if cfg.Workflow.MaxParallelism != 2 {
		t.Fatalf("max_parallelism = %d", cfg.Workflow.MaxParallelism)
	}
	if !filepath.IsAbs(cfg.Paths.WorkDir) {
		t.Fatalf("work dir not normalized: %s", cfg.Paths.WorkDir)
	}
}

func TestValidateRejectsBadColumnHint(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.ExpectedColumns = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for expected_columns = 1")
	}
	cfg.Pipeline.ExpectedColumns = 7
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for expected_columns = 7")
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for logging.format = xml")
	}
}

func TestFontPathEnvFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOLIO_FONT_PATH", filepath.Join(dir, "font.ttf"))

	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Compose.FontPath != filepath.Join(dir, "font.ttf") {
		t.Fatalf("font path = %q", cfg.Compose.FontPath)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}
