package testsupport

import (
	"path/filepath"
	"testing"

	"folio/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.OCR.LockPath = filepath.Join(base, "accelerator.lock")
	cfg.OCR.RetryDelay = 0
	cfg.Workflow.ErrorRetryInterval = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithParallelism overrides the worker pool size.
func WithParallelism(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxParallelism = n
	}
}

// WithAcceleratorSlots overrides the recognition concurrency limit.
func WithAcceleratorSlots(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.OCR.AcceleratorSlots = n
	}
}

// WithExpectedColumns seeds the even-split detection fallback.
func WithExpectedColumns(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.ExpectedColumns = n
	}
}
