package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Pipeline contains page-processing knobs shared by the detector and runner.
type Pipeline struct {
	DPI int `toml:"dpi"`
	// ExpectedColumns seeds the even-split fallback when projection analysis
	// cannot settle on a column count. Zero means no hint.
	ExpectedColumns int `toml:"expected_columns"`
	// BoundaryToleranceChars is the permitted boundary placement error in
	// estimated character-cell widths. Column crops widen by this margin.
	BoundaryToleranceChars int     `toml:"boundary_tolerance_chars"`
	DeskewAngle            float64 `toml:"deskew_angle"`
	AutoDeskew             bool    `toml:"auto_deskew"`
}

// OCR contains recognition backend configuration.
type OCR struct {
	Language string `toml:"language"`
	// AcceleratorSlots bounds concurrent recognition calls. Zero means the
	// accelerator is unavailable and recognition is serialized.
	AcceleratorSlots int `toml:"accelerator_slots"`
	// SingletonDevice acquires a process-level advisory lock around each
	// recognition window so concurrent folio processes cannot oversubscribe
	// a true singleton accelerator.
	SingletonDevice bool   `toml:"singleton_device"`
	LockPath        string `toml:"lock_path"`
	RetryLimit      int    `toml:"retry_limit"`
	RetryDelay      int    `toml:"retry_delay"`
}

// Convert contains script-conversion configuration.
type Convert struct {
	// TablePath overrides the embedded traditional-to-simplified table.
	TablePath string `toml:"table_path"`
}

// Compose contains searchable-PDF rendering configuration.
type Compose struct {
	FontPath string  `toml:"font_path"`
	FontSize float64 `toml:"font_size"`
}

// Workflow contains worker-pool and scheduling configuration.
type Workflow struct {
	MaxParallelism     int `toml:"max_parallelism"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for folio.
//
// Configuration sections by subsystem:
//   - Paths: work (checkpoint + stage artifacts) and log directories
//   - Pipeline: rasterization DPI, column hints, boundary tolerance, deskew
//   - OCR: tesseract language, accelerator slots, retries, singleton lock
//   - Convert: script-conversion table override
//   - Compose: CJK font for the searchable text layer
//   - Workflow: worker pool sizing and retry pacing
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Pipeline Pipeline `toml:"pipeline"`
	OCR      OCR      `toml:"ocr"`
	Convert  Convert  `toml:"convert"`
	Compose  Compose  `toml:"compose"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/folio/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("folio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
