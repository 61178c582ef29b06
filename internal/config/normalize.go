package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOCR(); err != nil {
		return err
	}
	if err := c.normalizeCompose(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.DPI <= 0 {
		c.Pipeline.DPI = defaultDPI
	}
	if c.Pipeline.BoundaryToleranceChars <= 0 {
		c.Pipeline.BoundaryToleranceChars = defaultBoundaryTolerance
	}
}

func (c *Config) normalizeOCR() error {
	if strings.TrimSpace(c.OCR.Language) == "" {
		c.OCR.Language = defaultOCRLanguage
	}
	if c.OCR.AcceleratorSlots < 0 {
		c.OCR.AcceleratorSlots = 0
	}
	if c.OCR.RetryLimit <= 0 {
		c.OCR.RetryLimit = defaultOCRRetryLimit
	}
	if c.OCR.RetryDelay <= 0 {
		c.OCR.RetryDelay = defaultOCRRetryDelay
	}
	if strings.TrimSpace(c.OCR.LockPath) == "" {
		c.OCR.LockPath = defaultLockPath
	}
	var err error
	if c.OCR.LockPath, err = expandPath(c.OCR.LockPath); err != nil {
		return fmt.Errorf("ocr.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCompose() error {
	if strings.TrimSpace(c.Compose.FontPath) == "" {
		if env := strings.TrimSpace(os.Getenv("FOLIO_FONT_PATH")); env != "" {
			c.Compose.FontPath = env
		}
	}
	if c.Compose.FontPath != "" {
		var err error
		if c.Compose.FontPath, err = expandPath(c.Compose.FontPath); err != nil {
			return fmt.Errorf("compose.font_path: %w", err)
		}
	}
	if c.Compose.FontSize <= 0 {
		c.Compose.FontSize = defaultFontSize
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxParallelism <= 0 {
		c.Workflow.MaxParallelism = defaultMaxParallelism
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
