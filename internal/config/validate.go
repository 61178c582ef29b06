package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ExpectedColumns != 0 && (c.Pipeline.ExpectedColumns < 2 || c.Pipeline.ExpectedColumns > 6) {
		return fmt.Errorf("pipeline.expected_columns must be 0 or between 2 and 6, got %d", c.Pipeline.ExpectedColumns)
	}
	if c.Pipeline.DPI < 72 {
		return fmt.Errorf("pipeline.dpi must be at least 72, got %d", c.Pipeline.DPI)
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.AcceleratorSlots > 8 {
		return fmt.Errorf("ocr.accelerator_slots must not exceed 8, got %d", c.OCR.AcceleratorSlots)
	}
	if c.OCR.RetryLimit > 10 {
		return fmt.Errorf("ocr.retry_limit must not exceed 10, got %d", c.OCR.RetryLimit)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxParallelism > 64 {
		return fmt.Errorf("workflow.max_parallelism must not exceed 64, got %d", c.Workflow.MaxParallelism)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
