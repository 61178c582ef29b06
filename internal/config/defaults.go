package config

const (
	defaultWorkDir            = "~/.local/share/folio/work"
	defaultLogDir             = "~/.local/share/folio/logs"
	defaultDPI                = 400
	defaultBoundaryTolerance  = 2
	defaultOCRLanguage        = "chi_tra_vert"
	defaultAcceleratorSlots   = 1
	defaultOCRRetryLimit      = 3
	defaultOCRRetryDelay      = 5
	defaultLockPath           = "~/.local/share/folio/accelerator.lock"
	defaultFontSize           = 12.0
	defaultMaxParallelism     = 4
	defaultErrorRetryInterval = 5
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Pipeline: Pipeline{
			DPI:                    defaultDPI,
			BoundaryToleranceChars: defaultBoundaryTolerance,
			AutoDeskew:             true,
		},
		OCR: OCR{
			Language:         defaultOCRLanguage,
			AcceleratorSlots: defaultAcceleratorSlots,
			LockPath:         defaultLockPath,
			RetryLimit:       defaultOCRRetryLimit,
			RetryDelay:       defaultOCRRetryDelay,
		},
		Compose: Compose{
			FontSize: defaultFontSize,
		},
		Workflow: Workflow{
			MaxParallelism:     defaultMaxParallelism,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
