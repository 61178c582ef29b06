// Package logging builds the slog loggers used across the pipeline and keeps
// structured field names consistent between the console and JSON handlers.
//
// Construct loggers through New or NewFromConfig; derive stage- and
// page-scoped loggers with WithContext so every record carries the page index,
// stage name, and correlation ID stamped by the workflow manager.
package logging
