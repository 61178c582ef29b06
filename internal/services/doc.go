// Package services defines shared utilities consumed by the page stage
// runner and the external recognition/conversion/composition integrations.
//
// Key responsibilities:
//   - Context helpers that stamp page indices, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent checkpoint outcomes and error kinds.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
