// Package stage runs the per-page processing sequence: preprocess, column
// detection, gated recognition, script conversion, and PDF composition.
// Checkpointing is page-granular; a page that fails partway is reprocessed
// from the start on the next run.
package stage
