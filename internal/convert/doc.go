// Package convert maps traditional Chinese text to simplified form using a
// per-character table, preserving the character count so downstream layout
// can reuse the recognized column geometry.
package convert
