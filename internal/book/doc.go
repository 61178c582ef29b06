// Package book models scanned book pages and discovers them on disk.
//
// A page is the unit of work for the whole pipeline: discovery assigns each
// scan a stable 1-based ordinal, probes its pixel dimensions, and never
// mutates the page afterwards.
package book
