// Package imageproc prepares scanned page images for column detection and
// recognition: grayscale conversion, Otsu binarization, and skew correction.
package imageproc
