package stage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"time"

	"folio/internal/coldetect"
	"folio/internal/fileutil"
)

// ColumnRecord is one detected column as persisted in columns.json.
type ColumnRecord struct {
	Index     int `json:"index"`
	X0        int `json:"x0"`
	Y0        int `json:"y0"`
	X1        int `json:"x1"`
	Y1        int `json:"y1"`
	CharWidth int `json:"char_width"`
}

// ColumnsDocument is the detection sidecar written next to the column crops.
type ColumnsDocument struct {
	Page       int            `json:"page"`
	DetectedAt time.Time      `json:"detected_at"`
	Deskew     float64        `json:"deskew_angle,omitempty"`
	Columns    []ColumnRecord `json:"columns"`
}

// RecognizedColumn is one column's text in ocr_results.json.
type RecognizedColumn struct {
	Index       int     `json:"index"`
	Traditional string  `json:"traditional"`
	Simplified  string  `json:"simplified"`
	Confidence  float64 `json:"confidence"`
}

// RecognitionDocument is the recognition sidecar for one page.
type RecognitionDocument struct {
	Page     int                `json:"page"`
	Language string             `json:"language"`
	Columns  []RecognizedColumn `json:"columns"`
}

// Artifacts resolves per-page output paths under the work directory.
type Artifacts struct {
	workDir string
}

// NewArtifacts builds a path resolver rooted at workDir.
func NewArtifacts(workDir string) Artifacts {
	return Artifacts{workDir: workDir}
}

// PageDir holds a page's sidecars and column crops.
func (a Artifacts) PageDir(page int) string {
	return filepath.Join(a.workDir, "pages", fmt.Sprintf("page_%04d", page))
}

// ColumnsPath is the detection sidecar for a page.
func (a Artifacts) ColumnsPath(page int) string {
	return filepath.Join(a.PageDir(page), "columns.json")
}

// RecognitionPath is the recognition sidecar for a page.
func (a Artifacts) RecognitionPath(page int) string {
	return filepath.Join(a.PageDir(page), "ocr_results.json")
}

// CropPath is the exported crop image for one column of a page.
func (a Artifacts) CropPath(page, column int) string {
	return filepath.Join(a.PageDir(page), fmt.Sprintf("col_%02d.png", column))
}

// FragmentPath is the composed PDF fragment for a page.
func (a Artifacts) FragmentPath(page int) string {
	return filepath.Join(a.workDir, "fragments", fmt.Sprintf("page_%04d.pdf", page))
}

// SummaryPath is the run summary file.
func (a Artifacts) SummaryPath() string {
	return filepath.Join(a.workDir, "summary.json")
}

func (a Artifacts) writeColumns(page int, angle float64, regions []coldetect.Region) error {
	doc := ColumnsDocument{
		Page:       page,
		DetectedAt: time.Now().UTC(),
		Deskew:     angle,
		Columns:    make([]ColumnRecord, 0, len(regions)),
	}
	for _, r := range regions {
		doc.Columns = append(doc.Columns, ColumnRecord{
			Index:     r.Index,
			X0:        r.Bounds.Min.X,
			Y0:        r.Bounds.Min.Y,
			X1:        r.Bounds.Max.X,
			Y1:        r.Bounds.Max.Y,
			CharWidth: r.CharWidth,
		})
	}
	return a.writeJSON(a.ColumnsPath(page), doc)
}

func (a Artifacts) writeRecognition(page int, language string, columns []RecognizedColumn) error {
	return a.writeJSON(a.RecognitionPath(page), RecognitionDocument{
		Page:     page,
		Language: language,
		Columns:  columns,
	})
}

func (a Artifacts) writeCrop(page, column int, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode column crop: %w", err)
	}
	return fileutil.WriteFileAtomic(a.CropPath(page, column), buf.Bytes(), 0o644)
}

func (a Artifacts) writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
