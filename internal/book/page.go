package book

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Page identifies one scanned page. Immutable after discovery.
type Page struct {
	// Index is the stable 1-based ordinal within the book.
	Index int
	// SourcePath is the scan image on disk.
	SourcePath string
	// DPI is the scan resolution.
	DPI int
	// Width and Height are the intrinsic pixel dimensions.
	Width  int
	Height int
}

var pageNamePattern = regexp.MustCompile(`^page_(\d+)$`)

// DiscoverPages enumerates page scans under dir in ordinal order.
//
// Files named page_N.png (or .jpg) keep their embedded ordinal; any other
// image files are appended in lexicographic order after the numbered ones.
// Duplicate ordinals are an error since the checkpoint store keys on them.
func DiscoverPages(dir string, dpi int) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	type candidate struct {
		path    string
		ordinal int
	}
	numbered := make([]candidate, 0, len(entries))
	var unnumbered []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png", ".jpg", ".jpeg":
		default:
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		full := filepath.Join(dir, name)
		if match := pageNamePattern.FindStringSubmatch(stem); match != nil {
			ordinal, err := strconv.Atoi(match[1])
			if err != nil || ordinal < 1 {
				unnumbered = append(unnumbered, full)
				continue
			}
			numbered = append(numbered, candidate{path: full, ordinal: ordinal})
			continue
		}
		unnumbered = append(unnumbered, full)
	}

	sort.Slice(numbered, func(i, j int) bool { return numbered[i].ordinal < numbered[j].ordinal })
	sort.Strings(unnumbered)

	seen := make(map[int]string, len(numbered))
	pages := make([]Page, 0, len(numbered)+len(unnumbered))
	for _, c := range numbered {
		if prior, dup := seen[c.ordinal]; dup {
			return nil, fmt.Errorf("duplicate page ordinal %d: %s and %s", c.ordinal, prior, c.path)
		}
		seen[c.ordinal] = c.path
		page, err := probePage(c.path, c.ordinal, dpi)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	next := 1
	if n := len(numbered); n > 0 {
		next = numbered[n-1].ordinal + 1
	}
	for _, path := range unnumbered {
		page, err := probePage(path, next, dpi)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		next++
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no page images found in %s", dir)
	}
	return pages, nil
}

func probePage(path string, ordinal, dpi int) (Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return Page{}, fmt.Errorf("open page %s: %w", path, err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return Page{}, fmt.Errorf("decode page %s: %w", path, err)
	}
	return Page{
		Index:      ordinal,
		SourcePath: path,
		DPI:        dpi,
		Width:      cfg.Width,
		Height:     cfg.Height,
	}, nil
}

// Load decodes the full page image.
func (p Page) Load() (image.Image, error) {
	file, err := os.Open(p.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("open page %d: %w", p.Index, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode page %d: %w", p.Index, err)
	}
	return img, nil
}
