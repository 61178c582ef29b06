package convert

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

//go:embed table.tsv
var embeddedTable []byte

// Converter maps traditional Chinese text to simplified form.
type Converter interface {
	Convert(text string) (string, error)
}

// Table is a per-character conversion table. Characters without an entry
// pass through unchanged, so the output always has the same character count
// as the NFC-normalized input.
type Table struct {
	mapping map[rune]rune
}

// NewTable loads the embedded conversion table.
func NewTable() (*Table, error) {
	return parseTable(bytes.NewReader(embeddedTable), "embedded table")
}

// LoadTable reads a user-supplied table file in the same tab-separated
// format as the embedded one.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open conversion table: %w", err)
	}
	defer f.Close()
	return parseTable(f, path)
}

func parseTable(r io.Reader, source string) (*Table, error) {
	mapping := make(map[rune]rune)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		from, to, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected two tab-separated fields", source, lineNo)
		}
		fromRune, fromSize := utf8.DecodeRuneInString(from)
		toRune, toSize := utf8.DecodeRuneInString(to)
		if fromSize != len(from) || toSize != len(to) || fromRune == utf8.RuneError || toRune == utf8.RuneError {
			return nil, fmt.Errorf("%s:%d: entries must be single characters", source, lineNo)
		}
		mapping[fromRune] = toRune
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read conversion table %s: %w", source, err)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("conversion table %s has no entries", source)
	}
	return &Table{mapping: mapping}, nil
}

// Size reports the number of table entries.
func (t *Table) Size() int { return len(t.mapping) }

// Convert normalizes the input to NFC and substitutes each character through
// the table. The result has exactly one character per input character.
func (t *Table) Convert(text string) (string, error) {
	normalized := norm.NFC.String(text)
	var out strings.Builder
	out.Grow(len(normalized))
	for _, r := range normalized {
		if mapped, ok := t.mapping[r]; ok {
			out.WriteRune(mapped)
		} else {
			out.WriteRune(r)
		}
	}
	return out.String(), nil
}
