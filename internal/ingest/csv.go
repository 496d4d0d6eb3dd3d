// Package ingest turns raw surveillance extracts into rows for the cleaner.
//
// A Source opens a byte stream and DecodeCSV splits it into header-keyed
// rows. No retries are attempted; a failed fetch fails the refresh and the
// previous table stays in service.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file")

// HeaderIndex maps lowercase column names to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are cleaned and lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(surveillance.CleanCell(h))
		if _, dup := idx[key]; dup || key == "" {
			continue
		}
		idx[key] = i
	}
	return idx
}

// newDecodingReader strips a UTF-8 byte order mark and replaces invalid UTF-8
// with U+FFFD so country names never carry broken bytes into the table.
func newDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// DecodeCSV reads a CSV stream into raw rows keyed by lowercase header name.
// Short rows simply lack the trailing columns; the cleaner drops them if a
// required field is missing. A malformed CSV record fails the decode.
func DecodeCSV(r io.Reader) ([]surveillance.RawRow, error) {
	reader := csv.NewReader(newDecodingReader(r))
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}
	idx := MakeHeaderIndex(header)

	var rows []surveillance.RawRow
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		row := make(surveillance.RawRow, len(idx))
		for name, pos := range idx {
			if pos < len(rec) {
				row[name] = rec[pos]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
