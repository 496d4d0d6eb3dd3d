package geo

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// defaultAliasesCSV maps WHO country names to Natural Earth admin-0 names.
//
//go:embed aliases.csv
var defaultAliasesCSV string

// DefaultAliases returns the built-in surveillance → polygon name table.
func DefaultAliases() map[string]string {
	aliases, err := LoadAliases(strings.NewReader(defaultAliasesCSV))
	if err != nil {
		panic(fmt.Sprintf("embedded aliases.csv: %v", err))
	}
	return aliases
}

// LoadAliases reads a two-column CSV (surveillance name, polygon name) with a
// header row. A surveillance name listed twice is an error.
func LoadAliases(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read alias header: %w", err)
	}

	aliases := make(map[string]string)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read aliases: %w", err)
		}

		from, to := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if from == "" || to == "" {
			continue
		}
		if prev, dup := aliases[from]; dup {
			return nil, fmt.Errorf("alias %q listed twice (%q, %q)", from, prev, to)
		}
		aliases[from] = to
	}
	return aliases, nil
}

// MergeAliases returns base overlaid with override. Neither map is modified.
func MergeAliases(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
