// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

// SplitList splits a spreadsheet cell holding one value per line (or per comma when
// the cell has a single line) into trimmed non-empty items
func SplitList(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	sep := "\n"
	if !strings.Contains(cell, "\n") && !strings.Contains(cell, "{") {
		sep = ","
	}
	var out []string
	for _, item := range strings.Split(cell, sep) {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
