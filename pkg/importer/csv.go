package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// readCSV reads a header-based CSV export and calls row for every data
// row with a lookup by column name. Column names are matched
// case-insensitively. Malformed rows become warnings.
func readCSV(data []byte, b *builder, required []string, row func(location string, get func(string) string)) error {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%w: failed to read CSV header: %w", ErrInvalidExport, err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("%w: missing column %q", ErrInvalidExport, col)
		}
	}

	line := 1
	for {
		line++
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		location := fmt.Sprintf("row %d", line)
		if err != nil {
			b.warn("%s: failed to parse: %v", location, err)
			continue
		}
		if len(fields) != len(header) {
			b.warn("%s: expected %d columns, got %d", location, len(header), len(fields))
			continue
		}

		row(location, func(col string) string {
			if i, ok := index[col]; ok {
				return fields[i]
			}
			return ""
		})
	}
}
