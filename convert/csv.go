package convert

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/paularlott/mcp-toon/toon"
)

// decodeCSV reads a header row followed by records; every record becomes an
// object keyed by the header fields.
func decodeCSV(data []byte, comma rune) (any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []any{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []any{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := toon.NewObject()
		for i, field := range header {
			row.Set(field, coerce(record[i]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// encodeCSV writes an array of flat objects. The header is the union of all
// keys in first-seen order; missing cells are empty. An object holding a
// single array is unwrapped.
func encodeCSV(v any, comma rune) ([]byte, error) {
	if obj, ok := v.(*toon.Object); ok && obj.Len() == 1 {
		v, _ = obj.Get(obj.Keys()[0])
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("csv output needs an array of objects, got %T", v)
	}

	var header []string
	seen := map[string]bool{}
	for i, item := range rows {
		row, ok := item.(*toon.Object)
		if !ok {
			return nil, fmt.Errorf("row %d is %T, not an object", i, item)
		}
		var err error
		row.Range(func(k string, cell any) bool {
			if !isScalarValue(cell) {
				err = fmt.Errorf("row %d field %q is not a scalar", i, k)
				return false
			}
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	if err := w.Write(header); err != nil {
		return nil, err
	}
	record := make([]string, len(header))
	for _, item := range rows {
		row := item.(*toon.Object)
		for i, k := range header {
			cell, _ := row.Get(k)
			record[i] = scalarText(cell)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isScalarValue(v any) bool {
	switch v.(type) {
	case nil, bool, float64, string:
		return true
	}
	return false
}
