package toon

import (
	"fmt"
	"strconv"
	"strings"
)

type encoder struct {
	indentSize  int
	delimiter   string
	indentCache []string
	b           strings.Builder
}

func newEncoder(indentSize int, delimiter string) *encoder {
	return &encoder{
		indentSize: indentSize,
		delimiter:  delimiter,
	}
}

// encode renders a normalized value. Empty root containers produce "".
func (e *encoder) encode(v any) (string, error) {
	switch val := v.(type) {
	case *Object:
		if err := e.writeObject(val, 0); err != nil {
			return "", err
		}
	case []any:
		if len(val) == 0 {
			return "", nil
		}
		if err := e.writeArray("", val, 0); err != nil {
			return "", err
		}
	default:
		return FormatScalar(v)
	}
	return e.b.String(), nil
}

func (e *encoder) getIndent(depth int) string {
	for len(e.indentCache) <= depth {
		level := len(e.indentCache)
		e.indentCache = append(e.indentCache, strings.Repeat(" ", level*e.indentSize))
	}
	return e.indentCache[depth]
}

func (e *encoder) writeLine(depth int, parts ...string) {
	if e.b.Len() > 0 {
		e.b.WriteByte('\n')
	}
	e.b.WriteString(e.getIndent(depth))
	for _, p := range parts {
		e.b.WriteString(p)
	}
}

func (e *encoder) writeObject(obj *Object, depth int) error {
	var err error
	obj.Range(func(key string, v any) bool {
		err = e.writeMember(formatKey(key), v, depth)
		return err == nil
	})
	return err
}

func (e *encoder) writeMember(key string, v any, depth int) error {
	switch val := v.(type) {
	case *Object:
		e.writeLine(depth, key, ":")
		return e.writeObject(val, depth+1)
	case []any:
		return e.writeArray(key, val, depth)
	default:
		s, err := FormatScalar(v)
		if err != nil {
			return err
		}
		e.writeLine(depth, key, ": ", s)
		return nil
	}
}

// bracket renders the `[N]` part of a header, declaring the delimiter when
// it is not a comma.
func (e *encoder) bracket(n int) string {
	if e.delimiter == "," {
		return "[" + strconv.Itoa(n) + "]"
	}
	return "[" + strconv.Itoa(n) + e.delimiter + "]"
}

// writeArray emits an array header at depth with its body, if any, one level
// deeper. prefix is the formatted key, "- " for a nested list item, or empty
// at the document root.
func (e *encoder) writeArray(prefix string, arr []any, depth int) error {
	head := prefix + e.bracket(len(arr))

	if len(arr) == 0 {
		e.writeLine(depth, head, ":")
		return nil
	}

	if allScalars(arr) {
		values, err := e.formatRow(arr)
		if err != nil {
			return err
		}
		sep := e.delimiter
		if sep == "," {
			sep = ", "
		}
		e.writeLine(depth, head, ": ", strings.Join(values, sep))
		return nil
	}

	if fields, ok := tabularFields(arr); ok {
		return e.writeTable(head, fields, arr, depth)
	}

	e.writeLine(depth, head, ":")
	for _, item := range arr {
		switch val := item.(type) {
		case *Object:
			e.writeLine(depth+1, "-")
			if err := e.writeObject(val, depth+2); err != nil {
				return err
			}
		case []any:
			if err := e.writeArray("- ", val, depth+1); err != nil {
				return err
			}
		default:
			s, err := FormatScalar(item)
			if err != nil {
				return err
			}
			e.writeLine(depth+1, "- ", s)
		}
	}
	return nil
}

func (e *encoder) writeTable(head string, fields []string, rows []any, depth int) error {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = formatKey(f)
	}
	e.writeLine(depth, head, "{", strings.Join(keys, e.delimiter), "}:")

	row := make([]any, len(fields))
	for _, item := range rows {
		obj := item.(*Object)
		for i, f := range fields {
			row[i], _ = obj.Get(f)
		}
		values, err := e.formatRow(row)
		if err != nil {
			return err
		}
		e.writeLine(depth+1, strings.Join(values, e.delimiter))
	}
	return nil
}

func (e *encoder) formatRow(values []any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		s, err := FormatScalar(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

func allScalars(arr []any) bool {
	for _, v := range arr {
		if !isScalar(v) {
			return false
		}
	}
	return true
}

// tabularFields reports whether arr is a uniform array of flat records and
// returns the field order of the first row. Every row must carry exactly the
// first row's fields with scalar values, so a tabular rendering never drops
// data.
func tabularFields(arr []any) ([]string, bool) {
	first, ok := arr[0].(*Object)
	if !ok || first.Len() == 0 {
		return nil, false
	}
	fields := first.Keys()

	for _, item := range arr {
		obj, ok := item.(*Object)
		if !ok || obj.Len() != len(fields) {
			return nil, false
		}
		for _, f := range fields {
			v, ok := obj.Get(f)
			if !ok || !isScalar(v) {
				return nil, false
			}
		}
	}
	return fields, true
}
