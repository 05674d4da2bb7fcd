// Package toon implements the TOON (Token-Oriented Object Notation) format.
// TOON is a line-oriented, indentation-based text format that encodes the JSON data model
// with explicit array sizes, tabular rows for uniform records and always-quoted strings.
//
// Decoded values use the following Go types:
//
//	null      nil
//	boolean   bool
//	number    float64
//	string    string
//	sequence  []any
//	mapping   *Object (insertion ordered)
//
// Every document is validated before it is decoded; an invalid document never
// produces a partial tree.
package toon

// EncodeOptions configures TOON encoding behavior.
type EncodeOptions struct {
	Indent    int    // Number of spaces per indentation level (default: 2)
	Delimiter string // Delimiter for arrays and tabular data: ",", "|" or "\t" (default: ",")
}

// DecodeOptions configures TOON decoding behavior.
type DecodeOptions struct {
	Strict bool // Validate before decoding (default: true)
}

// DefaultEncodeOptions returns the reference encoder settings.
func DefaultEncodeOptions() *EncodeOptions {
	return &EncodeOptions{Indent: 2, Delimiter: ","}
}

// Encode converts a Go value to TOON format.
func Encode(v any) (string, error) {
	return EncodeWithOptions(v, nil)
}

// EncodeWithOptions converts a Go value to TOON format with custom options.
func EncodeWithOptions(v any, opts *EncodeOptions) (string, error) {
	o := DefaultEncodeOptions()
	if opts != nil {
		if opts.Indent > 0 {
			o.Indent = opts.Indent
		}
		if opts.Delimiter != "" {
			o.Delimiter = opts.Delimiter
		}
	}
	if !validDelimiter(o.Delimiter) {
		return "", inputErrorf("unsupported delimiter %q", o.Delimiter)
	}

	normalized, err := Normalize(v)
	if err != nil {
		return "", err
	}
	return newEncoder(o.Indent, o.Delimiter).encode(normalized)
}

// Decode parses TOON format and returns the decoded value.
//
// A document with no content lines (empty, blank or comments only) decodes
// to an empty *Object, the value Encode writes as "". Validate still reports
// such input as invalid.
func Decode(data string) (any, error) {
	return DecodeWithOptions(data, nil)
}

// DecodeWithOptions parses TOON format with custom options.
func DecodeWithOptions(data string, opts *DecodeOptions) (any, error) {
	if opts == nil {
		opts = &DecodeOptions{Strict: true}
	}

	d := &decoder{strict: opts.Strict}
	return d.decode(data)
}

func validDelimiter(d string) bool {
	switch d {
	case ",", "|", "\t":
		return true
	}
	return false
}
