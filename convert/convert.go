// Package convert moves documents between TOON and the common data formats,
// and runs the mixed-text pipeline that rewrites embedded payloads as TOON.
//
// Every codec reads into and writes from the toon value model: nil, bool,
// float64, string, []any and *toon.Object.
package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paularlott/mcp-toon/toon"
)

// Format identifies a document format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
	FormatCBOR Format = "cbor"
	FormatTOON Format = "toon"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatXML, FormatCSV, FormatCBOR, FormatTOON}

// Binary reports whether the format is not text.
func (f Format) Binary() bool {
	return f == FormatCBOR
}

// ParseFormat maps a format name (case-insensitive, "yml" and "jsonc"
// accepted) to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "jsonc":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xml":
		return FormatXML, nil
	case "csv":
		return FormatCSV, nil
	case "cbor":
		return FormatCBOR, nil
	case "toon":
		return FormatTOON, nil
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// DetectFormat guesses the format from a file extension.
func DetectFormat(path string) (Format, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", false
	}
	f, err := ParseFormat(ext)
	return f, err == nil
}

// Options tune the codecs. The zero value uses the defaults.
type Options struct {
	CSVDelimiter rune                // default ','
	TOON         *toon.EncodeOptions // nil means toon.DefaultEncodeOptions
}

func (o Options) csvComma() rune {
	if o.CSVDelimiter == 0 {
		return ','
	}
	return o.CSVDelimiter
}

// Decode parses data in the given format into the value model.
func Decode(format Format, data []byte) (any, error) {
	return DecodeWithOptions(format, data, Options{})
}

// DecodeWithOptions parses data in the given format into the value model.
func DecodeWithOptions(format Format, data []byte, opts Options) (any, error) {
	var (
		v   any
		err error
	)
	switch format {
	case FormatJSON:
		v, err = decodeJSON(data)
	case FormatYAML:
		v, err = decodeYAML(data)
	case FormatXML:
		v, err = decodeXML(data)
	case FormatCSV:
		v, err = decodeCSV(data, opts.csvComma())
	case FormatCBOR:
		v, err = decodeCBOR(data)
	case FormatTOON:
		v, err = toon.Decode(string(data))
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return v, nil
}

// Encode renders v in the given format.
func Encode(format Format, v any) ([]byte, error) {
	return EncodeWithOptions(format, v, Options{})
}

// EncodeWithOptions renders v in the given format.
func EncodeWithOptions(format Format, v any, opts Options) ([]byte, error) {
	normalized, err := toon.Normalize(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	var out []byte
	switch format {
	case FormatJSON:
		out, err = encodeJSON(normalized)
	case FormatYAML:
		out, err = encodeYAML(normalized)
	case FormatXML:
		out, err = encodeXML(normalized)
	case FormatCSV:
		out, err = encodeCSV(normalized, opts.csvComma())
	case FormatCBOR:
		out, err = encodeCBOR(normalized)
	case FormatTOON:
		var s string
		s, err = toon.EncodeWithOptions(normalized, opts.TOON)
		out = []byte(s)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return out, nil
}

// Convert decodes data from one format and encodes it in another.
func Convert(from, to Format, data []byte) ([]byte, error) {
	return ConvertWithOptions(from, to, data, Options{})
}

// ConvertWithOptions decodes data from one format and encodes it in another.
func ConvertWithOptions(from, to Format, data []byte, opts Options) ([]byte, error) {
	v, err := DecodeWithOptions(from, data, opts)
	if err != nil {
		return nil, err
	}
	return EncodeWithOptions(to, v, opts)
}

// scalarText renders a scalar for formats without native types.
func scalarText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, float64:
		s, _ := toon.FormatScalar(val)
		return s
	}
	return fmt.Sprint(v)
}

// coerce types a text value from XML or CSV with the bare-token law.
// Quoted text stays a string verbatim.
func coerce(s string) any {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		return s
	}
	v, err := toon.ParseToken(s)
	if err != nil {
		return s
	}
	return v
}
