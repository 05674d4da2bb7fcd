package convert

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/paularlott/mcp-toon/extract"
	"github.com/paularlott/mcp-toon/toon"
)

// Converted records one payload rewritten by the pipeline.
type Converted struct {
	Kind     extract.Kind `json:"kind"`
	Original string       `json:"original"`
	TOON     string       `json:"toon"`
}

// Result is the output of Pipeline.Compress.
type Result struct {
	Text        string      `json:"text"`
	Blocks      []Converted `json:"blocks"`
	BytesBefore int         `json:"bytes_before"`
	BytesAfter  int         `json:"bytes_after"`
}

// Pipeline rewrites mixed text: embedded JSON, XML and CSV payloads are
// converted to TOON in place and the prose around them is shortened with a
// phrase dictionary. A Pipeline is read-only once built and may be shared.
type Pipeline struct {
	Extractor *extract.Extractor  // nil uses extract defaults
	Encode    *toon.EncodeOptions // nil uses toon defaults
	Phrases   *Phrases            // nil leaves prose untouched
}

var errNoRecords = errors.New("csv block has no records")

// segment is a piece of the text being rewritten. Payload segments are
// never scanned again.
type segment struct {
	text    string
	payload bool
}

// Compress runs extract → convert → splice for JSON, then XML, then CSV
// blocks. A block that cannot be converted is left in place and the search
// continues after it. ctx is checked between steps.
func (p *Pipeline) Compress(ctx context.Context, text string) (Result, error) {
	ex := p.Extractor
	if ex == nil {
		ex = extract.New(extract.DefaultOptions())
	}
	opts := Options{TOON: p.Encode}
	if r, _ := utf8.DecodeRuneInString(ex.Options().Delimiter); r != utf8.RuneError {
		opts.CSVDelimiter = r
	}
	limit := ex.Options().MaxIterations

	res := Result{BytesBefore: len(text)}
	segments := []segment{{text: text}}

	for _, kind := range []extract.Kind{extract.KindJSON, extract.KindXML, extract.KindCSV} {
		splices := 0
		var next []segment
		for _, seg := range segments {
			if seg.payload {
				next = append(next, seg)
				continue
			}
			pos := 0
			rest := seg.text
			for splices < limit {
				if err := ctx.Err(); err != nil {
					return Result{}, err
				}
				b, ok := ex.Next(kind, rest, pos)
				if !ok {
					break
				}
				encoded, err := p.convert(kind, b.Text, opts)
				if err != nil {
					pos = b.End
					continue
				}
				splices++
				next = append(next, segment{text: rest[:b.Start]}, segment{text: encoded, payload: true})
				res.Blocks = append(res.Blocks, Converted{Kind: kind, Original: b.Text, TOON: encoded})
				rest = rest[b.End:]
				pos = 0
			}
			next = append(next, segment{text: rest})
		}
		segments = next
	}

	var out strings.Builder
	for _, seg := range segments {
		if seg.payload {
			out.WriteString(seg.text)
		} else {
			out.WriteString(p.Phrases.Apply(seg.text))
		}
	}
	res.Text = out.String()
	res.BytesAfter = len(res.Text)
	return res, nil
}

func (p *Pipeline) convert(kind extract.Kind, block string, opts Options) (string, error) {
	var format Format
	switch kind {
	case extract.KindJSON:
		format = FormatJSON
	case extract.KindXML:
		format = FormatXML
	default:
		format = FormatCSV
	}
	v, err := DecodeWithOptions(format, []byte(block), opts)
	if err != nil {
		return "", err
	}
	// A lone header line is usually prose with a comma in it.
	if rows, ok := v.([]any); ok && format == FormatCSV && len(rows) == 0 {
		return "", errNoRecords
	}
	out, err := EncodeWithOptions(FormatTOON, v, opts)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
