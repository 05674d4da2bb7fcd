package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paularlott/mcp-toon/convert"
	"github.com/paularlott/mcp-toon/extract"
	"github.com/paularlott/mcp-toon/seal"
	"github.com/paularlott/mcp-toon/toon"
)

// ToolsConfig holds the settings shared by the TOON tools.
type ToolsConfig struct {
	Encode   *toon.EncodeOptions // nil uses toon defaults
	Pipeline *convert.Pipeline   // nil uses pipeline defaults without phrases

	// Sealer enables toon_seal and toon_open when set.
	Sealer seal.Sealer
}

// RegisterTOONTools registers the TOON tools and the grammar resource on s.
func RegisterTOONTools(s *Server, cfg ToolsConfig) {
	t := &toonTools{cfg: cfg}
	if t.cfg.Pipeline == nil {
		t.cfg.Pipeline = &convert.Pipeline{Encode: cfg.Encode}
	}
	t.extractor = t.cfg.Pipeline.Extractor
	if t.extractor == nil {
		t.extractor = extract.New(extract.DefaultOptions())
	}

	s.RegisterTool(
		NewTool("toon_encode", "Convert a JSON document to TOON, a compact line-oriented notation that uses fewer tokens.",
			String("json", "JSON document to encode", Required()),
			String("delimiter", "Array delimiter", Enum(",", "|", "\t")),
			Number("indent", "Spaces per indentation level"),
		),
		t.encode,
	)

	s.RegisterTool(
		NewTool("toon_decode", "Convert a TOON document back to JSON. The document is validated first.",
			String("toon", "TOON document to decode", Required()),
			Boolean("pretty", "Indent the JSON output"),
		),
		t.decode,
	)

	s.RegisterTool(
		NewTool("toon_validate", "Check the structure of a TOON document and report the first problem with its line number.",
			String("toon", "TOON document to check", Required()),
			Output(
				Boolean("valid", "Whether the document is well formed"),
				String("message", "First problem found"),
				Number("line", "1-based line of the problem"),
			),
		),
		t.validate,
	)

	s.RegisterTool(
		NewTool("extract_payload", "Find the first JSON, XML or CSV payload embedded in free text.",
			String("text", "Text to search", Required()),
			String("kind", "Payload kind to look for", Required(), Enum(string(extract.KindJSON), string(extract.KindXML), string(extract.KindCSV))),
			Output(
				Boolean("found", "Whether a payload was found"),
				Object("block", "The payload and its byte offsets"),
			),
		),
		t.extract,
	)

	s.RegisterTool(
		NewTool("compress_text", "Shrink mixed text: embedded JSON, XML and CSV payloads are rewritten as TOON and common phrases are abbreviated.",
			String("text", "Text to compress", Required()),
			Output(
				String("text", "Compressed text"),
				Object("blocks", "Payloads that were rewritten"),
				Number("bytes_before", "Input size in bytes"),
				Number("bytes_after", "Output size in bytes"),
			),
		),
		t.compress,
	)

	formats := make([]string, 0, len(convert.Formats))
	for _, f := range convert.Formats {
		if !f.Binary() {
			formats = append(formats, string(f))
		}
	}
	s.RegisterTool(
		NewTool("convert", "Convert a document between JSON, YAML, XML, CSV and TOON.",
			String("input", "Document to convert", Required()),
			String("from", "Input format", Required(), Enum(formats...)),
			String("to", "Output format", Required(), Enum(formats...)),
		),
		t.convert,
	)

	if cfg.Sealer != nil {
		s.RegisterTool(
			NewTool("toon_seal", "Encrypt a document with the server's sealing key. The result can only be read with toon_open.",
				String("text", "Document to seal", Required()),
			),
			t.seal,
		)
		s.RegisterTool(
			NewTool("toon_open", "Decrypt a document produced by toon_seal.",
				String("sealed", "Sealed document", Required()),
			),
			t.open,
		)
	}

	s.RegisterResource(GrammarURI, "TOON grammar", "Syntax summary of the TOON format", "text/markdown",
		func(ctx context.Context, uri string) (*ResourceResponse, error) {
			return NewResourceResponseText(uri, grammar, "text/markdown"), nil
		})
}

type toonTools struct {
	cfg       ToolsConfig
	extractor *extract.Extractor
}

func (t *toonTools) encodeOptions(req *ToolRequest) (*toon.EncodeOptions, error) {
	opts := toon.DefaultEncodeOptions()
	if t.cfg.Encode != nil {
		*opts = *t.cfg.Encode
	}
	if d, err := req.String("delimiter"); err == nil {
		opts.Delimiter = d
	}
	if req.Has("indent") {
		indent, err := req.Int("indent")
		if err != nil || indent < 1 {
			return nil, NewToolErrorInvalidParams("indent must be a positive integer")
		}
		opts.Indent = indent
	}
	return opts, nil
}

func (t *toonTools) encode(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	input, err := req.RequireString("json")
	if err != nil {
		return nil, err
	}
	opts, err := t.encodeOptions(req)
	if err != nil {
		return nil, err
	}

	v, err := toon.FromJSON([]byte(input))
	if err != nil {
		return nil, NewToolErrorInvalidParams(fmt.Sprintf("invalid JSON: %v", err))
	}
	out, err := toon.EncodeWithOptions(v, opts)
	if err != nil {
		return nil, toolError(err)
	}
	return NewToolResponseText(out), nil
}

func (t *toonTools) decode(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	input, err := req.RequireString("toon")
	if err != nil {
		return nil, err
	}

	v, err := toon.Decode(input)
	if err != nil {
		return nil, toolError(err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, NewToolErrorInternal(err.Error())
	}
	if req.BoolOr("pretty", false) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}
	return NewToolResponseText(string(out)), nil
}

func (t *toonTools) validate(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	input, err := req.String("toon")
	if err != nil {
		return nil, NewToolErrorInvalidParams("toon parameter is required")
	}
	return NewToolResponseStructured(toon.Validate(input)), nil
}

type extractResult struct {
	Found bool           `json:"found"`
	Block *extract.Block `json:"block,omitempty"`
}

func (t *toonTools) extract(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return nil, err
	}
	name, err := req.RequireString("kind")
	if err != nil {
		return nil, err
	}
	kind, ok := extract.ParseKind(name)
	if !ok {
		return nil, NewToolErrorInvalidParams(fmt.Sprintf("unknown kind %q", name))
	}

	var result extractResult
	if b, ok := t.extractor.Next(kind, text, 0); ok {
		result = extractResult{Found: true, Block: &b}
	}
	return NewToolResponseStructured(result), nil
}

func (t *toonTools) compress(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	text, err := req.String("text")
	if err != nil {
		return nil, NewToolErrorInvalidParams("text parameter is required")
	}
	res, err := t.cfg.Pipeline.Compress(ctx, text)
	if err != nil {
		return nil, err
	}
	if res.Blocks == nil {
		res.Blocks = []convert.Converted{}
	}
	return NewToolResponseStructured(res), nil
}

func (t *toonTools) convert(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	input, err := req.RequireString("input")
	if err != nil {
		return nil, err
	}
	var formats [2]convert.Format
	for i, name := range []string{"from", "to"} {
		value, err := req.RequireString(name)
		if err != nil {
			return nil, err
		}
		f, err := convert.ParseFormat(value)
		if err != nil {
			return nil, NewToolErrorInvalidParams(err.Error())
		}
		if f.Binary() {
			return nil, NewToolErrorInvalidParams(fmt.Sprintf("%s is a binary format", f))
		}
		formats[i] = f
	}

	out, err := convert.ConvertWithOptions(formats[0], formats[1], []byte(input), convert.Options{TOON: t.cfg.Encode})
	if err != nil {
		return nil, toolError(err)
	}
	return NewToolResponseText(string(out)), nil
}

func (t *toonTools) seal(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return nil, err
	}
	out, err := t.cfg.Sealer.Seal([]byte(text))
	if err != nil {
		return nil, NewToolErrorInternal(err.Error())
	}
	return NewToolResponseText(out), nil
}

func (t *toonTools) open(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	sealed, err := req.RequireString("sealed")
	if err != nil {
		return nil, err
	}
	out, err := t.cfg.Sealer.Open(strings.TrimSpace(sealed))
	if err != nil {
		return nil, toolError(err)
	}
	return NewToolResponseText(string(out)), nil
}
