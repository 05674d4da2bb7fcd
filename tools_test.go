package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/paularlott/mcp-toon/convert"
	"github.com/paularlott/mcp-toon/extract"
	"github.com/paularlott/mcp-toon/seal"
	"github.com/paularlott/mcp-toon/toon"
)

func toonServer(cfg ToolsConfig) *Server {
	s := NewServer("toon", "test")
	RegisterTOONTools(s, cfg)
	return s
}

func callText(t *testing.T, s *Server, name string, args map[string]any) string {
	t.Helper()
	resp, err := s.CallTool(context.Background(), name, args)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	if len(resp.Content) != 1 {
		t.Fatalf("%s: expected one content item, got %d", name, len(resp.Content))
	}
	return resp.Content[0].Text
}

func TestRegisteredTools(t *testing.T) {
	s := toonServer(ToolsConfig{})

	var names []string
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
	}
	expected := "compress_text,convert,extract_payload,toon_decode,toon_encode,toon_validate"
	if got := strings.Join(names, ","); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestEncodeTool(t *testing.T) {
	s := toonServer(ToolsConfig{})

	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{
			name:     "defaults",
			args:     map[string]any{"json": `{"b":1,"a":[1,2]}`},
			expected: "b: 1\na[2]: 1, 2",
		},
		{
			name:     "pipe delimiter",
			args:     map[string]any{"json": `{"v":[1,2]}`, "delimiter": "|"},
			expected: "v[2|]: 1|2",
		},
		{
			name:     "indent",
			args:     map[string]any{"json": `{"a":{"b":true}}`, "indent": float64(4)},
			expected: "a:\n    b: true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := callText(t, s, "toon_encode", tt.args); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestEncodeToolConfigured(t *testing.T) {
	s := toonServer(ToolsConfig{Encode: &toon.EncodeOptions{Indent: 2, Delimiter: "|"}})
	if got := callText(t, s, "toon_encode", map[string]any{"json": `{"v":[1,2]}`}); got != "v[2|]: 1|2" {
		t.Errorf("Expected configured delimiter, got %q", got)
	}
}

func TestDecodeTool(t *testing.T) {
	s := toonServer(ToolsConfig{})

	got := callText(t, s, "toon_decode", map[string]any{"toon": "users[2]{id,name}:\n  1,\"Ada\"\n  2,\"Bob\""})
	expected := `{"users":[{"id":1,"name":"Ada"},{"id":2,"name":"Bob"}]}`
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}

	got = callText(t, s, "toon_decode", map[string]any{"toon": "a: 1", "pretty": true})
	if got != "{\n  \"a\": 1\n}" {
		t.Errorf("Expected indented JSON, got %q", got)
	}
}

func TestToolErrors(t *testing.T) {
	s := toonServer(ToolsConfig{})

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"encode without json", "toon_encode", map[string]any{}},
		{"encode bad json", "toon_encode", map[string]any{"json": "{"}},
		{"encode bad delimiter", "toon_encode", map[string]any{"json": "1", "delimiter": ";"}},
		{"encode bad indent", "toon_encode", map[string]any{"json": "1", "indent": float64(0)}},
		{"decode invalid document", "toon_decode", map[string]any{"toon": "a[2]: 1"}},
		{"extract unknown kind", "extract_payload", map[string]any{"text": "x", "kind": "yaml"}},
		{"convert binary", "convert", map[string]any{"input": "{}", "from": "json", "to": "cbor"}},
		{"convert unknown format", "convert", map[string]any{"input": "{}", "from": "ini", "to": "json"}},
		{"convert bad input", "convert", map[string]any{"input": "{", "from": "json", "to": "toon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CallTool(context.Background(), tt.tool, tt.args)
			var te *ToolError
			if !errors.As(err, &te) {
				t.Fatalf("expected a ToolError, got %v", err)
			}
			if te.Code != ErrorCodeInvalidParams {
				t.Errorf("Expected code %d, got %d (%s)", ErrorCodeInvalidParams, te.Code, te.Message)
			}
		})
	}
}

func TestDecodeToolErrorData(t *testing.T) {
	s := toonServer(ToolsConfig{})

	_, err := s.CallTool(context.Background(), "toon_decode", map[string]any{"toon": "a: 1\nb[2]: 1"})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected a ToolError, got %v", err)
	}
	data, ok := te.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected error data, got %T", te.Data)
	}
	if data["kind"] != "structural error" || data["line"] != 2 {
		t.Errorf("unexpected error data: %v", data)
	}
}

func TestValidateTool(t *testing.T) {
	s := toonServer(ToolsConfig{})

	tests := []struct {
		name     string
		input    string
		expected toon.Result
	}{
		{"valid", "a: 1", toon.Result{Valid: true}},
		{"size mismatch", "a[2]: 1", toon.Result{Message: "Array size mismatch: declared 2, found 1", Line: 1}},
		{"empty", "", toon.Result{Message: "Input must be a non-empty string"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.CallTool(context.Background(), "toon_validate", map[string]any{"toon": tt.input})
			if err != nil {
				t.Fatalf("toon_validate failed: %v", err)
			}
			if got := resp.StructuredContent.(toon.Result); got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestExtractTool(t *testing.T) {
	s := toonServer(ToolsConfig{})

	resp, err := s.CallTool(context.Background(), "extract_payload", map[string]any{
		"text": `see {"a":1} ok`,
		"kind": "json",
	})
	if err != nil {
		t.Fatalf("extract_payload failed: %v", err)
	}
	got := resp.StructuredContent.(extractResult)
	expected := extract.Block{Kind: extract.KindJSON, Start: 4, End: 11, Text: `{"a":1}`}
	if !got.Found || *got.Block != expected {
		t.Errorf("Expected %+v, got %+v", expected, got)
	}

	resp, err = s.CallTool(context.Background(), "extract_payload", map[string]any{"text": "plain words", "kind": "xml"})
	if err != nil {
		t.Fatalf("extract_payload failed: %v", err)
	}
	if got := resp.StructuredContent.(extractResult); got.Found || got.Block != nil {
		t.Errorf("expected no block, got %+v", got)
	}
	if text := resp.Content[0].Text; text != `{"found":false}` {
		t.Errorf("Expected %q, got %q", `{"found":false}`, text)
	}
}

func TestCompressTool(t *testing.T) {
	s := toonServer(ToolsConfig{
		Pipeline: &convert.Pipeline{Phrases: convert.NewPhrases(map[string]string{"for example": "e.g."})},
	})

	input := `For example {"a":1} ok`
	resp, err := s.CallTool(context.Background(), "compress_text", map[string]any{"text": input})
	if err != nil {
		t.Fatalf("compress_text failed: %v", err)
	}
	res := resp.StructuredContent.(convert.Result)
	if res.Text != "E.g. a: 1 ok" {
		t.Errorf("Expected %q, got %q", "E.g. a: 1 ok", res.Text)
	}
	if len(res.Blocks) != 1 || res.BytesBefore != len(input) || res.BytesAfter != len(res.Text) {
		t.Errorf("unexpected result: %+v", res)
	}

	resp, err = s.CallTool(context.Background(), "compress_text", map[string]any{"text": "nothing here"})
	if err != nil {
		t.Fatalf("compress_text failed: %v", err)
	}
	if res := resp.StructuredContent.(convert.Result); res.Blocks == nil {
		t.Error("expected an empty block list, not nil")
	}
}

func TestConvertTool(t *testing.T) {
	s := toonServer(ToolsConfig{})

	tests := []struct {
		from, to string
		input    string
		expected string
	}{
		{"json", "toon", `{"a":[1,2]}`, "a[2]: 1, 2"},
		{"toon", "json", "a: \"x\"", "{\n  \"a\": \"x\"\n}"},
		{"csv", "toon", "id,name\n1,Ada\n", "[1]{id,name}:\n  1,\"Ada\""},
		{"yml", "toon", "a: true\n", "a: true"},
	}

	for _, tt := range tests {
		t.Run(tt.from+"-"+tt.to, func(t *testing.T) {
			got := callText(t, s, "convert", map[string]any{"input": tt.input, "from": tt.from, "to": tt.to})
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSealTools(t *testing.T) {
	key := make([]byte, seal.KeySize)
	sealer, err := seal.NewKeySealer(key, false)
	if err != nil {
		t.Fatal(err)
	}
	s := toonServer(ToolsConfig{Sealer: sealer})

	sealed := callText(t, s, "toon_seal", map[string]any{"text": "a: 1"})
	if sealed == "a: 1" || sealed == "" {
		t.Fatalf("Expected sealed output, got %q", sealed)
	}
	if got := callText(t, s, "toon_open", map[string]any{"sealed": sealed + "\n"}); got != "a: 1" {
		t.Errorf("Expected %q, got %q", "a: 1", got)
	}

	other := make([]byte, seal.KeySize)
	other[0] = 1
	otherSealer, err := seal.NewKeySealer(other, false)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := otherSealer.Seal([]byte("b: 2"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.CallTool(context.Background(), "toon_open", map[string]any{"sealed": foreign})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected a ToolError, got %v", err)
	}
	if te.Code != ErrorCodeSealRejected {
		t.Errorf("Expected code %d, got %d", ErrorCodeSealRejected, te.Code)
	}
}

func TestSealToolsNeedSealer(t *testing.T) {
	s := toonServer(ToolsConfig{})
	_, err := s.CallTool(context.Background(), "toon_seal", map[string]any{"text": "x"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("Expected ErrToolNotFound, got %v", err)
	}
}
