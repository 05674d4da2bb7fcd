package toon

import (
	"encoding/json"
	"testing"
)

// SearchResult mirrors a typical tool result carrying a free-form schema.
type SearchResult struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	InputSchema any     `json:"inputSchema,omitempty"`
	internal    string
}

func TestNormalize(t *testing.T) {
	n := 7
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{"int", 5, 5.0},
		{"uint8", uint8(200), 200.0},
		{"float32", float32(0.5), 0.5},
		{"pointer", &n, 7.0},
		{"nil pointer", (*int)(nil), nil},
		{"json number", json.Number("12.5"), 12.5},
		{"string slice", []string{"a", "b"}, []any{"a", "b"}},
		{"array", [2]int{1, 2}, []any{1.0, 2.0}},
		{"sorted map", map[string]int{"b": 2, "a": 1}, obj("a", 1.0, "b", 2.0)},
		{"int keys", map[int]bool{2: true, 1: false}, obj("1", false, "2", true)},
		{"nil map", map[string]any(nil), NewObject()},
		{"ordered object kept", obj("z", 1, "a", 2), obj("z", 1.0, "a", 2.0)},
		{
			"struct through json",
			SearchResult{Name: "calc", Score: 1, InputSchema: map[string]any{"type": "object"}, internal: "x"},
			obj("name", "calc", "description", "", "score", 1.0, "inputSchema", obj("type", "object")),
		},
		{
			"struct omitempty",
			&SearchResult{Name: "greet"},
			obj("name", "greet", "description", "", "score", 0.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if d := diff(tt.expected, got); d != "" {
				t.Errorf("(-want +got):\n%s", d)
			}
		})
	}
}

func TestEncodeStructSlice(t *testing.T) {
	results := []SearchResult{
		{Name: "calculator", Description: "Adds numbers", Score: 1},
		{Name: "greet", Description: "Says hello", Score: 0.75},
	}

	encoded, err := Encode(map[string]any{"results": results})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	const want = "results[2]{name,description,score}:\n" +
		"  \"calculator\",\"Adds numbers\",1\n" +
		"  \"greet\",\"Says hello\",0.75"
	if encoded != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, encoded)
	}
}
