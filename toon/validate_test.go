package toon

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateValid(t *testing.T) {
	tests := map[string]string{
		"key values":        "a: 1\nb: \"x\"",
		"nested":            "a:\n  b:\n    c: 1\n  d: 2",
		"inline array":      "items[3]: 1, 2, 3",
		"empty array":       "items[0]:",
		"empty object":      "a:\nb: 1",
		"empty list object": "items[2]:\n  -\n  -\n    a: 1",
		"tabular":           "rows[2]{a,b}:\n  1,2\n  3,4",
		"root array":        "[2]:\n  - 1\n  - 2",
		"root scalar":       "42",
		"root quoted":       `"just a string"`,
		"comment only":      "# nothing",
		"comments inside":   "a[2]:\n  # first\n  - 1\n\n  - 2",
		"quoted values":     `a: "x: y"`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			r := Validate(input)
			if !r.Valid {
				t.Errorf("expected valid, got %q at line %d", r.Message, r.Line)
			}
			if r.Err() != nil {
				t.Errorf("Err() = %v, want nil", r.Err())
			}
		})
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		line    int
	}{
		{"inline size", "items[3]: 1, 2", "Array size mismatch: declared 3, found 2", 1},
		{"inline size over", "items[1]: 1, 2", "Array size mismatch: declared 1, found 2", 1},
		{"block size on dedent", "a[3]:\n  - 1\n  - 2\nb: 1", "Array size mismatch: declared 3, found 2", 1},
		{"block size at end", "a:\n  b[2]:\n    - 1", "Array size mismatch: declared 2, found 1", 2},
		{"tabular size", "t[3]{a}:\n  1\n  2", "Array size mismatch: declared 3, found 2", 1},
		{"empty block array", "a[2]:\nb: 1", "declared block has no items", 1},
		{"empty block at end", "a[1]:", "declared block has no items", 1},
		{"invalid un-indentation", "a:\n    b: 1\n  c: 2", "invalid un-indentation", 3},
		{"unexpected indentation", "a: 1\n  b: 2", "unexpected indentation", 2},
		{"list item outside array", "a:\n  - 1", "list item outside array", 2},
		{"expected list item", "a[1]:\n  b: 1", "expected list item", 2},
		{"forbidden colon", "t[1]{a,b}:\n  x: y", "forbidden colon in tabular row", 2},
		{"row width", "t[1]{a,b}:\n  1,2,3", "Tabular row width mismatch: expected 2, found 3", 2},
		{"list item as row", "a[1]{f}:\n  - x", "expected tabular row, found list item", 2},
		{"duplicate key", "a: 1\nb: 2\na: 3", `duplicate key "a"`, 3},
		{"duplicate nested key", "o:\n  k: 1\n  k[0]:", `duplicate key "k"`, 3},
		{"duplicate field", "t[1]{a,a}:\n  1,2", `duplicate key "a"`, 1},
		{"tab indentation", "a:\n\tb: 1", "tab character in indentation", 2},
		{"content after root array", "[1]: 1\nb: 2", "unexpected content after root array", 2},
		{"unrecognized", "a: 1\njust words", "unrecognized line", 2},
		{"missing space after colon", "a:1", "unrecognized line", 1},
		{"tabular inline", "t[1]{a}: 1", "tabular header must not carry inline values", 1},
		{"keyless header in object", "a: 1\n[1]: 2", "array header without key", 2},
		{"malformed quote", `a: "open`, `malformed quoted value "open`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.input)
			if r.Valid {
				t.Fatal("expected invalid")
			}
			if r.Message != tt.message {
				t.Errorf("message = %q, want %q", r.Message, tt.message)
			}
			if r.Line != tt.line {
				t.Errorf("line = %d, want %d", r.Line, tt.line)
			}
			if !errors.Is(r.Err(), ErrStructural) {
				t.Errorf("Err() = %v, want ErrStructural", r.Err())
			}
		})
	}
}

func TestValidateEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n"} {
		r := Validate(input)
		if r.Valid || r.Message != "Input must be a non-empty string" {
			t.Errorf("Validate(%q) = %+v", input, r)
		}
		if !errors.Is(r.Err(), ErrInput) {
			t.Errorf("Err() = %v, want ErrInput", r.Err())
		}
	}
}

func TestValidateEncoderOutput(t *testing.T) {
	values := []any{
		obj("a", []any{obj("b", []any{obj("c", 1.0)}), []any{[]any{}}, "s"}),
		[]any{[]any{obj("x", 1.0), obj("x", 2.0)}, obj("y", obj("z", []any{1.0}))},
		obj("deep", obj("er", obj("est", []any{obj("k", nil, "v", true)}))),
	}
	for _, v := range values {
		encoded, err := Encode(v)
		if err != nil {
			t.Fatal(err)
		}
		if r := Validate(encoded); !r.Valid {
			t.Errorf("encoder output rejected: %s (line %d)\n%s", r.Message, r.Line,
				strings.TrimSpace(encoded))
		}
	}
}
