package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		found    bool
	}{
		{"object in prose", `Result: {"a": 1, "b": [1, 2]} done`, `{"a": 1, "b": [1, 2]}`, true},
		{"array at start", `[1, 2, 3] trailing`, `[1, 2, 3]`, true},
		{"braces in strings", `see {"s": "}{][", "t": "\"}"} end`, `{"s": "}{][", "t": "\"}"}`, true},
		{"escaped backslash", `x {"p": "C:\\"} y`, `{"p": "C:\\"}`, true},
		{"nested", "payload:\n{\"a\": {\"b\": [{}, []]}}\n", `{"a": {"b": [{}, []]}}`, true},
		{"toon inline array", "ids[3]: 1, 2, 3", "", false},
		{"toon root header", "[3]: 1, 2, 3", "", false},
		{"glued to word", `call f{"a":1}`, "", false},
		{"invalid then valid", `{not json} and then {"ok": true}`, `{"ok": true}`, true},
		{"after paren", `(x){"a":1}`, `{"a":1}`, true},
		{"after bracket closer", `[1]{"a":1}`, `{"a":1}`, true},
		{"unbalanced", `{"a": [1, 2}`, "", false},
		{"no candidates", "plain text only", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := JSON(tt.input)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v (got %q)", ok, tt.found, got)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestJSONIterationCap(t *testing.T) {
	input := strings.Repeat("{bad} ", 500) + `{"good": 1}`

	if _, ok := JSON(input); ok {
		t.Error("expected the default cap to stop before the valid block")
	}

	e := New(Options{MaxIterations: 1000})
	got, ok := e.JSON(input)
	if !ok || got != `{"good": 1}` {
		t.Errorf("got %q, %v", got, ok)
	}
}

func TestXML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		found    bool
	}{
		{"simple", `before <note><to>Tove</to></note> after`, `<note><to>Tove</to></note>`, true},
		{"attributes", `x <item id="1" kind='a'>v</item> y`, `<item id="1" kind='a'>v</item>`, true},
		{"self closing", `here <br/> and <p>text</p>`, `<br/>`, true},
		{"self closing with attrs", `<img src="a.png" />`, `<img src="a.png" />`, true},
		{"nested same name", `<a><a>inner</a><b/></a> tail`, `<a><a>inner</a><b/></a>`, true},
		{"prefix names", `<item><items>x</items></item>`, `<item><items>x</items></item>`, true},
		{"self closing same name", `<a><a/>x</a>`, `<a><a/>x</a>`, true},
		{"prefix named child", `<a><ab>x</ab><a-b/></a >!`, `<a><ab>x</ab><a-b/></a >`, true},
		{"unclosed then closed", `<open> text <done>ok</done>`, `<done>ok</done>`, true},
		{"comparison is not a tag", "if a < b and c > d", "", false},
		{"none", "no markup here", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := XML(tt.input)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v (got %q)", ok, tt.found, got)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		found    bool
	}{
		{
			name:     "table in prose",
			input:    "Here are the users:\nname,age,city\nAlice,30,Paris\nBob,25,Rome\n\nThanks.",
			expected: "name,age,city\nAlice,30,Paris\nBob,25,Rome",
			found:    true,
		},
		{
			name:     "quoted fields",
			input:    "id,comment\n1,\"hello, world\"\n2,\"bye\"",
			expected: "id,comment\n1,\"hello, world\"\n2,\"bye\"",
			found:    true,
		},
		{
			name:  "toon tabular skipped",
			input: "rows[2]{a,b}:\n  1,2\n  3,4",
			found: false,
		},
		{
			name:     "toon skipped then csv",
			input:    "rows[2]{a,b}:\n  1,2\n  3,4\n\nx,y\n5,6",
			expected: "x,y\n5,6",
			found:    true,
		},
		{
			name:  "json lines",
			input: "[1, 2]\n{\"a\": 1, \"b\": 2}",
			found: false,
		},
		{
			name:  "yaml list",
			input: "- a, b\n- c, d",
			found: false,
		},
		{
			name:  "xml",
			input: "<a>1,2</a>\n<b>3,4</b>",
			found: false,
		},
		{
			name:     "single line",
			input:    "name,age",
			expected: "name,age",
			found:    true,
		},
		{
			name:     "ragged widths",
			input:    "a,b\nc,d,e",
			expected: "a,b\nc,d,e",
			found:    true,
		},
		{
			name:     "starts after a plain line",
			input:    "x\na,b,c\n1,2\n",
			expected: "a,b,c\n1,2",
			found:    true,
		},
		{
			name:     "crlf",
			input:    "a,b\r\n1,2\r\n",
			expected: "a,b\r\n1,2",
			found:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CSV(tt.input)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v (got %q)", ok, tt.found, got)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCSVOptions(t *testing.T) {
	e := New(Options{Delimiter: "|", MinLines: 3})

	if _, ok := e.CSV("a|b\n1|2"); ok {
		t.Error("two lines should be below MinLines")
	}
	got, ok := e.CSV("a|b\n1|2\n3|4")
	if !ok || got != "a|b\n1|2\n3|4" {
		t.Errorf("got %q, %v", got, ok)
	}
}

func TestCSVUniformFields(t *testing.T) {
	e := New(Options{UniformFields: true, MinLines: 2})

	tests := []struct {
		name     string
		input    string
		expected string
		found    bool
	}{
		{"prose with varying commas", "I went home, then slept.\nWe ate, drank, and sang.", "", false},
		{"ragged widths", "a,b\nc,d,e", "", false},
		{"quoted delimiter", "id,comment\n1,\"a, b\"", "id,comment\n1,\"a, b\"", true},
		{"single line below MinLines", "name,age", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.CSV(tt.input)
			if ok != tt.found || got != tt.expected {
				t.Errorf("Expected %q (%v), got %q (%v)", tt.expected, tt.found, got, ok)
			}
		})
	}
}

func TestNext(t *testing.T) {
	text := `first {"a":1} second {"b":2}`
	e := New(DefaultOptions())

	b, ok := e.Next(KindJSON, text, 0)
	if !ok || b.Text != `{"a":1}` {
		t.Fatalf("first = %+v, %v", b, ok)
	}
	b, ok = e.Next(KindJSON, text, b.End)
	if !ok || b.Text != `{"b":2}` || text[b.Start:b.End] != b.Text {
		t.Fatalf("second = %+v, %v", b, ok)
	}
	if _, ok := e.Next(KindJSON, text, b.End); ok {
		t.Error("expected no third block")
	}
}

func TestFind(t *testing.T) {
	text := "csv:\nx,y\n1,2\n\nxml: <r>1</r>\njson: {\"k\": [1]}\n"

	got := Find(text)
	want := []Block{
		{Kind: KindCSV, Start: 5, End: 12, Text: "x,y\n1,2"},
		{Kind: KindXML, Start: 19, End: 27, Text: "<r>1</r>"},
		{Kind: KindJSON, Start: 34, End: 44, Text: `{"k": [1]}`},
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Find (-want +got):\n%s", d)
	}
}
