// Package extract locates structured payloads embedded in free-form text.
//
// Three scanners look for JSON-shaped, XML-shaped and CSV-shaped blocks.
// Each returns the first match at or after a given offset; "no match" is a
// normal result, never an error. Retries after rejected candidates are
// bounded by Options.MaxIterations so that pathological input cannot loop.
package extract

import "sort"

// Kind names the shape of an extracted block.
type Kind string

const (
	KindJSON Kind = "json"
	KindXML  Kind = "xml"
	KindCSV  Kind = "csv"
)

// ParseKind maps a kind name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindJSON, KindXML, KindCSV:
		return Kind(s), true
	}
	return "", false
}

// Block is one payload found in a text. Start and End are byte offsets with
// Text == text[Start:End].
type Block struct {
	Kind  Kind   `json:"kind"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Options bound the scanners.
type Options struct {
	MaxIterations int    // candidates tried per scan (default: 100)
	Delimiter     string // CSV field delimiter (default: ",")
	MinLines      int    // shortest accepted CSV block (default: 1)

	// UniformFields rejects CSV blocks whose lines disagree on the number
	// of fields.
	UniformFields bool
}

// DefaultOptions returns the settings used by the package-level functions.
func DefaultOptions() Options {
	return Options{MaxIterations: 100, Delimiter: ",", MinLines: 1}
}

// Extractor runs the scanners with fixed options. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	opts Options
}

// New returns an Extractor; zero fields in opts take their defaults.
func New(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Delimiter == "" {
		opts.Delimiter = def.Delimiter
	}
	if opts.MinLines <= 0 {
		opts.MinLines = def.MinLines
	}
	return &Extractor{opts: opts}
}

// Options returns the effective options.
func (e *Extractor) Options() Options {
	return e.opts
}

// Next returns the first block of the given kind starting at or after from.
func (e *Extractor) Next(kind Kind, text string, from int) (Block, bool) {
	if from < 0 {
		from = 0
	}
	if from >= len(text) {
		return Block{}, false
	}
	switch kind {
	case KindJSON:
		return e.nextJSON(text, from)
	case KindXML:
		return e.nextXML(text, from)
	case KindCSV:
		return e.nextCSV(text, from)
	}
	return Block{}, false
}

// JSON returns the first JSON-shaped payload in text.
func (e *Extractor) JSON(text string) (string, bool) {
	b, ok := e.Next(KindJSON, text, 0)
	return b.Text, ok
}

// XML returns the first XML-shaped payload in text.
func (e *Extractor) XML(text string) (string, bool) {
	b, ok := e.Next(KindXML, text, 0)
	return b.Text, ok
}

// CSV returns the first CSV-shaped payload in text.
func (e *Extractor) CSV(text string) (string, bool) {
	b, ok := e.Next(KindCSV, text, 0)
	return b.Text, ok
}

// Find returns the first block of each kind, ordered by position.
func (e *Extractor) Find(text string) []Block {
	var blocks []Block
	for _, kind := range []Kind{KindJSON, KindXML, KindCSV} {
		if b, ok := e.Next(kind, text, 0); ok {
			blocks = append(blocks, b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })
	return blocks
}

var std = New(DefaultOptions())

// JSON returns the first JSON-shaped payload in text using default options.
func JSON(text string) (string, bool) { return std.JSON(text) }

// XML returns the first XML-shaped payload in text using default options.
func XML(text string) (string, bool) { return std.XML(text) }

// CSV returns the first CSV-shaped payload in text using default options.
func CSV(text string) (string, bool) { return std.CSV(text) }

// Find runs all scanners with default options.
func Find(text string) []Block { return std.Find(text) }
