package toon

import (
	"errors"
	"strings"
)

// Result is the outcome of Validate. Line is 1-based and 0 when the failure
// is not tied to a line.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Err returns nil for a valid result and a structural *Error otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	if r.Message == emptyInputMessage {
		return &Error{Kind: InputError, Message: r.Message}
	}
	return &Error{Kind: StructuralError, Message: r.Message, Line: r.Line}
}

const emptyInputMessage = "Input must be a non-empty string"

// Validate checks the structure of a TOON document without building a tree
// and stops at the first violation.
func Validate(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Message: emptyInputMessage}
	}
	lines, err := scanLines(text, false)
	if err == nil && len(lines) > 0 {
		if verr := validateLines(lines); verr != nil {
			err = verr
		}
	}
	if err != nil {
		var te *Error
		if errors.As(err, &te) {
			return Result{Message: te.Message, Line: te.Line}
		}
		return Result{Message: err.Error()}
	}
	return Result{Valid: true}
}

type contextKind int

const (
	contextRoot contextKind = iota
	contextObject
	contextArray
)

// context is one open block. indent is the indentation shared by the
// block's lines.
type context struct {
	indent   int
	kind     contextKind
	expected int
	seen     int
	tabular  bool
	width    int
	delim    string
	keys     map[string]bool
	line     int // opener line
}

// opener is a block announced by the previous line. It becomes a context
// when the next line is indented past threshold.
type opener struct {
	ctx       *context
	threshold int
}

type validator struct {
	stack     []*context
	pending   *opener
	rootArray bool
}

func validateLines(lines []*line) *Error {
	v := &validator{
		stack: []*context{{
			indent: lines[0].indent,
			kind:   contextRoot,
			keys:   map[string]bool{},
		}},
	}

	if len(lines) == 1 && (lines[0].kind == kindBare || lines[0].kind == kindQuoted) {
		return checkTokens(lines[0].num, lines[0].text)
	}

	for i, l := range lines {
		if err := v.step(i, l); err != nil {
			return err
		}
	}
	return v.finish()
}

func (v *validator) top() *context {
	return v.stack[len(v.stack)-1]
}

func (v *validator) step(i int, l *line) *Error {
	if p := v.pending; p != nil {
		v.pending = nil
		if l.indent > p.threshold {
			p.ctx.indent = l.indent
			v.stack = append(v.stack, p.ctx)
		} else if p.ctx.kind == contextArray && p.ctx.expected > 0 {
			return structuralError(p.ctx.line, "declared block has no items")
		}
	}

	if l.indent > v.top().indent {
		return structuralError(l.num, "unexpected indentation")
	}
	for len(v.stack) > 1 && l.indent < v.top().indent {
		if err := v.close(v.top()); err != nil {
			return err
		}
		v.stack = v.stack[:len(v.stack)-1]
	}
	ctx := v.top()
	if l.indent != ctx.indent {
		return structuralError(l.num, "invalid un-indentation")
	}

	if ctx.kind == contextRoot {
		if v.rootArray {
			return structuralError(l.num, "unexpected content after root array")
		}
		if i == 0 && l.kind == kindRootArrayHeader {
			v.rootArray = true
			return v.header(l.header, l.indent, l.num)
		}
	}

	if ctx.kind == contextArray {
		if ctx.tabular {
			return v.row(ctx, l)
		}
		if l.kind != kindListItem {
			return structuralError(l.num, "expected list item")
		}
		ctx.seen++
		return v.item(l)
	}
	return v.member(ctx, l)
}

// member checks a line inside an object or at the document root.
func (v *validator) member(ctx *context, l *line) *Error {
	switch l.kind {
	case kindListItem:
		return structuralError(l.num, "list item outside array")
	case kindArrayHeader:
		if err := v.claim(ctx, l.header.key, l.num); err != nil {
			return err
		}
		return v.header(l.header, l.indent, l.num)
	case kindKeyValue:
		if err := v.claim(ctx, l.key, l.num); err != nil {
			return err
		}
		return v.value(l.value, l.indent, l.num)
	case kindRootArrayHeader:
		return structuralError(l.num, "array header without key")
	}
	return structuralError(l.num, "unrecognized line")
}

// item checks the content carried by a list marker.
func (v *validator) item(l *line) *Error {
	item := l.item
	if item == nil {
		v.pending = &opener{
			ctx:       &context{kind: contextObject, keys: map[string]bool{}, line: l.num},
			threshold: l.indent,
		}
		return nil
	}
	keyCol := l.indent + len(l.text) - len(item.text)

	switch item.kind {
	case kindRootArrayHeader:
		return v.header(item.header, l.indent, l.num)
	case kindArrayHeader:
		v.stack = append(v.stack, &context{
			indent: keyCol,
			kind:   contextObject,
			keys:   map[string]bool{item.header.key: true},
			line:   l.num,
		})
		return v.header(item.header, keyCol, l.num)
	case kindKeyValue:
		v.stack = append(v.stack, &context{
			indent: keyCol,
			kind:   contextObject,
			keys:   map[string]bool{item.key: true},
			line:   l.num,
		})
		return v.value(item.value, keyCol, l.num)
	case kindBare, kindQuoted:
		return checkTokens(l.num, item.text)
	}
	return structuralError(l.num, "unrecognized line")
}

// value checks the value of `key: value`; an empty value announces a nested
// object.
func (v *validator) value(value string, indent, num int) *Error {
	if value == "" {
		v.pending = &opener{
			ctx:       &context{kind: contextObject, keys: map[string]bool{}, line: num},
			threshold: indent,
		}
		return nil
	}
	return checkTokens(num, value)
}

// header checks an array header found at indent. Inline values are counted
// right away; an empty body announces the array block.
func (v *validator) header(h *arrayHeader, indent, num int) *Error {
	if h.hasFields {
		if h.inline != "" {
			return structuralError(num, "tabular header must not carry inline values")
		}
		if len(h.fields) == 0 {
			return structuralError(num, "tabular header declares no fields")
		}
		seen := map[string]bool{}
		for _, f := range h.fields {
			if seen[f] {
				return structuralError(num, "duplicate key %q", f)
			}
			seen[f] = true
		}
	}

	if h.inline != "" {
		values := splitDelimited(h.inline, h.delim)
		if len(values) != h.length {
			return sizeMismatch(num, h.length, len(values))
		}
		return checkTokens(num, values...)
	}

	v.pending = &opener{
		ctx: &context{
			kind:     contextArray,
			expected: h.length,
			tabular:  h.hasFields,
			width:    len(h.fields),
			delim:    h.delim,
			line:     num,
		},
		threshold: indent,
	}
	return nil
}

func (v *validator) row(ctx *context, l *line) *Error {
	if l.kind == kindListItem {
		return structuralError(l.num, "expected tabular row, found list item")
	}
	if hasUnquotedColon(l.text) {
		return structuralError(l.num, "forbidden colon in tabular row")
	}
	values := splitDelimited(l.text, ctx.delim)
	if len(values) != ctx.width {
		return structuralError(l.num, "Tabular row width mismatch: expected %d, found %d", ctx.width, len(values))
	}
	ctx.seen++
	return checkTokens(l.num, values...)
}

func (v *validator) claim(ctx *context, key string, num int) *Error {
	if ctx.keys[key] {
		return structuralError(num, "duplicate key %q", key)
	}
	ctx.keys[key] = true
	return nil
}

func (v *validator) close(ctx *context) *Error {
	if ctx.kind == contextArray && ctx.seen != ctx.expected {
		return sizeMismatch(ctx.line, ctx.expected, ctx.seen)
	}
	return nil
}

func (v *validator) finish() *Error {
	if p := v.pending; p != nil && p.ctx.kind == contextArray && p.ctx.expected > 0 {
		return structuralError(p.ctx.line, "declared block has no items")
	}
	for i := len(v.stack) - 1; i >= 0; i-- {
		if err := v.close(v.stack[i]); err != nil {
			return err
		}
	}
	return nil
}

func sizeMismatch(num, declared, found int) *Error {
	return structuralError(num, "Array size mismatch: declared %d, found %d", declared, found)
}

// checkTokens rejects value tokens that open a quote without closing it.
func checkTokens(num int, tokens ...string) *Error {
	for _, tok := range tokens {
		if strings.HasPrefix(tok, `"`) && !isQuoted(tok) {
			return structuralError(num, "malformed quoted value %s", tok)
		}
	}
	return nil
}
