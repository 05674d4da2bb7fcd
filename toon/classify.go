package toon

import (
	"regexp"
	"strconv"
	"strings"
)

// keyPattern matches a quoted key or a bare key. Bare keys may not start with
// a dash (list marker) and never contain quotes, brackets, braces or colons.
const keyPattern = `"(?:[^"\\]|\\.)*"|[^\s"\[\]{}:\-][^"\[\]{}:]*?`

// fieldsPattern is the body of a `{...}` field list; quoted names may hold
// a closing brace.
const fieldsPattern = `(?:"(?:[^"\\]|\\.)*"|[^}"])*`

var (
	headerRegex   = regexp.MustCompile(`^(` + keyPattern + `)?\[(\d+)([,|\t])?\](?:\{(` + fieldsPattern + `)\})?:(.*)$`)
	keyValueRegex = regexp.MustCompile(`^(` + keyPattern + `)[ \t]*:(?:[ \t]+(.*))?$`)
)

type lineKind int

const (
	kindUnrecognized lineKind = iota
	kindRootArrayHeader
	kindArrayHeader
	kindListItem
	kindKeyValue
	kindQuoted
	kindBare
)

// arrayHeader is the parsed form of `key[N<delim>]{fields}: inline`.
type arrayHeader struct {
	key       string
	keyed     bool
	length    int
	delim     string
	fields    []string
	hasFields bool
	inline    string
}

// line is one content line of a document. Blank and comment lines are never
// represented.
type line struct {
	num    int    // 1-based line number in the source
	indent int    // number of leading spaces
	text   string // content without indentation or trailing blanks
	kind   lineKind

	key    string // kindKeyValue
	value  string // kindKeyValue, empty when the line opens a block
	header *arrayHeader
	item   *line // kindListItem content, nil for a bare "-"
}

// classifyLine tags a line's content. It looks at syntax only; whether the
// line is legal where it appears is decided by the caller.
func classifyLine(text string) *line {
	l := &line{text: text}

	if text == "-" || strings.HasPrefix(text, "- ") {
		l.kind = kindListItem
		if content := strings.TrimSpace(text[1:]); content != "" {
			l.item = classifyLine(content)
		}
		return l
	}

	if idx := headerRegex.FindStringSubmatchIndex(text); idx != nil {
		m := submatches(text, idx)
		n, err := strconv.Atoi(m[2])
		if err == nil {
			h := &arrayHeader{
				key:    parseKey(m[1]),
				keyed:  m[1] != "",
				length: n,
				delim:  ",",
				inline: strings.TrimSpace(m[5]),
			}
			if m[3] != "" {
				h.delim = m[3]
			}
			// Group 4 matched, even if empty: the header has a field list.
			if idx[8] >= 0 {
				h.hasFields = true
				for _, f := range splitDelimited(m[4], h.delim) {
					h.fields = append(h.fields, parseKey(f))
				}
			}
			l.header = h
			l.kind = kindArrayHeader
			if !h.keyed {
				l.kind = kindRootArrayHeader
			}
			return l
		}
	}

	if m := keyValueRegex.FindStringSubmatch(text); m != nil {
		l.kind = kindKeyValue
		l.key = parseKey(m[1])
		l.value = strings.TrimSpace(m[2])
		return l
	}

	if strings.HasPrefix(text, `"`) && isQuoted(text) {
		l.kind = kindQuoted
		return l
	}
	if !hasUnquotedColon(text) {
		l.kind = kindBare
		return l
	}
	l.kind = kindUnrecognized
	return l
}

// submatches turns FindStringSubmatchIndex output into strings, with ""
// for groups that did not take part in the match.
func submatches(text string, idx []int) []string {
	m := make([]string, len(idx)/2)
	for i := range m {
		if idx[2*i] >= 0 {
			m[i] = text[idx[2*i]:idx[2*i+1]]
		}
	}
	return m
}

// scanLines splits a document into classified content lines, dropping blank
// lines and full-line comments. A tab in the indentation is reported as a
// structural error unless lenient is set, in which case it counts as a space.
func scanLines(data string, lenient bool) ([]*line, error) {
	raw := strings.Split(data, "\n")
	lines := make([]*line, 0, len(raw))
	for i, r := range raw {
		r = strings.TrimRight(r, " \t\r")
		content := strings.TrimLeft(r, " \t")
		if content == "" || strings.HasPrefix(content, "#") {
			continue
		}
		lead := r[:len(r)-len(content)]
		if strings.ContainsRune(lead, '\t') && !lenient {
			return nil, structuralError(i+1, "tab character in indentation")
		}
		l := classifyLine(content)
		l.num = i + 1
		l.indent = len(lead)
		lines = append(lines, l)
	}
	return lines, nil
}
