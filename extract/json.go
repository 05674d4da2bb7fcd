package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// toonArrayRegex matches the start of a TOON array header such as "[3]:",
// which would otherwise parse as a one-element JSON array.
var toonArrayRegex = regexp.MustCompile(`^\s*\[\d+\]`)

func (e *Extractor) nextJSON(text string, from int) (Block, bool) {
	pos := from
	for i := 0; i < e.opts.MaxIterations; i++ {
		start := jsonStart(text, pos)
		if start < 0 {
			return Block{}, false
		}
		pos = start + 1

		end, ok := balanceJSON(text, start)
		if !ok {
			continue
		}
		candidate := text[start:end]
		if toonArrayRegex.MatchString(candidate) {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return Block{Kind: KindJSON, Start: start, End: end, Text: candidate}, true
		}
	}
	return Block{}, false
}

// jsonStart finds the next '{' or '[' at or after pos that is not glued to a
// preceding word, so that headers like "key[3]" are not candidates.
func jsonStart(text string, pos int) int {
	for pos < len(text) {
		i := strings.IndexAny(text[pos:], "{[")
		if i < 0 {
			return -1
		}
		i += pos
		if i == 0 {
			return i
		}
		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		if unicode.IsSpace(prev) || prev == '}' || prev == ']' || prev == ')' {
			return i
		}
		pos = i + 1
	}
	return -1
}

// balanceJSON scans from the opener at start and returns the offset just
// past the bracket that brings the nesting depth back to zero.
func balanceJSON(text string, start int) (int, bool) {
	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
