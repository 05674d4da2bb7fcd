package toon

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	decimalRegex    = regexp.MustCompile(`^[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?$`)
)

// FormatScalar renders a scalar in canonical form: null, true/false, the
// shortest round-trip decimal for numbers and a double-quoted string.
func FormatScalar(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return formatNumber(val), nil
	case string:
		return Quote(val), nil
	default:
		return "", inputErrorf("unsupported type: %T", v)
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Quote double-quotes s. Backslash, quote and line-breaking characters are
// escaped so that the result always fits on one line.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Unquote reverses Quote. Unknown escape sequences are kept verbatim.
func Unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' || !closesAt(s, len(s)-1) {
		return "", parseErrorf("malformed quoted string %s", s)
	}
	body := s[1 : len(s)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' || i+1 >= len(body) {
			b.WriteByte(body[i])
			continue
		}
		switch body[i+1] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
			b.WriteByte(body[i+1])
		}
		i++
	}
	return b.String(), nil
}

// closesAt reports whether the quote opened at s[0] is first closed at end.
func closesAt(s string, end int) bool {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i == end
		}
	}
	return false
}

// isQuoted reports whether tok is a single, well-formed quoted string.
func isQuoted(tok string) bool {
	return len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' && closesAt(tok, len(tok)-1)
}

// ParseToken converts a value token to a scalar. Quoted tokens are strings.
// Bare tokens follow the coercion law: true, false and null are literals;
// tokens with a leading zero (other than "0" and "0.xxx") stay strings;
// decimal numbers become float64; anything else is returned verbatim.
func ParseToken(tok string) (any, error) {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, `"`) {
		s, err := Unquote(tok)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	switch tok {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}

	if strings.HasPrefix(tok, "0") && len(tok) > 1 && !strings.HasPrefix(tok, "0.") {
		return tok, nil
	}
	if decimalRegex.MatchString(tok) {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f, nil
		}
	}
	return tok, nil
}

func formatKey(key string) string {
	if identifierRegex.MatchString(key) {
		return key
	}
	return Quote(key)
}

func parseKey(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		if k, err := Unquote(s); err == nil {
			return k
		}
	}
	return s
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, bool, float64, string:
		return true
	default:
		return false
	}
}

// splitDelimited splits s on delim outside quoted spans and trims each part.
// An empty (all blank) input yields no parts.
func splitDelimited(s, delim string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && inQuote:
			i++
		case s[i] == '"':
			inQuote = !inQuote
		case !inQuote && strings.HasPrefix(s[i:], delim):
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + len(delim)
			i += len(delim) - 1
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// hasUnquotedColon reports whether s contains ':' outside quoted spans.
func hasUnquotedColon(s string) bool {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && inQuote:
			i++
		case s[i] == '"':
			inQuote = !inQuote
		case s[i] == ':' && !inQuote:
			return true
		}
	}
	return false
}
