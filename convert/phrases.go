package convert

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Phrases is an immutable dictionary of verbose phrases and their short
// forms. Matching is case-insensitive on whole words, the longest phrase
// wins, and any run of whitespace inside a phrase matches.
type Phrases struct {
	re     *regexp.Regexp
	lookup map[string]string
	size   int
}

// NewPhrases builds a dictionary from verbose → short pairs. Empty keys are
// ignored.
func NewPhrases(m map[string]string) *Phrases {
	p := &Phrases{lookup: make(map[string]string, len(m))}
	keys := make([]string, 0, len(m))
	for k, v := range m {
		norm := normalizePhrase(k)
		if norm == "" {
			continue
		}
		if _, dup := p.lookup[norm]; !dup {
			keys = append(keys, norm)
		}
		p.lookup[norm] = v
	}
	if len(keys) == 0 {
		return p
	}
	p.size = len(keys)

	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	alts := make([]string, len(keys))
	for i, k := range keys {
		words := strings.Fields(k)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alt := strings.Join(words, `\s+`)
		if r, _ := utf8.DecodeRuneInString(k); isWordRune(r) {
			alt = `\b` + alt
		}
		if r, _ := utf8.DecodeLastRuneInString(k); isWordRune(r) {
			alt += `\b`
		}
		alts[i] = alt
	}
	p.re = regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
	return p
}

// DefaultPhrases returns the built-in dictionary.
func DefaultPhrases() *Phrases {
	return NewPhrases(map[string]string{
		"in order to":                  "to",
		"due to the fact that":         "because",
		"at this point in time":        "now",
		"at the present time":          "now",
		"for the purpose of":           "for",
		"in the event that":            "if",
		"with regard to":               "regarding",
		"with respect to":              "regarding",
		"a large number of":            "many",
		"is able to":                   "can",
		"are able to":                  "can",
		"prior to":                     "before",
		"subsequent to":                "after",
		"in spite of the fact that":    "although",
		"it is important to note that": "note:",
		"please note that":             "note:",
		"as a matter of fact":          "in fact",
		"in the near future":           "soon",
		"has the ability to":           "can",
		"make a decision":              "decide",
	})
}

// Len returns the number of phrases.
func (p *Phrases) Len() int {
	if p == nil {
		return 0
	}
	return p.size
}

// Apply replaces every known phrase in s. A match starting with an upper
// case letter gets a capitalised replacement.
func (p *Phrases) Apply(s string) string {
	if p == nil || p.re == nil {
		return s
	}
	return p.re.ReplaceAllStringFunc(s, func(match string) string {
		repl, ok := p.lookup[normalizePhrase(match)]
		if !ok {
			return match
		}
		first, _ := utf8.DecodeRuneInString(match)
		if unicode.IsUpper(first) && repl != "" {
			r, size := utf8.DecodeRuneInString(repl)
			repl = string(unicode.ToUpper(r)) + repl[size:]
		}
		return repl
	})
}

func normalizePhrase(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
