package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// TOON array headers; an empty body means the next N lines belong to it.
	toonHeaderLineRegex = regexp.MustCompile(`^\s*(?:"[^"]*"|[\w.\-]+)?\[(\d+)[,|\t]?\](?:\{(?:"(?:[^"\\]|\\.)*"|[^}"])*\})?:(.*)$`)
	toonHeaderRegex     = regexp.MustCompile(`^\s*(?:"[^"]*"|[\w.\-]+)?\[\d+`)
	jsonOpenerRegex     = regexp.MustCompile(`^\s*[{\[]`)

	flavourRegexes = []*regexp.Regexp{
		// JSON
		regexp.MustCompile(`^\s*[{\[\]}]`),
		regexp.MustCompile(`^\s*"[^"]*"\s*:`),
		// YAML
		regexp.MustCompile(`^\s*- `),
		regexp.MustCompile(`^\s*[\w.\-]+:(\s|$)`),
		// XML
		regexp.MustCompile(`^\s*<`),
		regexp.MustCompile(`</|/>`),
	}
)

// textLine is one line of the input with its byte offsets, excluding the
// line terminator.
type textLine struct {
	text       string
	start, end int
}

func splitTextLines(text string, from int) []textLine {
	var lines []textLine
	start := from
	for start <= len(text) {
		i := strings.IndexByte(text[start:], '\n')
		end := len(text)
		if i >= 0 {
			end = start + i
		}
		content := strings.TrimSuffix(text[start:end], "\r")
		lines = append(lines, textLine{text: content, start: start, end: start + len(content)})
		if i < 0 {
			break
		}
		start = end + 1
	}
	return lines
}

func (e *Extractor) nextCSV(text string, from int) (Block, bool) {
	// Start on a line boundary.
	if from > 0 {
		if i := strings.IndexByte(text[from:], '\n'); text[from-1] != '\n' {
			if i < 0 {
				return Block{}, false
			}
			from += i + 1
		}
	}
	lines := splitTextLines(text, from)
	delim := e.opts.Delimiter

	tries := 0
	for i := 0; i < len(lines) && tries < e.opts.MaxIterations; i++ {
		l := lines[i].text
		if m := toonHeaderLineRegex.FindStringSubmatch(l); m != nil {
			if strings.TrimSpace(m[2]) == "" {
				n, _ := strconv.Atoi(m[1])
				i += n
			}
			continue
		}
		if !e.csvLine(l) {
			continue
		}

		j := i
		for j+1 < len(lines) && e.csvLine(lines[j+1].text) &&
			!toonHeaderLineRegex.MatchString(lines[j+1].text) {
			j++
		}
		tries++

		block := lines[i : j+1]
		if e.acceptCSV(block, delim) {
			start, end := block[0].start, block[len(block)-1].end
			return Block{Kind: KindCSV, Start: start, End: end, Text: text[start:end]}, true
		}
		i = j
	}
	return Block{}, false
}

// csvLine reports whether l can belong to a CSV block: non-blank, carrying
// the delimiter and not looking like JSON, YAML or XML.
func (e *Extractor) csvLine(l string) bool {
	if strings.TrimSpace(l) == "" || !strings.Contains(l, e.opts.Delimiter) {
		return false
	}
	for _, re := range flavourRegexes {
		if re.MatchString(l) {
			return false
		}
	}
	return true
}

// acceptCSV applies the whole-block checks: minimum length and no TOON
// header or JSON opener. With UniformFields every line must also have the
// same field count.
func (e *Extractor) acceptCSV(block []textLine, delim string) bool {
	if len(block) < e.opts.MinLines {
		return false
	}
	first := block[0].text
	if toonHeaderRegex.MatchString(first) || jsonOpenerRegex.MatchString(first) {
		return false
	}
	if !e.opts.UniformFields {
		return true
	}
	width := fieldCount(first, delim)
	for _, l := range block[1:] {
		if fieldCount(l.text, delim) != width {
			return false
		}
	}
	return true
}

// fieldCount counts delimiter-separated fields outside double quotes.
func fieldCount(l, delim string) int {
	n := 1
	inQuote := false
	for i := 0; i < len(l); i++ {
		switch {
		case l[i] == '"':
			inQuote = !inQuote
		case !inQuote && strings.HasPrefix(l[i:], delim):
			n++
			i += len(delim) - 1
		}
	}
	return n
}
