package extract

import (
	"regexp"
	"strings"
)

var (
	startTagRegex = regexp.MustCompile(`<([A-Za-z_][\w:.\-]*)(?:\s[^<>]*?)?\s*(/?)>`)
	// anyTagRegex matches open, close and self-closing tags; group 2 is the
	// name.
	anyTagRegex = regexp.MustCompile(`<(/?)([A-Za-z_][\w:.\-]*)(?:[\s/][^<>]*)?>`)
)

func (e *Extractor) nextXML(text string, from int) (Block, bool) {
	pos := from
	for i := 0; i < e.opts.MaxIterations && pos < len(text); i++ {
		loc := startTagRegex.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			return Block{}, false
		}
		start, tagEnd := pos+loc[0], pos+loc[1]
		name := text[pos+loc[2] : pos+loc[3]]

		if loc[5] > loc[4] {
			return Block{Kind: KindXML, Start: start, End: tagEnd, Text: text[start:tagEnd]}, true
		}
		if end, ok := balanceXML(text, tagEnd, name); ok {
			return Block{Kind: KindXML, Start: start, End: end, Text: text[start:end]}, true
		}
		pos = start + 1
	}
	return Block{}, false
}

// balanceXML counts the tags named name after an opening tag and returns the
// offset just past the matching close tag. Self-closing tags of the same
// name do not change the balance.
func balanceXML(text string, from int, name string) (int, bool) {
	balance := 1
	for pos := from; pos < len(text); {
		loc := anyTagRegex.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		base := pos
		pos += loc[1]
		if text[base+loc[4]:base+loc[5]] != name {
			continue
		}
		switch {
		case loc[3] > loc[2]:
			balance--
		case strings.HasSuffix(text[base+loc[0]:pos], "/>"):
		default:
			balance++
		}
		if balance == 0 {
			return pos, true
		}
	}
	return 0, false
}
