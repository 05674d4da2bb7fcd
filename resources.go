package mcp

// GrammarURI is the resource describing the TOON syntax.
const GrammarURI = "toon://grammar"

func NewResourceResponseText(uri, text, mimeType string) *ResourceResponse {
	return &ResourceResponse{
		Contents: []ResourceContent{{
			URI:      uri,
			Text:     text,
			MimeType: mimeType,
		}},
	}
}

const grammar = `# TOON

TOON is a line-oriented encoding of the JSON data model. Nesting is shown by
indentation (2 spaces by default) and every array declares its length.

## Scalars

- Strings are always double-quoted: "Ada". Escapes: \" \\ \n \r \t.
- Numbers are written bare in plain decimal form: 1, -0.5, 1000000.
- true, false and null are bare.

## Objects

    name: "Ada"
    address:
      city: "London"

An empty value after the colon opens a nested object on the following lines.

## Arrays

Primitive arrays are inline:

    tags[3]: "a", "b", "c"

Arrays of objects that share the same primitive fields are tabular:

    users[2]{id,name}:
      1,"Ada"
      2,"Bob"

Other arrays use list items:

    items[2]:
      - 1
      -
        name: "x"

The delimiter may be ",", "|" or a tab. A non-comma delimiter is declared in
the brackets: tags[3|]: "a"|"b"|"c".

## Rules

- The declared length must match the number of values, rows or items.
- Tabular rows must have one value per declared field.
- Keys are unique within an object.
`
