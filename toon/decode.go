package toon

import "errors"

// list is the mutable handle for an array under construction. Frames refer
// to it while items are appended; finalize turns it into a []any.
type list struct {
	items []any
}

// frame is one open container on the decoder stack. Exactly one of obj and
// arr is set.
type frame struct {
	indent int
	obj    *Object
	arr    *list
}

// table is the tabular side-mode: rows are mapped onto fields until the
// indentation drops below the first row or a row carries a colon.
type table struct {
	arr       *list
	fields    []string
	delim     string
	indent    int // header indentation
	rowIndent int // -1 until the first row is seen
}

type decoder struct {
	strict bool
	stack  []frame
	tbl    *table
}

func (d *decoder) decode(data string) (any, error) {
	lines, err := scanLines(data, !d.strict)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return NewObject(), nil
	}
	if d.strict {
		if verr := validateLines(lines); verr != nil {
			return nil, verr
		}
	}

	first := lines[0]
	if len(lines) == 1 && (first.kind == kindBare || first.kind == kindQuoted) {
		return d.token(first.text, first.num)
	}

	var root any
	if first.kind == kindRootArrayHeader {
		arr := &list{}
		root = arr
		d.stack = []frame{{indent: -1, arr: arr}}
		if err := d.fillArray(arr, first.header, first.indent, first.num); err != nil {
			return nil, err
		}
		lines = lines[1:]
	} else {
		obj := NewObject()
		root = obj
		d.stack = []frame{{indent: -1, obj: obj}}
	}

	for _, l := range lines {
		if err := d.line(l); err != nil {
			return nil, err
		}
	}
	return finalize(root), nil
}

func (d *decoder) push(indent int, obj *Object, arr *list) {
	d.stack = append(d.stack, frame{indent: indent, obj: obj, arr: arr})
}

func (d *decoder) line(l *line) error {
	if t := d.tbl; t != nil {
		if l.indent > t.indent && (t.rowIndent < 0 || l.indent >= t.rowIndent) &&
			l.kind != kindListItem && !hasUnquotedColon(l.text) {
			if t.rowIndent < 0 {
				t.rowIndent = l.indent
			}
			return d.row(t, l)
		}
		d.tbl = nil
	}

	for len(d.stack) > 1 && d.stack[len(d.stack)-1].indent >= l.indent {
		d.stack = d.stack[:len(d.stack)-1]
	}
	cur := d.stack[len(d.stack)-1]

	switch l.kind {
	case kindListItem:
		if cur.arr == nil {
			return nil
		}
		return d.listItem(cur.arr, l)

	case kindRootArrayHeader:
		// Only reachable when not validating: treat like "- [N]".
		if cur.arr == nil {
			return nil
		}
		arr := &list{}
		cur.arr.items = append(cur.arr.items, arr)
		return d.fillArray(arr, l.header, l.indent, l.num)

	case kindArrayHeader:
		if cur.obj == nil {
			return nil
		}
		arr := &list{}
		cur.obj.Set(l.header.key, arr)
		return d.fillArray(arr, l.header, l.indent, l.num)

	case kindKeyValue:
		if cur.obj == nil {
			return nil
		}
		return d.member(cur.obj, l.key, l.value, l.indent, l.num)

	case kindBare, kindQuoted:
		if cur.arr == nil {
			return nil
		}
		v, err := d.token(l.text, l.num)
		if err != nil {
			return err
		}
		cur.arr.items = append(cur.arr.items, v)
	}
	return nil
}

// member stores `key: value` into obj, opening a nested object frame at
// indent when the value is empty.
func (d *decoder) member(obj *Object, key, value string, indent, num int) error {
	if value == "" {
		child := NewObject()
		obj.Set(key, child)
		d.push(indent, child, nil)
		return nil
	}
	v, err := d.token(value, num)
	if err != nil {
		return err
	}
	obj.Set(key, v)
	return nil
}

// listItem appends the element carried by a `- ...` line. Keyed content on
// the marker line starts an object whose later members sit at the key's
// column.
func (d *decoder) listItem(arr *list, l *line) error {
	item := l.item
	if item == nil {
		obj := NewObject()
		arr.items = append(arr.items, obj)
		d.push(l.indent, obj, nil)
		return nil
	}
	keyCol := l.indent + len(l.text) - len(item.text)

	switch item.kind {
	case kindRootArrayHeader:
		inner := &list{}
		arr.items = append(arr.items, inner)
		return d.fillArray(inner, item.header, l.indent, l.num)

	case kindArrayHeader:
		obj := NewObject()
		arr.items = append(arr.items, obj)
		d.push(l.indent, obj, nil)
		inner := &list{}
		obj.Set(item.header.key, inner)
		return d.fillArray(inner, item.header, keyCol, l.num)

	case kindKeyValue:
		obj := NewObject()
		arr.items = append(arr.items, obj)
		d.push(l.indent, obj, nil)
		return d.member(obj, item.key, item.value, keyCol, l.num)

	case kindBare, kindQuoted:
		v, err := d.token(item.text, l.num)
		if err != nil {
			return err
		}
		arr.items = append(arr.items, v)
	}
	return nil
}

// fillArray populates arr from its header: inline values are appended at
// once, a field list enters tabular mode and an empty body opens a frame.
func (d *decoder) fillArray(arr *list, h *arrayHeader, indent, num int) error {
	switch {
	case h.inline != "":
		for _, tok := range splitDelimited(h.inline, h.delim) {
			v, err := d.token(tok, num)
			if err != nil {
				return err
			}
			arr.items = append(arr.items, v)
		}
	case h.hasFields:
		d.tbl = &table{arr: arr, fields: h.fields, delim: h.delim, indent: indent, rowIndent: -1}
	default:
		d.push(indent, nil, arr)
	}
	return nil
}

func (d *decoder) row(t *table, l *line) error {
	values := splitDelimited(l.text, t.delim)
	obj := NewObject()
	for i, f := range t.fields {
		var v any
		if i < len(values) {
			var err error
			if v, err = d.token(values[i], l.num); err != nil {
				return err
			}
		}
		obj.Set(f, v)
	}
	t.arr.items = append(t.arr.items, obj)
	return nil
}

// token parses a value token. A parse failure here means the grammar let a
// bad token through, so it is reported as structural.
func (d *decoder) token(tok string, num int) (any, error) {
	v, err := ParseToken(tok)
	if err != nil {
		var te *Error
		if errors.As(err, &te) {
			return nil, structuralError(num, "%s", te.Message)
		}
		return nil, err
	}
	return v, nil
}

// finalize replaces list handles with plain slices throughout the tree.
func finalize(v any) any {
	switch val := v.(type) {
	case *list:
		out := make([]any, len(val.items))
		for i, item := range val.items {
			out[i] = finalize(item)
		}
		return out
	case *Object:
		for _, k := range val.keys {
			val.values[k] = finalize(val.values[k])
		}
		return val
	}
	return v
}
