package convert

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/paularlott/mcp-toon/toon"
)

// XML mapping: an element becomes an object keyed by child element name,
// attributes are stored under "@name", text next to children under "#text",
// repeated children become arrays and an element holding only text becomes
// that scalar. The document is an object with the root element as its only
// member.
const (
	xmlAttrPrefix = "@"
	xmlTextKey    = "#text"
	xmlRootName   = "root"
	xmlItemName   = "item"
)

func decodeXML(data []byte) (any, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no root element")
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			v, err := decodeElement(dec, start)
			if err != nil {
				return nil, err
			}
			root := toon.NewObject()
			root.Set(start.Name.Local, v)
			return root, nil
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	obj := toon.NewObject()
	for _, attr := range start.Attr {
		obj.Set(xmlAttrPrefix+attr.Name.Local, coerce(attr.Value))
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			if prev, ok := obj.Get(name); ok {
				if list, ok := prev.([]any); ok {
					obj.Set(name, append(list, child))
				} else {
					obj.Set(name, []any{prev, child})
				}
			} else {
				obj.Set(name, child)
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if obj.Len() == 0 {
				if s == "" {
					return nil, nil
				}
				return coerce(s), nil
			}
			if s != "" {
				obj.Set(xmlTextKey, coerce(s))
			}
			return obj, nil
		}
	}
}

func encodeXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	name, body := xmlRootName, v
	if obj, ok := v.(*toon.Object); ok && obj.Len() == 1 {
		key := obj.Keys()[0]
		if child, _ := obj.Get(key); !isList(child) && !strings.HasPrefix(key, xmlAttrPrefix) && key != xmlTextKey {
			name, body = key, child
		}
	}
	if err := encodeElement(enc, name, body); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}

func encodeElement(enc *xml.Encoder, name string, v any) error {
	if !validXMLName(name) {
		return fmt.Errorf("invalid element name %q", name)
	}
	start := xml.StartElement{Name: xml.Name{Local: name}}

	switch val := v.(type) {
	case *toon.Object:
		var text string
		var children []string
		val.Range(func(k string, child any) bool {
			switch {
			case strings.HasPrefix(k, xmlAttrPrefix):
				start.Attr = append(start.Attr, xml.Attr{
					Name:  xml.Name{Local: strings.TrimPrefix(k, xmlAttrPrefix)},
					Value: scalarText(child),
				})
			case k == xmlTextKey:
				text = scalarText(child)
			default:
				children = append(children, k)
			}
			return true
		})
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		if text != "" {
			if err := enc.EncodeToken(xml.CharData(text)); err != nil {
				return err
			}
		}
		for _, k := range children {
			child, _ := val.Get(k)
			items, ok := child.([]any)
			if !ok {
				items = []any{child}
			}
			for _, item := range items {
				if err := encodeElement(enc, k, item); err != nil {
					return err
				}
			}
		}

	case []any:
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for _, item := range val {
			if err := encodeElement(enc, xmlItemName, item); err != nil {
				return err
			}
		}

	default:
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		if s := scalarText(v); s != "" {
			if err := enc.EncodeToken(xml.CharData(s)); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(start.End())
}

func validXMLName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == ':' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r > 0x7f:
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}
