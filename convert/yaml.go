package convert

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/paularlott/mcp-toon/toon"
)

// decodeYAML reads the first document keeping mapping order.
func decodeYAML(data []byte) (any, error) {
	var raw any
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.UseOrderedMap()); err != nil {
		return nil, err
	}
	return fromYAML(raw)
}

func fromYAML(v any) (any, error) {
	switch val := v.(type) {
	case yaml.MapSlice:
		obj := toon.NewObject()
		for _, item := range val {
			child, err := fromYAML(item.Value)
			if err != nil {
				return nil, err
			}
			obj.Set(fmt.Sprint(item.Key), child)
		}
		return obj, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			child, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	case map[string]any:
		return toon.Normalize(val)
	}
	return toon.Normalize(v)
}

func encodeYAML(v any) ([]byte, error) {
	if obj, ok := v.(*toon.Object); ok && obj.Len() == 0 {
		return []byte("{}\n"), nil
	}
	return yaml.MarshalWithOptions(toYAML(v), yaml.Indent(2), yaml.IndentSequence(true))
}

func toYAML(v any) any {
	switch val := v.(type) {
	case *toon.Object:
		out := make(yaml.MapSlice, 0, val.Len())
		val.Range(func(k string, child any) bool {
			out = append(out, yaml.MapItem{Key: k, Value: toYAML(child)})
			return true
		})
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toYAML(item)
		}
		return out
	}
	return v
}
