package convert

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/jsonc"

	"github.com/paularlott/mcp-toon/toon"
)

// decodeJSON accepts JSON with comments and trailing commas.
func decodeJSON(data []byte) (any, error) {
	return toon.FromJSON(jsonc.ToJSON(data))
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
