package convert

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/paularlott/mcp-toon/toon"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	// Deterministic encoding sorts map keys, so member order is not kept.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("convert: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("convert: CBOR decoder initialization failed: " + err.Error())
	}
}

func decodeCBOR(data []byte) (any, error) {
	var raw any
	if err := cborDec.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return toon.Normalize(raw)
}

func encodeCBOR(v any) ([]byte, error) {
	return cborEnc.Marshal(toPlain(v))
}

// toPlain replaces ordered objects with Go maps.
func toPlain(v any) any {
	switch val := v.(type) {
	case *toon.Object:
		out := make(map[string]any, val.Len())
		val.Range(func(k string, child any) bool {
			out[k] = toPlain(child)
			return true
		})
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toPlain(item)
		}
		return out
	}
	return v
}
