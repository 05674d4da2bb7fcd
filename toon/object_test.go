package toon

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestObjectOrder(t *testing.T) {
	o := NewObject()
	o.Set("b", 1.0)
	o.Set("a", 2.0)
	o.Set("c", 3.0)
	o.Set("b", 4.0)

	if d := cmp.Diff([]string{"b", "a", "c"}, o.Keys()); d != "" {
		t.Errorf("keys (-want +got):\n%s", d)
	}
	if v, _ := o.Get("b"); v != 4.0 {
		t.Errorf("b = %v, want 4", v)
	}

	if !o.Delete("a") || o.Delete("missing") {
		t.Error("unexpected Delete result")
	}
	if d := cmp.Diff([]string{"b", "c"}, o.Keys()); d != "" {
		t.Errorf("keys after delete (-want +got):\n%s", d)
	}
	if o.Len() != 2 || o.Has("a") {
		t.Errorf("Len = %d, Has(a) = %v", o.Len(), o.Has("a"))
	}
}

func TestObjectZeroValue(t *testing.T) {
	var o Object
	o.Set("x", true)
	if !o.Has("x") {
		t.Error("zero Object should accept Set")
	}

	var nilObj *Object
	if nilObj.Len() != 0 || nilObj.Keys() != nil {
		t.Error("nil Object should be empty")
	}
}

func TestObjectJSON(t *testing.T) {
	input := `{"z":1,"a":{"y":[1,"two",null],"b":true},"m":"x"}`

	var o Object
	if err := json.Unmarshal([]byte(input), &o); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if d := cmp.Diff([]string{"z", "a", "m"}, o.Keys()); d != "" {
		t.Errorf("keys (-want +got):\n%s", d)
	}

	out, err := json.Marshal(&o)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != input {
		t.Errorf("Marshal = %s, want %s", out, input)
	}
}

func TestReadJSONTrailingData(t *testing.T) {
	if _, err := ReadJSON(strings.NewReader(`{"a":1} {"b":2}`)); err == nil {
		t.Error("expected an error for trailing data")
	}
}
