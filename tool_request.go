package mcp

import (
	"context"
	"errors"
	"fmt"
)

// ToolHandler runs one tools/call. A returned *ToolError keeps its code on
// the wire; any other error is reported as an internal error.
type ToolHandler func(ctx context.Context, req *ToolRequest) (*ToolResponse, error)

// ErrUnknownParameter is returned by the accessors when the argument is absent.
var ErrUnknownParameter = errors.New("unknown parameter")

// ToolRequest wraps the decoded arguments of a tool call.
type ToolRequest struct {
	args map[string]any
}

func NewToolRequest(args map[string]any) *ToolRequest {
	return &ToolRequest{args: args}
}

// Has reports whether the argument was supplied.
func (r *ToolRequest) Has(name string) bool {
	_, ok := r.args[name]
	return ok
}

// Value returns the raw decoded argument.
func (r *ToolRequest) Value(name string) (any, error) {
	if v, ok := r.args[name]; ok {
		return v, nil
	}
	return nil, ErrUnknownParameter
}

// typed fetches an argument and converts it with conv. want names the
// expected type in the error.
func typed[T any](r *ToolRequest, name, want string, conv func(any) (T, bool)) (T, error) {
	var zero T
	raw, ok := r.args[name]
	if !ok {
		return zero, ErrUnknownParameter
	}
	v, ok := conv(raw)
	if !ok {
		return zero, fmt.Errorf("%s parameter must be %s, got %T", name, want, raw)
	}
	return v, nil
}

func orDefault[T any](v T, err error, def T) T {
	if err != nil {
		return def
	}
	return v
}

func (r *ToolRequest) String(name string) (string, error) {
	return typed(r, name, "a string", func(v any) (string, bool) {
		s, ok := v.(string)
		return s, ok
	})
}

func (r *ToolRequest) StringOr(name, def string) string {
	v, err := r.String(name)
	return orDefault(v, err, def)
}

// Int accepts JSON numbers with no fractional part.
func (r *ToolRequest) Int(name string) (int, error) {
	return typed(r, name, "an integer", func(v any) (int, bool) {
		switch n := v.(type) {
		case int:
			return n, true
		case float64:
			return int(n), n == float64(int(n))
		}
		return 0, false
	})
}

func (r *ToolRequest) IntOr(name string, def int) int {
	v, err := r.Int(name)
	return orDefault(v, err, def)
}

func (r *ToolRequest) Bool(name string) (bool, error) {
	return typed(r, name, "a boolean", func(v any) (bool, bool) {
		b, ok := v.(bool)
		return b, ok
	})
}

func (r *ToolRequest) BoolOr(name string, def bool) bool {
	v, err := r.Bool(name)
	return orDefault(v, err, def)
}

// RequireString returns a non-empty string argument or an invalid params
// error naming it.
func (r *ToolRequest) RequireString(name string) (string, error) {
	s, err := r.String(name)
	switch {
	case errors.Is(err, ErrUnknownParameter), err == nil && s == "":
		return "", NewToolErrorInvalidParams(fmt.Sprintf("%s parameter is required", name))
	case err != nil:
		return "", NewToolErrorInvalidParams(err.Error())
	}
	return s, nil
}
