package mcp

import (
	"errors"
	"fmt"

	"github.com/paularlott/mcp-toon/seal"
	"github.com/paularlott/mcp-toon/toon"
)

// JSON-RPC 2.0 error codes used by the MCP protocol.
// See: https://www.jsonrpc.org/specification#error_object
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601

	// ErrorCodeInvalidParams is returned when a tool argument is missing or
	// its content is rejected, including documents that fail validation.
	ErrorCodeInvalidParams = -32602
	ErrorCodeInternalError = -32603

	// Implementation-defined server errors, -32000 to -32099.
	ErrorCodeImplementationErrorStart = -32000
	ErrorCodeImplementationErrorEnd   = -32099
)

// ErrorCodeSealRejected is returned when a sealed blob cannot be opened.
const ErrorCodeSealRejected = -32001

// ToolError represents an MCP protocol error that can be returned from tool handlers.
// When returned from a ToolHandler, the error code and message are sent to the client
// in the JSON-RPC error response.
type ToolError struct {
	Code    int
	Message string
	Data    any
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("MCP Error %d: %s", e.Code, e.Message)
}

// NewToolErrorInvalidParams creates an error for invalid or missing parameters.
func NewToolErrorInvalidParams(message string) error {
	return &ToolError{Code: ErrorCodeInvalidParams, Message: message}
}

// NewToolErrorInternal creates an error for internal server errors.
func NewToolErrorInternal(message string) error {
	return &ToolError{Code: ErrorCodeInternalError, Message: message}
}

// NewToolError creates a custom MCP error with a specific code.
func NewToolError(code int, message string, data any) error {
	return &ToolError{Code: code, Message: message, Data: data}
}

// toolError maps a domain error onto the JSON-RPC code a client can act on.
// TOON errors carry their kind and line as data.
func toolError(err error) error {
	var te *toon.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &te):
		data := map[string]any{"kind": te.Kind.String()}
		if te.Line > 0 {
			data["line"] = te.Line
		}
		return NewToolError(ErrorCodeInvalidParams, err.Error(), data)
	case errors.Is(err, seal.ErrWrongKey), errors.Is(err, seal.ErrMalformed), errors.Is(err, seal.ErrTampered):
		return NewToolError(ErrorCodeSealRejected, err.Error(), nil)
	}
	var tErr *ToolError
	if errors.As(err, &tErr) {
		return err
	}
	return NewToolErrorInvalidParams(err.Error())
}
