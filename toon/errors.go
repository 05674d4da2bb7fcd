package toon

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a TOON failure.
type ErrorKind int

const (
	// InputError is raised for missing or empty input where text is mandatory,
	// and for values the encoder cannot represent.
	InputError ErrorKind = iota
	// StructuralError is raised for documents rejected by the validator.
	StructuralError
	// ParseError is raised when a scalar token cannot be coerced.
	ParseError
)

func (k ErrorKind) String() string {
	switch k {
	case InputError:
		return "input error"
	case StructuralError:
		return "structural error"
	case ParseError:
		return "parse error"
	}
	return "unknown error"
}

// Sentinels for errors.Is.
var (
	ErrInput      = errors.New("toon: input error")
	ErrStructural = errors.New("toon: structural error")
	ErrParse      = errors.New("toon: parse error")
)

// Error is returned by the encoder, decoder and validator.
type Error struct {
	Kind    ErrorKind
	Message string
	Line    int // 1-based, 0 when unknown
}

func (e *Error) Error() string {
	var msg string
	if e.Kind == InputError {
		msg = "toon: " + e.Message
	} else {
		msg = "Invalid TOON: " + e.Message
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	return msg
}

// Is matches the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInput:
		return e.Kind == InputError
	case ErrStructural:
		return e.Kind == StructuralError
	case ErrParse:
		return e.Kind == ParseError
	}
	return false
}

func inputErrorf(format string, args ...any) error {
	return &Error{Kind: InputError, Message: fmt.Sprintf(format, args...)}
}

func structuralError(line int, format string, args ...any) *Error {
	return &Error{Kind: StructuralError, Message: fmt.Sprintf(format, args...), Line: line}
}

func parseErrorf(format string, args ...any) *Error {
	return &Error{Kind: ParseError, Message: fmt.Sprintf(format, args...)}
}
