package fsengine

import "fmt"

// Code is the NFSv3-style error taxonomy of spec §7. Every fault the
// engine can return to a caller boils down to one of these.
type Code int

const (
	// Internal covers host-FS failures with no semantic mapping. They
	// are logged and surfaced, never silently swallowed.
	Internal Code = iota
	NoEnt
	Exist
	NotDir
	IsDir
	NotEmpty
	Stale
)

func (c Code) String() string {
	switch c {
	case NoEnt:
		return "NOENT"
	case Exist:
		return "EXIST"
	case NotDir:
		return "NOTDIR"
	case IsDir:
		return "ISDIR"
	case NotEmpty:
		return "NOTEMPTY"
	case Stale:
		return "STALE"
	default:
		return "INTERNAL"
	}
}

// Error is the engine's error type. It always carries a human-readable
// message per §6, and optionally wraps the underlying host-FS error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the Code from any error produced by this package,
// defaulting to Internal for anything else (including nil, though
// callers should not call CodeOf(nil)).
func CodeOf(err error) Code {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
		return e.Code
	}
	return Internal
}
