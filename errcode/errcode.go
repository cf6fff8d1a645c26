package errcode

// Code is a stable driver status identifier.
// It is a string newtype, comparable, allocation-free, and implements error,
// so it can be returned from interrupt context.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"

	// Lifecycle
	NotInitialized     Code = "not_initialized"
	AlreadyInitialized Code = "already_initialized"

	// Queues
	Full  Code = "full"
	Empty Code = "empty"

	// Transports
	NotConnected Code = "not_connected"
	PortClosed   Code = "port_closed"

	// CLI / parameters
	UnknownCommand Code = "unknown_command"
	UnknownParam   Code = "unknown_param"
	ReadOnly       Code = "read_only"
	OutOfRange     Code = "out_of_range"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the failing operation and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap returns an *E for op carrying code c and cause err.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps a platform driver error to a Code.
// Errors that already carry a Code keep it.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	if c := Of(err); c != Error {
		return c
	}
	return Error
}
