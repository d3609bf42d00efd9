package errcode

import "errors"

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	IO            Code = "io_error"
	Calibration   Code = "calibration_error"
	Conversion    Code = "conversion_error"
	Timeout       Code = "timeout"
	NotReady      Code = "not_ready"
	InvalidParams Code = "invalid_params"
	Unsupported   Code = "unsupported"

	UnknownBus    Code = "unknown_bus"
	UnknownDevice Code = "unknown_device"
	WrongDevice   Code = "wrong_device"

	Error Code = "error" // generic fallback
)

// E keeps a code together with the failing operation and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

// New returns an *E for op, wrapping cause (which may be nil).
func New(c Code, op string, cause error) *E {
	return &E{C: c, Op: op, Err: cause}
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.IO) match a wrapped *E carrying that code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, looking through wrapping.
// Unknown errors map to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// MapDriverErr maps a raw bus error to a Code. Anything the bus returns that
// is not already coded is treated as a failed transaction.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	if c := Of(err); c != Error {
		return c
	}
	return IO
}
