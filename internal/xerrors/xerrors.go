// Package xerrors provides the annotated-status error value used across
// the stream packages: a fixed taxonomy of kinds (Kind) plus a wrapper
// that lets every layer of a pipeline prepend its own byte-position
// context without losing the originating cause.
//
// The wrapper exposes both Unwrap (for errors.Is/errors.As) and Cause
// (for code still walking chains the pre-errors.Wrap way, a holdover
// rclone's fs/fserrors package keeps for the same reason).
package xerrors

import "fmt"

// Kind classifies the errors this module raises.
type Kind int

const (
	Unknown Kind = iota
	InvalidArgument
	DataLoss
	Unimplemented
	ResourceExhausted
	Internal
	OSError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case DataLoss:
		return "DataLoss"
	case Unimplemented:
		return "Unimplemented"
	case ResourceExhausted:
		return "ResourceExhausted"
	case Internal:
		return "Internal"
	case OSError:
		return "OSError"
	default:
		return "Unknown"
	}
}

// statusError is a (kind, message) pair with an annotation chain.
type statusError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *statusError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

// Unwrap lets errors.Is / errors.As walk into the wrapped cause.
func (e *statusError) Unwrap() error { return e.cause }

// Cause returns the immediate wrapped error, teacher-compatible name.
func (e *statusError) Cause() error { return e.cause }

// New creates a root status error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &statusError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Annotate prepends context to err without discarding the original
// cause or its Kind. Every layer in a pipeline calls this with its own
// byte-position context before returning the error to its caller.
func Annotate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &statusError{kind: KindOf(err), msg: fmt.Sprintf(format, args...), cause: err}
}

// KindOf walks the cause chain looking for the first classified Kind.
func KindOf(err error) Kind {
	for err != nil {
		if se, ok := err.(*statusError); ok {
			if se.kind != Unknown {
				return se.kind
			}
			err = se.cause
			continue
		}
		type causer interface{ Cause() error }
		if c, ok := err.(causer); ok {
			err = c.Cause()
			continue
		}
		break
	}
	return Unknown
}

// Is reports whether err (or anything in its cause chain) was raised
// with the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
