package predict

import (
	"errors"
	"fmt"
)

// Kind classifies prediction failures. The transport maps each kind to a
// status code; client input problems and model failures never share a kind.
type Kind int

const (
	KindInvalidRecord Kind = iota + 1
	KindInvalidFileType
	KindUnparsableFile
	KindMissingColumns
	KindModelInvocation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRecord:
		return "invalid_record"
	case KindInvalidFileType:
		return "invalid_file_type"
	case KindUnparsableFile:
		return "unparsable_file"
	case KindMissingColumns:
		return "missing_columns"
	case KindModelInvocation:
		return "model_invocation"
	default:
		return "unknown"
	}
}

// IsClientError reports whether the caller can fix the failure by changing
// its input.
func (k Kind) IsClientError() bool {
	return k != KindModelInvocation
}

// Error is returned by Service operations. Detail is safe to show to users.
type Error struct {
	Kind    Kind
	Detail  string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}
