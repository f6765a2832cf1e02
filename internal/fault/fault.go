package fault

import (
	"errors"
	"fmt"
)

// Kind is the error class surfaced to clients as the reply's error title.
type Kind string

const (
	KindBadRequest Kind = "Bad Request"
	KindRule       Kind = "Rule"
	KindBounds     Kind = "Bounds"
	KindInternal   Kind = "Internal Server Error"
)

// Error carries a kind plus a human-readable detail. Handlers return these and
// the dispatcher formats them into the reply envelope.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return New(KindBadRequest, format, args...)
}

func Rule(format string, args ...any) *Error {
	return New(KindRule, format, args...)
}

func Bounds(format string, args ...any) *Error {
	return New(KindBounds, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(KindInternal, format, args...)
}

// KindOf classifies any error; non-fault errors are treated as internal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}
