package generation

import (
	"errors"
	"time"

	"github.com/notewise-app/notewise/internal/quota"
)

// Kind is the closed set of failure categories surfaced to callers.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindNotFound
	KindInvalidArgument
	KindResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not-found"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindResourceExhausted:
		return "resource-exhausted"
	default:
		return "internal"
	}
}

// Error is a classified pipeline failure. Diagnostic carries operator-only
// detail such as unparseable provider output and is never sent to clients.
type Error struct {
	Kind        Kind
	Message     string
	MinWords    int
	NextResetAt time.Time
	Diagnostic  string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// Classify maps any error onto a *Error. Unknown errors become KindInternal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, quota.ErrNotFound) {
		return &Error{Kind: KindNotFound, Message: "User data not found.", Err: err}
	}
	return internalError("internal error", err)
}
