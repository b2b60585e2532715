package llm

import (
	"errors"
)

// ErrorKind classifies a completion failure.
type ErrorKind int

const (
	// KindFailed covers every upstream failure that is not one of the kinds below, timeouts included.
	KindFailed ErrorKind = iota
	// KindRateLimited means the provider itself rejected the call for quota reasons.
	KindRateLimited
	// KindConfiguration means the credential is missing, invalid or lacks permission.
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindConfiguration:
		return "configuration"
	default:
		return "failed"
	}
}

// ErrNotConfigured is returned by the factory when no credential is available.
var ErrNotConfigured = errors.New("language model provider is not configured")

// Error is the only error type a Completer returns. Error() never includes provider text;
// the cause is kept for server-side logging through Unwrap.
type Error struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return e.Provider + ": upstream rate limit reached"
	case KindConfiguration:
		return e.Provider + ": upstream credential rejected"
	default:
		return e.Provider + ": completion failed"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps cause as a provider error of the given kind.
func NewError(provider string, kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: cause}
}

// KindOf returns the kind of err, or KindFailed when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFailed
}

// Cause returns the wrapped provider error text for logs, or "" when there is none.
func Cause(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
