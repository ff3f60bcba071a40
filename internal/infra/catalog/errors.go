package catalog

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind classifies catalog failures.
type Kind int

const (
	// KindUnknown marks errors that carry no catalog classification.
	KindUnknown Kind = iota
	// KindAuth means the service credential was rejected.
	KindAuth
	// KindNotFound means the playlist does not exist or is private.
	KindNotFound
	// KindRateLimit means the catalog asked us to slow down.
	KindRateLimit
	// KindTransient covers network failures, timeouts and 5xx responses.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Retryable reports whether the driver may retry errors of this kind.
func (k Kind) Retryable() bool {
	return k == KindRateLimit || k == KindTransient
}

// Error is a classified catalog failure.
type Error struct {
	Kind Kind
	// Status is the HTTP status code, when a response was received.
	Status int
	// RetryAfter is the catalog's backoff hint for rate limited requests.
	RetryAfter time.Duration
	Err        error
}

// NewError creates a classified error wrapping err.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("catalog %s error", e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// RetryAfterOf returns the backoff hint carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.RetryAfter
	}
	return 0
}
