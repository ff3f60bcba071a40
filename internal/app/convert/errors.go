package convert

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/playlog/internal/infra/catalog"
)

// ValidationError reports a malformed request. Message is safe to show to
// the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Class groups conversion failures by how a caller should react.
type Class int

const (
	ClassInternal Class = iota
	ClassValidation
	ClassNotFound
	ClassAuth
	ClassRateLimit
	ClassTransient
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassAuth:
		return "auth"
	case ClassRateLimit:
		return "rate_limit"
	case ClassTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Classify returns the class of err.
func Classify(err error) Class {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ClassValidation
	}
	switch catalog.KindOf(err) {
	case catalog.KindNotFound:
		return ClassNotFound
	case catalog.KindAuth:
		return ClassAuth
	case catalog.KindRateLimit:
		return ClassRateLimit
	case catalog.KindTransient:
		return ClassTransient
	default:
		return ClassInternal
	}
}

// UserMessage returns the message to show the user for err. Internal
// details never leave the server.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return Classify(err).Message()
}

// Message returns the generic user-facing message of the class.
func (c Class) Message() string {
	switch c {
	case ClassValidation:
		return "invalid request"
	case ClassNotFound:
		return "playlist not found or private"
	case ClassAuth:
		return "service authentication failed"
	case ClassRateLimit, ClassTransient:
		return "the music catalog is busy, try again later"
	default:
		return "internal error"
	}
}
