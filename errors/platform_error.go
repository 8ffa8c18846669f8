package errors

import (
	"fmt"
	"maps"
)

// platformError is the concrete implementation of PlatformError.
type platformError struct {
	code           ErrorCode
	classification ErrorClassification
	message        string
	context        map[string]interface{}
	cause          error
}

// Error formats the error as "[CODE] message" or "[CODE] message: cause".
func (e *platformError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *platformError) Code() ErrorCode {
	return e.code
}

func (e *platformError) Classification() ErrorClassification {
	return e.classification
}

func (e *platformError) Message() string {
	return e.message
}

// Context returns a copy of the context map, or nil when none is attached.
func (e *platformError) Context() map[string]interface{} {
	if e.context == nil {
		return nil
	}
	return maps.Clone(e.context)
}

func (e *platformError) Unwrap() error {
	return e.cause
}

// asPlatformError returns err as a PlatformError, converting foreign errors to
// CodeGeneric so context and classification can be attached to them.
func asPlatformError(err error) PlatformError {
	var pe PlatformError
	if As(err, &pe) {
		return pe
	}
	return &platformError{
		code:           CodeGeneric,
		classification: ClassificationPermanent,
		message:        err.Error(),
		cause:          err,
	}
}
