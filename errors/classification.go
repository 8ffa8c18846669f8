package errors

// ErrorClassification indicates whether an error should trigger a retry.
type ErrorClassification string

const (
	// ClassificationRetryable indicates temporary failures that may succeed on retry,
	// such as an unreachable remote storage device.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent indicates failures that will not succeed on retry.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeUnavailable: ClassificationRetryable,

	CodeInvalidParameter:  ClassificationPermanent,
	CodeInvalidConfig:     ClassificationPermanent,
	CodeInvalidState:      ClassificationPermanent,
	CodeInsufficientSpace: ClassificationPermanent,
	CodeOutOfBounds:       ClassificationPermanent,
	CodeBufferTooSmall:    ClassificationPermanent,
	CodeInvalidHandle:     ClassificationPermanent,
	CodeNotFound:          ClassificationPermanent,
	CodeNotSupported:      ClassificationPermanent,
	CodeAborted:           ClassificationPermanent,
	CodeInternal:          ClassificationPermanent,
	CodeGeneric:           ClassificationPermanent,
}

// getDefaultClassification returns the default classification for an error code.
// Unknown codes are permanent.
func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
