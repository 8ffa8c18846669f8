package errors

import "fmt"

// Wrap wraps err with a code and message while preserving it as the cause.
//
// If err is a PlatformError its classification is preserved, otherwise the
// default classification for code is used. Returns nil if err is nil.
//
// Example:
//
//	if err := lfs.Format(); err != nil {
//	    return errors.Wrap(err, errors.CodeGeneric, "littlefs format failed")
//	}
func Wrap(err error, code ErrorCode, message string) PlatformError {
	if err == nil {
		return nil
	}

	classification := getDefaultClassification(code)
	var platformErr PlatformError
	if As(err, &platformErr) {
		classification = platformErr.Classification()
	}

	return &platformError{
		code:           code,
		classification: classification,
		message:        message,
		cause:          err,
	}
}

// Wrapf wraps err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) PlatformError {
	if err == nil {
		return nil
	}

	return Wrap(err, code, fmt.Sprintf(format, args...))
}
