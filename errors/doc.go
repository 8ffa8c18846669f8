// Package errors provides the structured error type shared by every flashfs package.
//
// Every failure surfaced by the filesystem, the storage devices and the
// configuration loader is a PlatformError carrying an ErrorCode from a single
// taxonomy, a retry classification and optional context metadata. The type is
// compatible with the standard library (errors.Is, errors.As, errors.Unwrap).
//
// # Quick Start
//
// Creating errors:
//
//	err := errors.New(errors.CodeInvalidHandle, "handle is not open")
//	err := errors.Newf(errors.CodeBufferTooSmall, "transfer of %d bytes exceeds dataport of %d", n, cap)
//
// Wrapping errors:
//
//	if err := lfs.Mount(); err != nil {
//	    return errors.Wrap(err, errors.CodeNotFound, "no filesystem on device")
//	}
//
// Adding context:
//
//	err = errors.WithContext(err, "handle", h)
//
// Inspecting errors:
//
//	switch errors.GetCode(err) {
//	case errors.CodeNotFound:
//	    // format the device
//	case errors.CodeOutOfBounds:
//	    // close some files
//	}
//
// # Error Codes
//
//   - Argument errors: CodeInvalidParameter, CodeInvalidConfig, CodeInvalidState
//   - Capacity errors: CodeInsufficientSpace, CodeOutOfBounds, CodeBufferTooSmall
//   - File errors: CodeInvalidHandle, CodeNotFound, CodeNotSupported
//   - Transfer errors: CodeAborted, CodeUnavailable
//   - System errors: CodeInternal, CodeGeneric
//
// Only CodeUnavailable is retryable by default. Wrapping preserves the
// classification of a wrapped PlatformError.
package errors
