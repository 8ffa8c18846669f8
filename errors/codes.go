// Package errors provides the structured error type shared by every flashfs package.
package errors

// ErrorCode represents a specific error condition.
// Error codes are string-based so they read well in logs and CLI output.
type ErrorCode string

const (
	// Argument errors.

	// CodeInvalidParameter indicates a missing or malformed argument, an unknown
	// filesystem type or a misaligned size.
	CodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// CodeInvalidConfig indicates a configuration document failed to load or validate.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeInvalidState indicates the operation is not allowed in the current lifecycle state.
	CodeInvalidState ErrorCode = "INVALID_STATE"

	// Capacity errors.

	// CodeInsufficientSpace indicates the requested size exceeds the storage device.
	CodeInsufficientSpace ErrorCode = "INSUFFICIENT_SPACE"

	// CodeOutOfBounds indicates all file handles are in use or an address lies
	// outside the device.
	CodeOutOfBounds ErrorCode = "OUT_OF_BOUNDS"

	// CodeBufferTooSmall indicates a transfer larger than the shared dataport.
	CodeBufferTooSmall ErrorCode = "BUFFER_TOO_SMALL"

	// File errors.

	// CodeInvalidHandle indicates a file handle that is out of range or not open.
	CodeInvalidHandle ErrorCode = "INVALID_HANDLE"

	// CodeNotFound indicates a missing file, or a device that holds no valid filesystem.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeNotSupported indicates a mode, flag combination or operation the backend cannot express.
	CodeNotSupported ErrorCode = "NOT_SUPPORTED"

	// Transfer errors.

	// CodeAborted indicates a short transfer or a seek that did not land on the requested offset.
	CodeAborted ErrorCode = "ABORTED"

	// CodeUnavailable indicates a remote storage device is temporarily unreachable.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// System errors.

	// CodeInternal indicates a broken internal invariant.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeGeneric indicates any other backend or library failure.
	CodeGeneric ErrorCode = "GENERIC"
)
