package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an fbz error code.
type ErrorCode string

const (
	ErrInvalidRequest          ErrorCode = "INVALID_REQUEST"            // 400
	ErrFileNotFound            ErrorCode = "FILE_NOT_FOUND"             // 404
	ErrDocumentTooLarge        ErrorCode = "DOCUMENT_TOO_LARGE"         // 413
	ErrUnsupportedFormat       ErrorCode = "UNSUPPORTED_FORMAT"         // 415
	ErrArchiveEmpty            ErrorCode = "ARCHIVE_EMPTY"              // 422
	ErrArchiveMultipleEntries  ErrorCode = "ARCHIVE_MULTIPLE_ENTRIES"   // 422
	ErrArchiveEntryIsDirectory ErrorCode = "ARCHIVE_ENTRY_IS_DIRECTORY" // 422
	ErrArchiveCorrupt          ErrorCode = "ARCHIVE_CORRUPT"            // 422
	ErrUnsupportedEncoding     ErrorCode = "UNSUPPORTED_ENCODING"       // 422
	ErrIOFailure               ErrorCode = "IO_FAILURE"                 // 500
	ErrInternal                ErrorCode = "INTERNAL"                   // 500
)

// FbzError represents a structured error with code, status, and details.
type FbzError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *FbzError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *FbzError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *FbzError {
	return &FbzError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewFileNotFound creates a 404 error for a missing document.
func NewFileNotFound(path string) *FbzError {
	return &FbzError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewDocumentTooLarge creates a 413 error when a document exceeds the size limit.
func NewDocumentTooLarge(max, actual int64) *FbzError {
	return &FbzError{
		Code:    ErrDocumentTooLarge,
		Status:  413,
		Message: fmt.Sprintf("document exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewUnsupportedFormat creates a 415 error for paths that are neither
// .fb2, .fbz nor .fb2.zip.
func NewUnsupportedFormat(path string) *FbzError {
	return &FbzError{
		Code:    ErrUnsupportedFormat,
		Status:  415,
		Message: "unsupported file format",
		Details: map[string]any{"path": path},
	}
}

// NewArchiveEmpty creates a 422 error for a zip container without entries.
func NewArchiveEmpty() *FbzError {
	return &FbzError{
		Code:    ErrArchiveEmpty,
		Status:  422,
		Message: "archive is empty",
	}
}

// NewArchiveMultipleEntries creates a 422 error for a zip container holding
// more than one entry.
func NewArchiveMultipleEntries(count int) *FbzError {
	return &FbzError{
		Code:    ErrArchiveMultipleEntries,
		Status:  422,
		Message: "archive contains more than one file",
		Details: map[string]any{"entries": count},
	}
}

// NewArchiveEntryIsDirectory creates a 422 error when the sole entry is a directory.
func NewArchiveEntryIsDirectory(name string) *FbzError {
	return &FbzError{
		Code:    ErrArchiveEntryIsDirectory,
		Status:  422,
		Message: "archive contains a directory",
		Details: map[string]any{"entry": name},
	}
}

// NewArchiveCorrupt creates a 422 error for containers that cannot be decoded.
func NewArchiveCorrupt(msg string, err error) *FbzError {
	return &FbzError{
		Code:    ErrArchiveCorrupt,
		Status:  422,
		Message: msg,
		Err:     err,
	}
}

// NewUnsupportedEncoding creates a 422 error for an unknown XML prolog encoding.
func NewUnsupportedEncoding(label string) *FbzError {
	return &FbzError{
		Code:    ErrUnsupportedEncoding,
		Status:  422,
		Message: fmt.Sprintf("unsupported encoding: %s", label),
		Details: map[string]any{"encoding": label},
	}
}

// NewIOFailure creates a 500 error for a failed filesystem call.
// Unlike internal errors, the message is meant to be shown to the user.
func NewIOFailure(op string, err error) *FbzError {
	msg := op + " failed"
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &FbzError{
		Code:    ErrIOFailure,
		Status:  500,
		Message: msg,
		Details: map[string]any{"op": op},
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *FbzError {
	fErr := &FbzError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Err:     err,
	}
	if err != nil {
		fErr.Details = map[string]any{"internal_error": err.Error()}
	}
	return fErr
}

// Is checks if an error is (or wraps) an FbzError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *FbzError
	if stderrors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// As returns err as an *FbzError, wrapping anything else as internal.
func As(err error) *FbzError {
	var fErr *FbzError
	if stderrors.As(err, &fErr) {
		return fErr
	}
	return NewInternal(err)
}
