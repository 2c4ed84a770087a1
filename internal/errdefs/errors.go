package errdefs

import (
	"errors"
	"fmt"
)

var (
	ErrMethodNotAllowed = errors.New("invalid request method")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrRateLimited      = errors.New("too many submissions")
)

// ValidationError is returned by the validator for the first failing field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type FileReason string

const (
	ReasonTooLarge        FileReason = "too-large"
	ReasonUnsupportedType FileReason = "unsupported-type"
	ReasonMoveFailed      FileReason = "move-failed"
)

type FileUploadError struct {
	File   string
	Reason FileReason
	Err    error
}

func (e *FileUploadError) Error() string {
	switch e.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("File '%s' exceeds maximum size limit", e.File)
	case ReasonUnsupportedType:
		return fmt.Sprintf("File '%s' has an unsupported format. Allowed: PDF, DOC, DOCX, JPG, PNG", e.File)
	default:
		return fmt.Sprintf("Failed to save file '%s'", e.File)
	}
}

func (e *FileUploadError) Unwrap() error {
	return e.Err
}

// StorageError wraps any failure of the submission store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

type NotificationError struct {
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
