package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidSourceType = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrInvalidItemStatus = NewDomainError(ErrCodeValidation, "invalid item status")
	ErrMissingSourceURL  = NewDomainError(ErrCodeValidation, "source url is required")
)

// Not found errors
var (
	ErrItemNotFound       = NewDomainError(ErrCodeNotFound, "knowledge item not found")
	ErrAssetNotFound      = NewDomainError(ErrCodeNotFound, "image asset not found")
	ErrCaptureJobNotFound = NewDomainError(ErrCodeNotFound, "capture job not found")
)

// Already exists errors
var (
	// ErrItemAlreadyExists maps the unique source_url constraint: at most one
	// capture per URL.
	ErrItemAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "knowledge item already exists for this source url")
)

// Authorization errors
var (
	ErrInvalidConsoleToken = NewDomainError(ErrCodeUnauthorized, "invalid console token")
)

// Operation errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
	ErrItemNotRetryable     = NewDomainError(ErrCodeInvalidOperation, "only items in a terminal state can be retried")
	ErrNoItemUpdates        = NewDomainError(ErrCodeValidation, "no updates provided")
)
