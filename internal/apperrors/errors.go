package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrTooManyBatches indicates that a single consumption scanned more grant
// pages than the configured cap. It signals a pathologically fragmented
// ledger and is not recoverable for that call.
var ErrTooManyBatches = errors.New("too many consumption batches")

// InsufficientCreditsError is returned when a user's remaining balance cannot
// cover a requested consumption. It is recoverable: the caller should surface
// it to the end user and not retry until more credit is granted.
type InsufficientCreditsError struct {
	Balance   int64
	Requested int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: %d < %d", e.Balance, e.Requested)
}

// NewInsufficientCreditsError creates an InsufficientCreditsError.
func NewInsufficientCreditsError(balance, requested int64) *InsufficientCreditsError {
	return &InsufficientCreditsError{Balance: balance, Requested: requested}
}

// AppError wraps an underlying error with a status code and a human-readable
// message. Repositories use it to attach context without losing the original
// error for errors.Is/As checks.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
