package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeConfig       = "CONFIG_ERROR"
	CodeTemplate     = "TEMPLATE_ERROR"
	CodeVendorMaster = "VENDOR_MASTER_ERROR"
	CodeOCR          = "OCR_ERROR"
	CodeExport       = "EXPORT_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConfig       = errors.New("invalid configuration")
	ErrTemplate     = errors.New("invalid template document")
	ErrVendorMaster = errors.New("vendor master unavailable")
	ErrOCR          = errors.New("ocr failed")
	ErrExport       = errors.New("export failed")
)

// NewAppError builds an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
