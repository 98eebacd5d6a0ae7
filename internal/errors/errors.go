// Package errors provides structured error types for the type registry.
// Every error carries a category, code, message and retryable flag so that
// callers can branch on the failure class without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the component that raised them.
type ErrorCategory string

const (
	ErrCategoryLoad       ErrorCategory = "LOAD"
	ErrCategoryLookup     ErrorCategory = "LOOKUP"
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryCatalog    ErrorCategory = "CATALOG"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Load codes
	CodeMalformedRow   = "MALFORMED_ROW"
	CodeInvalidField   = "INVALID_FIELD"
	CodeInconsistentID = "INCONSISTENT_ID"
	CodeDuplicateKey   = "DUPLICATE_KEY"
	CodeEmptyTable     = "EMPTY_TABLE"
	CodeLintFailed     = "LINT_FAILED"
	CodeSourceFailed   = "SOURCE_FAILED"

	// Lookup codes
	CodeNotFound = "NOT_FOUND"

	// Validation codes
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeInvalidInput  = "INVALID_INPUT"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Catalog codes
	CodeSnapshotNotFound = "SNAPSHOT_NOT_FOUND"
	CodeCatalogWrite     = "CATALOG_WRITE"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// RegistryError is the structured error type used throughout the module.
type RegistryError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *RegistryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
// A target with an empty code matches any code in the category.
func (e *RegistryError) Is(target error) bool {
	var t *RegistryError
	if errors.As(target, &t) {
		if t.Code == "" {
			return e.Category == t.Category
		}
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new RegistryError.
func New(category ErrorCategory, code, message string) *RegistryError {
	return &RegistryError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new RegistryError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *RegistryError {
	return &RegistryError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// Sentinel returns a category-wide matcher for errors.Is.
func Sentinel(category ErrorCategory) *RegistryError {
	return &RegistryError{Category: category, Message: string(category)}
}

// WithDetails returns a copy of the error with additional details.
func (e *RegistryError) WithDetails(details map[string]interface{}) *RegistryError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a RegistryError.
func GetCategory(err error) ErrorCategory {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a RegistryError.
func GetCode(err error) string {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Registry data is
// static and local, so only object storage transfers are.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewLoadError(code, message string) *RegistryError {
	return New(ErrCategoryLoad, code, message)
}

func WrapLoadError(code, message string, cause error) *RegistryError {
	return Wrap(ErrCategoryLoad, code, message, cause)
}

func NewNotFoundError(message string) *RegistryError {
	return New(ErrCategoryLookup, CodeNotFound, message)
}

func NewValidationError(code, message string) *RegistryError {
	return New(ErrCategoryValidation, code, message)
}

func NewStorageError(code, message string, cause error) *RegistryError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewCatalogError(code, message string, cause error) *RegistryError {
	return Wrap(ErrCategoryCatalog, code, message, cause)
}

func NewInternalError(message string, cause error) *RegistryError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
