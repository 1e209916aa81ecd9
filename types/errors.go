package types

import (
	"errors"
	"fmt"
)

// PDFErrorCode represents categorized error codes for watermarking operations
type PDFErrorCode string

const (
	// Per-file failures surfaced by the batch runner
	ErrCodeInputIO         PDFErrorCode = "INPUT_IO"
	ErrCodeAssetLoad       PDFErrorCode = "ASSET_LOAD"
	ErrCodeDegenerateAsset PDFErrorCode = "DEGENERATE_ASSET"
	ErrCodeOutputIO        PDFErrorCode = "OUTPUT_IO"

	// Parser-internal causes, reported to callers wrapped in INPUT_IO
	ErrCodeMalformedPDF   PDFErrorCode = "MALFORMED_PDF"
	ErrCodeEncrypted      PDFErrorCode = "ENCRYPTED"
	ErrCodeObjectNotFound PDFErrorCode = "OBJECT_NOT_FOUND"

	ErrCodeInvalidConfig PDFErrorCode = "INVALID_CONFIG"
)

// PDFError is a structured error type for watermarking operations
type PDFError struct {
	Code    PDFErrorCode           // Error category code
	Message string                 // Human-readable message
	Cause   error                  // Underlying error (if any)
	Context map[string]interface{} // Additional context (file, page index, size class...)
}

// Error implements the error interface
func (e *PDFError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// Is matches a target PDFError by code
func (e *PDFError) Is(target error) bool {
	if t, ok := target.(*PDFError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error and returns the same error for chaining
func (e *PDFError) WithContext(key string, value interface{}) *PDFError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewPDFError creates a new PDFError with the given code and message
func NewPDFError(code PDFErrorCode, message string) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
	}
}

// NewPDFErrorf creates a new PDFError with a formatted message
func NewPDFErrorf(code PDFErrorCode, format string, args ...interface{}) *PDFError {
	return &PDFError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with a PDFError
func WrapError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapErrorf wraps an existing error with a PDFError and formatted message
func WrapErrorf(code PDFErrorCode, cause error, format string, args ...interface{}) *PDFError {
	return &PDFError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Sentinel errors for use with errors.Is()
var (
	ErrInputIO         = &PDFError{Code: ErrCodeInputIO}
	ErrAssetLoad       = &PDFError{Code: ErrCodeAssetLoad}
	ErrDegenerateAsset = &PDFError{Code: ErrCodeDegenerateAsset}
	ErrOutputIO        = &PDFError{Code: ErrCodeOutputIO}

	ErrMalformedPDF   = &PDFError{Code: ErrCodeMalformedPDF}
	ErrEncrypted      = &PDFError{Code: ErrCodeEncrypted}
	ErrObjectNotFound = &PDFError{Code: ErrCodeObjectNotFound}

	ErrInvalidConfig = &PDFError{Code: ErrCodeInvalidConfig}
)

// GetErrorCode returns the code of the outermost PDFError in err's chain
func GetErrorCode(err error) (PDFErrorCode, bool) {
	var pdfErr *PDFError
	if errors.As(err, &pdfErr) {
		return pdfErr.Code, true
	}
	return "", false
}

// IsAssetError reports whether err stems from a watermark asset that could
// not be used. Such failures recur for every page of the same class.
func IsAssetError(err error) bool {
	return errors.Is(err, ErrAssetLoad) || errors.Is(err, ErrDegenerateAsset)
}
