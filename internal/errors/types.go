// Package errors defines the typed error taxonomy shared by the preview
// pipeline and the HTTP boundary. Every error carries a machine-readable
// code, a human message and structured details, and maps to one HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypePreview    ErrorType = "preview"
	ErrorTypeArchive    ErrorType = "archive"
	ErrorTypeRequest    ErrorType = "request"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes exposed on the wire as error_code.
const (
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeBadRequest             = "BAD_REQUEST"
	CodeNotFound               = "NOT_FOUND"
	CodeZipError               = "ZIP_ERROR"
	CodePreviewInputInvalid    = "PREVIEW_INPUT_INVALID"
	CodePreviewNotFound        = "PREVIEW_NOT_FOUND"
	CodePreviewMissingFields   = "PREVIEW_MISSING_FIELDS"
	CodePreviewTransformFailed = "PREVIEW_TRANSFORM_FAILED"
	CodePreviewUnexpected      = "PREVIEW_UNEXPECTED"
	CodeInternal               = "INTERNAL_ERROR"
)

// Error is a structured error with a stable code and HTTP status.
type Error struct {
	Type    ErrorType
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}

	return false
}

// WithDetail adds one detail entry to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value

	return e
}

// WithDetails merges details into the error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	for k, v := range details {
		e.WithDetail(k, v)
	}

	return e
}

// WithCause records the underlying cause. The cause is never serialized.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause

	return e
}

func newError(t ErrorType, code string, status int, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}

	return &Error{
		Type:    t,
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

// NewValidationFailed creates a validation failure error.
func NewValidationFailed(message string) *Error {
	return newError(ErrorTypeValidation, CodeValidationFailed,
		http.StatusUnprocessableEntity, message, "Validation failed")
}

// NewBadRequest creates a generic bad request error.
func NewBadRequest(message string) *Error {
	return newError(ErrorTypeRequest, CodeBadRequest, http.StatusBadRequest, message, "Bad request")
}

// NewNotFound creates a generic not found error.
func NewNotFound(message string) *Error {
	return newError(ErrorTypeNotFound, CodeNotFound, http.StatusNotFound, message, "Resource not found")
}

// NewZipError creates an archive packing error.
func NewZipError(message string) *Error {
	return newError(ErrorTypeArchive, CodeZipError, http.StatusInternalServerError, message, "Zip error")
}

// NewPreviewInputInvalid is raised for malformed archives, unsafe paths and
// missing referenced assets.
func NewPreviewInputInvalid(message string) *Error {
	return newError(ErrorTypePreview, CodePreviewInputInvalid,
		http.StatusBadRequest, message, "Preview input invalid")
}

// NewPreviewNotFound is raised when a stored preview does not exist.
func NewPreviewNotFound(message string) *Error {
	return newError(ErrorTypePreview, CodePreviewNotFound,
		http.StatusNotFound, message, "Project not found during preview")
}

// NewPreviewMissingFields is raised when no entry HTML can be located.
func NewPreviewMissingFields(message string) *Error {
	return newError(ErrorTypePreview, CodePreviewMissingFields,
		http.StatusUnprocessableEntity, message, "Missing required fields for preview")
}

// NewPreviewTransformFailed is raised when the bundler fails or is absent.
func NewPreviewTransformFailed(message string) *Error {
	return newError(ErrorTypePreview, CodePreviewTransformFailed,
		http.StatusBadGateway, message, "esbuild transform failed")
}

// NewPreviewUnexpected wraps any unclassified preview failure.
func NewPreviewUnexpected(message string) *Error {
	return newError(ErrorTypePreview, CodePreviewUnexpected,
		http.StatusInternalServerError, message, "Unexpected preview error")
}

// NewInternal creates an internal error.
func NewInternal(message string, cause error) *Error {
	return newError(ErrorTypeInternal, CodeInternal,
		http.StatusInternalServerError, message, "Internal server error").WithCause(cause)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

// IsPreviewError reports whether err is one of the typed preview errors.
func IsPreviewError(err error) bool {
	if e, ok := As(err); ok {
		return e.Type == ErrorTypePreview
	}

	return false
}

// CodeOf returns the error code of err, or CodeInternal for untyped errors.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}

	return CodeInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}

	return http.StatusInternalServerError
}

// Response is the wire shape of an error.
type Response struct {
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details"`
}

// ToResponse converts err to its wire shape. Untyped errors never leak their
// text.
func ToResponse(err error) Response {
	e, ok := As(err)
	if !ok {
		return Response{
			ErrorCode: CodeInternal,
			Message:   "Internal server error",
			Details:   map[string]interface{}{},
		}
	}

	details := e.Details
	if details == nil {
		details = map[string]interface{}{}
	}

	return Response{
		ErrorCode: e.Code,
		Message:   e.Message,
		Details:   details,
	}
}
