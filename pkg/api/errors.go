package api

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError          ErrorType = "server_error"
	ErrorTypeInvalidRequest       ErrorType = "invalid_request"
	ErrorTypeNotFound             ErrorType = "not_found"
	ErrorTypeUnsupportedMediaType ErrorType = "unsupported_media_type"
	ErrorTypeRejected             ErrorType = "rejected"
)

// APIError is the recoverable, client-facing failure. Application code
// returns it to reject a request; the transport layer turns it into an
// error response carrying StatusCode.
type APIError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Param      string    `json:"param,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Status returns the HTTP status code for the error. Errors built without
// an explicit code fall back to a status derived from their type.
func (e *APIError) Status() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewRejection creates an APIError with an explicit HTTP status code.
func NewRejection(statusCode int, message string) *APIError {
	return &APIError{
		Type:       ErrorTypeRejected,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidRequest,
		Param:      param,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewUnsupportedMediaTypeError creates an APIError for payloads whose
// declared content type is not acceptable.
func NewUnsupportedMediaTypeError(param, message string) *APIError {
	return &APIError{
		Type:       ErrorTypeUnsupportedMediaType,
		Param:      param,
		Message:    message,
		StatusCode: http.StatusUnsupportedMediaType,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeServerError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// UnsupportedTypeError reports a value whose runtime type cannot be
// represented on the wire. It is fatal to the response being built.
type UnsupportedTypeError struct {
	TypeName string
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("invalid response type: %s", e.TypeName)
}

// InvalidStatusCodeError reports a status code that is not an integer.
type InvalidStatusCodeError struct {
	Value any
}

// Error implements the error interface.
func (e *InvalidStatusCodeError) Error() string {
	return fmt.Sprintf("response status code should be an integer (%v is %T)", e.Value, e.Value)
}

// SchemaMismatchError reports data that does not fit the declared output
// schema. Index is the failing element of a sequence, or -1.
type SchemaMismatchError struct {
	Reason string
	Index  int
	Err    error
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	msg := "response data does not match the output schema"
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (element %d)", msg, e.Index)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg + "\n*hint: You may want to remove the output schema"
}

// Unwrap returns the underlying validation error, if any.
func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}
