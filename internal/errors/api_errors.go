// Package errors defines the API error taxonomy shared by the HTTP layer
// and the job bridge.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrorType identifies an error class in the client-facing envelope.
type ErrorType string

const (
	ErrAuthentication   ErrorType = "authentication_error"
	ErrInvalidRequest   ErrorType = "invalid_request_error"
	ErrPayloadTooLarge  ErrorType = "payload_too_large"
	ErrUpstream         ErrorType = "upstream_error"
	ErrUpstreamProtocol ErrorType = "upstream_protocol_error"
	ErrGenerationFailed ErrorType = "generation_failed"
	ErrTimeout          ErrorType = "timeout_error"
	ErrNotFound         ErrorType = "not_found_error"
	ErrInternalServer   ErrorType = "server_error"
)

// APIError is an error that renders as a well-formed client envelope.
type APIError struct {
	HTTPStatus int
	Type       ErrorType
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates an APIError of the given type with a custom message.
func NewAPIError(t ErrorType, message string) *APIError {
	return &APIError{HTTPStatus: statusFor(t), Type: t, Message: message}
}

// NewUpstreamError creates an upstream submission error carrying the
// upstream status code.
func NewUpstreamError(statusCode int, message string) *APIError {
	if statusCode <= 0 {
		statusCode = http.StatusInternalServerError
	}
	return &APIError{HTTPStatus: statusCode, Type: ErrUpstream, Message: message}
}

func statusFor(t ErrorType) int {
	switch t {
	case ErrAuthentication:
		return http.StatusUnauthorized
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrNotFound:
		return http.StatusNotFound
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrUpstream, ErrUpstreamProtocol, ErrGenerationFailed, ErrInternalServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AsAPIError unwraps err into an *APIError, wrapping unknown errors as a
// generic server error so the envelope is always well-formed.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewAPIError(ErrInternalServer, err.Error())
}

// ParseUpstreamError extracts a human-readable message from an upstream
// error body, falling back to the raw text.
func ParseUpstreamError(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Detail != "" {
			return envelope.Detail
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}

// IsIgnorableError reports whether err is a client-side disconnect class
// error that should be logged at debug level rather than as a failure.
func IsIgnorableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"broken pipe", "connection reset by peer", "client disconnected", "request canceled"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
