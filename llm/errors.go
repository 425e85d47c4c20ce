package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of LLM error
type ErrorType string

const (
	ErrorTypeUnknown           ErrorType = "unknown"
	ErrorTypeInvalidRequest    ErrorType = "invalid_request"
	ErrorTypeAuthentication    ErrorType = "authentication_error"
	ErrorTypePermission        ErrorType = "permission_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeRateLimit         ErrorType = "rate_limit_exceeded"
	ErrorTypeInsufficientQuota ErrorType = "insufficient_quota"
	ErrorTypeInvalidModel      ErrorType = "invalid_model"
	ErrorTypeContextLength     ErrorType = "context_length_exceeded"
	ErrorTypeContentFilter     ErrorType = "content_filter"
	ErrorTypeServerError       ErrorType = "server_error"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeConnectionError   ErrorType = "connection_error"
	ErrorTypeValidationError   ErrorType = "validation_error"
	ErrorTypeJSONParsingError  ErrorType = "json_parsing_error"
)

// LLMError represents an error from an LLM provider
type LLMError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Provider   Provider  `json:"provider"`
	Model      string    `json:"model,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds
	Cause      error     `json:"-"`
}

func (e *LLMError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *LLMError) Unwrap() error { return e.Cause }

// NewLLMError creates a new LLM error
func NewLLMError(provider Provider, errorType ErrorType, message string) *LLMError {
	return &LLMError{
		Type:      errorType,
		Message:   message,
		Provider:  provider,
		Retryable: retryableType(errorType),
	}
}

// NewLLMErrorWithCause creates a new LLM error with an underlying cause
func NewLLMErrorWithCause(provider Provider, errorType ErrorType, message string, cause error) *LLMError {
	err := NewLLMError(provider, errorType, message)
	err.Cause = cause
	return err
}

func retryableType(t ErrorType) bool {
	switch t {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout, ErrorTypeConnectionError:
		return true
	}
	return false
}

// ParseHTTPError maps an HTTP status and body from a provider into an LLMError.
func ParseHTTPError(provider Provider, statusCode int, body string) *LLMError {
	var t ErrorType
	switch {
	case statusCode == http.StatusBadRequest:
		t = ErrorTypeInvalidRequest
	case statusCode == http.StatusUnauthorized:
		t = ErrorTypeAuthentication
	case statusCode == http.StatusForbidden:
		t = ErrorTypePermission
	case statusCode == http.StatusNotFound:
		t = ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		t = ErrorTypeTimeout
	case statusCode >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeUnknown
	}
	if specific := classifyBody(body); specific != "" && t != ErrorTypeAuthentication {
		t = specific
	}
	msg := http.StatusText(statusCode)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d error", statusCode)
	}
	if body != "" {
		msg = msg + ": " + truncate(body, 200)
	}
	e := NewLLMError(provider, t, msg)
	e.HTTPStatus = statusCode
	return e
}

// classifyBody looks for well known provider phrases in an error payload.
func classifyBody(body string) ErrorType {
	b := strings.ToLower(body)
	switch {
	case b == "":
		return ""
	case strings.Contains(b, "rate limit") || strings.Contains(b, "too many requests"):
		return ErrorTypeRateLimit
	case strings.Contains(b, "insufficient quota") || strings.Contains(b, "quota exceeded"):
		return ErrorTypeInsufficientQuota
	case strings.Contains(b, "context length") || strings.Contains(b, "maximum context"):
		return ErrorTypeContextLength
	case strings.Contains(b, "content filter") || strings.Contains(b, "content_policy"):
		return ErrorTypeContentFilter
	case strings.Contains(b, "model") && (strings.Contains(b, "not found") || strings.Contains(b, "does not exist")):
		return ErrorTypeInvalidModel
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// AsLLMError unwraps err looking for an *LLMError.
func AsLLMError(err error) (*LLMError, bool) {
	var e *LLMError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryableError reports whether err is an LLM error worth retrying.
func IsRetryableError(err error) bool {
	if e, ok := AsLLMError(err); ok {
		return e.Retryable || retryableType(e.Type)
	}
	return false
}

func IsRateLimitError(err error) bool { return isType(err, ErrorTypeRateLimit) }

func IsContextLengthError(err error) bool { return isType(err, ErrorTypeContextLength) }

func IsAuthenticationError(err error) bool { return isType(err, ErrorTypeAuthentication) }

func isType(err error, t ErrorType) bool {
	e, ok := AsLLMError(err)
	return ok && e.Type == t
}

// ValidationError is returned when a structured output fails validation.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}

func (v *ValidationError) Error() string {
	if v.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", v.Field, v.Message)
	}
	return "validation error: " + v.Message
}
