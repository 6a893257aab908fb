package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorType classifies failures returned by the client.
type ErrorType int

const (
	// NetworkError is a transport failure: refused connection, reset, DNS, unexpected EOF.
	NetworkError ErrorType = iota
	// TimeoutError is an attempt that exceeded its timeout.
	TimeoutError
	// HTTPError is a non-2xx status with no more specific classification.
	HTTPError
	// UnauthorizedError means the session could not be restored and the user must log in again.
	UnauthorizedError
	ForbiddenError
	NotFoundError
	MethodNotAllowedError
	// ValidationError is a 422 response or a request rejected before it was sent.
	ValidationError
	// ServerError is a 500, 502 or 503 response.
	ServerError
	InterceptorError
)

var errorTypeNames = map[ErrorType]string{
	NetworkError:          "network error",
	TimeoutError:          "timeout error",
	HTTPError:             "HTTP error",
	UnauthorizedError:     "unauthorized",
	ForbiddenError:        "forbidden",
	NotFoundError:         "not found",
	MethodNotAllowedError: "method not allowed",
	ValidationError:       "validation error",
	ServerError:           "server error",
	InterceptorError:      "interceptor error",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("error type %d", int(t))
}

// User-facing messages used when the server does not supply one.
const (
	MsgNetwork          = "a network error occurred"
	MsgTimeout          = "the request timed out"
	MsgUnauthorized     = "authentication required"
	MsgForbidden        = "access denied"
	MsgNotFound         = "the requested resource was not found"
	MsgMethodNotAllowed = "method not allowed"
	MsgValidation       = "the submitted data is invalid"
	MsgServer           = "a server error occurred"
)

// ErrAuthRequired matches, via errors.Is, the error returned when a 401 could not be
// recovered by refreshing the access token.
var ErrAuthRequired = errors.New("httpclient: authentication required")

// ClientError is implemented by every error the client returns for a failed request.
type ClientError interface {
	error
	Type() ErrorType
}

type networkError struct {
	message string
	err     error
}

// NewNetworkError creates a NetworkError wrapping err.
func NewNetworkError(message string, err error) ClientError {
	return &networkError{message: message, err: err}
}

func (e *networkError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.err)
	}
	return "network error: " + e.message
}

func (e *networkError) Type() ErrorType { return NetworkError }
func (e *networkError) Unwrap() error   { return e.err }

type timeoutError struct {
	message string
	timeout time.Duration
}

// NewTimeoutError creates a TimeoutError. It unwraps to context.DeadlineExceeded.
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{message: message, timeout: timeout}
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %s)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType        { return TimeoutError }
func (e *timeoutError) Unwrap() error          { return context.DeadlineExceeded }
func (e *timeoutError) Timeout() time.Duration { return e.timeout }

// StatusError is a classified non-2xx response.
type StatusError struct {
	errType    ErrorType
	message    string
	statusCode int
	body       []byte
	url        string
}

// NewHTTPError creates a StatusError whose type is derived from statusCode.
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &StatusError{
		errType:    classifyStatus(statusCode),
		message:    message,
		statusCode: statusCode,
		body:       body,
	}
}

// NewValidationError reports a request rejected before it was sent. field may be empty.
func NewValidationError(message, field string) ClientError {
	if field != "" {
		message = fmt.Sprintf("%s (field: %s)", message, field)
	}
	return &StatusError{errType: ValidationError, message: message}
}

func (e *StatusError) Error() string {
	if e.statusCode == 0 {
		return fmt.Sprintf("%s: %s", e.errType, e.message)
	}
	return fmt.Sprintf("HTTP error %d (%s): %s", e.statusCode, e.errType, e.message)
}

func (e *StatusError) Type() ErrorType { return e.errType }

// StatusCode returns the HTTP status, or 0 for errors raised before sending.
func (e *StatusError) StatusCode() int { return e.statusCode }

// Body returns the raw response body.
func (e *StatusError) Body() []byte { return e.body }

// URL returns the resolved request URL when known.
func (e *StatusError) URL() string { return e.url }

// Message returns the user-facing message without the status prefix.
func (e *StatusError) Message() string { return e.message }

// Is lets errors.Is(err, ErrAuthRequired) match unrecoverable 401s.
func (e *StatusError) Is(target error) bool {
	return target == ErrAuthRequired && e.errType == UnauthorizedError
}

type interceptorError struct {
	message string
	stage   string
	err     error
}

// NewInterceptorError reports a failing request or response interceptor.
func NewInterceptorError(message, stage string, err error) ClientError {
	return &interceptorError{message: message, stage: stage, err: err}
}

func (e *interceptorError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("interceptor error (%s): %s: %v", e.stage, e.message, e.err)
	}
	return fmt.Sprintf("interceptor error (%s): %s", e.stage, e.message)
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }
func (e *interceptorError) Unwrap() error   { return e.err }

// IsErrorType reports whether err, or any error it wraps, is a ClientError of type t.
func IsErrorType(err error, t ErrorType) bool {
	var ce ClientError
	if errors.As(err, &ce) {
		return ce.Type() == t
	}
	return false
}

// IsHTTPStatusError reports whether err carries the given response status.
func IsHTTPStatusError(err error, statusCode int) bool {
	code, ok := StatusCode(err)
	return ok && code == statusCode
}

// StatusCode extracts the response status from err.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.statusCode != 0 {
		return se.statusCode, true
	}
	return 0, false
}

// IsSuccessStatus reports whether statusCode is in the 2xx range.
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func classifyStatus(statusCode int) ErrorType {
	switch statusCode {
	case http.StatusUnauthorized:
		return UnauthorizedError
	case http.StatusForbidden:
		return ForbiddenError
	case http.StatusNotFound:
		return NotFoundError
	case http.StatusMethodNotAllowed:
		return MethodNotAllowedError
	case http.StatusUnprocessableEntity:
		return ValidationError
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return ServerError
	default:
		return HTTPError
	}
}

// newStatusError builds the error for a non-2xx response. The server's "message" field
// wins over the generic text; 404 and 405 also name the URL.
func newStatusError(statusCode int, body []byte, url string) *StatusError {
	errType := classifyStatus(statusCode)
	msg := serverMessage(body)
	if msg == "" {
		msg = defaultMessage(errType)
	}
	if errType == NotFoundError || errType == MethodNotAllowedError {
		msg = fmt.Sprintf("%s (%s)", msg, url)
	}
	return &StatusError{errType: errType, message: msg, statusCode: statusCode, body: body, url: url}
}

func defaultMessage(t ErrorType) string {
	switch t {
	case UnauthorizedError:
		return MsgUnauthorized
	case ForbiddenError:
		return MsgForbidden
	case NotFoundError:
		return MsgNotFound
	case MethodNotAllowedError:
		return MsgMethodNotAllowed
	case ValidationError:
		return MsgValidation
	case ServerError:
		return MsgServer
	default:
		return MsgNetwork
	}
}

func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}
