package httpclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConnectionFailed = "connection failed"

func TestErrorTypeFormatting(t *testing.T) {
	tests := []struct {
		name     string
		error    ClientError
		contains []string
	}{
		{
			name:     "network error without wrapped error",
			error:    NewNetworkError(testConnectionFailed, nil),
			contains: []string{"network error", testConnectionFailed},
		},
		{
			name:     "network error with wrapped error",
			error:    NewNetworkError(testConnectionFailed, errors.New("underlying issue")),
			contains: []string{"network error", testConnectionFailed, "underlying issue"},
		},
		{
			name:     "timeout error",
			error:    NewTimeoutError("request timeout", 30*time.Second),
			contains: []string{"timeout error", "request timeout", "30s"},
		},
		{
			name:     "http error",
			error:    NewHTTPError("bad request", 400, []byte("invalid input")),
			contains: []string{"HTTP error", "bad request", "400"},
		},
		{
			name:     "validation error with field",
			error:    NewValidationError("must not be empty", "username"),
			contains: []string{"validation error", "must not be empty", "username"},
		},
		{
			name:     "interceptor error",
			error:    NewInterceptorError("processing failed", "request", errors.New("parsing error")),
			contains: []string{"interceptor error", "processing failed", "request", "parsing error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errorMsg := tt.error.Error()
			for _, expected := range tt.contains {
				assert.Contains(t, errorMsg, expected)
			}
		})
	}
}

func TestNewHTTPErrorClassifiesStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorType
	}{
		{400, HTTPError},
		{401, UnauthorizedError},
		{403, ForbiddenError},
		{404, NotFoundError},
		{405, MethodNotAllowedError},
		{409, HTTPError},
		{422, ValidationError},
		{500, ServerError},
		{502, ServerError},
		{503, ServerError},
		{504, HTTPError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := NewHTTPError("x", tt.status, nil)
			assert.Equal(t, tt.expected, err.Type())
		})
	}
}

func TestNewStatusErrorMessage(t *testing.T) {
	t.Run("server message wins", func(t *testing.T) {
		err := newStatusError(500, []byte(`{"message":"database unavailable"}`), "http://h/videos")
		assert.Equal(t, ServerError, err.Type())
		assert.Equal(t, "database unavailable", err.Message())
		assert.Equal(t, 500, err.StatusCode())
	})

	t.Run("generic message when body has none", func(t *testing.T) {
		err := newStatusError(403, []byte("<html>nope</html>"), "http://h/settings/camera")
		assert.Equal(t, MsgForbidden, err.Message())
	})

	t.Run("not found names the url", func(t *testing.T) {
		err := newStatusError(404, nil, "http://h/videos/missing.mp4")
		assert.Contains(t, err.Error(), "http://h/videos/missing.mp4")
		assert.Equal(t, "http://h/videos/missing.mp4", err.URL())
	})

	t.Run("method not allowed names the url", func(t *testing.T) {
		err := newStatusError(405, []byte(`{"message":"use PATCH"}`), "http://h/videos/a/status")
		assert.Contains(t, err.Message(), "use PATCH")
		assert.Contains(t, err.Message(), "http://h/videos/a/status")
	})
}

func TestErrorUnwrapping(t *testing.T) {
	t.Run("network error unwrapping", func(t *testing.T) {
		underlying := errors.New("connection refused")
		err := NewNetworkError("failed to connect", underlying)
		assert.ErrorIs(t, err, underlying)
	})

	t.Run("timeout error matches deadline exceeded", func(t *testing.T) {
		err := NewTimeoutError(MsgTimeout, time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("interceptor error unwrapping", func(t *testing.T) {
		underlying := errors.New("signing failed")
		err := NewInterceptorError("request interceptor failed", "request", underlying)
		assert.ErrorIs(t, err, underlying)
	})

	t.Run("auth required sentinel", func(t *testing.T) {
		err := fmt.Errorf("load videos: %w", newStatusError(401, nil, "http://h/videos"))
		assert.ErrorIs(t, err, ErrAuthRequired)
		assert.NotErrorIs(t, newStatusError(403, nil, "http://h/videos"), ErrAuthRequired)
	})
}

func TestErrorTypeUtilities(t *testing.T) {
	t.Run("IsErrorType", func(t *testing.T) {
		assert.False(t, IsErrorType(nil, NetworkError))
		assert.True(t, IsErrorType(NewNetworkError("x", nil), NetworkError))
		assert.False(t, IsErrorType(NewNetworkError("x", nil), TimeoutError))
		assert.False(t, IsErrorType(errors.New("plain"), NetworkError))
		assert.True(t, IsErrorType(fmt.Errorf("wrapped: %w", NewHTTPError("x", 422, nil)), ValidationError))
	})

	t.Run("IsHTTPStatusError", func(t *testing.T) {
		assert.False(t, IsHTTPStatusError(nil, 404))
		assert.True(t, IsHTTPStatusError(NewHTTPError("not found", 404, nil), 404))
		assert.False(t, IsHTTPStatusError(NewHTTPError("server error", 500, nil), 404))
		assert.False(t, IsHTTPStatusError(NewNetworkError(testConnectionFailed, nil), 404))
		assert.False(t, IsHTTPStatusError(NewValidationError("bad", ""), 0))
	})

	t.Run("StatusCode", func(t *testing.T) {
		code, ok := StatusCode(fmt.Errorf("x: %w", NewHTTPError("x", 503, nil)))
		assert.True(t, ok)
		assert.Equal(t, 503, code)

		_, ok = StatusCode(NewTimeoutError("x", time.Second))
		assert.False(t, ok)
	})

	t.Run("IsSuccessStatus", func(t *testing.T) {
		for code, expected := range map[int]bool{199: false, 200: true, 204: true, 299: true, 300: false, 404: false} {
			assert.Equal(t, expected, IsSuccessStatus(code), "status %d", code)
		}
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"network", NewNetworkError(MsgNetwork, errors.New("reset")), true},
		{"timeout", NewTimeoutError(MsgTimeout, time.Second), true},
		{"server error", NewHTTPError("x", 500, nil), false},
		{"bad request", NewHTTPError("x", 400, nil), false},
		{"unauthorized", NewHTTPError("x", 401, nil), false},
		{"validation", NewValidationError("x", ""), false},
		{"interceptor with network message", NewInterceptorError("x", "request", errors.New("network unreachable")), true},
		{"interceptor otherwise", NewInterceptorError("x", "request", errors.New("bad signature")), false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"message pattern", errors.New("Failed to fetch"), true},
		{"unrelated", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isTransient(tt.err))
		})
	}
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "network error", NetworkError.String())
	assert.Equal(t, "validation error", ValidationError.String())
	require.Contains(t, ErrorType(99).String(), "99")
}
