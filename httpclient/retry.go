package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"regexp"
	"time"
)

var transientMessagePattern = regexp.MustCompile(`(?i)fetch|network|timeout`)

// isTransient reports whether a failed attempt may succeed if repeated.
// Status errors never are.
func isTransient(err error) bool {
	var ce ClientError
	if errors.As(err, &ce) {
		switch ce.Type() {
		case NetworkError, TimeoutError:
			return true
		case InterceptorError:
			return transientMessagePattern.MatchString(err.Error())
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return transientMessagePattern.MatchString(err.Error())
}

// transportError classifies a failure of the transport or of reading the body.
func transportError(attemptCtx context.Context, err error, timeout time.Duration) ClientError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(MsgTimeout, timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(MsgTimeout, timeout)
	}
	return NewNetworkError(MsgNetwork, err)
}

// contextError maps a cancelled or expired caller context.
func contextError(ctx context.Context, err error, timeout time.Duration) ClientError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(MsgTimeout, timeout)
	}
	return NewNetworkError("request cancelled", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
