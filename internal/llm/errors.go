package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// NetworkError is a transient transport failure: connection error, timeout or
// a 5xx status. StatusCode is 0 when no response arrived.
type NetworkError struct {
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("network error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError is a 429 response. RetryAfter is zero when the server gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, truncate(e.Message, 200))
	}
	return fmt.Sprintf("rate limited: %s", truncate(e.Message, 200))
}

// MalformedResponseError means the endpoint answered but the reply could not be
// decoded or held no text.
type MalformedResponseError struct {
	Reason string
	Body   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %s (raw: %s)", e.Reason, truncate(e.Body, 200))
}

// APIError is a non-retryable rejection such as 400, 401 or 404.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	var rateErr *RateLimitError
	return errors.As(err, &netErr) || errors.As(err, &rateErr)
}

// statusError classifies a non-200 status.
func statusError(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Message:    string(body),
		}
	case resp.StatusCode >= 500:
		return &NetworkError{StatusCode: resp.StatusCode, Err: errors.New(truncate(string(body), 200))}
	default:
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
