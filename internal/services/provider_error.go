package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ProviderError describes a non-2xx response from an external HTTP provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request: http %d: %s", e.Provider, e.StatusCode, SummarizeSnippet(e.Body))
}

// Retryable reports whether the status code signals a transient condition.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// IsTransient reports whether err is worth retrying against an external provider:
// retryable HTTP statuses, transport timeouts, transient/timeout markers, and
// connection failures. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable()
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, ErrExternalTool)
}

// RetryAfterHint extracts a provider-supplied Retry-After delay, if any.
func RetryAfterHint(err error) time.Duration {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.RetryAfter
	}
	return 0
}

// ParseRetryAfter accepts either delta-seconds or an HTTP date.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// SummarizeSnippet collapses whitespace and truncates provider payloads for
// inclusion in error messages.
func SummarizeSnippet(body string) string {
	const limit = 240
	collapsed := strings.Join(strings.Fields(body), " ")
	if collapsed == "" {
		return `""`
	}
	if len(collapsed) > limit {
		collapsed = collapsed[:limit] + "..."
	}
	return strconv.Quote(collapsed)
}
