package stage

import (
	"context"
	"errors"
	"strings"
	"time"

	"notesmith/internal/queue"
	"notesmith/internal/services"
)

// FailureKind classifies why a stage attempt did not succeed.
type FailureKind string

const (
	KindNotFound            FailureKind = "not_found"
	KindPreconditionMissing FailureKind = "precondition_missing"
	KindProviderTransient   FailureKind = "provider_transient"
	KindProviderRejected    FailureKind = "provider_rejected"
	KindExhausted           FailureKind = "exhausted"
)

// Failure is the typed error a stage attempt returns. Retryable tells the
// retry policy whether another attempt may succeed; RetryAfter is a
// provider-supplied lower bound for the next delay.
type Failure struct {
	Kind       FailureKind
	Message    string
	Retryable  bool
	RetryAfter time.Duration
	Err        error
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	message := strings.TrimSpace(f.Message)
	switch {
	case message != "" && f.Err != nil:
		return message + ": " + f.Err.Error()
	case message != "":
		return message
	case f.Err != nil:
		return f.Err.Error()
	default:
		return string(f.Kind)
	}
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// NotFound reports an unknown job.
func NotFound(message string) *Failure {
	return &Failure{Kind: KindNotFound, Message: message}
}

// PreconditionMissing reports that an input artifact is absent or invalid.
// It is never retried; the artifact is invalidated so the next resume
// re-plans.
func PreconditionMissing(message string, err error) *Failure {
	return &Failure{Kind: KindPreconditionMissing, Message: message, Err: err}
}

// Transient reports a failure that may clear on its own.
func Transient(message string, err error, retryAfter time.Duration) *Failure {
	return &Failure{Kind: KindProviderTransient, Message: message, Err: err, Retryable: true, RetryAfter: retryAfter}
}

// Rejected reports that the provider refused the input.
func Rejected(message string, err error, retryable bool) *Failure {
	return &Failure{Kind: KindProviderRejected, Message: message, Err: err, Retryable: retryable}
}

// Exhausted retags the last failure of a spent retry budget. The message and
// cause are kept.
func Exhausted(last *Failure) *Failure {
	if last == nil {
		return &Failure{Kind: KindExhausted, Message: "retry budget exhausted"}
	}
	return &Failure{Kind: KindExhausted, Message: last.Message, Err: last.Err, RetryAfter: last.RetryAfter}
}

// FromError classifies an arbitrary provider error. Transient conditions
// (timeouts, 408/429/5xx, connection errors) are retryable; configuration,
// validation, and other 4xx errors are not.
func FromError(message string, err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		return &Failure{Kind: KindNotFound, Message: message, Err: err}
	case errors.Is(err, context.Canceled):
		return &Failure{Kind: KindProviderTransient, Message: message, Err: err}
	case services.IsTransient(err):
		return Transient(message, err, services.RetryAfterHint(err))
	default:
		return Rejected(message, err, false)
	}
}

// Result is the outcome of one stage attempt: either a success carrying a
// summary and the patch to persist, or a Failure.
type Result struct {
	Summary string
	Patch   queue.Patch
	Failure *Failure
}

// Success builds a successful result.
func Success(summary string, patch queue.Patch) Result {
	return Result{Summary: summary, Patch: patch}
}

// Fail builds a failed result.
func Fail(failure *Failure) Result {
	if failure == nil {
		failure = &Failure{Kind: KindProviderTransient, Message: "stage failed without detail", Retryable: true}
	}
	return Result{Failure: failure}
}

// OK reports whether the attempt succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}
