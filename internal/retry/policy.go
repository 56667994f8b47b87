package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"notesmith/internal/config"
	"notesmith/internal/stage"
)

const (
	DefaultMaxAttempts   = 3
	DefaultBaseDelay     = time.Second
	DefaultMaxDelay      = 600 * time.Second
	DefaultJitterPercent = 25
)

// Policy bounds how often and how patiently a stage is retried.
type Policy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
}

// DefaultPolicy returns three attempts with 1s base delay capped at ten
// minutes and ±25% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   DefaultMaxAttempts,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		JitterPercent: DefaultJitterPercent,
	}
}

// FromConfig builds a policy from the [retry] section.
func FromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return DefaultPolicy()
	}
	attempts, base, maxDelay, jitter := cfg.RetryPolicy()
	return Policy{MaxAttempts: attempts, BaseDelay: base, MaxDelay: maxDelay, JitterPercent: jitter}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.JitterPercent > 100 {
		p.JitterPercent = 100
	}
	return p
}

// AttemptFunc runs one stage attempt. attempt is 1-based.
type AttemptFunc func(ctx context.Context, attempt int) stage.Result

// HaltFunc reports whether an operator asked for no further retries.
type HaltFunc func(ctx context.Context) bool

// Outcome summarizes a Run. Exactly one of Exhausted, Halted, or Canceled is
// set when the final attempt failed with a retryable failure; a
// non-retryable failure sets none of them.
type Outcome struct {
	Result    stage.Result
	Attempts  int
	Failure   *stage.Failure
	Exhausted bool
	Halted    bool
	Canceled  bool
	// Delays records each backoff sleep that was scheduled.
	Delays []time.Duration
}

// OK reports whether the final attempt succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil && o.Attempts > 0 && !o.Canceled && !o.Halted
}

var errHalted = errors.New("halted by operator")

// Run calls attempt until it succeeds, returns a non-retryable failure,
// uses MaxAttempts attempts, or halted reports true. halted is consulted
// before every attempt after the first.
func (p Policy) Run(ctx context.Context, attempt AttemptFunc, halted HaltFunc) Outcome {
	p = p.normalized()
	var (
		out  Outcome
		hint time.Duration
	)
	backoff := p.backoff(&hint, &out.Delays)

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		if out.Attempts > 0 && halted != nil && halted(ctx) {
			out.Halted = true
			return errHalted
		}
		out.Attempts++
		res := attempt(ctx, out.Attempts)
		out.Result = res
		if res.OK() {
			out.Failure = nil
			return nil
		}
		out.Failure = res.Failure
		hint = res.Failure.RetryAfter
		if !res.Failure.Retryable {
			return res.Failure
		}
		return goretry.RetryableError(res.Failure)
	})

	switch {
	case err == nil, out.Halted:
	case ctx.Err() != nil:
		out.Canceled = true
	case out.Failure != nil && out.Failure.Retryable:
		out.Exhausted = true
		out.Failure = stage.Exhausted(out.Failure)
	}
	return out
}

// backoff returns exponential delays from BaseDelay, capped at MaxDelay, with
// jitter, stopping after MaxAttempts-1 retries. A provider Retry-After hint
// raises the next delay but never past MaxDelay.
func (p Policy) backoff(hint *time.Duration, delays *[]time.Duration) goretry.Backoff {
	b := goretry.NewExponential(p.BaseDelay)
	b = goretry.WithCappedDuration(p.MaxDelay, b)
	if p.JitterPercent > 0 {
		b = goretry.WithJitterPercent(p.JitterPercent, b)
	}
	b = goretry.WithMaxRetries(uint64(p.MaxAttempts-1), b)

	return goretry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := b.Next()
		if stop {
			return 0, true
		}
		if *hint > next {
			next = *hint
		}
		if next > p.MaxDelay {
			next = p.MaxDelay
		}
		*delays = append(*delays, next)
		return next, false
	})
}
