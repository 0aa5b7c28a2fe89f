// Package retry provides exponential backoff with jitter for external calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts is the number of calls made before giving up.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the delay before the first retry (doubles each attempt).
	DefaultBaseDelay = 1 * time.Second

	// DefaultJitter spreads each delay uniformly over +/-20%.
	DefaultJitter = 0.2
)

// ExhaustedError is returned when every attempt of an operation failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do returns it immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Policy describes a retry schedule. The zero value is usable and equals Default().
// A Policy is never mutated by Do, so one value can be shared by concurrent callers.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int
	// BaseDelay is multiplied by 2^attempt for each retry.
	BaseDelay time.Duration
	// Jitter is the fraction by which a delay is randomly stretched or shrunk.
	Jitter float64
	// Sleep waits for d or until ctx is done. Defaults to a timer select.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand returns a value in [0, 1). Defaults to math/rand.
	Rand func() float64
	// Logger receives a warning for every retry. May be nil.
	Logger *slog.Logger
}

// Default returns the policy used for all GitHub and model calls.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Jitter:      DefaultJitter,
	}
}

// WithLogger returns a copy of p that logs retries to logger.
func (p Policy) WithLogger(logger *slog.Logger) Policy {
	p.Logger = logger
	return p
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// Delay returns the jittered wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	delay := base * time.Duration(1<<attempt)

	jitter := p.Jitter
	if jitter <= 0 {
		return delay
	}
	random := rand.Float64
	if p.Rand != nil {
		random = p.Rand
	}
	factor := 1 - jitter + 2*jitter*random()
	return time.Duration(float64(delay) * factor)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
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

// Do calls fn until it succeeds, returns a Permanent error, ctx is done,
// or the policy runs out of attempts. In the last case the final error is
// wrapped in an *ExhaustedError.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	var lastErr error

	attempts := p.maxAttempts()
	for attempt := 0; attempt < attempts; attempt++ {
		result, lastErr = fn(ctx)
		if lastErr == nil {
			return result, nil
		}

		if IsPermanent(lastErr) {
			return result, lastErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s: %w", op, ctxErr)
		}

		if attempt < attempts-1 {
			delay := p.Delay(attempt)
			if p.Logger != nil {
				p.Logger.Warn("retrying after error",
					"operation", op,
					"attempt", attempt+1,
					"max_attempts", attempts,
					"delay", delay,
					"error", lastErr,
				)
			}
			if err := p.sleep(ctx, delay); err != nil {
				return result, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	return result, &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}
