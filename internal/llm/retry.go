package llm

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryOptions configures the Retrying decorator.
type RetryOptions struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	// InitialInterval is the first backoff delay; later delays double.
	InitialInterval time.Duration
	// MaxInterval caps a single backoff delay.
	MaxInterval time.Duration
	// AttemptTimeout bounds each individual call. Zero means no limit.
	AttemptTimeout time.Duration
}

// Retrying wraps a Generator with a per-attempt timeout and bounded
// exponential backoff for transient failures.
type Retrying struct {
	next   Generator
	opts   RetryOptions
	logger *slog.Logger
}

func NewRetrying(next Generator, opts RetryOptions, logger *slog.Logger) *Retrying {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 10 * time.Second
	}
	return &Retrying{next: next, opts: opts, logger: logger}
}

func (r *Retrying) Generate(ctx context.Context, parts ...Part) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		text, err := r.attempt(ctx, parts)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialInterval
	b.MaxInterval = r.opts.MaxInterval

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.opts.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.logger.WarnContext(ctx, "model call failed, retrying",
				"attempt", attempt,
				"wait_ms", wait.Milliseconds(),
				"error", err,
			)
		}),
	)
}

func (r *Retrying) attempt(ctx context.Context, parts []Part) (string, error) {
	if r.opts.AttemptTimeout <= 0 {
		return r.next.Generate(ctx, parts...)
	}
	actx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout)
	defer cancel()
	return r.next.Generate(actx, parts...)
}

// IsTransient reports whether err is worth retrying: timeouts, network
// errors and provider statuses 429/5xx. Anything else is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBlocked) || errors.Is(err, ErrEmptyResponse) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var transient interface{ Transient() bool }
	if errors.As(err, &transient) {
		return transient.Transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
