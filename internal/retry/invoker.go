// Package retry wraps remote extraction calls with bounded
// exponential-backoff retry, separating transient transport failures from
// permanent configuration errors.
package retry

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SleepFunc suspends for the given duration. Injectable so tests can run the
// full retry schedule without real waits.
type SleepFunc func(time.Duration)

// Invoker executes a remote call with up to MaxRetries additional attempts
// after the first, waiting BaseBackoff * 2^attempt between attempts.
type Invoker struct {
	MaxRetries  int
	BaseBackoff time.Duration
	sleep       SleepFunc
	logger      *zap.Logger
}

// NewInvoker creates an invoker with the default budget: 3 retries (4 total
// attempts) at 1s, 2s, 4s.
func NewInvoker(logger *zap.Logger) *Invoker {
	return &Invoker{
		MaxRetries:  3,
		BaseBackoff: time.Second,
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// WithSleep replaces the sleep function. Used by tests.
func (i *Invoker) WithSleep(fn SleepFunc) *Invoker {
	i.sleep = fn
	return i
}

// Backoff returns the wait before retry number attempt (0-based): base,
// 2*base, 4*base... Pure function of the attempt index.
func (i *Invoker) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return i.BaseBackoff << uint(attempt)
}

// permanentMarkers are message fragments that indicate a configuration,
// validation, or auth failure. Retrying those wastes the budget and delays
// the user-visible error.
var permanentMarkers = []string{
	"not configured",
	"invalid",
	"unauthorized",
}

// IsPermanent reports whether the error should never be retried, judged by
// its message text. Everything else (timeouts, 5xx, transient network
// failures) is considered retriable.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Do runs fn, retrying retriable failures up to the budget. Permanent errors
// are returned immediately without consuming a retry; after the budget is
// exhausted the last error is returned. A retry sequence runs to completion
// once started.
func (i *Invoker) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= i.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := i.Backoff(attempt - 1)
			i.logger.Info("Retrying remote call",
				zap.String("operation", op),
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait))
			i.sleep(wait)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// Call runs a value-returning remote call through inv's retry budget.
func Call[T any](ctx context.Context, inv *Invoker, op string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := inv.Do(ctx, op, func(ctx context.Context) error {
		var callErr error
		result, callErr = fn(ctx)
		return callErr
	})
	return result, err
}
