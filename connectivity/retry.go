package connectivity

import (
	"context"
	"log/slog"
	"time"
)

// WithTimeout returns a HandlerMiddleware that applies defaultTimeout as a
// per-call timeout. A zero (or negative) value disables the timeout
// entirely.
func WithTimeout(defaultTimeout time.Duration) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			if defaultTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
				defer cancel()
			}
			return next(ctx, payload)
		}
	}
}

// nonRetryable is implemented by errors that know whether resubmitting the
// same call could ever succeed (e.g. a provider error keyed off HTTP status).
// WithRetry stops immediately when an error reports false, instead of
// burning the remaining attempts on a call that cannot succeed.
type nonRetryable interface {
	Retryable() bool
}

// WithRetry returns a HandlerMiddleware that retries failed calls with
// exponential backoff. It respects context cancellation between retries.
//
// Parameters:
//   - maxRetries: maximum number of retry attempts (0 = no retry)
//   - baseBackoff: initial wait between retries, doubled each attempt
//   - logger: used to log retry attempts (may be nil for silent retries)
func WithRetry(maxRetries int, baseBackoff time.Duration, logger *slog.Logger) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			var lastErr error
			for attempt := 0; attempt <= maxRetries; attempt++ {
				resp, err := next(ctx, payload)
				if err == nil {
					return resp, nil
				}
				lastErr = err

				// Don't retry if context is done.
				if ctx.Err() != nil {
					return nil, lastErr
				}

				// Don't retry on circuit open — it won't help.
				if _, ok := err.(*ErrCircuitOpen); ok {
					return nil, err
				}

				// Don't retry an error that says resubmission can't help.
				if nr, ok := err.(nonRetryable); ok && !nr.Retryable() {
					if logger != nil {
						logger.WarnContext(ctx, "not retrying non-retryable error", "error", err)
					}
					return nil, err
				}

				if attempt < maxRetries {
					wait := baseBackoff * (1 << uint(attempt))
					if logger != nil {
						logger.WarnContext(ctx, "retrying call",
							"attempt", attempt+1,
							"max_retries", maxRetries,
							"backoff_ms", wait.Milliseconds(),
							"error", err)
					}
					select {
					case <-ctx.Done():
						return nil, lastErr
					case <-time.After(wait):
					}
				}
			}
			return nil, lastErr
		}
	}
}
