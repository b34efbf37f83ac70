package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hahsanayub/browseragent/connectivity"
)

// StructuredAgentOutput is the LLM interface's response shape, spec.md §6:
// `{ thinking?, current_state: {...}, action: ActionUnion[] }`. ActionUnion
// items decode into actions.Action via RawAction below, since the action
// kind is only known once the "action" key's sub-object shape is inspected.
type StructuredAgentOutput struct {
	Thinking     string        `json:"thinking,omitempty"`
	CurrentState CurrentState  `json:"current_state"`
	Action       []RawAction   `json:"action"`
}

// CurrentState is StructuredAgentOutput's current_state object.
type CurrentState struct {
	EvaluationPreviousGoal string `json:"evaluation_previous_goal"`
	Memory                 string `json:"memory"`
	NextGoal               string `json:"next_goal"`
}

// RawAction is one array entry of the "action" field: a single-key object
// whose key is the action kind and whose value is its parameter map, the
// wire shape tagged unions take when serialized by the model (spec.md §9
// "Dynamic typing...maps to tagged unions with a kind discriminator").
type RawAction map[string]map[string]any

// ModelProviderError is a retryable-or-not LLM failure, spec.md §7.
type ModelProviderError struct {
	StatusCode int
	Wrapped    error
}

func (e *ModelProviderError) Error() string {
	return fmt.Sprintf("agent: model provider error (status %d): %v", e.StatusCode, e.Wrapped)
}
func (e *ModelProviderError) Unwrap() error { return e.Wrapped }

// Retryable reports whether this error's status is in {429, 5xx}, per
// spec.md §4.7's retry/fallback rule.
func (e *ModelProviderError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ModelRateLimitError is always retryable (spec.md §7).
type ModelRateLimitError struct{ Wrapped error }

func (e *ModelRateLimitError) Error() string { return "agent: model rate limited: " + e.Wrapped.Error() }
func (e *ModelRateLimitError) Unwrap() error { return e.Wrapped }

// ParseError is a non-fatal model-output parsing failure, spec.md §7.
type ParseError struct{ Wrapped error }

func (e *ParseError) Error() string { return "agent: parse error: " + e.Wrapped.Error() }
func (e *ParseError) Unwrap() error { return e.Wrapped }

// Client is the out-of-scope LLM collaborator's contract (spec.md §1:
// "only the invoke(messages) → structured completion contract is used").
type Client interface {
	Name() string
	Invoke(ctx context.Context, prompt string) (StructuredAgentOutput, error)
}

// FallbackInvoker wraps a primary and fallback Client, switching to the
// fallback exactly once on the first retryable provider error and staying
// switched thereafter, per spec.md §4.7 "LLM retry/fallback": "switch to
// the configured fallback LLM exactly once (subsequent calls use the
// fallback)." Grounded on connectivity's middleware-chain idiom: a
// CircuitBreaker pinned to trip-on-first-failure and never auto-reset
// stands in for the permanent switch (Allow() false means "already
// switched"), and the hand-off to the fallback client runs through
// connectivity.WithFallback itself rather than a second bespoke call path.
type FallbackInvoker struct {
	primary  Client
	fallback Client
	logger   *slog.Logger

	retry      connectivity.HandlerMiddleware
	breaker    *connectivity.CircuitBreaker
	toFallback connectivity.HandlerMiddleware
}

// NewFallbackInvoker wires maxRetries/baseBackoff provider-level retries
// (connectivity.WithRetry) in front of a circuit breaker guarding the
// primary client; once the breaker trips, every later call routes to the
// fallback client via connectivity.WithFallback without re-probing primary.
func NewFallbackInvoker(primary, fallback Client, maxRetries int, baseBackoff time.Duration, logger *slog.Logger) *FallbackInvoker {
	f := &FallbackInvoker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		retry:    connectivity.WithRetry(maxRetries, baseBackoff, logger),
		breaker: connectivity.NewCircuitBreaker(
			connectivity.WithBreakerThreshold(1),
			connectivity.WithBreakerResetTimeout(365*24*time.Hour),
		),
	}
	if fallback != nil {
		fbHandler := f.retry(func(ctx context.Context, payload []byte) ([]byte, error) {
			out, err := fallback.Invoke(ctx, string(payload))
			if err != nil {
				return nil, err
			}
			return json.Marshal(out)
		})
		f.toFallback = connectivity.WithFallback(fbHandler, "agent-llm", logger)
	}
	return f
}

// CurrentModelName reports which client subsequent calls will use, for the
// `current_llm_model` observable in spec.md's S5 scenario.
func (f *FallbackInvoker) CurrentModelName() string {
	if f.fallback != nil && !f.breaker.Allow() {
		return f.fallback.Name()
	}
	return f.primary.Name()
}

// Invoke runs the active client (primary, or fallback once the breaker has
// tripped) through the retry middleware; a retryable failure on the primary
// trips the breaker permanently and hands the call off to the fallback.
func (f *FallbackInvoker) Invoke(ctx context.Context, prompt string) (StructuredAgentOutput, error) {
	switched := f.fallback != nil && !f.breaker.Allow()

	client := f.primary
	if switched {
		client = f.fallback
	}

	out, err := f.invokeWithRetry(ctx, client, prompt)
	if switched || f.fallback == nil {
		return out, err
	}
	if err == nil {
		f.breaker.RecordSuccess()
		return out, nil
	}
	if !isRetryable(err) {
		return out, err
	}

	f.breaker.RecordFailure()
	if f.logger != nil {
		f.logger.Warn("agent: switching to fallback LLM", "error", err, "fallback", f.fallback.Name())
	}

	failedPrimary := func(context.Context, []byte) ([]byte, error) { return nil, err }
	resp, ferr := f.toFallback(failedPrimary)(ctx, []byte(prompt))
	if ferr != nil {
		return StructuredAgentOutput{}, ferr
	}
	var fout StructuredAgentOutput
	if jsonErr := json.Unmarshal(resp, &fout); jsonErr != nil {
		return StructuredAgentOutput{}, &ParseError{Wrapped: jsonErr}
	}
	return fout, nil
}

func (f *FallbackInvoker) invokeWithRetry(ctx context.Context, client Client, prompt string) (StructuredAgentOutput, error) {
	handler := func(ctx context.Context, payload []byte) ([]byte, error) {
		out, err := client.Invoke(ctx, string(payload))
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	}
	resp, err := f.retry(handler)(ctx, []byte(prompt))
	if err != nil {
		return StructuredAgentOutput{}, err
	}
	var out StructuredAgentOutput
	if jsonErr := json.Unmarshal(resp, &out); jsonErr != nil {
		return StructuredAgentOutput{}, &ParseError{Wrapped: jsonErr}
	}
	return out, nil
}

func isRetryable(err error) bool {
	var provErr *ModelProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable()
	}
	var rlErr *ModelRateLimitError
	return errors.As(err, &rlErr)
}
