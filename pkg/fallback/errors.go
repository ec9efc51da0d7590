package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"btcmetrics/pkg/httpx"
	"btcmetrics/pkg/provider"
	"btcmetrics/pkg/retry"
)

// ErrNoProviders indicates that no registered provider was eligible for a request.
var ErrNoProviders = errors.New("fallback: no eligible providers")

// AllProvidersFailedError is returned when every candidate provider failed.
// Only the last provider's error is kept; earlier ones are logged.
type AllProvidersFailedError struct {
	Endpoint     string
	Attempted    []string
	LastProvider string
	Last         error
}

func (e *AllProvidersFailedError) Error() string {
	if errors.Is(e.Last, ErrNoProviders) {
		return fmt.Sprintf("fallback: no eligible providers for %s", e.Endpoint)
	}
	return fmt.Sprintf("fallback: all providers failed for %s (tried %s): %v",
		e.Endpoint, strings.Join(e.Attempted, ", "), e.Last)
}

func (e *AllProvidersFailedError) Unwrap() error { return e.Last }

// Outcome labels for attempts, used in logs and metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeHTTP      = "http_error"
	OutcomeNormalize = "normalize"
	OutcomeRateLimit = "rate_limit"
	OutcomeCanceled  = "canceled"
	OutcomeOther     = "error"
)

// rateLimitError marks a failure that happened while waiting for admission.
type rateLimitError struct{ err error }

func (e *rateLimitError) Error() string { return "rate limit wait: " + e.err.Error() }
func (e *rateLimitError) Unwrap() error { return e.err }

// Classify maps a provider attempt error to an outcome label.
func Classify(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var rl *rateLimitError
	if errors.As(err, &rl) {
		return OutcomeRateLimit
	}
	if errors.Is(err, context.Canceled) {
		return OutcomeCanceled
	}
	var ne *provider.NormalizeError
	if errors.As(err, &ne) {
		return OutcomeNormalize
	}
	if retry.IsTransient(err) {
		return OutcomeTransient
	}
	if httpx.StatusCode(err) != 0 {
		return OutcomeHTTP
	}
	return OutcomeOther
}
