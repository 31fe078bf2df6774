package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Generator is the outbound contract to a narrative-generation provider.
// Implementations send one system+user exchange and return the raw model
// text. The adapter owns timeouts, retries, and output parsing.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// ProviderError is a failed provider call. StatusCode 0 means the request
// never reached the provider (network failure).
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider request failed: %s", e.Message)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether retrying the same request could succeed.
// Deterministic rejections (4xx other than 429) are not retried.
func (e *ProviderError) Transient() bool {
	if e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// isTransient classifies any error from a Generator. Context cancellation by
// the caller is final; everything else that isn't a deterministic provider
// rejection is worth another attempt.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	// Deadline overruns and transport errors are transient by nature.
	return true
}
