// Package provider wraps model vendors behind a single interface and routes
// generation across them with timeout, retry, and failover.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/coachwell-ai/coaching-engine/internal/prompt"
)

// FallbackReason explains why generation degraded to the fallback payload.
type FallbackReason string

const (
	ReasonTimeout       FallbackReason = "timeout"
	ReasonRateLimit     FallbackReason = "rate_limit"
	ReasonProviderError FallbackReason = "provider_error"
)

// FaultClass splits vendor failures into retryable and non-retryable.
type FaultClass string

const (
	// FaultTransient covers timeouts and rate limits: retried on the same
	// provider, then failed over.
	FaultTransient FaultClass = "transient"

	// FaultPermanent covers auth and malformed-request failures: never
	// retried on that provider, but failover still proceeds.
	FaultPermanent FaultClass = "permanent"
)

// Fault is a classified vendor failure.
type Fault struct {
	Class    FaultClass
	Reason   FallbackReason
	Provider string
	Err      error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s fault from %s (%s): %v", f.Class, f.Provider, f.Reason, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Constraints bound a single generation attempt.
type Constraints struct {
	MaxTokens   int
	Temperature float64
}

// Response is a successful vendor generation.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is one model vendor. Generate returns a *Fault on vendor failure
// so the router can classify it.
type Client interface {
	// Name returns the vendor name.
	Name() string

	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, p *prompt.Prompt, c Constraints) (*Response, error)
}

// Spec describes one entry in the ordered provider list.
type Spec struct {
	Name string
	// Model selects the vendor model; empty uses the vendor default.
	Model string
	// Timeout is the hard per-attempt deadline.
	Timeout time.Duration
	// MaxRetries is how many times a transient failure is retried on this
	// provider before failing over.
	MaxRetries int
	// Backoff is the delay between retries.
	Backoff time.Duration
}

// Config is the ordered provider list consumed by the router.
type Config struct {
	Providers []Spec
}

// Keys holds vendor API credentials for the client factory.
type Keys struct {
	Anthropic string
	OpenAI    string
}

// NewClient creates a vendor client by name.
func NewClient(name, model string, keys Keys) (Client, error) {
	switch name {
	case "anthropic":
		return NewAnthropicClient(keys.Anthropic, model)
	case "openai":
		return NewOpenAIClient(keys.OpenAI, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// EstimateTokens approximates a token count when the vendor does not report
// one. Four characters per token is the usual rough cut.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
