package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/coachwell-ai/coaching-engine/internal/prompt"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
	"github.com/coachwell-ai/coaching-engine/pkg/metrics"
)

// Result is what generation always produces: either a reply or a fallback
// tag. Provider faults never surface as errors; only context cancellation
// does.
type Result struct {
	Text         string `json:"text"`
	Model        string `json:"model,omitempty"`
	Provider     string `json:"provider,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`

	IsFallback bool           `json:"is_fallback"`
	Reason     FallbackReason `json:"reason,omitempty"`
}

type routedProvider struct {
	spec    Spec
	client  Client
	breaker *gobreaker.CircuitBreaker
}

// Router calls providers in configured order with per-attempt timeouts,
// sequential retries, and failover. Worst-case wall-clock latency is bounded
// by MaxLatency.
type Router struct {
	providers []routedProvider
	logger    *logger.Logger
}

// NewRouter builds a router from the ordered config. clients maps provider
// name to implementation; every configured provider must be present.
func NewRouter(cfg Config, clients map[string]Client, log *logger.Logger) (*Router, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("provider list is empty")
	}

	providers := make([]routedProvider, 0, len(cfg.Providers))
	for _, spec := range cfg.Providers {
		client, ok := clients[spec.Name]
		if !ok {
			return nil, fmt.Errorf("no client for configured provider %q", spec.Name)
		}
		if spec.Timeout <= 0 {
			return nil, fmt.Errorf("provider %q has no timeout", spec.Name)
		}
		providers = append(providers, routedProvider{
			spec:   spec,
			client: client,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:    spec.Name,
				Timeout: 30 * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= 5
				},
			}),
		})
	}

	return &Router{providers: providers, logger: log}, nil
}

// MaxLatency is the hard bound on Generate's wall-clock time: every
// provider's attempt budget times its timeout, plus retry backoff.
func (r *Router) MaxLatency() time.Duration {
	var total time.Duration
	for _, rp := range r.providers {
		attempts := time.Duration(rp.spec.MaxRetries + 1)
		total += rp.spec.Timeout*attempts + rp.spec.Backoff*time.Duration(rp.spec.MaxRetries)
	}
	return total
}

// Generate races each provider attempt against its timeout, retries
// transient faults up to the provider's budget, and fails over down the
// list. Exhaustion yields a fallback Result, never an error; the only error
// returned is the caller's own context ending.
func (r *Router) Generate(ctx context.Context, p *prompt.Prompt, cons Constraints) (*Result, error) {
	start := time.Now()
	lastReason := ReasonProviderError

	for i, rp := range r.providers {
		resp, fault, err := r.tryProvider(ctx, rp, p, cons)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			metrics.GenerationDuration.WithLabelValues(rp.spec.Name, "success").Observe(time.Since(start).Seconds())
			return &Result{
				Text:         resp.Text,
				Model:        resp.Model,
				Provider:     rp.spec.Name,
				InputTokens:  resp.InputTokens,
				OutputTokens: resp.OutputTokens,
			}, nil
		}
		if fault != nil {
			lastReason = fault.Reason
		}
		if i < len(r.providers)-1 {
			metrics.FailoversTotal.WithLabelValues(rp.spec.Name).Inc()
			r.logger.Warn("provider exhausted, failing over",
				zap.String("provider", rp.spec.Name),
				zap.String("reason", string(lastReason)),
			)
		}
	}

	metrics.FallbacksTotal.WithLabelValues(string(lastReason)).Inc()
	metrics.GenerationDuration.WithLabelValues("none", "fallback").Observe(time.Since(start).Seconds())
	r.logger.Error("all providers exhausted, returning fallback",
		zap.String("reason", string(lastReason)),
	)

	return &Result{IsFallback: true, Reason: lastReason}, nil
}

// tryProvider runs one provider's full attempt budget. A nil response with a
// nil error means the provider is exhausted and failover should proceed.
func (r *Router) tryProvider(ctx context.Context, rp routedProvider, p *prompt.Prompt, cons Constraints) (*Response, *Fault, error) {
	var resp *Response
	var lastFault *Fault

	op := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		attemptCtx, cancel := context.WithTimeout(ctx, rp.spec.Timeout)
		defer cancel()

		out, err := rp.breaker.Execute(func() (interface{}, error) {
			return rp.client.Generate(attemptCtx, p, cons)
		})
		if err == nil {
			resp = out.(*Response)
			metrics.ProviderAttemptsTotal.WithLabelValues(rp.spec.Name, "success").Inc()
			return nil
		}

		// A tripped breaker exhausts the provider without burning its
		// retry budget.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			lastFault = &Fault{Class: FaultTransient, Reason: ReasonProviderError, Provider: rp.spec.Name, Err: err}
			metrics.ProviderAttemptsTotal.WithLabelValues(rp.spec.Name, "breaker_open").Inc()
			return backoff.Permanent(err)
		}

		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		fault := classifyFault(rp.spec.Name, err)
		lastFault = fault
		metrics.ProviderAttemptsTotal.WithLabelValues(rp.spec.Name, string(fault.Reason)).Inc()

		if fault.Class == FaultPermanent {
			return backoff.Permanent(fault)
		}
		return fault
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(rp.spec.Backoff), uint64(rp.spec.MaxRetries))
	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	if err == nil {
		return resp, nil, nil
	}
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	return nil, lastFault, nil
}

// classifyFault normalizes arbitrary client errors into the fault taxonomy.
func classifyFault(providerName string, err error) *Fault {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Fault{Class: FaultTransient, Reason: ReasonTimeout, Provider: providerName, Err: err}
	}
	return &Fault{Class: FaultTransient, Reason: ReasonProviderError, Provider: providerName, Err: err}
}
