package provider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachwell-ai/coaching-engine/internal/prompt"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
)

type fakeClient struct {
	name  string
	calls int32
	fn    func(ctx context.Context) (*Response, error)
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Generate(ctx context.Context, p *prompt.Prompt, c Constraints) (*Response, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(ctx)
}

func succeedWith(text string) func(ctx context.Context) (*Response, error) {
	return func(ctx context.Context) (*Response, error) {
		return &Response{Text: text, Model: "m", InputTokens: 10, OutputTokens: 20}, nil
	}
}

func alwaysTimeout(name string) func(ctx context.Context) (*Response, error) {
	return func(ctx context.Context) (*Response, error) {
		<-ctx.Done()
		return nil, &Fault{Class: FaultTransient, Reason: ReasonTimeout, Provider: name, Err: ctx.Err()}
	}
}

func testSpec(name string, retries int) Spec {
	return Spec{
		Name:       name,
		Timeout:    30 * time.Millisecond,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
	}
}

func newTestRouter(t *testing.T, specs []Spec, clients ...*fakeClient) *Router {
	t.Helper()
	byName := make(map[string]Client, len(clients))
	for _, c := range clients {
		byName[c.name] = c
	}
	r, err := NewRouter(Config{Providers: specs}, byName, logger.NewNop())
	require.NoError(t, err)
	return r
}

func TestGenerateFirstProviderSucceeds(t *testing.T) {
	primary := &fakeClient{name: "primary", fn: succeedWith("hello")}
	secondary := &fakeClient{name: "secondary", fn: succeedWith("unused")}
	r := newTestRouter(t, []Spec{testSpec("primary", 2), testSpec("secondary", 2)}, primary, secondary)

	res, err := r.Generate(context.Background(), &prompt.Prompt{}, Constraints{})

	require.NoError(t, err)
	assert.False(t, res.IsFallback)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "primary", res.Provider)
	assert.EqualValues(t, 1, atomic.LoadInt32(&primary.calls))
	assert.Zero(t, atomic.LoadInt32(&secondary.calls))
}

func TestGenerateRetriesTransientThenFailsOver(t *testing.T) {
	rateLimited := &fakeClient{name: "primary", fn: func(ctx context.Context) (*Response, error) {
		return nil, &Fault{Class: FaultTransient, Reason: ReasonRateLimit, Provider: "primary", Err: errors.New("429")}
	}}
	secondary := &fakeClient{name: "secondary", fn: succeedWith("from backup")}
	r := newTestRouter(t, []Spec{testSpec("primary", 2), testSpec("secondary", 2)}, rateLimited, secondary)

	res, err := r.Generate(context.Background(), &prompt.Prompt{}, Constraints{})

	require.NoError(t, err)
	assert.Equal(t, "from backup", res.Text)
	assert.Equal(t, "secondary", res.Provider)
	// Initial attempt plus the full retry budget before failover.
	assert.EqualValues(t, 3, atomic.LoadInt32(&rateLimited.calls))
}

func TestGeneratePermanentFaultSkipsRetry(t *testing.T) {
	badAuth := &fakeClient{name: "primary", fn: func(ctx context.Context) (*Response, error) {
		return nil, &Fault{Class: FaultPermanent, Reason: ReasonProviderError, Provider: "primary", Err: errors.New("401")}
	}}
	secondary := &fakeClient{name: "secondary", fn: succeedWith("from backup")}
	r := newTestRouter(t, []Spec{testSpec("primary", 3), testSpec("secondary", 1)}, badAuth, secondary)

	res, err := r.Generate(context.Background(), &prompt.Prompt{}, Constraints{})

	require.NoError(t, err)
	assert.Equal(t, "from backup", res.Text)
	assert.EqualValues(t, 1, atomic.LoadInt32(&badAuth.calls))
}

func TestGenerateExhaustionReturnsFallbackWithinBound(t *testing.T) {
	primary := &fakeClient{name: "primary", fn: alwaysTimeout("primary")}
	secondary := &fakeClient{name: "secondary", fn: alwaysTimeout("secondary")}
	r := newTestRouter(t, []Spec{testSpec("primary", 2), testSpec("secondary", 2)}, primary, secondary)

	start := time.Now()
	res, err := r.Generate(context.Background(), &prompt.Prompt{}, Constraints{})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, res.IsFallback)
	assert.Equal(t, ReasonTimeout, res.Reason)
	assert.Empty(t, res.Text)
	// The latency invariant: exhaustion terminates within the configured
	// bound (plus scheduler slack).
	assert.Less(t, elapsed, r.MaxLatency()+100*time.Millisecond)
}

func TestGenerateFallbackReasonReflectsLastFault(t *testing.T) {
	rateLimited := &fakeClient{name: "primary", fn: func(ctx context.Context) (*Response, error) {
		return nil, &Fault{Class: FaultTransient, Reason: ReasonRateLimit, Provider: "primary", Err: errors.New("429")}
	}}
	r := newTestRouter(t, []Spec{testSpec("primary", 0)}, rateLimited)

	res, err := r.Generate(context.Background(), &prompt.Prompt{}, Constraints{})

	require.NoError(t, err)
	assert.True(t, res.IsFallback)
	assert.Equal(t, ReasonRateLimit, res.Reason)
}

func TestGenerateCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := &fakeClient{name: "primary", fn: func(c context.Context) (*Response, error) {
		cancel()
		<-c.Done()
		return nil, c.Err()
	}}
	r := newTestRouter(t, []Spec{testSpec("primary", 5)}, slow)

	res, err := r.Generate(ctx, &prompt.Prompt{}, Constraints{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	// No retries after the caller walked away.
	assert.EqualValues(t, 1, atomic.LoadInt32(&slow.calls))
}

func TestMaxLatencyBound(t *testing.T) {
	specs := []Spec{
		{Name: "a", Timeout: 100 * time.Millisecond, MaxRetries: 2, Backoff: 10 * time.Millisecond},
		{Name: "b", Timeout: 200 * time.Millisecond, MaxRetries: 1, Backoff: 10 * time.Millisecond},
	}
	a := &fakeClient{name: "a", fn: succeedWith("x")}
	b := &fakeClient{name: "b", fn: succeedWith("x")}
	r := newTestRouter(t, specs, a, b)

	// a: 3 attempts x 100ms + 2 x 10ms backoff; b: 2 x 200ms + 1 x 10ms.
	assert.Equal(t, 730*time.Millisecond, r.MaxLatency())
}

func TestNewRouterRejectsMissingClient(t *testing.T) {
	_, err := NewRouter(Config{Providers: []Spec{testSpec("ghost", 1)}}, nil, logger.NewNop())
	assert.Error(t, err)
}
