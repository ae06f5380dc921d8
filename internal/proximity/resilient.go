package proximity

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/tank-risk/internal/resilience"
)

// ResilientConfig configures the Resilient decorator.
type ResilientConfig struct {
	// RatePerSecond limits calls to the wrapped service. Zero disables
	// limiting.
	RatePerSecond float64
	Burst         int
	Retry         resilience.RetryConfig
	Breaker       resilience.CircuitBreakerConfig
}

// Resilient wraps a Service with a rate limiter, a circuit breaker, and
// retries with exponential backoff on transient failures.
type Resilient struct {
	next    Service
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewResilient decorates next.
func NewResilient(next Service, cfg ResilientConfig) *Resilient {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "proximity"
	}
	return &Resilient{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.NewCircuitBreaker(cfg.Breaker),
		retry:   cfg.Retry,
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (r *Resilient) Breaker() *resilience.CircuitBreaker {
	return r.breaker
}

// GenerateNearTable implements Service.
func (r *Resilient) GenerateNearTable(ctx context.Context, assets, risk string) ([]NearRow, error) {
	return call(ctx, r, "near_table", risk, func(ctx context.Context) ([]NearRow, error) {
		return r.next.GenerateNearTable(ctx, assets, risk)
	})
}

// JoinAttributes implements Service.
func (r *Resilient) JoinAttributes(ctx context.Context, risk string, targetIDs []int64, columns []string) (map[int64]map[string]any, error) {
	return call(ctx, r, "join_attributes", risk, func(ctx context.Context) (map[int64]map[string]any, error) {
		return r.next.JoinAttributes(ctx, risk, targetIDs, columns)
	})
}

// Fields implements Service.
func (r *Resilient) Fields(ctx context.Context, layer string) ([]string, error) {
	return call(ctx, r, "fields", layer, func(ctx context.Context) ([]string, error) {
		return r.next.Fields(ctx, layer)
	})
}

func call[T any](ctx context.Context, r *Resilient, op, layer string, fn func(context.Context) (T, error)) (T, error) {
	cfg := r.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(op, layer)
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		var zero T
		if err := r.limiter.Wait(ctx); err != nil {
			return zero, eris.Wrap(err, "proximity: rate limit wait")
		}
		return resilience.ExecuteVal(ctx, r.breaker, fn)
	})
}
