package artwork

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tphakala/artfetch/internal/errors"
)

// Provider is implemented by any source able to attempt artwork resolution.
// Fetch returns ErrArtworkNotFound (or an Artwork with an empty URL) when the
// provider answered definitively but has no artwork for the item. Any other
// error is treated as a provider failure.
type Provider interface {
	Fetch(ctx context.Context, itemID, itemName string) (Artwork, error)
}

// HealthChecker is optionally implemented by providers that can probe their
// backend. Providers without it are reported healthy while available.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Sentinel errors surfaced by providers and the execution wrapper.
var (
	// ErrArtworkNotFound means the provider answered but has no artwork
	// for the item. It is a successful attempt with an empty result.
	ErrArtworkNotFound = errors.NewStd("artwork not found")
	// ErrProviderUnavailable means the provider is disabled or its circuit
	// is open; the attempt was rejected before any network call.
	ErrProviderUnavailable = errors.NewStd("provider unavailable")
	// ErrFetchTimeout means the attempt exceeded its allotted time.
	ErrFetchTimeout = errors.NewStd("artwork fetch timed out")
)

// Error kind labels used in global per-kind tallies.
const (
	errKindUnavailable = "unavailable"
	errKindTimeout     = "timeout"
	errKindNotFound    = "not_found"
	errKindTransport   = "transport"
	errKindInternal    = "internal"
)

// errorKind classifies a provider error for metrics tallies.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrProviderUnavailable):
		return errKindUnavailable
	case errors.Is(err, ErrFetchTimeout), errors.Is(err, context.DeadlineExceeded):
		return errKindTimeout
	case errors.Is(err, ErrArtworkNotFound):
		return errKindNotFound
	default:
		return errKindTransport
	}
}

// managedProvider wraps a Provider with the shared execution policy every
// source goes through: availability pre-check, rate limiting, circuit
// breaking, a hard timeout race, and metrics recording.
type managedProvider struct {
	name     string
	provider Provider
	priority int
	regSeq   int // registration order, breaks priority ties
	timeout  time.Duration

	enabled atomic.Bool
	limiter *slidingWindowLimiter
	breaker *circuitBreaker
	stats   *providerStats

	logger *slog.Logger
	now    func() time.Time
}

// SetEnabled switches the provider in or out of rotation.
func (mp *managedProvider) SetEnabled(enabled bool) {
	mp.enabled.Store(enabled)
}

// Enabled reports whether the provider is administratively enabled.
func (mp *managedProvider) Enabled() bool {
	return mp.enabled.Load()
}

// IsAvailable reports whether the provider can be attempted right now:
// enabled and not temporarily disabled by its circuit breaker.
func (mp *managedProvider) IsAvailable() bool {
	return mp.enabled.Load() && !mp.breaker.TemporarilyDisabled()
}

// Metrics returns a point-in-time snapshot of the provider's metrics.
func (mp *managedProvider) Metrics() ProviderMetrics {
	m := mp.stats.snapshot()
	m.ConsecutiveFailures = mp.breaker.ConsecutiveFailures()
	m.TemporarilyDisabled = mp.breaker.TemporarilyDisabled()
	m.CircuitState = mp.breaker.State().String()
	return m
}

type fetchOutcome struct {
	art Artwork
	err error
}

// fetch performs one guarded attempt against the underlying provider.
// A nil error with an empty URL means the provider answered definitively
// "not found"; the attempt still counts as a success for circuit-breaker
// purposes.
func (mp *managedProvider) fetch(ctx context.Context, itemID, itemName string) (Artwork, error) {
	if !mp.enabled.Load() {
		return Artwork{}, ErrProviderUnavailable
	}
	if err := mp.breaker.Allow(); err != nil {
		return Artwork{}, err
	}
	if err := mp.limiter.Wait(ctx); err != nil {
		return Artwork{}, err
	}

	fctx, cancel := context.WithTimeout(ctx, mp.timeout)
	defer cancel()

	// Race the fetch against the timeout. The channel is buffered so an
	// abandoned attempt can still deliver its result and exit.
	outcome := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				outcome <- fetchOutcome{err: errors.Newf("provider panic: %v", rec).
					Component("artwork").
					Category(errors.CategoryArtworkProvider).
					Context("provider", mp.name).
					Build()}
			}
		}()
		art, err := mp.provider.Fetch(fctx, itemID, itemName)
		outcome <- fetchOutcome{art: art, err: err}
	}()

	start := mp.now()
	var out fetchOutcome
	select {
	case out = <-outcome:
	case <-fctx.Done():
		out = fetchOutcome{err: ErrFetchTimeout}
	}
	elapsed := mp.now().Sub(start)

	switch {
	case out.err == nil, errors.Is(out.err, ErrArtworkNotFound):
		// A definitive "no artwork" answer is a successful attempt.
		mp.stats.recordSuccess(elapsed)
		mp.breaker.RecordSuccess()
		if out.err != nil || out.art.URL == "" {
			return Artwork{}, nil
		}
		art := out.art
		art.Source = mp.name
		return art, nil
	case errors.Is(out.err, ErrFetchTimeout), errors.Is(out.err, context.DeadlineExceeded):
		mp.stats.recordFailure(elapsed, ErrFetchTimeout)
		mp.breaker.RecordFailure()
		return Artwork{}, errors.New(ErrFetchTimeout).
			Component("artwork").
			Category(errors.CategoryTimeout).
			Context("provider", mp.name).
			Timing("fetch", elapsed).
			Build()
	default:
		mp.stats.recordFailure(elapsed, out.err)
		mp.breaker.RecordFailure()
		return Artwork{}, out.err
	}
}

// healthCheck probes the provider, measuring round-trip latency.
func (mp *managedProvider) healthCheck(ctx context.Context) ProviderHealth {
	start := mp.now()
	hc, ok := mp.provider.(HealthChecker)
	if !ok {
		return ProviderHealth{Healthy: mp.IsAvailable()}
	}

	err := hc.HealthCheck(ctx)
	health := ProviderHealth{
		Healthy: err == nil,
		Latency: mp.now().Sub(start),
	}
	if err != nil {
		health.Error = err.Error()
	}
	return health
}
