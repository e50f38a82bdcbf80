package artwork

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tphakala/artfetch/internal/conf"
)

const (
	healthCacheKey        = "healthcheck_all"
	healthCacheTTL        = 30 * time.Second
	healthCheckTimeout    = 10 * time.Second
	healthCacheSweepEvery = 5 * time.Minute
)

// ProviderSnapshot combines a provider's metrics with its chain position.
type ProviderSnapshot struct {
	ProviderMetrics
	Enabled   bool `json:"enabled"`
	Available bool `json:"available"`
	Priority  int  `json:"priority"`
}

// FallbackChain orders enabled providers by ascending priority and attempts
// each in turn until one yields a result or all are exhausted.
type FallbackChain struct {
	mu        sync.RWMutex
	providers []*managedProvider
	global    *globalStats

	// Health probe results are cached briefly so monitoring pollers don't
	// hammer provider backends.
	healthCache *gocache.Cache
	logger      *slog.Logger
}

// NewFallbackChain creates an empty chain. Global failure tallies are
// recorded into global, which is owned by the orchestrator.
func NewFallbackChain(global *globalStats, logger *slog.Logger) *FallbackChain {
	if logger == nil {
		logger = discardLogger()
	}
	return &FallbackChain{
		global:      global,
		healthCache: gocache.New(healthCacheTTL, healthCacheSweepEvery),
		logger:      logger,
	}
}

// RegisterProvider adds a provider to the chain with its configuration.
// Registration order breaks priority ties.
func (fc *FallbackChain) RegisterProvider(name string, p Provider, cfg conf.ProviderSettings) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	mp := &managedProvider{
		name:     name,
		provider: p,
		priority: cfg.Priority,
		regSeq:   len(fc.providers),
		timeout:  cfg.Timeout,
		limiter:  newSlidingWindowLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
		breaker:  newCircuitBreaker(cfg.Breaker.Threshold, cfg.Breaker.Cooldown),
		stats:    &providerStats{},
		logger:   fc.logger.With("provider", name),
		now:      time.Now,
	}
	mp.enabled.Store(cfg.Enabled)
	fc.providers = append(fc.providers, mp)

	fc.logger.Info("Registered artwork provider",
		"provider", name,
		"priority", cfg.Priority,
		"enabled", cfg.Enabled)
}

// Fetch walks the chain for the given item. Provider errors never escape;
// they are recorded and converted into "try next provider".
func (fc *FallbackChain) Fetch(ctx context.Context, itemID, itemName string) Result {
	start := time.Now()

	ordered := fc.orderedProviders()
	if len(ordered) == 0 {
		return Result{Source: SourceNone}.withElapsed(start, time.Now())
	}

	for _, mp := range ordered {
		if !mp.IsAvailable() {
			continue
		}

		art, err := mp.fetch(ctx, itemID, itemName)
		if err != nil {
			kind := errorKind(err)
			fc.global.recordErrorKind(kind)
			mp.logger.Debug("Provider attempt failed",
				"item_id", itemID,
				"item_name", itemName,
				"kind", kind,
				"error", err)
			continue
		}
		if art.URL == "" {
			// Provider answered definitively with no artwork; not a failure.
			mp.logger.Debug("Provider has no artwork for item",
				"item_id", itemID,
				"item_name", itemName)
			continue
		}

		return Result{URL: art.URL, Source: mp.name}.withElapsed(start, time.Now())
	}

	return Result{Source: SourceExhausted}.withElapsed(start, time.Now())
}

// orderedProviders returns the enabled providers sorted by ascending
// priority, ties broken by registration order.
func (fc *FallbackChain) orderedProviders() []*managedProvider {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	ordered := make([]*managedProvider, 0, len(fc.providers))
	for _, mp := range fc.providers {
		if mp.Enabled() {
			ordered = append(ordered, mp)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority < ordered[j].priority
		}
		return ordered[i].regSeq < ordered[j].regSeq
	})
	return ordered
}

// provider looks up a registered provider by name.
func (fc *FallbackChain) provider(name string) (*managedProvider, bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	for _, mp := range fc.providers {
		if mp.name == name {
			return mp, true
		}
	}
	return nil, false
}

// all returns every registered provider regardless of enabled state.
func (fc *FallbackChain) all() []*managedProvider {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	out := make([]*managedProvider, len(fc.providers))
	copy(out, fc.providers)
	return out
}

// HealthCheckAll probes every registered provider, returning per-provider
// health. Results are cached for a short period.
func (fc *FallbackChain) HealthCheckAll(ctx context.Context) map[string]ProviderHealth {
	if cached, found := fc.healthCache.Get(healthCacheKey); found {
		if health, ok := cached.(map[string]ProviderHealth); ok {
			return health
		}
	}

	health := make(map[string]ProviderHealth)
	for _, mp := range fc.all() {
		probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		health[mp.name] = mp.healthCheck(probeCtx)
		cancel()
	}

	fc.healthCache.Set(healthCacheKey, health, gocache.DefaultExpiration)
	return health
}

// Stats returns a snapshot of every provider's metrics and chain position.
func (fc *FallbackChain) Stats() map[string]ProviderSnapshot {
	out := make(map[string]ProviderSnapshot)
	for _, mp := range fc.all() {
		out[mp.name] = ProviderSnapshot{
			ProviderMetrics: mp.Metrics(),
			Enabled:         mp.Enabled(),
			Available:       mp.IsAvailable(),
			Priority:        mp.priority,
		}
	}
	return out
}

// SetProviderEnabled switches a named provider in or out of rotation,
// reporting whether the provider exists. Re-enabling also force-closes the
// circuit so the provider re-enters rotation immediately.
func (fc *FallbackChain) SetProviderEnabled(name string, enabled bool) bool {
	mp, ok := fc.provider(name)
	if !ok {
		return false
	}
	mp.SetEnabled(enabled)
	if enabled {
		mp.breaker.ForceClose()
	}
	fc.logger.Info("Provider enabled state changed", "provider", name, "enabled", enabled)
	return true
}

// ResetMetrics zeroes every provider's counters.
func (fc *FallbackChain) ResetMetrics() {
	for _, mp := range fc.all() {
		mp.stats.reset()
	}
}
