package artwork

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tphakala/artfetch/internal/conf"
	"github.com/tphakala/artfetch/internal/observability/metrics"
)

// ConfigSnapshot reports the resolver configuration in Stats output.
type ConfigSnapshot struct {
	CacheTTL     time.Duration `json:"cache_ttl"`
	CacheMaxSize int           `json:"cache_max_size"`
	Persist      bool          `json:"persist"`
}

// Stats aggregates cache, provider, and global metric snapshots.
type Stats struct {
	Cache     CacheStats                  `json:"cache"`
	Providers map[string]ProviderSnapshot `json:"providers"`
	Global    GlobalMetrics               `json:"global"`
	Config    ConfigSnapshot              `json:"config"`
}

// Resolver is the public entry point of the artwork resolution engine. It
// checks the cache, deduplicates concurrent identical requests, drives the
// fallback chain, stores successful results, and aggregates statistics.
type Resolver struct {
	settings  *conf.Settings
	cache     *Cache
	persister *persister
	chain     *FallbackChain
	global    *globalStats
	flight    singleflight.Group
	metrics   *metrics.ArtworkMetrics
	logger    *slog.Logger
	quit      chan struct{}
}

// New creates a Resolver from settings. Providers are registered separately
// with RegisterProvider. The optional metrics parameter may be nil.
func New(settings *conf.Settings, m *metrics.ArtworkMetrics) *Resolver {
	logger := getLogger(settings.Debug)

	global := newGlobalStats()
	cache := NewCache(settings.Artwork.Cache.MaxSize, logger)

	r := &Resolver{
		settings: settings,
		cache:    cache,
		chain:    NewFallbackChain(global, logger),
		global:   global,
		metrics:  m,
		logger:   logger,
		quit:     make(chan struct{}),
	}

	if settings.Artwork.Cache.Persist {
		loadCacheFile(settings.Artwork.Cache.FilePath, cache, logger)
		r.persister = newPersister(settings.Artwork.Cache.FilePath, cache, settings.Artwork.Cache.Debounce, logger)
	}

	if settings.Artwork.Refresh.Enabled {
		go r.runRefresh()
	}

	return r
}

// RegisterProvider adds a provider to the fallback chain, using the
// provider's configuration block or defaults when none exists.
func (r *Resolver) RegisterProvider(name string, p Provider) {
	cfg, ok := r.settings.Artwork.Providers[name]
	if !ok {
		cfg = conf.DefaultProviderSettings()
	}
	r.chain.RegisterProvider(name, p, cfg)
}

// Resolve returns the artwork URL for an item, from cache when possible.
// Concurrent calls for the same (itemID, itemName) coalesce into a single
// chain walk and all receive the identical Result. Resolve never returns an
// error; internal failures surface as a Result with Source set to "error".
func (r *Resolver) Resolve(ctx context.Context, itemID, itemName string) Result {
	key := Key(itemID, itemName)

	v, _, _ := r.flight.Do(key, func() (any, error) {
		return r.resolve(ctx, key, itemID, itemName), nil
	})

	result, ok := v.(Result)
	if !ok {
		return Result{Source: SourceError}
	}
	return result
}

// resolve performs the uncoalesced resolution: cache, then chain, then store.
func (r *Resolver) resolve(ctx context.Context, key, itemID, itemName string) (result Result) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Panic during artwork resolution",
				"key", key, "panic", rec)
			r.global.recordFailure(errKindInternal)
			if r.metrics != nil {
				r.metrics.IncrementErrors(errKindInternal)
			}
			result = Result{Source: SourceError}.withElapsed(start, time.Now())
		}
	}()

	if entry, ok := r.cache.Get(key); ok {
		r.global.recordCacheHit()
		if r.metrics != nil {
			r.metrics.IncrementCacheHits()
		}
		return Result{
			URL:       entry.URL,
			Source:    entry.Source,
			FromCache: true,
		}.withElapsed(start, time.Now())
	}

	r.global.recordCacheMiss()
	if r.metrics != nil {
		r.metrics.IncrementCacheMisses()
	}

	// A chain walk runs to completion even if the caller stops waiting.
	result = r.chain.Fetch(context.WithoutCancel(ctx), itemID, itemName)

	if result.URL != "" {
		r.cache.Set(key, CacheEntry{
			URL:       result.URL,
			ItemID:    itemID,
			ItemName:  itemName,
			Source:    result.Source,
			CreatedAt: time.Now(),
			TTL:       r.settings.Artwork.Cache.TTL,
		})
		r.global.recordSuccess(result.Source, result.Elapsed)
		if r.metrics != nil {
			r.metrics.IncrementResolutions(result.Source)
			r.metrics.ObserveResolutionDuration(result.Elapsed.Seconds())
		}
	} else {
		r.global.recordFailure(result.Source)
		if r.metrics != nil {
			r.metrics.IncrementErrors(result.Source)
		}
	}

	if r.metrics != nil {
		r.metrics.SetCacheSize(float64(r.cache.Stats().Size))
	}

	return result
}

// ClearCache removes every cached entry.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
	r.logger.Info("Artwork cache cleared")
}

// InvalidateItem removes the cached entry for a single item.
func (r *Resolver) InvalidateItem(itemID, itemName string) bool {
	return r.cache.Invalidate(Key(itemID, itemName))
}

// ResetMetrics zeroes the global recorder and every provider's counters.
func (r *Resolver) ResetMetrics() {
	r.global.reset()
	r.chain.ResetMetrics()
	r.logger.Info("Artwork metrics reset")
}

// SetProviderEnabled switches a named provider in or out of rotation.
func (r *Resolver) SetProviderEnabled(name string, enabled bool) bool {
	return r.chain.SetProviderEnabled(name, enabled)
}

// HealthCheckAll probes every registered provider.
func (r *Resolver) HealthCheckAll(ctx context.Context) map[string]ProviderHealth {
	return r.chain.HealthCheckAll(ctx)
}

// Stats returns an aggregate snapshot of cache, provider, and global
// counters plus the active configuration.
func (r *Resolver) Stats() Stats {
	return Stats{
		Cache:     r.cache.Stats(),
		Providers: r.chain.Stats(),
		Global:    r.global.snapshot(),
		Config: ConfigSnapshot{
			CacheTTL:     r.settings.Artwork.Cache.TTL,
			CacheMaxSize: r.settings.Artwork.Cache.MaxSize,
			Persist:      r.settings.Artwork.Cache.Persist,
		},
	}
}

// Close stops background routines and flushes the cache to disk if
// persistence is enabled.
func (r *Resolver) Close() error {
	close(r.quit)
	if r.persister != nil {
		r.persister.Close()
	}
	return nil
}
