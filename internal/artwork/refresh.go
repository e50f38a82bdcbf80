package artwork

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// refreshStaleThreshold is the fraction of an entry's TTL after which the
// background loop considers it stale enough to refresh proactively.
const refreshStaleThreshold = 0.75

// runRefresh periodically re-resolves cache entries that are close to
// expiring so frequently requested items never serve a cold miss. Provider
// traffic from this loop is rate limited independently of user requests.
func (r *Resolver) runRefresh() {
	interval := r.settings.Artwork.Refresh.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	perSecond := r.settings.Artwork.Refresh.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	r.logger.Info("Starting artwork cache refresh routine",
		"interval", interval,
		"rate_per_second", perSecond)

	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			r.logger.Info("Stopping artwork cache refresh routine")
			return
		case <-ticker.C:
			r.refreshStaleEntries(limiter)
		}
	}
}

// refreshStaleEntries walks a snapshot of the cache and re-resolves entries
// past the staleness threshold. Expired entries are also swept here so the
// cache does not accumulate dead weight between reads.
func (r *Resolver) refreshStaleEntries(limiter *rate.Limiter) {
	if removed := r.cache.Cleanup(); removed > 0 {
		r.logger.Debug("Swept expired cache entries before refresh", "removed", removed)
	}

	now := time.Now()
	var stale []CacheEntry
	for _, entry := range r.cache.Entries() {
		age := now.Sub(entry.CreatedAt)
		if float64(age) >= float64(entry.TTL)*refreshStaleThreshold {
			stale = append(stale, entry)
		}
	}
	if len(stale) == 0 {
		return
	}

	r.logger.Debug("Refreshing stale artwork cache entries", "count", len(stale))

	for _, entry := range stale {
		select {
		case <-r.quit:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := limiter.Wait(ctx); err != nil {
			cancel()
			return
		}
		r.refreshEntry(ctx, entry)
		cancel()
	}
}

// refreshEntry re-resolves a single entry through the chain. A successful
// fetch replaces the entry with a fresh TTL; a failed fetch leaves the
// existing entry alone so it keeps serving until it genuinely expires.
func (r *Resolver) refreshEntry(ctx context.Context, entry CacheEntry) {
	result := r.chain.Fetch(ctx, entry.ItemID, entry.ItemName)
	if result.URL == "" {
		r.logger.Debug("Stale entry refresh yielded no artwork, keeping existing entry",
			"key", entry.Key, "source", result.Source)
		return
	}

	r.cache.Set(entry.Key, CacheEntry{
		URL:       result.URL,
		ItemID:    entry.ItemID,
		ItemName:  entry.ItemName,
		Source:    result.Source,
		CreatedAt: time.Now(),
		TTL:       r.settings.Artwork.Cache.TTL,
	})
}
