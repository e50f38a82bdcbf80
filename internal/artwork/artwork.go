// Package artwork resolves a representative artwork URL for a named media
// item by querying external art providers in priority order, caching
// successful results and isolating failing providers automatically.
package artwork

import (
	"strings"
	"time"
)

// Source sentinels used in a Result when no provider supplied a URL.
const (
	// SourceNone means no provider was enabled or registered.
	SourceNone = "no_sources_available"
	// SourceExhausted means every provider was tried without a result.
	SourceExhausted = "all_sources_failed"
	// SourceError means the resolution itself failed internally.
	SourceError = "error"
)

// Artwork represents a resolved artwork URL with its metadata.
type Artwork struct {
	URL      string    `json:"url"`
	ItemID   string    `json:"item_id"`
	ItemName string    `json:"item_name"`
	Source   string    `json:"source"`
	CachedAt time.Time `json:"cached_at"`
}

// Key returns the composite cache key for an item. Two lookups address the
// same cache entry exactly when their keys compare equal.
func Key(itemID, itemName string) string {
	return itemID + "|" + strings.ToLower(itemName)
}

// Result is the outcome of a single resolution. Source is either the name of
// the provider that supplied the URL or one of the Source* sentinels.
type Result struct {
	URL       string        `json:"url,omitempty"`
	Source    string        `json:"source"`
	FromCache bool          `json:"from_cache"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMs int64         `json:"elapsed_ms"`
}

// withElapsed stamps the result with the wall time since start.
func (r Result) withElapsed(start, now time.Time) Result {
	r.Elapsed = now.Sub(start)
	r.ElapsedMs = r.Elapsed.Milliseconds()
	return r
}
