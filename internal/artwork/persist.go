package artwork

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/artfetch/internal/errors"
)

const cacheFileVersion = 1

// cacheFile is the on-disk representation of a persisted cache snapshot.
type cacheFile struct {
	Version   int                   `json:"version"`
	Timestamp time.Time             `json:"timestamp"`
	Entries   map[string]CacheEntry `json:"entries"`
	Stats     cacheFileStats        `json:"stats"`
}

type cacheFileStats struct {
	Sets      int64 `json:"sets"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// persister writes cache snapshots to a flat file. Writes are debounced:
// rapid successive mutations coalesce into a single write once the cache has
// been quiet for the debounce window. The final flush on Close is
// synchronous. Writes never block cache reads or writes; they run on the
// persister's own goroutine from a point-in-time copy of the entries.
type persister struct {
	path     string
	cache    *Cache
	debounce time.Duration
	logger   *slog.Logger

	saveReq chan struct{}
	quit    chan struct{}
	done    chan struct{}
}

func newPersister(path string, cache *Cache, debounce time.Duration, logger *slog.Logger) *persister {
	if logger == nil {
		logger = discardLogger()
	}
	p := &persister{
		path:     path,
		cache:    cache,
		debounce: debounce,
		logger:   logger,
		saveReq:  make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	cache.setOnMutate(p.requestSave)
	go p.run()
	return p
}

// requestSave schedules a debounced write. Non-blocking; a pending request
// absorbs further ones.
func (p *persister) requestSave() {
	select {
	case p.saveReq <- struct{}{}:
	default:
	}
}

// run coalesces save requests and performs the actual writes.
func (p *persister) run() {
	defer close(p.done)

	timer := time.NewTimer(p.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-p.saveReq:
			// Restart the quiescence window on every mutation burst
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(p.debounce)
			pending = true
		case <-timer.C:
			pending = false
			if err := p.write(); err != nil {
				p.logger.Error("Failed to persist artwork cache", "path", p.path, "error", err)
			}
		case <-p.quit:
			if pending && !timer.Stop() {
				<-timer.C
			}
			// Final synchronous flush
			if err := p.write(); err != nil {
				p.logger.Error("Failed to flush artwork cache on shutdown", "path", p.path, "error", err)
			}
			return
		}
	}
}

// write serializes the live entries and writes them atomically: the snapshot
// goes to a temp file in the target directory, then renames over the target.
func (p *persister) write() error {
	stats := p.cache.Stats()
	snapshot := cacheFile{
		Version:   cacheFileVersion,
		Timestamp: time.Now(),
		Entries:   p.cache.Entries(),
		Stats: cacheFileStats{
			Sets:      stats.Sets,
			Evictions: stats.Evictions,
			Size:      stats.Size,
		},
	}

	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("artwork").
			Category(errors.CategoryArtworkCache).
			Context("operation", "marshal_cache_file").
			Build()
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".artwork-cache-*.json")
	if err != nil {
		return errors.New(err).
			Component("artwork").
			Category(errors.CategoryFileIO).
			Context("operation", "create_temp_cache_file").
			Build()
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New(err).
			Component("artwork").
			Category(errors.CategoryFileIO).
			Context("operation", "write_temp_cache_file").
			Build()
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, p.path); err != nil {
		return errors.New(err).
			Component("artwork").
			Category(errors.CategoryFileIO).
			Context("operation", "rename_cache_file").
			Build()
	}

	p.logger.Debug("Persisted artwork cache", "path", p.path, "entries", len(snapshot.Entries))
	return nil
}

// Close cancels any pending debounced write, performs one final synchronous
// flush, and stops the background goroutine.
func (p *persister) Close() {
	close(p.quit)
	<-p.done
}

// loadCacheFile restores previously persisted entries into the cache.
// Only non-expired entries are restored. A missing or undecodable file is
// not fatal; the cache simply starts empty.
func loadCacheFile(path string, cache *Cache, logger *slog.Logger) {
	if logger == nil {
		logger = discardLogger()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read artwork cache file, starting with empty cache",
				"path", path, "error", err)
		}
		return
	}

	var snapshot cacheFile
	if err := json.Unmarshal(data, &snapshot); err != nil {
		logger.Warn("Failed to decode artwork cache file, starting with empty cache",
			"path", path, "error", err)
		return
	}

	now := time.Now()
	live := make(map[string]CacheEntry, len(snapshot.Entries))
	for key, entry := range snapshot.Entries {
		if entry.expired(now) {
			continue
		}
		live[key] = entry
	}

	cache.restore(live, snapshot.Stats.Sets, snapshot.Stats.Evictions)
	logger.Info("Restored artwork cache from disk",
		"path", path,
		"entries", len(live),
		"skipped_expired", len(snapshot.Entries)-len(live))
}
