package artwork

import (
	"maps"
	"sync"
	"time"
)

// responseTimeWindow bounds the rolling sample set used for average
// response-time calculations.
const responseTimeWindow = 100

// ProviderMetrics is a point-in-time snapshot of a single provider's
// counters, read by the orchestrator and external monitoring.
type ProviderMetrics struct {
	TotalRequests         int64     `json:"total_requests"`
	SuccessfulRequests    int64     `json:"successful_requests"`
	FailedRequests        int64     `json:"failed_requests"`
	ConsecutiveFailures   int       `json:"consecutive_failures"`
	AverageResponseTimeMs float64   `json:"average_response_time_ms"`
	LastError             string    `json:"last_error,omitempty"`
	LastSuccessAt         time.Time `json:"last_success_at,omitzero"`
	TemporarilyDisabled   bool      `json:"temporarily_disabled"`
	CircuitState          string    `json:"circuit_state"`
}

// ProviderHealth is the outcome of a single provider health probe.
type ProviderHealth struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
}

// rollingWindow keeps the last responseTimeWindow duration samples.
type rollingWindow struct {
	samples []time.Duration
	next    int
	filled  bool
}

func (w *rollingWindow) add(d time.Duration) {
	if w.samples == nil {
		w.samples = make([]time.Duration, responseTimeWindow)
	}
	w.samples[w.next] = d
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.filled = true
	}
}

func (w *rollingWindow) averageMs() float64 {
	n := w.next
	if w.filled {
		n = len(w.samples)
	}
	if n == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < n; i++ {
		total += w.samples[i]
	}
	return float64(total.Milliseconds()) / float64(n)
}

// providerStats holds the counters owned by a single provider. They are
// mutated only by the provider's own request-completion path.
type providerStats struct {
	mu            sync.Mutex
	total         int64
	successful    int64
	failed        int64
	window        rollingWindow
	lastError     string
	lastSuccessAt time.Time
}

func (s *providerStats) recordSuccess(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.successful++
	s.window.add(elapsed)
	s.lastSuccessAt = time.Now()
}

func (s *providerStats) recordFailure(elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.failed++
	s.window.add(elapsed)
	if err != nil {
		s.lastError = err.Error()
	}
}

func (s *providerStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = 0
	s.successful = 0
	s.failed = 0
	s.window = rollingWindow{}
	s.lastError = ""
	s.lastSuccessAt = time.Time{}
}

func (s *providerStats) snapshot() ProviderMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ProviderMetrics{
		TotalRequests:         s.total,
		SuccessfulRequests:    s.successful,
		FailedRequests:        s.failed,
		AverageResponseTimeMs: s.window.averageMs(),
		LastError:             s.lastError,
		LastSuccessAt:         s.lastSuccessAt,
	}
}

// GlobalMetrics is a snapshot of the orchestrator-owned aggregate counters,
// independent of per-provider metrics and reset independently.
type GlobalMetrics struct {
	TotalRequests       int64            `json:"total_requests"`
	SuccessfulRequests  int64            `json:"successful_requests"`
	FailedRequests      int64            `json:"failed_requests"`
	CacheHits           int64            `json:"cache_hits"`
	CacheMisses         int64            `json:"cache_misses"`
	BySource            map[string]int64 `json:"by_source"`
	ByErrorKind         map[string]int64 `json:"by_error_kind"`
	AverageResolutionMs float64          `json:"average_resolution_ms"`
}

// globalStats aggregates resolution outcomes across all providers.
type globalStats struct {
	mu          sync.Mutex
	total       int64
	successful  int64
	failed      int64
	cacheHits   int64
	cacheMisses int64
	bySource    map[string]int64
	byErrorKind map[string]int64
	window      rollingWindow
}

func newGlobalStats() *globalStats {
	return &globalStats{
		bySource:    make(map[string]int64),
		byErrorKind: make(map[string]int64),
	}
}

func (g *globalStats) recordSuccess(source string, elapsed time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.total++
	g.successful++
	g.bySource[source]++
	g.window.add(elapsed)
}

func (g *globalStats) recordFailure(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.total++
	g.failed++
	g.byErrorKind[reason]++
}

// recordErrorKind tallies a provider error without counting a resolution,
// used for mid-chain failures that the walk recovers from.
func (g *globalStats) recordErrorKind(kind string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byErrorKind[kind]++
}

func (g *globalStats) recordCacheHit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cacheHits++
}

func (g *globalStats) recordCacheMiss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cacheMisses++
}

func (g *globalStats) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.total = 0
	g.successful = 0
	g.failed = 0
	g.cacheHits = 0
	g.cacheMisses = 0
	g.bySource = make(map[string]int64)
	g.byErrorKind = make(map[string]int64)
	g.window = rollingWindow{}
}

func (g *globalStats) snapshot() GlobalMetrics {
	g.mu.Lock()
	defer g.mu.Unlock()

	return GlobalMetrics{
		TotalRequests:       g.total,
		SuccessfulRequests:  g.successful,
		FailedRequests:      g.failed,
		CacheHits:           g.cacheHits,
		CacheMisses:         g.cacheMisses,
		BySource:            maps.Clone(g.bySource),
		ByErrorKind:         maps.Clone(g.byErrorKind),
		AverageResolutionMs: g.window.averageMs(),
	}
}
