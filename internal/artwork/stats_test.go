package artwork

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/artfetch/internal/errors"
)

func TestRollingWindowAverage(t *testing.T) {
	t.Parallel()

	var w rollingWindow
	assert.Zero(t, w.averageMs(), "empty window averages to zero")

	w.add(100 * time.Millisecond)
	w.add(300 * time.Millisecond)
	assert.InDelta(t, 200, w.averageMs(), 0.001)
}

func TestRollingWindowBoundsSamples(t *testing.T) {
	t.Parallel()

	var w rollingWindow
	// Fill the window with slow samples, then overwrite it with fast ones.
	for i := 0; i < responseTimeWindow; i++ {
		w.add(time.Second)
	}
	assert.InDelta(t, 1000, w.averageMs(), 0.001)

	for i := 0; i < responseTimeWindow; i++ {
		w.add(10 * time.Millisecond)
	}
	assert.InDelta(t, 10, w.averageMs(), 0.001, "old samples beyond the window no longer count")
}

func TestProviderStatsLifecycle(t *testing.T) {
	t.Parallel()

	s := &providerStats{}
	s.recordSuccess(100 * time.Millisecond)
	s.recordFailure(200*time.Millisecond, errors.NewStd("boom"))

	snap := s.snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.SuccessfulRequests)
	assert.Equal(t, int64(1), snap.FailedRequests)
	assert.Equal(t, "boom", snap.LastError)
	assert.False(t, snap.LastSuccessAt.IsZero())
	assert.InDelta(t, 150, snap.AverageResponseTimeMs, 0.001)

	s.reset()
	snap = s.snapshot()
	assert.Zero(t, snap.TotalRequests)
	assert.Empty(t, snap.LastError)
	assert.True(t, snap.LastSuccessAt.IsZero())
}

func TestGlobalStatsSnapshotIsolation(t *testing.T) {
	t.Parallel()

	g := newGlobalStats()
	g.recordSuccess("wikipedia", 50*time.Millisecond)
	g.recordFailure(SourceExhausted)
	g.recordCacheHit()
	g.recordCacheMiss()

	snap := g.snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.SuccessfulRequests)
	assert.Equal(t, int64(1), snap.FailedRequests)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)
	assert.Equal(t, int64(1), snap.BySource["wikipedia"])

	// Mutating the snapshot maps must not touch the live counters.
	snap.BySource["wikipedia"] = 99
	assert.Equal(t, int64(1), g.snapshot().BySource["wikipedia"])
}

func TestGlobalStatsReset(t *testing.T) {
	t.Parallel()

	g := newGlobalStats()
	g.recordSuccess("p", time.Millisecond)
	g.recordErrorKind(errKindTimeout)
	g.reset()

	snap := g.snapshot()
	assert.Zero(t, snap.TotalRequests)
	assert.Empty(t, snap.BySource)
	assert.Empty(t, snap.ByErrorKind)
	assert.Zero(t, snap.AverageResolutionMs)
}
