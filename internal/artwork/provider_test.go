package artwork

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/artfetch/internal/errors"
)

func newManagedProvider(p Provider, cfg func(*managedProvider)) *managedProvider {
	mp := &managedProvider{
		name:     "mock",
		provider: p,
		timeout:  time.Second,
		limiter:  newSlidingWindowLimiter(1000, time.Minute),
		breaker:  newCircuitBreaker(3, time.Minute),
		stats:    &providerStats{},
		logger:   discardLogger(),
		now:      time.Now,
	}
	mp.enabled.Store(true)
	if cfg != nil {
		cfg(mp)
	}
	return mp
}

func TestManagedProviderSuccess(t *testing.T) {
	t.Parallel()

	p := &mockProvider{}
	mp := newManagedProvider(p, nil)

	art, err := mp.fetch(context.Background(), "id1", "name")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/art.jpg", art.URL)
	assert.Equal(t, "mock", art.Source)

	m := mp.Metrics()
	assert.Equal(t, int64(1), m.TotalRequests)
	assert.Equal(t, int64(1), m.SuccessfulRequests)
	assert.Equal(t, "closed", m.CircuitState)
}

func TestManagedProviderNotFoundIsSuccess(t *testing.T) {
	t.Parallel()

	p := &mockProvider{
		fetchFunc: func(ctx context.Context, itemID, itemName string) (Artwork, error) {
			return Artwork{}, ErrArtworkNotFound
		},
	}
	mp := newManagedProvider(p, func(mp *managedProvider) {
		mp.breaker = newCircuitBreaker(1, time.Minute)
	})

	// A definitive miss never trips even a threshold-1 breaker.
	for i := 0; i < 5; i++ {
		art, err := mp.fetch(context.Background(), "id1", "name")
		require.NoError(t, err)
		assert.Empty(t, art.URL)
	}

	m := mp.Metrics()
	assert.Equal(t, int64(5), m.SuccessfulRequests)
	assert.Equal(t, "closed", m.CircuitState)
	assert.True(t, mp.IsAvailable())
}

func TestManagedProviderTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := &mockProvider{
		fetchFunc: func(ctx context.Context, itemID, itemName string) (Artwork, error) {
			<-release
			return Artwork{URL: "http://example.com/late.jpg"}, nil
		},
	}
	mp := newManagedProvider(p, func(mp *managedProvider) {
		mp.timeout = 30 * time.Millisecond
	})

	_, err := mp.fetch(context.Background(), "id1", "name")
	close(release)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchTimeout)

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, string(errors.CategoryTimeout), ee.GetCategory())

	m := mp.Metrics()
	assert.Equal(t, int64(1), m.FailedRequests)
	assert.Equal(t, 1, m.ConsecutiveFailures)
}

func TestManagedProviderFailuresTripBreaker(t *testing.T) {
	t.Parallel()

	p := &mockProvider{
		fetchFunc: func(ctx context.Context, itemID, itemName string) (Artwork, error) {
			return Artwork{}, errors.NewStd("connection refused")
		},
	}
	mp := newManagedProvider(p, nil)

	for i := 0; i < 3; i++ {
		_, err := mp.fetch(context.Background(), "id1", "name")
		require.Error(t, err)
	}

	assert.False(t, mp.IsAvailable(), "breaker should disable the provider after threshold failures")
	assert.Equal(t, 3, p.callCount())

	// Rejections while open happen before any provider call.
	_, err := mp.fetch(context.Background(), "id1", "name")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 3, p.callCount())
}

func TestManagedProviderDisabled(t *testing.T) {
	t.Parallel()

	p := &mockProvider{}
	mp := newManagedProvider(p, nil)
	mp.SetEnabled(false)

	_, err := mp.fetch(context.Background(), "id1", "name")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 0, p.callCount())
	assert.False(t, mp.IsAvailable())
}

func TestManagedProviderHealthCheck(t *testing.T) {
	t.Parallel()

	t.Run("provider without health check reports availability", func(t *testing.T) {
		t.Parallel()

		mp := newManagedProvider(&mockProvider{}, nil)
		h := mp.healthCheck(context.Background())
		assert.True(t, h.Healthy)
	})

	t.Run("failing health check reports error", func(t *testing.T) {
		t.Parallel()

		p := &healthCheckedProvider{}
		p.healthErr = errors.NewStd("backend down")
		mp := newManagedProvider(p, nil)

		h := mp.healthCheck(context.Background())
		assert.False(t, h.Healthy)
		assert.Equal(t, "backend down", h.Error)
	})
}

func TestErrorKindClassification(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errKindUnavailable, errorKind(ErrProviderUnavailable))
	assert.Equal(t, errKindTimeout, errorKind(ErrFetchTimeout))
	assert.Equal(t, errKindTimeout, errorKind(context.DeadlineExceeded))
	assert.Equal(t, errKindNotFound, errorKind(ErrArtworkNotFound))
	assert.Equal(t, errKindTransport, errorKind(errors.NewStd("boom")))
}
