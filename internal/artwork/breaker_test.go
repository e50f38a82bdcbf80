package artwork

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int, cooldown time.Duration) (*circuitBreaker, *time.Time) {
	cb := newCircuitBreaker(threshold, cooldown)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return current }
	return cb, &current
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		require.NoError(t, cb.Allow())
		cb.RecordFailure()
	}
	assert.Equal(t, stateClosed, cb.State(), "below threshold the circuit stays closed")

	require.NoError(t, cb.Allow())
	cb.RecordFailure()

	assert.Equal(t, stateOpen, cb.State())
	assert.True(t, cb.TemporarilyDisabled())
	assert.ErrorIs(t, cb.Allow(), ErrProviderUnavailable)
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, 0, cb.ConsecutiveFailures())

	// The streak restarts from zero, so two more failures don't open it.
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, stateClosed, cb.State())
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	t.Parallel()

	cb, now := newTestBreaker(1, time.Minute)
	cb.RecordFailure()
	require.Equal(t, stateOpen, cb.State())

	// Before the cooldown elapses, everything is rejected.
	assert.ErrorIs(t, cb.Allow(), ErrProviderUnavailable)

	*now = now.Add(time.Minute + time.Second)
	assert.False(t, cb.TemporarilyDisabled(), "elapsed cooldown permits a probe")

	// Exactly one probe goes through.
	require.NoError(t, cb.Allow())
	assert.Equal(t, stateHalfOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrProviderUnavailable, "second concurrent probe is rejected")
}

func TestBreakerProbeOutcomes(t *testing.T) {
	t.Parallel()

	t.Run("successful probe closes", func(t *testing.T) {
		t.Parallel()

		cb, now := newTestBreaker(1, time.Minute)
		cb.RecordFailure()
		*now = now.Add(2 * time.Minute)

		require.NoError(t, cb.Allow())
		cb.RecordSuccess()

		assert.Equal(t, stateClosed, cb.State())
		assert.Equal(t, 0, cb.ConsecutiveFailures())
		assert.NoError(t, cb.Allow())
	})

	t.Run("failed probe reopens with fresh cooldown", func(t *testing.T) {
		t.Parallel()

		cb, now := newTestBreaker(1, time.Minute)
		cb.RecordFailure()
		firstDeadline := cb.NextAttemptAt()

		*now = now.Add(2 * time.Minute)
		require.NoError(t, cb.Allow())
		cb.RecordFailure()

		assert.Equal(t, stateOpen, cb.State())
		assert.True(t, cb.NextAttemptAt().After(firstDeadline), "cooldown restarts after a failed probe")
		assert.ErrorIs(t, cb.Allow(), ErrProviderUnavailable)
	})
}

func TestBreakerForceOverrides(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(5, time.Minute)

	cb.ForceOpen()
	assert.Equal(t, stateOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrProviderUnavailable)

	cb.ForceClose()
	assert.Equal(t, stateClosed, cb.State())
	assert.Equal(t, 0, cb.ConsecutiveFailures())
	assert.NoError(t, cb.Allow())
}
