package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/payment-core/internal/transaction"
)

const provider = transaction.ProviderSadad

func TestBreaker_StartsClosed(t *testing.T) {
	b := New()
	assert.True(t, b.Allow(provider))
	assert.Equal(t, Closed, b.CurrentState(provider))
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewWithSettings(3, time.Minute, 1)

	b.RecordFailure(provider)
	b.RecordFailure(provider)
	assert.True(t, b.Allow(provider), "below threshold the circuit stays closed")

	b.RecordFailure(provider)
	assert.Equal(t, Open, b.CurrentState(provider))
	assert.False(t, b.Allow(provider))

	// Other providers are unaffected.
	assert.True(t, b.Allow(transaction.ProviderSep))
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	b := NewWithSettings(3, time.Minute, 1)

	b.RecordFailure(provider)
	b.RecordFailure(provider)
	b.RecordSuccess(provider)
	b.RecordFailure(provider)
	b.RecordFailure(provider)

	assert.Equal(t, Closed, b.CurrentState(provider), "non-consecutive failures must not open the circuit")
}

func TestBreaker_HalfOpenAfterWindow(t *testing.T) {
	b := NewWithSettings(1, 10*time.Millisecond, 2)

	b.RecordFailure(provider)
	assert.False(t, b.Allow(provider))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow(provider), "expired window must allow a probe")
	assert.Equal(t, HalfOpen, b.CurrentState(provider))

	t.Run("ProbeFailureReopens", func(t *testing.T) {
		b.RecordFailure(provider)
		assert.Equal(t, Open, b.CurrentState(provider))
		assert.False(t, b.Allow(provider))
	})
}

func TestBreaker_ClosesAfterProbeSuccesses(t *testing.T) {
	b := NewWithSettings(1, 10*time.Millisecond, 2)

	b.RecordFailure(provider)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow(provider))

	b.RecordSuccess(provider)
	assert.Equal(t, HalfOpen, b.CurrentState(provider), "one probe success is not enough")

	b.RecordSuccess(provider)
	assert.Equal(t, Closed, b.CurrentState(provider))
	assert.True(t, b.Allow(provider))
}
