package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-core/internal/money"
)

func newTestTx(t *testing.T) Transaction {
	t.Helper()
	tx, err := New("order-1", money.MustFromString("150000.00"), ProviderSadad, TypePayment)
	require.NoError(t, err)
	return tx
}

func TestNew(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		tx := newTestTx(t)
		assert.NotEmpty(t, tx.ID)
		assert.Equal(t, StatusPending, tx.Status)
		assert.False(t, tx.UpdatedAt.Before(tx.CreatedAt))
	})

	t.Run("ZeroAmountRejected", func(t *testing.T) {
		_, err := New("order-1", money.Zero(), ProviderSadad, TypePayment)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("CeilingEnforced", func(t *testing.T) {
		_, err := New("order-1", money.MustFromString("10000000.01"), ProviderSadad, TypePayment)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		// Exactly at the ceiling is allowed.
		_, err = New("order-1", MaxAmount, ProviderSadad, TypePayment)
		assert.NoError(t, err)
	})

	t.Run("OrderRefRequired", func(t *testing.T) {
		_, err := New("", money.MustFromString("1.00"), ProviderSadad, TypePayment)
		assert.Error(t, err)
	})
}

func TestTransaction_StateMachine(t *testing.T) {
	t.Run("PendingReachesAllOutcomes", func(t *testing.T) {
		for _, target := range []Status{StatusSuccess, StatusFailed, StatusTimeout, StatusDeclined, StatusCancelled} {
			tx := newTestTx(t)
			require.NoError(t, tx.Transition(target))
			assert.Equal(t, target, tx.Status)
		}
	})

	t.Run("TerminalStatesAreFinal", func(t *testing.T) {
		for _, terminal := range []Status{StatusSuccess, StatusFailed, StatusDeclined, StatusCancelled} {
			tx := newTestTx(t)
			require.NoError(t, tx.Transition(terminal))
			assert.True(t, tx.IsTerminal())
			err := tx.Transition(StatusPending)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	})

	t.Run("TimeoutIsRetryable", func(t *testing.T) {
		tx := newTestTx(t)
		require.NoError(t, tx.Transition(StatusTimeout))
		assert.False(t, tx.IsTerminal())
		require.NoError(t, tx.Transition(StatusPending))
		require.NoError(t, tx.Transition(StatusSuccess))
	})

	t.Run("TimeoutReconcilesDirectlyToSuccess", func(t *testing.T) {
		tx := newTestTx(t)
		require.NoError(t, tx.Transition(StatusTimeout))
		require.NoError(t, tx.Transition(StatusSuccess))
	})

	t.Run("TransitionUpdatesTimestamp", func(t *testing.T) {
		tx := newTestTx(t)
		before := tx.UpdatedAt
		time.Sleep(time.Millisecond)
		require.NoError(t, tx.Transition(StatusSuccess))
		assert.True(t, tx.UpdatedAt.After(before))
	})
}

func TestTransaction_Predicates(t *testing.T) {
	t.Run("Refundable", func(t *testing.T) {
		tx := newTestTx(t)
		assert.False(t, tx.IsRefundable())
		require.NoError(t, tx.Transition(StatusSuccess))
		assert.True(t, tx.IsRefundable())

		refund, err := New("order-1", tx.Amount, tx.Provider, TypeRefund)
		require.NoError(t, err)
		require.NoError(t, refund.Transition(StatusSuccess))
		assert.False(t, refund.IsRefundable(), "only PAYMENT transactions are refundable")
	})

	t.Run("Cancelable", func(t *testing.T) {
		tx := newTestTx(t)
		assert.True(t, tx.IsCancelable())
		require.NoError(t, tx.Transition(StatusTimeout))
		assert.True(t, tx.IsCancelable())
		require.NoError(t, tx.Transition(StatusSuccess))
		assert.False(t, tx.IsCancelable())
	})
}

func TestTransaction_Annotate(t *testing.T) {
	tx := newTestTx(t)
	require.NoError(t, tx.Transition(StatusSuccess))

	tx.Annotate("DISPUTED: cardholder claim")
	assert.Equal(t, "DISPUTED: cardholder claim", tx.Annotation)
	// The status classification must survive annotation.
	assert.Equal(t, StatusSuccess, tx.Status)
	assert.True(t, tx.IsSuccessful())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	pay := newTestTx(t)
	require.NoError(t, store.Save(pay))

	t.Run("FindByID", func(t *testing.T) {
		got, err := store.FindByID(pay.ID)
		require.NoError(t, err)
		assert.Equal(t, pay.ID, got.ID)

		_, err = store.FindByID("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("FindByOrderRefReturnsNewest", func(t *testing.T) {
		refund, err := New("order-1", pay.Amount, pay.Provider, TypeRefund)
		require.NoError(t, err)
		refund.CreatedAt = pay.CreatedAt.Add(time.Minute)
		require.NoError(t, store.Save(refund))

		got, err := store.FindByOrderRef("order-1")
		require.NoError(t, err)
		assert.Equal(t, refund.ID, got.ID)

		payment, err := store.FindPayment("order-1")
		require.NoError(t, err)
		assert.Equal(t, pay.ID, payment.ID)

		got, err = store.FindRefund("order-1")
		require.NoError(t, err)
		assert.Equal(t, refund.ID, got.ID)

		_, err = store.FindRefund("order-none")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SavedCopiesAreIsolated", func(t *testing.T) {
		got, err := store.FindByID(pay.ID)
		require.NoError(t, err)
		got.Annotation = "local edit"

		again, err := store.FindByID(pay.ID)
		require.NoError(t, err)
		assert.Empty(t, again.Annotation)
	})

	t.Run("Delete", func(t *testing.T) {
		tx := newTestTx(t)
		require.NoError(t, store.Save(tx))
		require.NoError(t, store.Delete(tx.ID))
		_, err := store.FindByID(tx.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(tx.ID), ErrNotFound)
	})

	t.Run("AllNewestFirst", func(t *testing.T) {
		all := store.All()
		require.NotEmpty(t, all)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
		}
	})
}
