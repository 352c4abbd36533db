package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-core/internal/money"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.FindByOrderRef("order-1")
	assert.ErrorIs(t, err, ErrNotFound)

	o := Order{OrderRef: "order-1", CustomerID: "cust-1", TotalAmount: money.MustFromString("150000.00")}
	require.NoError(t, store.Save(o))

	got, err := store.FindByOrderRef("order-1")
	require.NoError(t, err)
	assert.False(t, got.Paid)

	got.Paid = true
	require.NoError(t, store.Save(got))

	again, err := store.FindByOrderRef("order-1")
	require.NoError(t, err)
	assert.True(t, again.Paid)
}
