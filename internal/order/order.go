// Package order defines the narrow order collaborator contract the
// payment core consumes. Order management itself lives elsewhere; the
// core only needs the reference, the total, and the paid flag.
package order

import (
	"errors"
	"sync"

	"github.com/yourorg/payment-core/internal/money"
)

// ErrNotFound is returned by Store lookups that match nothing.
var ErrNotFound = errors.New("order: not found")

// Order is the slice of an order the payment core operates on.
type Order struct {
	OrderRef    string
	CustomerID  string
	TotalAmount money.Amount
	Paid        bool
}

// Store is the order persistence contract.
type Store interface {
	FindByOrderRef(orderRef string) (Order, error)
	Save(o Order) error
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]Order)}
}

// FindByOrderRef returns the order with the given reference.
func (s *MemoryStore) FindByOrderRef(orderRef string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderRef]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// Save inserts or updates an order by reference.
func (s *MemoryStore) Save(o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderRef] = o
	return nil
}
