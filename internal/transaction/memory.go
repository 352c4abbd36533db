package transaction

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store implementation. It keeps value
// copies, so callers can only change stored state through Save.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Transaction
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Transaction)}
}

// Save inserts or updates a transaction by ID.
func (s *MemoryStore) Save(tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[tx.ID] = tx
	return nil
}

// FindByID returns the transaction with the given ID.
func (s *MemoryStore) FindByID(id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.byID[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return tx, nil
}

// FindByOrderRef returns the newest transaction for the order.
func (s *MemoryStore) FindByOrderRef(orderRef string) (Transaction, error) {
	return s.newestMatch(func(tx Transaction) bool {
		return tx.OrderRef == orderRef
	})
}

// FindPayment returns the newest PAYMENT-type transaction for the order.
func (s *MemoryStore) FindPayment(orderRef string) (Transaction, error) {
	return s.newestMatch(func(tx Transaction) bool {
		return tx.OrderRef == orderRef && tx.Type == TypePayment
	})
}

// FindRefund returns the newest REFUND-type transaction for the order.
func (s *MemoryStore) FindRefund(orderRef string) (Transaction, error) {
	return s.newestMatch(func(tx Transaction) bool {
		return tx.OrderRef == orderRef && tx.Type == TypeRefund
	})
}

// Delete removes a transaction by ID.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// All returns every stored transaction, newest first.
func (s *MemoryStore) All() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Transaction, 0, len(s.byID))
	for _, tx := range s.byID {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) newestMatch(match func(Transaction) bool) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  Transaction
		found bool
	)
	for _, tx := range s.byID {
		if !match(tx) {
			continue
		}
		if !found || tx.CreatedAt.After(best.CreatedAt) {
			best = tx
			found = true
		}
	}
	if !found {
		return Transaction{}, ErrNotFound
	}
	return best, nil
}
