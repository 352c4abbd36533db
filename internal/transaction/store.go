package transaction

import "errors"

// ErrNotFound is returned by Store lookups that match nothing.
var ErrNotFound = errors.New("transaction: not found")

// Store is the persistence contract the orchestrator requires. An order
// may accumulate several transactions over time (a payment plus later
// refunds), so lookups by order reference return the newest match.
type Store interface {
	// Save inserts or updates a transaction by ID.
	Save(tx Transaction) error
	// FindByID returns the transaction with the given ID.
	FindByID(id string) (Transaction, error)
	// FindByOrderRef returns the newest transaction for the order.
	FindByOrderRef(orderRef string) (Transaction, error)
	// FindPayment returns the newest PAYMENT-type transaction for the order.
	FindPayment(orderRef string) (Transaction, error)
	// FindRefund returns the newest REFUND-type transaction for the order.
	FindRefund(orderRef string) (Transaction, error)
	// Delete removes a transaction by ID.
	Delete(id string) error
	// All returns every stored transaction, newest first.
	All() []Transaction
}
