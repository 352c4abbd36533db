// Package adapter normalizes raw provider outcomes into a common shape
// the orchestrator can act on. Adapters are stateless: they wrap a
// gateway client, classify each result as a success, a provider
// decline, or a transient transport failure, and never persist
// anything. Transaction state stays with the orchestrator.
package adapter

import (
	"context"
	"time"

	"github.com/yourorg/payment-core/internal/money"
	"github.com/yourorg/payment-core/internal/transaction"
)

// Outcome is the normalized result of one gateway call.
type Outcome struct {
	Success      bool
	Transient    bool   // true when the failure never got a provider verdict
	ErrorCode    string // empty on success
	Message      string
	RefNum       string // adapter-generated reference for the attempt
	ApprovalCode string // set when the provider accepted an initiate or refund
	GatewayTxID  string
	StatusText   string // provider-side status text, set by Inquire
	ResponseCode int    // HTTP-like classification of the outcome
	Latency      time.Duration
}

// Failed reports whether the outcome is any kind of failure.
func (o Outcome) Failed() bool {
	return !o.Success
}

// ProviderAdapter is implemented once per payment provider.
type ProviderAdapter interface {
	// Provider returns the identifier used for transaction records.
	Provider() transaction.Provider
	// Name returns the human-readable provider name for messages.
	Name() string

	Initiate(ctx context.Context, amount money.Amount, orderRef string) Outcome
	Refund(ctx context.Context, amount money.Amount, orderRef string) Outcome
	CheckStatus(ctx context.Context, orderRef string) Outcome
	Cancel(ctx context.Context, orderRef string) Outcome
	Extend(ctx context.Context, orderRef string) Outcome
	Inquire(ctx context.Context, orderRef string) Outcome
}

// Registry maps providers to their adapters.
type Registry struct {
	adapters map[transaction.Provider]ProviderAdapter
}

// NewRegistry creates a registry over the given adapters.
func NewRegistry(adapters ...ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[transaction.Provider]ProviderAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Lookup returns the adapter registered for the provider.
func (r *Registry) Lookup(p transaction.Provider) (ProviderAdapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// Providers returns the registered provider identifiers.
func (r *Registry) Providers() []transaction.Provider {
	out := make([]transaction.Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
