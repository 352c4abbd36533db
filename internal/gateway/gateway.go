// Package gateway defines the capability a concrete payment provider
// integration must implement. The contract is deliberately narrow: each
// call reports whether the provider accepted the operation. A non-nil
// error means the call never got a provider verdict (timeout, non-2xx,
// malformed response) and is therefore safe to treat as transient;
// false with a nil error is the provider's own refusal.
package gateway

import "context"

// Client is implemented once per external payment provider.
type Client interface {
	// Initiate begins a payment. True means the provider accepted the
	// request, not that funds moved.
	Initiate(ctx context.Context, amount string, orderRef string) (bool, error)
	// Refund returns funds for a completed payment.
	Refund(ctx context.Context, amount string, orderRef string) (bool, error)
	// CheckStatus reports whether the provider confirms completion.
	CheckStatus(ctx context.Context, orderRef string) (bool, error)
	// Cancel voids an initiated payment on the provider side.
	Cancel(ctx context.Context, orderRef string) (bool, error)
	// Extend prolongs an authorization hold.
	Extend(ctx context.Context, orderRef string) (bool, error)
	// Inquire returns free-form provider-side status text.
	Inquire(ctx context.Context, orderRef string) (string, error)
}
