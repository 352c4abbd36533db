package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/payment-core/internal/gateway"
	"github.com/yourorg/payment-core/internal/money"
	"github.com/yourorg/payment-core/internal/transaction"
)

// gatewayAdapter implements ProviderAdapter over any gateway.Client.
// Both shaparak providers share the same outcome classification; only
// naming and the wire client differ.
type gatewayAdapter struct {
	provider transaction.Provider
	name     string
	client   gateway.Client
}

// NewSadad creates the adapter for the Sadad gateway.
func NewSadad(client gateway.Client) ProviderAdapter {
	if client == nil {
		panic("gateway client cannot be nil")
	}
	return &gatewayAdapter{provider: transaction.ProviderSadad, name: "Sadad", client: client}
}

// NewSep creates the adapter for the Sep gateway.
func NewSep(client gateway.Client) ProviderAdapter {
	if client == nil {
		panic("gateway client cannot be nil")
	}
	return &gatewayAdapter{provider: transaction.ProviderSep, name: "Sep", client: client}
}

func (a *gatewayAdapter) Provider() transaction.Provider { return a.provider }

func (a *gatewayAdapter) Name() string { return a.name }

func (a *gatewayAdapter) Initiate(ctx context.Context, amount money.Amount, orderRef string) Outcome {
	start := time.Now()
	ok, err := a.client.Initiate(ctx, amount.String(), orderRef)
	out := a.classify("initiate", ok, err, start)
	if out.Success {
		out.RefNum = attemptReference(orderRef)
		out.ApprovalCode = approvalCode()
	}
	return out
}

func (a *gatewayAdapter) Refund(ctx context.Context, amount money.Amount, orderRef string) Outcome {
	start := time.Now()
	ok, err := a.client.Refund(ctx, amount.String(), orderRef)
	out := a.classify("refund", ok, err, start)
	if out.Success {
		out.RefNum = attemptReference(orderRef)
		out.ApprovalCode = approvalCode()
	}
	return out
}

func (a *gatewayAdapter) CheckStatus(ctx context.Context, orderRef string) Outcome {
	start := time.Now()
	ok, err := a.client.CheckStatus(ctx, orderRef)
	return a.classify("status check", ok, err, start)
}

func (a *gatewayAdapter) Cancel(ctx context.Context, orderRef string) Outcome {
	start := time.Now()
	ok, err := a.client.Cancel(ctx, orderRef)
	return a.classify("cancel", ok, err, start)
}

func (a *gatewayAdapter) Extend(ctx context.Context, orderRef string) Outcome {
	start := time.Now()
	ok, err := a.client.Extend(ctx, orderRef)
	return a.classify("authorization extension", ok, err, start)
}

func (a *gatewayAdapter) Inquire(ctx context.Context, orderRef string) Outcome {
	start := time.Now()
	text, err := a.client.Inquire(ctx, orderRef)
	if err != nil {
		return a.transientFailure("inquiry", err, start)
	}
	return Outcome{
		Success:      true,
		Message:      fmt.Sprintf("Inquiry result from %s: %s", a.name, text),
		StatusText:   text,
		ResponseCode: http.StatusOK,
		Latency:      time.Since(start),
	}
}

// classify folds the gateway verdict into an Outcome: transport errors
// are transient, a false verdict is a permanent provider decline.
func (a *gatewayAdapter) classify(op string, ok bool, err error, start time.Time) Outcome {
	if err != nil {
		return a.transientFailure(op, err, start)
	}
	if !ok {
		return Outcome{
			Success:      false,
			Transient:    false,
			ErrorCode:    a.errorCode("DECLINED"),
			Message:      fmt.Sprintf("%s rejected the %s request", a.name, op),
			ResponseCode: http.StatusPaymentRequired,
			Latency:      time.Since(start),
		}
	}
	return Outcome{
		Success:      true,
		Message:      fmt.Sprintf("%s accepted by %s", op, a.name),
		ResponseCode: http.StatusOK,
		Latency:      time.Since(start),
	}
}

func (a *gatewayAdapter) transientFailure(op string, err error, start time.Time) Outcome {
	return Outcome{
		Success:      false,
		Transient:    true,
		ErrorCode:    a.errorCode("UNAVAILABLE"),
		Message:      fmt.Sprintf("%s %s failed: %v", a.name, op, err),
		ResponseCode: http.StatusGatewayTimeout,
		Latency:      time.Since(start),
	}
}

func (a *gatewayAdapter) errorCode(kind string) string {
	return strings.ToUpper(a.name) + "_" + kind
}

// attemptReference builds a reference number tying a gateway acceptance
// back to the order. The provider deduplicates by order ref; this value
// exists for local audit.
func attemptReference(orderRef string) string {
	return orderRef + "-" + uuid.NewString()
}

// approvalCode builds the short code surfaced to operators for a
// provider acceptance.
func approvalCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
