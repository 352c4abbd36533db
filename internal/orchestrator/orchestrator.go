// Package orchestrator coordinates payment operations end to end: it
// owns transaction records, consults the policy enforcer and the
// circuit breaker, drives provider adapters, and reconciles timed-out
// payments. It is the only writer of Transaction state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/payment-core/internal/adapter"
	"github.com/yourorg/payment-core/internal/circuitbreaker"
	"github.com/yourorg/payment-core/internal/config"
	"github.com/yourorg/payment-core/internal/monitor"
	"github.com/yourorg/payment-core/internal/order"
	"github.com/yourorg/payment-core/internal/policy"
	"github.com/yourorg/payment-core/internal/transaction"
)

// Error codes reported on PaymentResult for failures the orchestrator
// itself detects, before or instead of a gateway verdict.
const (
	codeOrderNotFound       = "ORDER_NOT_FOUND"
	codeOrderAlreadyPaid    = "ORDER_ALREADY_PAID"
	codeDuplicateInFlight   = "DUPLICATE_TRANSACTION"
	codeProviderUnavailable = "PROVIDER_NOT_CONFIGURED"
	codeCircuitOpen         = "CIRCUIT_OPEN"
	codeInvalidAmount       = "INVALID_AMOUNT"
	codeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	codeNotRefundable       = "NOT_REFUNDABLE"
	codeAlreadyRefunded     = "ALREADY_REFUNDED"
	codeNotCancelable       = "NOT_CANCELABLE"
	codeNotRetryable        = "NOT_RETRYABLE"
	codeNotDisputable       = "NOT_DISPUTABLE"
	codeStoreFailure        = "STORE_FAILURE"
)

// Annotation tags applied by the administrative operations.
const (
	AnnotationDisputed   = "DISPUTED"
	AnnotationSuspicious = "SUSPICIOUS"
	AnnotationEscalated  = "ESCALATED"
)

// ErrNotFound is returned by administrative operations when no payment
// exists for the order reference.
var ErrNotFound = errors.New("orchestrator: payment not found")

// Orchestrator drives payments through provider adapters and keeps the
// transaction and order stores consistent.
type Orchestrator struct {
	adapters     *adapter.Registry
	transactions transaction.Store
	orders       order.Store
	enforcer     *policy.Enforcer
	breaker      *circuitbreaker.Breaker
	metrics      *monitor.Metrics
	retry        config.Retry
	tracer       trace.Tracer

	mu         sync.Mutex
	orderLocks map[string]*sync.Mutex
}

// New creates an Orchestrator. All collaborators are required.
func New(
	adapters *adapter.Registry,
	transactions transaction.Store,
	orders order.Store,
	enforcer *policy.Enforcer,
	breaker *circuitbreaker.Breaker,
	metrics *monitor.Metrics,
	retry config.Retry,
) *Orchestrator {
	if adapters == nil {
		panic("adapter registry cannot be nil")
	}
	if transactions == nil {
		panic("transaction store cannot be nil")
	}
	if orders == nil {
		panic("order store cannot be nil")
	}
	if enforcer == nil {
		panic("policy enforcer cannot be nil")
	}
	if breaker == nil {
		panic("circuit breaker cannot be nil")
	}
	if metrics == nil {
		panic("metrics cannot be nil")
	}
	return &Orchestrator{
		adapters:     adapters,
		transactions: transactions,
		orders:       orders,
		enforcer:     enforcer,
		breaker:      breaker,
		metrics:      metrics,
		retry:        retry,
		tracer:       otel.Tracer("orchestrator"),
		orderLocks:   make(map[string]*sync.Mutex),
	}
}

// orderLock returns the mutex serializing all operations on one order
// reference. Locks are kept for the life of the process; the set is
// bounded by the number of distinct orders seen.
func (o *Orchestrator) orderLock(orderRef string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.orderLocks[orderRef]
	if !ok {
		l = &sync.Mutex{}
		o.orderLocks[orderRef] = l
	}
	return l
}

// ProcessPayment runs a payment for the order through the given
// provider. The check-then-act sequence (order lookup, duplicate check,
// transaction creation) is serialized per order reference, so two
// concurrent calls for the same order yield exactly one attempt.
func (o *Orchestrator) ProcessPayment(ctx context.Context, orderRef string, provider transaction.Provider) PaymentResult {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.ProcessPayment")
	defer span.End()

	lock := o.orderLock(orderRef)
	lock.Lock()
	defer lock.Unlock()

	ord, err := o.orders.FindByOrderRef(orderRef)
	if errors.Is(err, order.ErrNotFound) {
		return failure(codeOrderNotFound, fmt.Sprintf("order %s not found", orderRef), http.StatusNotFound)
	}
	if err != nil {
		return failure(codeOrderNotFound, err.Error(), http.StatusNotFound)
	}
	if ord.Paid {
		return failure(codeOrderAlreadyPaid, fmt.Sprintf("order %s is already paid", orderRef), http.StatusConflict)
	}
	dup, err := o.duplicateLocked(orderRef)
	if err != nil {
		return failure(codeStoreFailure, err.Error(), http.StatusInternalServerError)
	}
	if dup {
		return failure(codeDuplicateInFlight, fmt.Sprintf("order %s already has an active payment", orderRef), http.StatusConflict)
	}

	pa, ok := o.adapters.Lookup(provider)
	if !ok {
		return failure(codeProviderUnavailable, fmt.Sprintf("no adapter for provider %s", provider), http.StatusNotFound)
	}

	tx, err := transaction.New(orderRef, ord.TotalAmount, provider, transaction.TypePayment)
	if err != nil {
		return failure(codeInvalidAmount, err.Error(), http.StatusConflict)
	}
	if err := o.transactions.Save(tx); err != nil {
		return failure(codeInvalidAmount, err.Error(), http.StatusConflict)
	}

	return o.drivePayment(ctx, tx, pa, ord)
}

// RetryPayment retries payment for an order that is still unpaid. A
// timed-out payment is re-driven in place; a declined, failed or
// cancelled one gets a fresh attempt against the same provider. A
// payment still in flight cannot be retried.
func (o *Orchestrator) RetryPayment(ctx context.Context, orderRef string) PaymentResult {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.RetryPayment")
	defer span.End()

	lock := o.orderLock(orderRef)
	lock.Lock()
	defer lock.Unlock()

	tx, err := o.transactions.FindPayment(orderRef)
	if err != nil {
		return failure(codeTransactionNotFound, fmt.Sprintf("no payment for order %s", orderRef), http.StatusNotFound)
	}
	ord, err := o.orders.FindByOrderRef(orderRef)
	if err != nil {
		return failure(codeOrderNotFound, fmt.Sprintf("order %s not found", orderRef), http.StatusNotFound)
	}
	if ord.Paid {
		return failure(codeOrderAlreadyPaid, fmt.Sprintf("order %s is already paid", orderRef), http.StatusConflict)
	}
	pa, ok := o.adapters.Lookup(tx.Provider)
	if !ok {
		return failure(codeProviderUnavailable, fmt.Sprintf("no adapter for provider %s", tx.Provider), http.StatusNotFound)
	}

	switch tx.Status {
	case transaction.StatusPending:
		return failure(codeDuplicateInFlight,
			fmt.Sprintf("payment for order %s is still in flight", orderRef),
			http.StatusConflict)
	case transaction.StatusTimeout:
		if err := tx.Transition(transaction.StatusPending); err != nil {
			return failure(codeNotRetryable, err.Error(), http.StatusConflict)
		}
		if err := o.transactions.Save(tx); err != nil {
			return failure(codeNotRetryable, err.Error(), http.StatusConflict)
		}
		return o.drivePayment(ctx, tx, pa, ord)
	default:
		// The previous attempt is settled, so the order gets a new one.
		fresh, err := transaction.New(orderRef, ord.TotalAmount, tx.Provider, transaction.TypePayment)
		if err != nil {
			return failure(codeInvalidAmount, err.Error(), http.StatusConflict)
		}
		if err := o.transactions.Save(fresh); err != nil {
			return failure(codeInvalidAmount, err.Error(), http.StatusConflict)
		}
		return o.drivePayment(ctx, fresh, pa, ord)
	}
}

// drivePayment runs the attempt loop for a PENDING payment transaction.
// The caller holds the order lock.
func (o *Orchestrator) drivePayment(ctx context.Context, tx transaction.Transaction, pa adapter.ProviderAdapter, ord order.Order) PaymentResult {
	provider := string(tx.Provider)
	amount := tx.Amount.Decimal().InexactFloat64()

	for attempt := 1; ; attempt++ {
		if !o.breaker.Allow(tx.Provider) {
			log.Printf("Orchestrator: circuit open for %s, not calling provider (order %s)", provider, tx.OrderRef)
			o.settle(&tx, transaction.StatusTimeout)
			return result(tx, false, codeCircuitOpen,
				fmt.Sprintf("%s is temporarily unavailable", pa.Name()), http.StatusGatewayTimeout)
		}

		out := pa.Initiate(ctx, tx.Amount, tx.OrderRef)
		o.metrics.Observe(provider, "initiate", out.Success, out.Latency)

		if out.Success {
			o.breaker.RecordSuccess(tx.Provider)
			tx.RecordGatewayRefs(out.RefNum, out.ApprovalCode, out.GatewayTxID)
			o.settle(&tx, transaction.StatusSuccess)
			o.markPaid(ord, true)
			log.Printf("Orchestrator: payment for order %s succeeded via %s (attempt %d)", tx.OrderRef, pa.Name(), attempt)
			return PaymentResult{
				Success:       true,
				Message:       fmt.Sprintf("Payment via %s succeeded", pa.Name()),
				TransactionID: tx.ID,
				ApprovalCode:  tx.ApprovalCode,
				ResponseCode:  http.StatusOK,
			}
		}

		o.breaker.RecordFailure(tx.Provider)

		if !out.Transient {
			// The provider gave a verdict and it was no. Final.
			o.settle(&tx, transaction.StatusDeclined)
			log.Printf("Orchestrator: payment for order %s declined by %s: %s", tx.OrderRef, pa.Name(), out.Message)
			return result(tx, false, out.ErrorCode, out.Message, http.StatusPaymentRequired)
		}

		decision, err := o.enforcer.Evaluate(policy.Input{
			Operation: "initiate",
			Attempt:   attempt,
			Transient: true,
			ErrorCode: out.ErrorCode,
			Amount:    amount,
		})
		if err != nil {
			log.Printf("Orchestrator: policy evaluation failed for order %s: %v", tx.OrderRef, err)
		}
		if err == nil && decision.AllowRetry {
			log.Printf("Orchestrator: transient failure for order %s via %s, retrying (attempt %d): %s",
				tx.OrderRef, pa.Name(), attempt, out.Message)
			select {
			case <-ctx.Done():
				o.settle(&tx, transaction.StatusTimeout)
				return result(tx, false, out.ErrorCode, "payment abandoned: "+ctx.Err().Error(), http.StatusGatewayTimeout)
			case <-time.After(o.retry.Delay):
			}
			continue
		}

		o.settle(&tx, transaction.StatusTimeout)
		if decision.EscalateManual {
			tx.Annotate(AnnotationEscalated)
			if err := o.transactions.Save(tx); err != nil {
				log.Printf("Orchestrator: saving escalation for order %s: %v", tx.OrderRef, err)
			}
		}
		log.Printf("Orchestrator: payment for order %s timed out after %d attempt(s): %s", tx.OrderRef, attempt, out.Message)
		return result(tx, false, out.ErrorCode, out.Message, http.StatusGatewayTimeout)
	}
}

// RefundPayment refunds the most recent successful payment of the
// order. Refunds are never retried: a transient failure leaves a
// TIMEOUT refund record for VerifyStatus to reconcile.
func (o *Orchestrator) RefundPayment(ctx context.Context, orderRef string) PaymentResult {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.RefundPayment")
	defer span.End()

	lock := o.orderLock(orderRef)
	lock.Lock()
	defer lock.Unlock()

	payment, err := o.transactions.FindPayment(orderRef)
	if err != nil {
		return failure(codeTransactionNotFound, fmt.Sprintf("no payment for order %s", orderRef), http.StatusNotFound)
	}
	if !payment.IsRefundable() {
		return failure(codeNotRefundable,
			fmt.Sprintf("payment for order %s is %s and cannot be refunded", orderRef, payment.Status),
			http.StatusConflict)
	}
	prior, err := o.transactions.FindRefund(orderRef)
	if err != nil && !errors.Is(err, transaction.ErrNotFound) {
		return failure(codeStoreFailure, err.Error(), http.StatusInternalServerError)
	}
	if err == nil && prior.Status != transaction.StatusFailed &&
		prior.Status != transaction.StatusDeclined && prior.Status != transaction.StatusCancelled {
		// A completed, in-flight or unreconciled refund already exists.
		return failure(codeAlreadyRefunded,
			fmt.Sprintf("order %s already has a %s refund", orderRef, prior.Status),
			http.StatusConflict)
	}
	pa, ok := o.adapters.Lookup(payment.Provider)
	if !ok {
		return failure(codeProviderUnavailable, fmt.Sprintf("no adapter for provider %s", payment.Provider), http.StatusNotFound)
	}

	refund, err := transaction.New(orderRef, payment.Amount, payment.Provider, transaction.TypeRefund)
	if err != nil {
		return failure(codeInvalidAmount, err.Error(), http.StatusConflict)
	}
	if err := o.transactions.Save(refund); err != nil {
		return failure(codeInvalidAmount, err.Error(), http.StatusConflict)
	}

	if !o.breaker.Allow(refund.Provider) {
		o.settle(&refund, transaction.StatusTimeout)
		return result(refund, false, codeCircuitOpen,
			fmt.Sprintf("%s is temporarily unavailable", pa.Name()), http.StatusGatewayTimeout)
	}

	out := pa.Refund(ctx, refund.Amount, orderRef)
	o.metrics.Observe(string(refund.Provider), "refund", out.Success, out.Latency)

	switch {
	case out.Success:
		o.breaker.RecordSuccess(refund.Provider)
		refund.RecordGatewayRefs(out.RefNum, out.ApprovalCode, out.GatewayTxID)
		o.settle(&refund, transaction.StatusSuccess)
		if ord, err := o.orders.FindByOrderRef(orderRef); err == nil {
			o.markPaid(ord, false)
		}
		log.Printf("Orchestrator: refund for order %s succeeded via %s", orderRef, pa.Name())
		return PaymentResult{
			Success:       true,
			Message:       fmt.Sprintf("Refund via %s succeeded", pa.Name()),
			TransactionID: refund.ID,
			ResponseCode:  http.StatusOK,
		}
	case out.Transient:
		o.breaker.RecordFailure(refund.Provider)
		o.settle(&refund, transaction.StatusTimeout)
		return result(refund, false, out.ErrorCode, out.Message, http.StatusGatewayTimeout)
	default:
		o.breaker.RecordFailure(refund.Provider)
		o.settle(&refund, transaction.StatusDeclined)
		return result(refund, false, out.ErrorCode, out.Message, http.StatusPaymentRequired)
	}
}

// CancelPayment reverses a payment that never finished. A transient
// failure leaves the transaction where it was.
func (o *Orchestrator) CancelPayment(ctx context.Context, orderRef string) PaymentResult {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.CancelPayment")
	defer span.End()

	lock := o.orderLock(orderRef)
	lock.Lock()
	defer lock.Unlock()

	tx, err := o.transactions.FindPayment(orderRef)
	if err != nil {
		return failure(codeTransactionNotFound, fmt.Sprintf("no payment for order %s", orderRef), http.StatusNotFound)
	}
	if !tx.IsCancelable() {
		return failure(codeNotCancelable,
			fmt.Sprintf("payment for order %s is %s and cannot be cancelled", orderRef, tx.Status),
			http.StatusConflict)
	}
	pa, ok := o.adapters.Lookup(tx.Provider)
	if !ok {
		return failure(codeProviderUnavailable, fmt.Sprintf("no adapter for provider %s", tx.Provider), http.StatusNotFound)
	}

	out := pa.Cancel(ctx, orderRef)
	o.metrics.Observe(string(tx.Provider), "cancel", out.Success, out.Latency)

	switch {
	case out.Success:
		o.breaker.RecordSuccess(tx.Provider)
		o.settle(&tx, transaction.StatusCancelled)
		log.Printf("Orchestrator: payment for order %s cancelled via %s", orderRef, pa.Name())
		return PaymentResult{
			Success:       true,
			Message:       fmt.Sprintf("Cancellation via %s succeeded", pa.Name()),
			TransactionID: tx.ID,
			ResponseCode:  http.StatusOK,
		}
	case out.Transient:
		o.breaker.RecordFailure(tx.Provider)
		return result(tx, false, out.ErrorCode, out.Message, http.StatusGatewayTimeout)
	default:
		o.breaker.RecordFailure(tx.Provider)
		return result(tx, false, out.ErrorCode, out.Message, http.StatusPaymentRequired)
	}
}

// settle moves the transaction to the target status and persists it.
// An invalid transition here is a programming error worth a log line,
// not a user-facing failure.
func (o *Orchestrator) settle(tx *transaction.Transaction, target transaction.Status) {
	if err := tx.Transition(target); err != nil {
		log.Printf("Orchestrator: transition for transaction %s: %v", tx.ID, err)
		return
	}
	if err := o.transactions.Save(*tx); err != nil {
		log.Printf("Orchestrator: saving transaction %s: %v", tx.ID, err)
	}
}

func (o *Orchestrator) markPaid(ord order.Order, paid bool) {
	ord.Paid = paid
	if err := o.orders.Save(ord); err != nil {
		log.Printf("Orchestrator: saving order %s: %v", ord.OrderRef, err)
	}
}

// duplicateLocked reports an active payment for the order. The caller
// holds the order lock.
func (o *Orchestrator) duplicateLocked(orderRef string) (bool, error) {
	tx, err := o.transactions.FindPayment(orderRef)
	if errors.Is(err, transaction.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tx.Status == transaction.StatusSuccess || tx.Status == transaction.StatusPending, nil
}
