package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/yourorg/payment-core/internal/policy"
	"github.com/yourorg/payment-core/internal/transaction"
)

// VerifyStatus asks the provider for the definitive state of the
// order's newest transaction and reconciles the local record with it.
// This is the recovery path for TIMEOUT, for payments and refunds
// alike: the operation may have gone through on the provider side
// after the local call gave up.
func (o *Orchestrator) VerifyStatus(ctx context.Context, orderRef string) PaymentResult {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.VerifyStatus")
	defer span.End()

	lock := o.orderLock(orderRef)
	lock.Lock()
	defer lock.Unlock()

	tx, err := o.transactions.FindByOrderRef(orderRef)
	if err != nil {
		return failure(codeTransactionNotFound, fmt.Sprintf("no transactions for order %s", orderRef), http.StatusNotFound)
	}
	kind, verb := "payment", "Payment"
	if tx.Type == transaction.TypeRefund {
		kind, verb = "refund", "Refund"
	}
	if tx.IsTerminal() || tx.IsSuccessful() {
		return result(tx, tx.IsSuccessful(), "", fmt.Sprintf("%s status: %s", kind, tx.Status), http.StatusOK)
	}

	pa, ok := o.adapters.Lookup(tx.Provider)
	if !ok {
		return failure(codeProviderUnavailable, fmt.Sprintf("no adapter for provider %s", tx.Provider), http.StatusNotFound)
	}

	amount := tx.Amount.Decimal().InexactFloat64()
	for attempt := 1; ; attempt++ {
		out := pa.CheckStatus(ctx, orderRef)
		o.metrics.Observe(string(tx.Provider), "status", out.Success, out.Latency)

		if out.Success {
			// Provider confirms completion: reconcile the record and
			// the order, even if the local status was TIMEOUT. A
			// confirmed refund means the order is no longer paid.
			o.breaker.RecordSuccess(tx.Provider)
			tx.RecordGatewayRefs(out.RefNum, out.ApprovalCode, out.GatewayTxID)
			o.settle(&tx, transaction.StatusSuccess)
			paid := tx.Type != transaction.TypeRefund
			if ord, err := o.orders.FindByOrderRef(orderRef); err == nil && ord.Paid != paid {
				o.markPaid(ord, paid)
			}
			log.Printf("Orchestrator: reconciled %s for order %s to SUCCESS from provider %s", kind, orderRef, pa.Name())
			return PaymentResult{
				Success:       true,
				Message:       fmt.Sprintf("%s confirmed by %s", verb, pa.Name()),
				TransactionID: tx.ID,
				ApprovalCode:  tx.ApprovalCode,
				ResponseCode:  http.StatusOK,
			}
		}

		o.breaker.RecordFailure(tx.Provider)

		if !out.Transient {
			// Provider says the operation never completed. A timed-out
			// record is now definitively failed; a pending one is left
			// for its in-flight attempt to finish.
			if tx.Status == transaction.StatusTimeout {
				o.settle(&tx, transaction.StatusFailed)
			}
			return result(tx, false, out.ErrorCode,
				fmt.Sprintf("%s reports no completed %s for order %s", pa.Name(), kind, orderRef),
				http.StatusPaymentRequired)
		}

		decision, err := o.enforcer.Evaluate(policy.Input{
			Operation: "status",
			Attempt:   attempt,
			Transient: true,
			ErrorCode: out.ErrorCode,
			Amount:    amount,
		})
		if err == nil && decision.AllowRetry {
			select {
			case <-ctx.Done():
				return result(tx, false, out.ErrorCode, "status check abandoned: "+ctx.Err().Error(), http.StatusGatewayTimeout)
			case <-time.After(o.retry.Delay):
			}
			continue
		}
		return result(tx, false, out.ErrorCode, out.Message, http.StatusGatewayTimeout)
	}
}

// ExtendAuthorization asks the provider to keep the payment
// authorization alive. No local state changes.
func (o *Orchestrator) ExtendAuthorization(ctx context.Context, orderRef string) PaymentResult {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.ExtendAuthorization")
	defer span.End()

	tx, err := o.transactions.FindPayment(orderRef)
	if err != nil {
		return failure(codeTransactionNotFound, fmt.Sprintf("no payment for order %s", orderRef), http.StatusNotFound)
	}
	pa, ok := o.adapters.Lookup(tx.Provider)
	if !ok {
		return failure(codeProviderUnavailable, fmt.Sprintf("no adapter for provider %s", tx.Provider), http.StatusNotFound)
	}

	out := pa.Extend(ctx, orderRef)
	o.metrics.Observe(string(tx.Provider), "extend", out.Success, out.Latency)
	switch {
	case out.Success:
		return result(tx, true, "", fmt.Sprintf("Authorization extended by %s", pa.Name()), http.StatusOK)
	case out.Transient:
		return result(tx, false, out.ErrorCode, out.Message, http.StatusGatewayTimeout)
	default:
		return result(tx, false, out.ErrorCode, out.Message, http.StatusPaymentRequired)
	}
}

// Inquire returns the provider's own status text for the order.
func (o *Orchestrator) Inquire(ctx context.Context, orderRef string) PaymentResult {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Inquire")
	defer span.End()

	tx, err := o.transactions.FindPayment(orderRef)
	if err != nil {
		return failure(codeTransactionNotFound, fmt.Sprintf("no payment for order %s", orderRef), http.StatusNotFound)
	}
	pa, ok := o.adapters.Lookup(tx.Provider)
	if !ok {
		return failure(codeProviderUnavailable, fmt.Sprintf("no adapter for provider %s", tx.Provider), http.StatusNotFound)
	}

	out := pa.Inquire(ctx, orderRef)
	o.metrics.Observe(string(tx.Provider), "inquiry", out.Success, out.Latency)
	if !out.Success {
		return result(tx, false, out.ErrorCode, out.Message, http.StatusGatewayTimeout)
	}
	return result(tx, true, "", out.Message, http.StatusOK)
}

// IsDuplicateTransaction reports whether any transaction already
// exists for the order, whatever its type or outcome.
func (o *Orchestrator) IsDuplicateTransaction(orderRef string) (bool, error) {
	lock := o.orderLock(orderRef)
	lock.Lock()
	defer lock.Unlock()
	_, err := o.transactions.FindByOrderRef(orderRef)
	if errors.Is(err, transaction.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkDisputed tags a successful payment as disputed, recording the
// cardholder's reason. The status is untouched: the money moved, the
// disagreement is an overlay.
func (o *Orchestrator) MarkDisputed(orderRef, reason string) (transaction.Transaction, error) {
	return o.annotate(orderRef, tagWith(AnnotationDisputed, reason), func(tx transaction.Transaction) error {
		if !tx.IsSuccessful() {
			return fmt.Errorf("orchestrator: payment for order %s is %s, only successful payments can be disputed", orderRef, tx.Status)
		}
		return nil
	})
}

// FlagSuspicious tags the order's payment for fraud review.
func (o *Orchestrator) FlagSuspicious(orderRef, reason string) (transaction.Transaction, error) {
	return o.annotate(orderRef, tagWith(AnnotationSuspicious, reason), nil)
}

// Escalate tags the order's payment for manual operator attention.
func (o *Orchestrator) Escalate(orderRef, note string) (transaction.Transaction, error) {
	return o.annotate(orderRef, tagWith(AnnotationEscalated, note), nil)
}

// tagWith appends the operator-supplied detail to an annotation tag.
func tagWith(tag, detail string) string {
	if detail == "" {
		return tag
	}
	return tag + ": " + detail
}

func (o *Orchestrator) annotate(orderRef, tag string, check func(transaction.Transaction) error) (transaction.Transaction, error) {
	lock := o.orderLock(orderRef)
	lock.Lock()
	defer lock.Unlock()

	tx, err := o.transactions.FindPayment(orderRef)
	if errors.Is(err, transaction.ErrNotFound) {
		return transaction.Transaction{}, ErrNotFound
	}
	if err != nil {
		return transaction.Transaction{}, err
	}
	if check != nil {
		if err := check(tx); err != nil {
			return transaction.Transaction{}, err
		}
	}
	tx.Annotate(tag)
	if err := o.transactions.Save(tx); err != nil {
		return transaction.Transaction{}, err
	}
	log.Printf("Orchestrator: annotated payment for order %s as %s", orderRef, tag)
	return tx, nil
}
