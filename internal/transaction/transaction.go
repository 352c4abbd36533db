// Package transaction holds the persisted record of a single payment
// attempt and its status state machine. A Transaction is created in
// PENDING and only ever moves along the defined transitions; the
// orchestrator is the sole writer of status and metadata fields.
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/payment-core/internal/money"
)

// Provider identifies the payment channel a transaction went through.
type Provider string

const (
	ProviderSadad  Provider = "SADAD"
	ProviderSep    Provider = "SEP"
	ProviderCash   Provider = "CASH"
	ProviderCard   Provider = "CARD"
	ProviderWallet Provider = "WALLET"
	ProviderCrypto Provider = "CRYPTO"
)

// Type classifies what a transaction represents.
type Type string

const (
	TypePayment    Type = "PAYMENT"
	TypeRefund     Type = "REFUND"
	TypeChargeback Type = "CHARGEBACK"
	TypeVoid       Type = "VOID"
)

// Status is one state of the transaction lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusTimeout   Status = "TIMEOUT"
	StatusDeclined  Status = "DECLINED"
	StatusCancelled Status = "CANCELLED"
)

// MaxAmount is the provider-independent ceiling on a single transaction.
var MaxAmount = money.MustFromString("10000000.00")

var (
	ErrInvalidAmount     = errors.New("transaction: amount must be positive and within the ceiling")
	ErrInvalidTransition = errors.New("transaction: status transition not allowed")
)

// transitions is the full state machine. SUCCESS, FAILED, DECLINED and
// CANCELLED are terminal; TIMEOUT may be re-driven through a retry.
var transitions = map[Status][]Status{
	StatusPending: {StatusSuccess, StatusFailed, StatusTimeout, StatusDeclined, StatusCancelled},
	StatusTimeout: {StatusPending, StatusSuccess, StatusFailed, StatusDeclined, StatusCancelled},
}

// Transaction is one payment attempt against one order.
type Transaction struct {
	ID           string
	OrderRef     string
	Amount       money.Amount
	Provider     Provider
	Type         Type
	Status       Status
	RefNum       string
	ApprovalCode string
	GatewayTxID  string
	Annotation   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a PENDING transaction with a fresh ID. The amount must be
// strictly positive and no larger than MaxAmount.
func New(orderRef string, amount money.Amount, provider Provider, txType Type) (Transaction, error) {
	if orderRef == "" {
		return Transaction{}, errors.New("transaction: order reference is required")
	}
	if !amount.IsPositive() || amount.Cmp(MaxAmount) > 0 {
		return Transaction{}, ErrInvalidAmount
	}
	now := time.Now()
	return Transaction{
		ID:        uuid.NewString(),
		OrderRef:  orderRef,
		Amount:    amount,
		Provider:  provider,
		Type:      txType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransition reports whether the transaction may move to the target
// status from its current one.
func (t *Transaction) CanTransition(target Status) bool {
	for _, s := range transitions[t.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Transition moves the transaction to the target status, failing with
// ErrInvalidTransition when the state machine does not allow it.
func (t *Transaction) Transition(target Status) error {
	if !t.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, target)
	}
	t.Status = target
	t.touch()
	return nil
}

// RecordGatewayRefs stores the identifiers the provider handed back.
func (t *Transaction) RecordGatewayRefs(refNum, approvalCode, gatewayTxID string) {
	if refNum != "" {
		t.RefNum = refNum
	}
	if approvalCode != "" {
		t.ApprovalCode = approvalCode
	}
	if gatewayTxID != "" {
		t.GatewayTxID = gatewayTxID
	}
	t.touch()
}

// Annotate overlays an administrative tag (dispute, suspicion,
// escalation) without touching the status classification.
func (t *Transaction) Annotate(tag string) {
	t.Annotation = tag
	t.touch()
}

// IsTerminal reports whether no further payment-driving transitions are
// possible. TIMEOUT is not terminal: it awaits retry or reconciliation.
func (t *Transaction) IsTerminal() bool {
	return len(transitions[t.Status]) == 0
}

// IsRefundable holds only for a successful payment.
func (t *Transaction) IsRefundable() bool {
	return t.Type == TypePayment && t.Status == StatusSuccess
}

// IsCancelable holds while the transaction is pending or timed out.
func (t *Transaction) IsCancelable() bool {
	return t.Status == StatusPending || t.Status == StatusTimeout
}

// IsSuccessful reports whether the transaction completed.
func (t *Transaction) IsSuccessful() bool {
	return t.Status == StatusSuccess
}

func (t *Transaction) touch() {
	t.UpdatedAt = time.Now()
}
