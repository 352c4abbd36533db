package orchestrator

import (
	"net/http"

	"github.com/yourorg/payment-core/internal/transaction"
)

// PaymentResult is the outcome of one orchestrator operation, shaped
// for the HTTP surface: ResponseCode is the status the handler should
// return.
type PaymentResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ApprovalCode  string `json:"approval_code,omitempty"`
	ResponseCode  int    `json:"-"`
}

// IsRetryableFailure reports whether the failed operation may be
// re-driven later: the provider never gave a verdict.
func (r PaymentResult) IsRetryableFailure() bool {
	return !r.Success && r.ResponseCode == http.StatusGatewayTimeout
}

// failure builds a result for an operation rejected before any
// transaction was touched.
func failure(code, message string, responseCode int) PaymentResult {
	return PaymentResult{
		Success:      false,
		Message:      message,
		ErrorCode:    code,
		ResponseCode: responseCode,
	}
}

// result builds a failure result tied to an existing transaction.
func result(tx transaction.Transaction, success bool, code, message string, responseCode int) PaymentResult {
	return PaymentResult{
		Success:       success,
		Message:       message,
		TransactionID: tx.ID,
		ErrorCode:     code,
		ResponseCode:  responseCode,
	}
}
