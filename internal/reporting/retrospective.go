// Package reporting aggregates transaction records into operator-facing
// summaries.
package reporting

import (
	"time"

	"github.com/yourorg/payment-core/internal/money"
	"github.com/yourorg/payment-core/internal/transaction"
)

// Retrospective summarizes a set of transactions: counts by outcome,
// successful volume, and where the failures came from.
type Retrospective struct {
	TotalTransactions int                          `json:"total_transactions"`
	Successful        int                          `json:"successful"`
	Failed            int                          `json:"failed"`
	Declined          int                          `json:"declined"`
	TimedOut          int                          `json:"timed_out"`
	Cancelled         int                          `json:"cancelled"`
	Pending           int                          `json:"pending"`
	TotalVolume       money.Amount                 `json:"total_volume"`
	RefundedVolume    money.Amount                 `json:"refunded_volume"`
	VolumeByProvider  map[transaction.Provider]money.Amount `json:"volume_by_provider"`
	UsageByProvider   map[transaction.Provider]int `json:"usage_by_provider"`
	StatusBreakdown   map[transaction.Status]int   `json:"status_breakdown"`
	Annotated         map[string]int               `json:"annotated"`
	From              time.Time                    `json:"from"`
	To                time.Time                    `json:"to"`
}

// Generate builds a Retrospective over the given transactions. Volume
// figures only count SUCCESS records: a declined or timed-out attempt
// moved no money.
func Generate(txs []transaction.Transaction) Retrospective {
	report := Retrospective{
		TotalVolume:      money.Zero(),
		RefundedVolume:   money.Zero(),
		VolumeByProvider: make(map[transaction.Provider]money.Amount),
		UsageByProvider:  make(map[transaction.Provider]int),
		StatusBreakdown:  make(map[transaction.Status]int),
		Annotated:        make(map[string]int),
	}

	for _, tx := range txs {
		report.TotalTransactions++
		report.UsageByProvider[tx.Provider]++
		report.StatusBreakdown[tx.Status]++
		if tx.Annotation != "" {
			report.Annotated[tx.Annotation]++
		}

		if report.From.IsZero() || tx.CreatedAt.Before(report.From) {
			report.From = tx.CreatedAt
		}
		if tx.UpdatedAt.After(report.To) {
			report.To = tx.UpdatedAt
		}

		switch tx.Status {
		case transaction.StatusSuccess:
			report.Successful++
			switch tx.Type {
			case transaction.TypeRefund:
				report.RefundedVolume = report.RefundedVolume.Add(tx.Amount)
			default:
				report.TotalVolume = report.TotalVolume.Add(tx.Amount)
				current, ok := report.VolumeByProvider[tx.Provider]
				if !ok {
					current = money.Zero()
				}
				report.VolumeByProvider[tx.Provider] = current.Add(tx.Amount)
			}
		case transaction.StatusFailed:
			report.Failed++
		case transaction.StatusDeclined:
			report.Declined++
		case transaction.StatusTimeout:
			report.TimedOut++
		case transaction.StatusCancelled:
			report.Cancelled++
		case transaction.StatusPending:
			report.Pending++
		}
	}

	return report
}
