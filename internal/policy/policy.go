// Package policy evaluates dynamic business rules over gateway
// outcomes. Rules are govaluate expressions compiled once at
// construction; the first matching rule decides whether a failed call
// may be retried and whether the case needs manual review.
package policy

import (
	"fmt"
	"sort"

	"github.com/Knetic/govaluate"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	AllowRetry     bool
	EscalateManual bool
	Reason         string
}

// Rule pairs a govaluate expression with the decision applied when the
// expression evaluates to true. Lower Priority values are checked first.
type Rule struct {
	ID         string
	Expression string
	Priority   int
	Decision   Decision
}

// Input carries the evaluation parameters exposed to rule expressions.
type Input struct {
	Operation string // "initiate", "status", "refund", "cancel"
	Attempt   int    // completed attempts so far
	Transient bool   // transport-level failure without a provider verdict
	ErrorCode string
	Amount    float64
}

func (in Input) parameters() map[string]interface{} {
	return map[string]interface{}{
		"operation":  in.Operation,
		"attempt":    in.Attempt,
		"transient":  in.Transient,
		"error_code": in.ErrorCode,
		"amount":     in.Amount,
	}
}

type compiledRule struct {
	rule Rule
	expr *govaluate.EvaluableExpression
}

// Enforcer evaluates compiled rules in priority order.
type Enforcer struct {
	rules []compiledRule
}

// NewEnforcer compiles the given rules. A rule with an empty or
// malformed expression fails construction.
func NewEnforcer(rules []Rule) (*Enforcer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("policy: rule %q has an empty expression", r.ID)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("policy: failed to compile rule %q: %w", r.ID, err)
		}
		compiled = append(compiled, compiledRule{rule: r, expr: expr})
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority < compiled[j].rule.Priority
	})
	return &Enforcer{rules: compiled}, nil
}

// Evaluate returns the decision of the first rule whose expression
// matches the input. When no rule matches, the default decision denies
// retry without escalation.
func (e *Enforcer) Evaluate(in Input) (Decision, error) {
	params := in.parameters()
	for _, cr := range e.rules {
		result, err := cr.expr.Evaluate(params)
		if err != nil {
			return Decision{}, fmt.Errorf("policy: evaluating rule %q: %w", cr.rule.ID, err)
		}
		matched, ok := result.(bool)
		if !ok {
			return Decision{}, fmt.Errorf("policy: rule %q did not evaluate to a boolean", cr.rule.ID)
		}
		if matched {
			d := cr.rule.Decision
			if d.Reason == "" {
				d.Reason = cr.rule.ID
			}
			return d, nil
		}
	}
	return Decision{AllowRetry: false, Reason: "no rule matched"}, nil
}

// DefaultRules encode the conservative retry reading: only transient
// failures of provider-idempotent operations (initiate and status
// checks, deduplicated by order ref on the provider side) are retried,
// and only while attempts remain. Refund and cancel get one attempt
// per caller invocation.
func DefaultRules(maxAttempts int) []Rule {
	return []Rule{
		{
			ID:         "retry_transient_idempotent",
			Expression: fmt.Sprintf("transient && (operation == 'initiate' || operation == 'status') && attempt < %d", maxAttempts),
			Priority:   1,
			Decision:   Decision{AllowRetry: true, Reason: "transient failure of an idempotent operation"},
		},
		{
			ID:         "escalate_exhausted_large_amount",
			Expression: fmt.Sprintf("transient && attempt >= %d && amount >= 1000000", maxAttempts),
			Priority:   2,
			Decision:   Decision{EscalateManual: true, Reason: "retries exhausted on a large amount"},
		},
	}
}
