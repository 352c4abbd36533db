package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnforcer_EmptyAndNilRules(t *testing.T) {
	e, err := NewEnforcer(nil)
	require.NoError(t, err)
	assert.NotNil(t, e)

	e, err = NewEnforcer([]Rule{})
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestNewEnforcer_CompilationErrors(t *testing.T) {
	t.Run("MalformedExpression", func(t *testing.T) {
		_, err := NewEnforcer([]Rule{
			{ID: "ok", Expression: "amount > 100"},
			{ID: "broken", Expression: "error_code =="},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `rule "broken"`)
	})

	t.Run("EmptyExpression", func(t *testing.T) {
		_, err := NewEnforcer([]Rule{{ID: "empty", Expression: ""}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty expression")
	})
}

func TestEnforcer_Evaluate(t *testing.T) {
	rules := []Rule{
		{
			ID: "large_amount_escalate", Expression: "amount >= 1000000", Priority: 1,
			Decision: Decision{EscalateManual: true},
		},
		{
			ID: "transient_retry", Expression: "transient && attempt < 3", Priority: 2,
			Decision: Decision{AllowRetry: true},
		},
	}
	e, err := NewEnforcer(rules)
	require.NoError(t, err)

	t.Run("NoRuleMatches_DefaultDenies", func(t *testing.T) {
		d, err := e.Evaluate(Input{Operation: "initiate", Attempt: 1, Transient: false, Amount: 500})
		require.NoError(t, err)
		assert.False(t, d.AllowRetry)
		assert.False(t, d.EscalateManual)
		assert.Equal(t, "no rule matched", d.Reason)
	})

	t.Run("FirstMatchingRuleWins", func(t *testing.T) {
		// Both rules match; priority 1 decides.
		d, err := e.Evaluate(Input{Operation: "initiate", Attempt: 1, Transient: true, Amount: 2000000})
		require.NoError(t, err)
		assert.True(t, d.EscalateManual)
		assert.False(t, d.AllowRetry)
		assert.Equal(t, "large_amount_escalate", d.Reason)
	})

	t.Run("RetryRuleMatches", func(t *testing.T) {
		d, err := e.Evaluate(Input{Operation: "status", Attempt: 2, Transient: true, Amount: 100})
		require.NoError(t, err)
		assert.True(t, d.AllowRetry)
	})

	t.Run("PriorityOrderBeatsDeclarationOrder", func(t *testing.T) {
		reversed, err := NewEnforcer([]Rule{rules[1], rules[0]})
		require.NoError(t, err)
		d, err := reversed.Evaluate(Input{Transient: true, Attempt: 0, Amount: 2000000})
		require.NoError(t, err)
		assert.True(t, d.EscalateManual, "lower priority value must still win")
	})
}

func TestDefaultRules(t *testing.T) {
	e, err := NewEnforcer(DefaultRules(3))
	require.NoError(t, err)

	t.Run("TransientInitiateRetries", func(t *testing.T) {
		d, err := e.Evaluate(Input{Operation: "initiate", Attempt: 1, Transient: true, Amount: 100})
		require.NoError(t, err)
		assert.True(t, d.AllowRetry)
	})

	t.Run("AttemptsExhausted", func(t *testing.T) {
		d, err := e.Evaluate(Input{Operation: "initiate", Attempt: 3, Transient: true, Amount: 100})
		require.NoError(t, err)
		assert.False(t, d.AllowRetry)
	})

	t.Run("PermanentDeclineNeverRetries", func(t *testing.T) {
		d, err := e.Evaluate(Input{Operation: "initiate", Attempt: 0, Transient: false, ErrorCode: "SADAD_DECLINED"})
		require.NoError(t, err)
		assert.False(t, d.AllowRetry)
	})

	t.Run("RefundNeverAutoRetries", func(t *testing.T) {
		d, err := e.Evaluate(Input{Operation: "refund", Attempt: 0, Transient: true})
		require.NoError(t, err)
		assert.False(t, d.AllowRetry)
	})

	t.Run("ExhaustedLargeAmountEscalates", func(t *testing.T) {
		d, err := e.Evaluate(Input{Operation: "initiate", Attempt: 3, Transient: true, Amount: 1500000})
		require.NoError(t, err)
		assert.True(t, d.EscalateManual)
	})
}
