package workflow

import (
	"testing"

	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateConditions_AndSemantics(t *testing.T) {
	payload := map[string]interface{}{
		"call.status":       "completed",
		"call.duration_sec": 180,
		"call.transcript":   "caller asked about pricing plans",
	}

	conditions := []domain.Condition{
		{Field: "call.status", Operator: domain.OpEquals, Value: "completed"},
		{Field: "call.duration_sec", Operator: domain.OpGreater, Value: 60},
		{Field: "call.transcript", Operator: domain.OpContains, Value: "pricing"},
	}
	assert.True(t, evaluateConditions(conditions, payload))

	conditions = append(conditions, domain.Condition{Field: "call.duration_sec", Operator: domain.OpLess, Value: 10})
	assert.False(t, evaluateConditions(conditions, payload))
}

func TestEvaluateCondition_MissingFieldIsAlwaysFalse(t *testing.T) {
	payload := map[string]interface{}{"call.status": "completed"}

	assert.False(t, evaluateCondition(domain.Condition{Field: "call.sentiment", Operator: domain.OpEquals, Value: "positive"}, payload))
	assert.False(t, evaluateCondition(domain.Condition{Field: "call.sentiment", Operator: domain.OpNotEquals, Value: "positive"}, payload))
}

func TestEvaluateCondition_NumericComparison(t *testing.T) {
	payload := map[string]interface{}{"call.score": 7.5}
	assert.True(t, evaluateCondition(domain.Condition{Field: "call.score", Operator: domain.OpGreaterEq, Value: 7.5}, payload))
	assert.True(t, evaluateCondition(domain.Condition{Field: "call.score", Operator: domain.OpLess, Value: 8}, payload))
	assert.False(t, evaluateCondition(domain.Condition{Field: "call.score", Operator: domain.OpGreater, Value: 8}, payload))
}
