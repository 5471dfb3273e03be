package workflow

import (
	"testing"

	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	payload := map[string]interface{}{
		"call.to_number": "+14155551234",
		"call.status":    "completed",
	}
	got := interpolate("Call to {{call.to_number}} ended as {{call.status}}", payload)
	assert.Equal(t, "Call to +14155551234 ended as completed", got)
}

func TestInterpolate_UnresolvedPlaceholderBecomesEmpty(t *testing.T) {
	got := interpolate("score: {{call.score}}", map[string]interface{}{})
	assert.Equal(t, "score: ", got)
}

func TestInterpolateConfig_OnlyStringsAreSubstituted(t *testing.T) {
	payload := map[string]interface{}{"call.id": "abc-123"}
	config := domain.JSONB{
		"note":     "call {{call.id}} wrapped up",
		"priority": 3,
		"urgent":   true,
	}
	out := interpolateConfig(config, payload)
	assert.Equal(t, "call abc-123 wrapped up", out["note"])
	assert.Equal(t, 3, out["priority"])
	assert.Equal(t, true, out["urgent"])
}
