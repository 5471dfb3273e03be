package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/passthekeys/outbound-core/internal/domain"
)

// evaluateConditions implements §4.8 step 1: AND-semantics over a list of
// (field, operator, value) clauses. A field absent from payload compares as
// false for every operator, including !=.
func evaluateConditions(conditions []domain.Condition, payload map[string]interface{}) bool {
	for _, c := range conditions {
		if !evaluateCondition(c, payload) {
			return false
		}
	}
	return true
}

func evaluateCondition(c domain.Condition, payload map[string]interface{}) bool {
	actual, ok := payload[c.Field]
	if !ok {
		return false
	}
	switch c.Operator {
	case domain.OpEquals:
		return compareEqual(actual, c.Value)
	case domain.OpNotEquals:
		return !compareEqual(actual, c.Value)
	case domain.OpGreater, domain.OpLess, domain.OpGreaterEq, domain.OpLessEq:
		af, aok := toFloat(actual)
		bf, bok := toFloat(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case domain.OpGreater:
			return af > bf
		case domain.OpLess:
			return af < bf
		case domain.OpGreaterEq:
			return af >= bf
		case domain.OpLessEq:
			return af <= bf
		}
	case domain.OpContains:
		return strings.Contains(toString(actual), toString(c.Value))
	case domain.OpNotContains:
		return !strings.Contains(toString(actual), toString(c.Value))
	}
	return false
}

func compareEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return toString(a) == toString(b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
