package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseConditions decodes the stored condition JSON. Anything that is valid
// JSON but not an object (empty input, null, arrays, scalars) yields a nil
// map, which evaluates as a vacuous match: such rules always fire.
func parseConditions(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}
	conds, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	return conds, nil
}

// evalConditions applies every condition entry against the trigger data with
// implicit AND semantics; the first failing entry short-circuits to false.
//
// Only entries shaped {operator, value} are compared. Bare-literal entries
// are accepted but never checked; stored rules rely on that, so a literal
// mismatch must not block a rule. Unknown operators are non-blocking.
func evalConditions(conds map[string]interface{}, trigger map[string]interface{}) bool {
	if len(conds) == 0 {
		return true
	}
	for key, raw := range conds {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		op, ok := entry["operator"].(string)
		if !ok {
			continue
		}
		actual := getNestedValue(trigger, key)
		expected := entry["value"]

		switch op {
		case "equals":
			if !valueEqual(actual, expected) {
				return false
			}
		case "not_equals":
			if valueEqual(actual, expected) {
				return false
			}
		case "greater_than":
			a, aok := toFloat64(actual)
			b, bok := toFloat64(expected)
			if !aok || !bok || a <= b {
				return false
			}
		case "less_than":
			a, aok := toFloat64(actual)
			b, bok := toFloat64(expected)
			if !aok || !bok || a >= b {
				return false
			}
		case "contains":
			if !strings.Contains(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
				return false
			}
		case "in":
			list, ok := expected.([]interface{})
			if !ok {
				return false
			}
			found := false
			for _, item := range list {
				if valueEqual(actual, item) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// getNestedValue resolves a dotted path ("price.value") against the trigger
// data, returning nil when any segment is missing.
func getNestedValue(data map[string]interface{}, path string) interface{} {
	var current interface{} = data
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// valueEqual compares numerics by value and everything else by its string form.
func valueEqual(left, right interface{}) bool {
	if lf, lok := toFloat64(left); lok {
		if rf, rok := toFloat64(right); rok {
			return lf == rf
		}
	}
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
