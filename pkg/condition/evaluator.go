// Package condition provides branch condition evaluation against run context data.
package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator identifies a comparison applied by a condition node.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorStartsWith  Operator = "starts_with"
	OperatorEndsWith    Operator = "ends_with"
)

// Operators lists every supported operator.
var Operators = []Operator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorContains,
	OperatorNotContains,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorStartsWith,
	OperatorEndsWith,
}

// Valid reports whether the operator is one of the supported comparisons.
func (o Operator) Valid() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}

	return false
}

// Result carries the evaluated boolean plus an optional diagnostic note.
// Evaluation never fails: type mismatches and absent fields resolve to a
// defined boolean and the note explains why.
type Result struct {
	Value bool
	Note  string
}

// Evaluate resolves field against the context using dotted-path lookup and
// applies the operator to the resolved value and the configured value.
//
// An absent field evaluates to false for every operator except not_equals
// and not_contains, which evaluate to true (the field trivially differs
// from / does not contain the expected value).
func Evaluate(field string, operator Operator, value string, context map[string]any) Result {
	resolved, found := Lookup(field, context)
	if !found {
		switch operator {
		case OperatorNotEquals, OperatorNotContains:
			return Result{Value: true, Note: fmt.Sprintf("field %q absent from context", field)}
		default:
			return Result{Value: false, Note: fmt.Sprintf("field %q absent from context", field)}
		}
	}

	fieldStr := coerceString(resolved)

	switch operator {
	case OperatorEquals:
		return Result{Value: fieldStr == value}
	case OperatorNotEquals:
		return Result{Value: fieldStr != value}
	case OperatorContains:
		return Result{Value: strings.Contains(fieldStr, value)}
	case OperatorNotContains:
		return Result{Value: !strings.Contains(fieldStr, value)}
	case OperatorGreaterThan, OperatorLessThan:
		return compareNumeric(operator, fieldStr, value)
	case OperatorStartsWith:
		return Result{Value: strings.HasPrefix(fieldStr, value)}
	case OperatorEndsWith:
		return Result{Value: strings.HasSuffix(fieldStr, value)}
	default:
		return Result{Value: false, Note: fmt.Sprintf("unknown operator %q", operator)}
	}
}

// Lookup resolves a dotted path (e.g. "contact.status") against nested
// map[string]any values.
func Lookup(path string, context map[string]any) (any, bool) {
	if path == "" || context == nil {
		return nil, false
	}

	segments := strings.Split(path, ".")
	current := any(context)

	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		value, exists := node[segment]
		if !exists {
			return nil, false
		}

		current = value
	}

	return current, true
}

func compareNumeric(operator Operator, fieldStr, value string) Result {
	fieldNum, errField := strconv.ParseFloat(strings.TrimSpace(fieldStr), 64)
	valueNum, errValue := strconv.ParseFloat(strings.TrimSpace(value), 64)

	if errField != nil || errValue != nil {
		return Result{
			Value: false,
			Note:  fmt.Sprintf("non-numeric operands for %s: field=%q value=%q", operator, fieldStr, value),
		}
	}

	if operator == OperatorGreaterThan {
		return Result{Value: fieldNum > valueNum}
	}

	return Result{Value: fieldNum < valueNum}
}

// coerceString renders context values the way condition comparisons expect:
// numbers without a trailing ".0" when integral, everything else via fmt.
func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}

		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return coerceString(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
