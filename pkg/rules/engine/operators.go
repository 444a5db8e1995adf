package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
)

// evaluateOperator compares the actual field value with the compiled
// expected value. A nil actual means the field is absent.
func evaluateOperator(op ast.Operator, actual, expected any, re *regexp.Regexp) (bool, error) {
	switch op {
	case ast.OperatorEqual:
		return evaluateEqual(actual, expected), nil

	case ast.OperatorNotEqual:
		return !evaluateEqual(actual, expected), nil

	case ast.OperatorLessThan, ast.OperatorGreaterThan, ast.OperatorLessEqual, ast.OperatorGreaterEqual:
		return evaluateOrdering(op, actual, expected)

	case ast.OperatorContains:
		return evaluateContains(actual, expected)

	case ast.OperatorMatches:
		if actual == nil {
			return false, nil
		}
		return re.MatchString(toString(actual)), nil

	case ast.OperatorStartsWith:
		if actual == nil {
			return false, nil
		}
		return strings.HasPrefix(toString(actual), toString(expected)), nil

	case ast.OperatorEndsWith:
		if actual == nil {
			return false, nil
		}
		return strings.HasSuffix(toString(actual), toString(expected)), nil

	case ast.OperatorIn:
		return evaluateIn(actual, expected)

	case ast.OperatorNotIn:
		in, err := evaluateIn(actual, expected)
		return !in, err

	case ast.OperatorExists:
		want := true
		if b, ok := expected.(bool); ok {
			want = b
		}
		return (actual != nil) == want, nil

	default:
		return false, fmt.Errorf("unknown operator: %q", op)
	}
}

// evaluateEqual compares numbers by decimal value and everything else
// structurally.
func evaluateEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	actualNum, actualOK := toDecimal(actual)
	expectedNum, expectedOK := toDecimal(expected)
	if actualOK && expectedOK {
		return actualNum.Cmp(expectedNum) == 0
	}

	return reflect.DeepEqual(actual, expected)
}

func evaluateOrdering(op ast.Operator, actual, expected any) (bool, error) {
	if actual == nil {
		return false, nil
	}

	actualNum, ok := toDecimal(actual)
	if !ok {
		return false, &TypeMismatchError{Operator: op, Expected: "number", Actual: fmt.Sprintf("%T", actual)}
	}
	expectedNum, ok := toDecimal(expected)
	if !ok {
		return false, &TypeMismatchError{Operator: op, Expected: "number", Actual: fmt.Sprintf("%T", expected)}
	}

	c := actualNum.Cmp(expectedNum)
	switch op {
	case ast.OperatorLessThan:
		return c < 0, nil
	case ast.OperatorGreaterThan:
		return c > 0, nil
	case ast.OperatorLessEqual:
		return c <= 0, nil
	default:
		return c >= 0, nil
	}
}

// evaluateContains is substring match for strings and membership for lists.
func evaluateContains(actual, expected any) (bool, error) {
	switch a := actual.(type) {
	case nil:
		return false, nil
	case string:
		return strings.Contains(a, toString(expected)), nil
	case []any:
		for _, elem := range a {
			if evaluateEqual(normalize(elem), expected) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, &TypeMismatchError{Operator: ast.OperatorContains, Expected: "string or list", Actual: fmt.Sprintf("%T", actual)}
	}
}

func evaluateIn(actual, expected any) (bool, error) {
	list, ok := expected.([]any)
	if !ok {
		return false, &TypeMismatchError{Operator: ast.OperatorIn, Expected: "list", Actual: fmt.Sprintf("%T", expected)}
	}
	if actual == nil {
		return false, nil
	}
	for _, elem := range list {
		if evaluateEqual(actual, elem) {
			return true, nil
		}
	}
	return false, nil
}

// toDecimal converts numeric values to facts.Decimal.
func toDecimal(v any) (facts.Decimal, bool) {
	switch val := v.(type) {
	case facts.Decimal:
		return val, true
	case float64:
		d, err := facts.DecimalFromFloat(val)
		return d, err == nil
	case float32:
		d, err := facts.DecimalFromFloat(float64(val))
		return d, err == nil
	case int:
		return facts.DecimalFromInt(int64(val)), true
	case int32:
		return facts.DecimalFromInt(int64(val)), true
	case int64:
		return facts.DecimalFromInt(val), true
	default:
		return facts.Decimal{}, false
	}
}

// normalize converts raw JSON numbers found inside member lists.
func normalize(v any) any {
	if d, ok := toDecimal(v); ok {
		return d
	}
	return v
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}
