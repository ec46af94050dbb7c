package retrieval

import (
	"fmt"
	"math"
	"strconv"

	"github.com/expr-lang/expr"
)

// ExprCalculator evaluates arithmetic expressions with expr-lang. Only pure
// expressions are accepted; there is no environment, so identifiers and
// function calls beyond expr's builtins fail at compile time.
type ExprCalculator struct{}

// NewExprCalculator returns a calculator for arithmetic expressions like
// "12 * 8" or "(3 + 4) / 2".
func NewExprCalculator() *ExprCalculator {
	return &ExprCalculator{}
}

func (c *ExprCalculator) Evaluate(expression string) (string, error) {
	program, err := expr.Compile(expression)
	if err != nil {
		return "", fmt.Errorf("calculate %q: %w", expression, err)
	}
	result, err := expr.Run(program, nil)
	if err != nil {
		return "", fmt.Errorf("calculate %q: %w", expression, err)
	}

	switch v := result.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return fmt.Sprint(v), nil
	}
}
