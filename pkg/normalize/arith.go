package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsafeExpression is returned for anything other than numeric literals joined by * and +
var ErrUnsafeExpression = errors.New("expression is not a sum of products of numeric literals")

// EvalArithmetic evaluates a sum of products of decimal literals, e.g. "2*300+1.5".
// Multiplication binds tighter than addition. No other syntax is accepted.
func EvalArithmetic(expr string) (decimal.Decimal, error) {
	if expr == "" {
		return decimal.Zero, ErrUnsafeExpression
	}

	sum := decimal.Zero
	for _, term := range strings.Split(expr, "+") {
		product, err := evalProduct(term)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(product)
	}
	return sum, nil
}

func evalProduct(term string) (decimal.Decimal, error) {
	product := decimal.NewFromInt(1)
	for _, factor := range strings.Split(term, "*") {
		if !isNumericLiteral(factor) {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrUnsafeExpression, factor)
		}
		d, err := decimal.NewFromString(factor)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrUnsafeExpression, err)
		}
		product = product.Mul(d)
	}
	return product, nil
}

// isNumericLiteral accepts digits with at most one inner decimal point
func isNumericLiteral(s string) bool {
	if s == "" || s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}
	dots := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '.':
			dots++
		case s[i] < '0' || s[i] > '9':
			return false
		}
	}
	return dots <= 1
}
