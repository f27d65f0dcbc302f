package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	firstNumber = regexp.MustCompile(`\d+\.\d+|\d+`)
	// trailing unit letters and stray punctuation after a compound expression
	unitSuffix = regexp.MustCompile(`[a-z.]+$`)
	thousand   = decimal.NewFromInt(1000)
)

// Weight converts a weight expression to kilograms.
// "600g" -> 0.6, "1.2kg" -> 1.2, "2 x 300g" -> 0.6. Unparseable input yields nil.
func Weight(value interface{}) *float64 {
	s, ok := value.(string)
	if !ok {
		return nil
	}

	kg, ok := weightDecimal(s)
	if !ok {
		return nil
	}
	f := kg.InexactFloat64()
	return &f
}

func weightDecimal(s string) (decimal.Decimal, bool) {
	token := firstNumber.FindString(s)
	if token == "" {
		return decimal.Zero, false
	}

	var (
		value decimal.Decimal
		err   error
	)
	if strings.Contains(s, "x") {
		value, err = compoundValue(s)
	} else {
		value, err = decimal.NewFromString(token)
	}
	if err != nil {
		return decimal.Zero, false
	}

	if strings.Contains(s, "g") && !strings.Contains(s, "kg") {
		value = value.Div(thousand)
	}
	return value, true
}

// compoundValue evaluates "2 x 300g" style expressions as 2*300
func compoundValue(s string) (decimal.Decimal, error) {
	expr := strings.ReplaceAll(s, "x", "*")
	expr = strings.Join(strings.Fields(expr), "")
	expr = unitSuffix.ReplaceAllString(expr, "")
	return EvalArithmetic(expr)
}
