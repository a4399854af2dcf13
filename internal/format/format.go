// Package format renders amounts and ratios for display.
package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured
const DefaultCurrency = "USD"

// Undefined is shown in place of a value that cannot be computed
const Undefined = "—"

// currency returns the go-money currency for code, falling back to the default
func currency(code string) money.Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || money.GetCurrency(code) == nil {
		code = DefaultCurrency
	}
	// the constructor is the only way to get a never nil currency
	return *money.New(0, code).Currency()
}

var (
	minMinor = decimal.NewFromInt(math.MinInt64)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// Currency formats amount in the currency's minor units, rounding half away from zero
func Currency(amount decimal.Decimal, code string) string {
	cur := currency(code)
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	f := cur.Formatter()
	if minor.LessThan(minMinor) || minor.GreaterThan(maxMinor) {
		return formatBeyondInt64(f, minor)
	}
	return f.Format(minor.IntPart())
}

// formatBeyondInt64 lays out minor units too large for money.Formatter.Format
// with the same template, separators and grapheme
func formatBeyondInt64(f *money.Formatter, minor decimal.Decimal) string {
	sa := minor.Abs().String()
	if len(sa) <= f.Fraction {
		sa = strings.Repeat("0", f.Fraction-len(sa)+1) + sa
	}

	if f.Thousand != "" {
		for i := len(sa) - f.Fraction - 3; i > 0; i -= 3 {
			sa = sa[:i] + f.Thousand + sa[i:]
		}
	}
	if f.Fraction > 0 {
		sa = sa[:len(sa)-f.Fraction] + f.Decimal + sa[len(sa)-f.Fraction:]
	}

	sa = strings.Replace(f.Template, "1", sa, 1)
	sa = strings.Replace(sa, "$", f.Grapheme, 1)
	if minor.IsNegative() {
		sa = "-" + sa
	}
	return sa
}

// ValidCurrency reports whether code is a known ISO 4217 code
func ValidCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))) != nil
}

// Percent formats a ratio as a percentage with two decimals
func Percent(ratio domain.Option[decimal.Decimal]) string {
	v, ok := ratio.Get()
	if !ok {
		return Undefined
	}
	return v.Shift(2).StringFixed(2) + "%"
}

// Index formats a unitless index such as a concentration with two decimals
func Index(v domain.Option[float64]) string {
	f, ok := v.Get()
	if !ok {
		return Undefined
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
