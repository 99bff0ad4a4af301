// Package core provides the registry domain types and the shared
// formatting helpers used by tables, charts and exports.
//
// Amounts are kept as decimals end to end: the registry reports thousands of
// pesos and every display or aggregation works on the scaled value, so sums
// of regrouped slices stay exact.
package core

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatAmount renders an integer amount with '.' as thousands separator.
//
// The fractional part is dropped (truncated toward zero), matching how the
// dashboard has always shown pesos:
//   FormatAmount(1203000)   -> "1.203.000"
//   FormatAmount(999.99)    -> "999"
func FormatAmount(d decimal.Decimal) string {
	return humanize.FormatInteger("#.###,", int(d.Truncate(0).IntPart()))
}

// FormatCurrency is FormatAmount prefixed with the peso sign.
func FormatCurrency(d decimal.Decimal) string {
	return "$ " + FormatAmount(d)
}

// FormatMoney renders pesos with two decimals, '.' grouping and ',' as
// decimal separator: 1234.5 -> "$1.234,50".
func FormatMoney(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#.###,##", d.Round(2).InexactFloat64())
}

// Share returns part as a percentage of total. A zero total yields zero.
func Share(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(total)
}

// FormatPercent renders part/total with one decimal: "81.8%".
func FormatPercent(part, total decimal.Decimal) string {
	return Share(part, total).StringFixed(1) + "%"
}
