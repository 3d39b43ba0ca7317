package derive

import (
	"fmt"
	"strings"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

// Currency math. Every division is guarded so zero rates and zero weights
// yield 0, never NaN or Inf.

// InvoiceValueUAH converts an invoice-currency price into hryvnia.
func InvoiceValueUAH(price, exchangeRate float64) float64 {
	return price * exchangeRate
}

// ValueUSD converts a hryvnia value into dollars at the given rate.
func ValueUSD(valueUAH, usdRate float64) float64 {
	if usdRate > 0 {
		return valueUAH / usdRate
	}
	return 0
}

// ValueUSDPerKg is the per-kilogram dollar value of a goods item.
func ValueUSDPerKg(valueUSD, netWeight float64) float64 {
	if netWeight > 0 {
		return valueUSD / netWeight
	}
	return 0
}

// SumPaymentsByCode groups a payment list by code, summing amounts. Group
// order follows first appearance.
func SumPaymentsByCode(payments []model.Payment) ([]string, map[string]model.Payment) {
	order := make([]string, 0, len(payments))
	groups := make(map[string]model.Payment, len(payments))
	for _, p := range payments {
		g, seen := groups[p.Code]
		if !seen {
			order = append(order, p.Code)
			g = model.Payment{Code: p.Code, Char: p.Char}
		}
		g.Amount += p.Amount
		groups[p.Code] = g
	}
	return order, groups
}

// FormatPayments renders a payment list as "code char: amount; ..." with
// amounts grouped by code.
func FormatPayments(payments []model.Payment) string {
	if len(payments) == 0 {
		return NoData
	}
	order, groups := SumPaymentsByCode(payments)
	parts := make([]string, 0, len(order))
	for _, code := range order {
		g := groups[code]
		label := g.Code
		if g.Char != "" {
			label = g.Code + " " + g.Char
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, FormatAmount(g.Amount)))
	}
	return strings.Join(parts, "; ")
}

// FormatAmount renders a monetary amount with two decimals and thin-space
// thousands grouping, matching the dashboard's uk-UA number format.
func FormatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
