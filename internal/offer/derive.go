package offer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonDigit     = regexp.MustCompile(`[^0-9]`)
	nonNumeric   = regexp.MustCompile(`[^0-9.]`)
	leadingFloat = regexp.MustCompile(`^\s*(\d+\.?\d*|\.\d+)`)
)

// maxAmount is the largest whole-dollar amount a float64 holds exactly.
const maxAmount = 1 << 53

// FormatCurrency normalizes a price-like input: any decimal fraction is
// dropped, every non-digit removed and thousands separators re-inserted.
// FormatCurrency("$50,000.00") == "50,000".
func FormatCurrency(raw string) string {
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}
	digits := nonDigit.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}
	return groupThousands(digits)
}

// CalculateDeposit returns percent% of price, rounded to whole dollars and
// formatted with thousands separators. It returns "" when either input
// does not parse as a number or the result is out of range.
func CalculateDeposit(price, percent string) string {
	p, ok := parsePrice(price)
	if !ok {
		return ""
	}
	pct, ok := parsePercent(percent)
	if !ok {
		return ""
	}
	amount := math.Round(p * pct / 100)
	if amount > maxAmount {
		return ""
	}
	return groupThousands(strconv.FormatInt(int64(amount), 10))
}

// AmountOf parses a formatted amount back into whole dollars.
// Blank or unparseable input yields 0.
func AmountOf(s string) float64 {
	v, ok := parsePrice(s)
	if !ok {
		return 0
	}
	return v
}

// FormatAmount renders whole dollars with thousands separators.
func FormatAmount(v float64) string {
	return groupThousands(strconv.FormatFloat(math.Round(v), 'f', 0, 64))
}

// Placeholders returns the hint text shown in each optional field, keyed by
// field path. Percentage-based deposits show the computed amount once a
// purchase price has been entered.
func Placeholders(r Record, d Defaults) map[string]string {
	out := map[string]string{
		FieldPurchasePrice:       d.PurchasePrice,
		FieldInitialDeposit:      d.InitialDeposit,
		FieldBalanceDeposit:      d.BalanceDeposit,
		FieldBalanceDepositTerms: d.BalanceDepositTerms,
		FieldFinanceDate:         d.FinanceDate,
		FieldInspectionDate:      d.InspectionDate,
		FieldSettlementDate:      d.SettlementDate,
		FieldSpecialConditions:   d.SpecialConditions,
	}

	deposits := []struct{ field, percent string }{
		{FieldInitialDeposit, d.InitialDepositPercent},
		{FieldBalanceDeposit, d.BalanceDepositPercent},
	}
	for _, dep := range deposits {
		if strings.TrimSpace(dep.percent) == "" {
			continue
		}
		if amount := CalculateDeposit(r.Financials.PurchasePrice, dep.percent); amount != "" {
			out[dep.field] = amount
		} else {
			out[dep.field] = fmt.Sprintf("%s%% of purchase price", strings.TrimSpace(dep.percent))
		}
	}

	return out
}

func parsePrice(s string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	m := leadingFloat.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil || v > maxAmount {
		return 0, false
	}
	return v, true
}

func parsePercent(s string) (float64, bool) {
	m := leadingFloat.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil || v > maxAmount {
		return 0, false
	}
	return v, true
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
