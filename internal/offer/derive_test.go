package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDeposit(t *testing.T) {
	tests := []struct {
		price, percent string
		want           string
	}{
		{"1,500,000", "10", "150,000"},
		{"500,000", "10", "50,000"},
		{"$750,000", "5", "37,500"},
		{"999", "2.5", "25"},
		{"1,000", "0", "0"},
		{"abc", "10", ""},
		{"1,500,000", "", ""},
		{"", "10", ""},
		{"1,500,000", "ten", ""},
		{"1,500,000.50", "10", "150,000"},
		{"9,000,000,000,000", "10", "900,000,000,000"},
		{"99999999999999999999999", "10", ""},
		{"9,000,000,000,000,000", "1000", ""},
	}

	for _, tt := range tests {
		t.Run(tt.price+"@"+tt.percent, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateDeposit(tt.price, tt.percent))
		})
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$50,000.00", "50,000"},
		{"1500000", "1,500,000"},
		{"999", "999"},
		{"1000", "1,000"},
		{"007", "7"},
		{"000", "0"},
		{"abc", ""},
		{"", ""},
		{"12 345 678", "12,345,678"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(tt.in))
		})
	}
}

func TestFormatCurrencyIdempotent(t *testing.T) {
	inputs := []string{
		"", "0", "0.5", ".5", "abc", "$1,234,567.89", "-12", "1.2.3", "10,00", "  42  ", "1e6",
	}
	for _, in := range inputs {
		once := FormatCurrency(in)
		assert.Equal(t, once, FormatCurrency(once), "input %q", in)
	}
}

func TestPlaceholders(t *testing.T) {
	d := DefaultPlaceholders()
	d.BalanceDepositPercent = "10"
	d.InitialDeposit = "5,000"

	r := New()
	ph := Placeholders(r, d)
	assert.Equal(t, "10% of purchase price", ph[FieldBalanceDeposit])
	assert.Equal(t, "5,000", ph[FieldInitialDeposit])
	assert.Equal(t, "Payable immediately", ph[FieldBalanceDepositTerms])
	assert.Equal(t, "30 days from contract date", ph[FieldSettlementDate])

	r.Financials.PurchasePrice = "500,000"
	ph = Placeholders(r, d)
	assert.Equal(t, "50,000", ph[FieldBalanceDeposit])
}

func TestAmountOf(t *testing.T) {
	assert.Equal(t, float64(55000), AmountOf("5,000")+AmountOf("50,000"))
	assert.Equal(t, float64(0), AmountOf(""))
	assert.Equal(t, "55,000", FormatAmount(55000))
	assert.Equal(t, "100,000,000,000,000,000,000", FormatAmount(1e20))
}
