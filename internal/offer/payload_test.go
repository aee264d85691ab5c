package offer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayloadSubstitutesDefaults(t *testing.T) {
	r := NewAt(testNow)
	r, err := r.SelectAgent(AgentList{{Name: "General Office", Email: "admin@prdburleighheads.com.au"}}, "General Office")
	require.NoError(t, err)
	r.Property.Address = "4D/238 The Esplanade"
	r.Financials.PurchasePrice = "500,000"
	r.Financials.InitialDeposit = "5,000"
	r.Solicitor.ToBeAdvised = true

	r, err = r.ToggleBuyerEntity(0)
	require.NoError(t, err)
	fields := map[string]string{
		"entityName": "Citizen Pty Ltd",
		"abn":        "12 345 678 901",
		"acn":        "345 678 901",
		"email":      "buyer@example.com",
		"phone":      "0400 000 000",
		"address":    "1 Main St",
		"signature":  "data:image/png;base64,iVBORw0KGgo=",
	}
	for k, v := range fields {
		r, err = r.SetBuyerField(0, k, v)
		require.NoError(t, err)
	}

	d := DefaultPlaceholders()
	d.BalanceDepositPercent = "10"
	errs := Validate(r, d)
	assert.False(t, errs.Has(FieldBalanceDeposit))
	assert.Zero(t, errs.Len(), errs.Messages())

	p := BuildPayload(r, d, nil, testNow)
	assert.Equal(t, "50,000", p.Financials.BalanceDeposit)
	assert.Equal(t, "5,000", p.Financials.InitialDeposit)
	assert.Equal(t, "Payable immediately", p.Financials.BalanceDepositTerms)
	assert.Equal(t, "14 days from contract date", p.Conditions.FinanceDate)
	assert.Equal(t, "30 days from contract date", p.Conditions.SettlementDate)
	assert.Equal(t, "2025-03-14T09:30:00Z", p.SubmittedAt)
	assert.Equal(t, "Offer_4D_238_The_Esplanade_2025-03-14.pdf", p.PDFFilename)
	assert.Nil(t, p.PDFBase64)

	require.Len(t, p.Buyers, 1)
	assert.Equal(t, KindEntity, p.Buyers[0].Kind)
	assert.Equal(t, "Citizen Pty Ltd", p.Buyers[0].Name)
	assert.Empty(t, p.Buyers[0].FirstName)

	// The stored record keeps the blank value.
	assert.Empty(t, r.Financials.BalanceDeposit)
}

func TestBuildPayloadKeepsExplicitValues(t *testing.T) {
	r := completeRecord()
	r.Conditions.FinanceDate = "1 April"
	pdf := "JVBERi0="

	p := BuildPayload(r, DefaultPlaceholders(), &pdf, testNow)
	assert.Equal(t, "45,000", p.Financials.BalanceDeposit)
	assert.Equal(t, "1 April", p.Conditions.FinanceDate)
	require.NotNil(t, p.PDFBase64)

	body, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "JVBERi0=", decoded["pdfBase64"])
	buyer := decoded["buyers"].([]any)[0].(map[string]any)
	assert.Equal(t, "Jane", buyer["firstName"])
	assert.NotContains(t, buyer, "abn")
}

func TestBuildPayloadNullPDF(t *testing.T) {
	body, err := json.Marshal(BuildPayload(completeRecord(), Defaults{}, nil, testNow))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"pdfBase64":null`)
}

func TestPDFFilename(t *testing.T) {
	assert.Equal(t, "Offer_Property_2025-03-14.pdf", PDFFilename("", testNow))
	assert.Equal(t, "Offer_12_Smith_St_2025-03-14.pdf", PDFFilename(" 12 Smith St. ", testNow))
}
