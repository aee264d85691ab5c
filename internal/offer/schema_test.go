package offer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord(t *testing.T) {
	data := []byte(`{
		"agent": {"name": "Ben Snell", "email": "bens@prdburleighheads.com.au"},
		"property": {"address": "1 Main St"},
		"buyers": [{"individual": {"firstName": "Jane", "surname": "Citizen"}, "signatureDate": "2025-03-14"}],
		"financials": {"purchasePrice": "$750000"},
		"solicitor": {"toBeAdvised": true}
	}`)

	r, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, "Ben Snell", r.Agent.Name)
	assert.Equal(t, "750,000", r.Financials.PurchasePrice)
	require.Len(t, r.Buyers, 1)
	assert.Equal(t, KindIndividual, r.Buyers[0].Kind)
	assert.True(t, r.Solicitor.ToBeAdvised)
}

func TestDecodeRecordRoundTrip(t *testing.T) {
	want := completeRecord()
	data, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeRecordRejectsShape(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no buyers", `{"buyers": []}`},
		{"missing buyers", `{"agent": {"name": "x"}}`},
		{"bad kind", `{"buyers": [{"kind": "company"}]}`},
		{"price not string", `{"buyers": [{}], "financials": {"purchasePrice": 500000}}`},
		{"bad signature", `{"buyers": [{"signature": "not-an-image"}]}`},
		{"bad date", `{"buyers": [{"signatureDate": "14/03/2025"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord([]byte(tt.data))
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestCheckSchemaMalformed(t *testing.T) {
	err := CheckSchema([]byte(`{not json`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSchema)
}
