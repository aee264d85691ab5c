package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const completeRecordJSON = `{
	"agent": {"name": "General Office", "email": "admin@prdburleighheads.com.au"},
	"property": {"address": "4D/238 The Esplanade"},
	"financials": {"purchasePrice": "500,000", "initialDeposit": "5,000", "balanceDeposit": "45,000"},
	"solicitor": {"toBeAdvised": true},
	"buyers": [{
		"individual": {"firstName": "Jane", "surname": "Citizen"},
		"email": "jane@example.com",
		"phone": "0400 000 000",
		"address": "1 Main St",
		"signature": "data:image/png;base64,iVBORw0KGgo=",
		"signatureDate": "2025-03-14"
	}]
}`

func writeRecord(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offer.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write record: %v", err)
	}
	return path
}

func TestValidateComplete(t *testing.T) {
	out, err := executeCommand("validate", "--offline", writeRecord(t, completeRecordJSON))
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Ready to submit") {
		t.Errorf("output = %q", out)
	}
}

func TestValidateMissingFields(t *testing.T) {
	out, err := executeCommand("validate", "--offline", writeRecord(t, `{"buyers": [{}]}`))
	if err == nil {
		t.Fatal("expected error for incomplete record")
	}
	if !strings.Contains(out, "Agent is required") {
		t.Errorf("output missing agent error:\n%s", out)
	}
	if !strings.Contains(out, "Buyer 1: first name is required") {
		t.Errorf("output missing buyer error:\n%s", out)
	}
}

func TestValidateRejectsShape(t *testing.T) {
	_, err := executeCommand("validate", "--offline", writeRecord(t, `{"buyers": []}`))
	if err == nil {
		t.Fatal("expected schema error")
	}
}

func TestValidateMissingFile(t *testing.T) {
	_, err := executeCommand("validate", "--offline", filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDeposit(t *testing.T) {
	tests := []struct {
		price, percent string
		want           string
	}{
		{"1500000", "10", "$150,000\n"},
		{"$750,000", "5", "$37,500\n"},
	}

	for _, tt := range tests {
		out, err := executeCommand("deposit", tt.price, tt.percent)
		if err != nil {
			t.Fatalf("deposit %s %s: %v", tt.price, tt.percent, err)
		}
		if out != tt.want {
			t.Errorf("deposit %s %s = %q, want %q", tt.price, tt.percent, out, tt.want)
		}
	}

	if _, err := executeCommand("deposit", "abc", "10"); err == nil {
		t.Error("expected error for unusable price")
	}
}
