package auth

import (
	"strings"
	"testing"
)

func TestGateCheck(t *testing.T) {
	g := NewGate("letmein")

	tests := []struct {
		candidate string
		want      bool
	}{
		{"letmein", true},
		{"letmein ", false},
		{"LETMEIN", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			if got := g.Check(tt.candidate); got != tt.want {
				t.Errorf("Check(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestGateDisabled(t *testing.T) {
	g := NewGate("")
	if g.Enabled() {
		t.Error("expected gate to be disabled")
	}
	if g.Check("") {
		t.Error("disabled gate should reject an empty passphrase")
	}
}

func TestGateFingerprint(t *testing.T) {
	a := NewGate("letmein")
	if a.Fingerprint() == "" {
		t.Fatal("expected a fingerprint for an enabled gate")
	}
	if got := NewGate("letmein").Fingerprint(); got != a.Fingerprint() {
		t.Errorf("fingerprint changed for the same passphrase: %q vs %q", got, a.Fingerprint())
	}
	if NewGate("letmein2").Fingerprint() == a.Fingerprint() {
		t.Error("expected a different fingerprint after rotating the passphrase")
	}
	if strings.Contains(a.Fingerprint(), "letmein") {
		t.Error("fingerprint leaks the passphrase")
	}
	if got := NewGate("").Fingerprint(); got != "" {
		t.Errorf("disabled gate fingerprint = %q, want empty", got)
	}
}
