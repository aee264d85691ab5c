package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrGateDisabled is returned when an admin grant is requested while no
// passphrase is configured.
var ErrGateDisabled = errors.New("admin passphrase not configured")

// Gate checks the shared admin passphrase. A gate built with an empty
// passphrase rejects every attempt.
//
// Every admin grant (session or passkey) records the gate's fingerprint
// when it is issued. Changing the passphrase changes the fingerprint, so
// rotating it revokes all of them.
type Gate struct {
	digest      [32]byte
	fingerprint string
	enabled     bool
}

// NewGate creates a gate for the given passphrase.
func NewGate(passphrase string) *Gate {
	fp := sha256.Sum256([]byte("offer-form/admin\x00" + passphrase))
	return &Gate{
		digest:      sha256.Sum256([]byte(passphrase)),
		fingerprint: hex.EncodeToString(fp[:8]),
		enabled:     passphrase != "",
	}
}

// Enabled reports whether a passphrase is configured.
func (g *Gate) Enabled() bool { return g.enabled }

// Check compares candidate against the passphrase in constant time.
func (g *Gate) Check(candidate string) bool {
	if !g.enabled {
		return false
	}
	sum := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(sum[:], g.digest[:]) == 1
}

// Fingerprint identifies the current passphrase without revealing it. A
// disabled gate has no fingerprint and honours no grants.
func (g *Gate) Fingerprint() string {
	if !g.enabled {
		return ""
	}
	return g.fingerprint
}
