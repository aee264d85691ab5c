package auth

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

func TestPasskeyRegisterAndList(t *testing.T) {
	store := NewPasskeyStore(testDB(t), NewGate("letmein"))

	cred := &webauthn.Credential{ID: []byte("test-credential-id"), PublicKey: []byte("test-public-key")}
	pk, err := store.Register("My Laptop", cred)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if pk.ID != CredentialID(cred) {
		t.Errorf("id = %q, want %q", pk.ID, CredentialID(cred))
	}

	stored, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d passkeys, want 1", len(stored))
	}
	if stored[0].Name != "My Laptop" {
		t.Errorf("name = %q, want %q", stored[0].Name, "My Laptop")
	}
	if stored[0].LastUsedAt != nil {
		t.Errorf("last used = %v, want nil before first login", stored[0].LastUsedAt)
	}
}

func TestPasskeyRegisterRequiresPassphrase(t *testing.T) {
	store := NewPasskeyStore(testDB(t), NewGate(""))

	cred := &webauthn.Credential{ID: []byte("c"), PublicKey: []byte("k")}
	if _, err := store.Register("Phone", cred); !errors.Is(err, ErrGateDisabled) {
		t.Errorf("register err = %v, want ErrGateDisabled", err)
	}
	if _, err := store.AdminUser(); !errors.Is(err, ErrGateDisabled) {
		t.Errorf("admin user err = %v, want ErrGateDisabled", err)
	}
}

func TestPasskeyAdminUser(t *testing.T) {
	store := NewPasskeyStore(testDB(t), NewGate("letmein"))

	for _, id := range []string{"cred-1", "cred-2"} {
		if _, err := store.Register(id, &webauthn.Credential{ID: []byte(id), PublicKey: []byte("key")}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	user, err := store.AdminUser()
	if err != nil {
		t.Fatalf("admin user: %v", err)
	}
	if user.WebAuthnName() != "admin" {
		t.Errorf("name = %q", user.WebAuthnName())
	}
	if len(user.WebAuthnID()) != 32 {
		t.Errorf("handle length = %d, want 32", len(user.WebAuthnID()))
	}
	if got := len(user.WebAuthnCredentials()); got != 2 {
		t.Errorf("credentials = %d, want 2", got)
	}
}

func TestPasskeysLapseWithPassphrase(t *testing.T) {
	d := testDB(t)
	before := NewPasskeyStore(d, NewGate("letmein"))
	if _, err := before.Register("Phone", &webauthn.Credential{ID: []byte("phone"), PublicKey: []byte("key")}); err != nil {
		t.Fatalf("register: %v", err)
	}
	oldUser, err := before.AdminUser()
	if err != nil {
		t.Fatalf("admin user: %v", err)
	}

	after := NewPasskeyStore(d, NewGate("rotated"))
	newUser, err := after.AdminUser()
	if err != nil {
		t.Fatalf("admin user: %v", err)
	}
	if bytes.Equal(oldUser.WebAuthnID(), newUser.WebAuthnID()) {
		t.Error("expected a new user handle after rotating the passphrase")
	}
	if got := len(newUser.WebAuthnCredentials()); got != 0 {
		t.Errorf("credentials = %d, want 0 under the new passphrase", got)
	}
	if stored, err := after.List(); err != nil || len(stored) != 0 {
		t.Errorf("list = %v, %v; want empty", stored, err)
	}
	if err := after.Delete(CredentialID(&webauthn.Credential{ID: []byte("phone")})); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("delete err = %v, want ErrCredentialNotFound", err)
	}

	n, err := after.Prune()
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
}

func TestPasskeyUsed(t *testing.T) {
	store := NewPasskeyStore(testDB(t), NewGate("letmein"))
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	cred := &webauthn.Credential{ID: []byte("phone"), PublicKey: []byte("key")}
	if _, err := store.Register("Phone", cred); err != nil {
		t.Fatalf("register: %v", err)
	}

	cred.Authenticator.SignCount = 7
	if err := store.Used(cred); err != nil {
		t.Fatalf("used: %v", err)
	}

	stored, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if stored[0].LastUsedAt == nil || !stored[0].LastUsedAt.Equal(at) {
		t.Errorf("last used = %v, want %v", stored[0].LastUsedAt, at)
	}

	user, err := store.AdminUser()
	if err != nil {
		t.Fatalf("admin user: %v", err)
	}
	if got := user.WebAuthnCredentials()[0].Authenticator.SignCount; got != 7 {
		t.Errorf("sign count = %d, want 7", got)
	}

	unknown := &webauthn.Credential{ID: []byte("nope")}
	if err := store.Used(unknown); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("err = %v, want ErrCredentialNotFound", err)
	}
}

func TestPasskeyDelete(t *testing.T) {
	store := NewPasskeyStore(testDB(t), NewGate("letmein"))

	cred := &webauthn.Credential{ID: []byte("delete-me"), PublicKey: []byte("key")}
	pk, err := store.Register("To Delete", cred)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := store.Delete(pk.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(pk.ID); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("second delete err = %v, want ErrCredentialNotFound", err)
	}

	stored, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("got %d passkeys after delete, want 0", len(stored))
	}
}
