package auth

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// ErrCredentialNotFound is returned for an unknown passkey.
var ErrCredentialNotFound = errors.New("credential not found")

// AdminUser is the webauthn user behind the admin passphrase. Its handle
// is derived from the gate fingerprint, so passkeys registered under an
// earlier passphrase no longer match.
type AdminUser struct {
	handle      []byte
	credentials []webauthn.Credential
}

// WebAuthnID returns the user handle.
func (u *AdminUser) WebAuthnID() []byte { return u.handle }

// WebAuthnName returns the account name shown by authenticators.
func (u *AdminUser) WebAuthnName() string { return "admin" }

// WebAuthnDisplayName returns a label for authenticator prompts.
func (u *AdminUser) WebAuthnDisplayName() string { return "Offer form admin" }

// WebAuthnCredentials returns the admin's current passkeys.
func (u *AdminUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

// Passkey describes a registered credential.
type Passkey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// PasskeyStore keeps admin passkeys in SQLite, each bound to the gate
// fingerprint it was registered under.
type PasskeyStore struct {
	db   *sql.DB
	gate *Gate
	now  func() time.Time
}

// NewPasskeyStore creates a passkey store.
func NewPasskeyStore(db *sql.DB, gate *Gate) *PasskeyStore {
	return &PasskeyStore{db: db, gate: gate, now: time.Now}
}

// CredentialID is the stored identifier of a webauthn credential.
func CredentialID(cred *webauthn.Credential) string {
	return hex.EncodeToString(cred.ID)
}

// AdminUser loads the admin with the passkeys valid under the current
// passphrase.
func (s *PasskeyStore) AdminUser() (*AdminUser, error) {
	fp := s.gate.Fingerprint()
	if fp == "" {
		return nil, ErrGateDisabled
	}

	rows, err := s.db.Query(
		"SELECT credential_json FROM passkey_credentials WHERE gate = ? ORDER BY created_at",
		fp,
	)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("warning: closing rows: %v\n", err)
		}
	}()

	creds := []webauthn.Credential{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		var c webauthn.Credential
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("unmarshaling credential: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	h := sha256.Sum256([]byte("offer-form/passkey\x00" + fp))
	return &AdminUser{handle: h[:], credentials: creds}, nil
}

// Register stores a new admin passkey under the current passphrase.
func (s *PasskeyStore) Register(name string, cred *webauthn.Credential) (*Passkey, error) {
	fp := s.gate.Fingerprint()
	if fp == "" {
		return nil, ErrGateDisabled
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("marshaling credential: %w", err)
	}

	pk := &Passkey{ID: CredentialID(cred), Name: name, CreatedAt: s.now().UTC()}
	if _, err := s.db.Exec(
		"INSERT INTO passkey_credentials (id, name, gate, credential_json, created_at) VALUES (?, ?, ?, ?, ?)",
		pk.ID, pk.Name, fp, string(data), pk.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}
	return pk, nil
}

// Used records a successful login with cred, saving its updated sign
// counter.
func (s *PasskeyStore) Used(cred *webauthn.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}

	result, err := s.db.Exec(
		"UPDATE passkey_credentials SET credential_json = ?, last_used_at = ? WHERE id = ? AND gate = ?",
		string(data), s.now().UTC(), CredentialID(cred), s.gate.Fingerprint(),
	)
	if err != nil {
		return fmt.Errorf("updating credential: %w", err)
	}
	return expectOne(result)
}

// List returns the passkeys valid under the current passphrase.
func (s *PasskeyStore) List() ([]Passkey, error) {
	rows, err := s.db.Query(
		"SELECT id, name, created_at, last_used_at FROM passkey_credentials WHERE gate = ? ORDER BY created_at",
		s.gate.Fingerprint(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("warning: closing rows: %v\n", err)
		}
	}()

	out := []Passkey{}
	for rows.Next() {
		var pk Passkey
		var lastUsed sql.NullTime
		if err := rows.Scan(&pk.ID, &pk.Name, &pk.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		if lastUsed.Valid {
			pk.LastUsedAt = &lastUsed.Time
		}
		out = append(out, pk)
	}
	return out, rows.Err()
}

// Delete removes a passkey. Sessions signed in with it go with it.
func (s *PasskeyStore) Delete(id string) error {
	result, err := s.db.Exec(
		"DELETE FROM passkey_credentials WHERE id = ? AND gate = ?",
		id, s.gate.Fingerprint(),
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return expectOne(result)
}

// Prune deletes passkeys registered under an earlier passphrase.
func (s *PasskeyStore) Prune() (int64, error) {
	result, err := s.db.Exec("DELETE FROM passkey_credentials WHERE gate != ?", s.gate.Fingerprint())
	if err != nil {
		return 0, fmt.Errorf("pruning credentials: %w", err)
	}
	return result.RowsAffected()
}

func expectOne(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return ErrCredentialNotFound
	}
	return nil
}
