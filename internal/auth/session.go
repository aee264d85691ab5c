package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	sessionExpiry = 7 * 24 * time.Hour
	cookieName    = "offer_session"
)

var (
	// ErrNoSession is returned when a request carries no usable session.
	ErrNoSession = errors.New("no admin session")
	// ErrSessionExpired is returned for a session past its expiry.
	ErrSessionExpired = errors.New("admin session expired")
	// ErrSessionRevoked is returned for a session issued under a different
	// passphrase.
	ErrSessionRevoked = errors.New("admin session revoked")
)

// Method is how an admin session was obtained.
type Method string

const (
	MethodPassphrase Method = "passphrase"
	MethodPasskey    Method = "passkey"
)

// Grant is the admin capability carried by a session cookie.
type Grant struct {
	Method       Method    `json:"method"`
	CredentialID string    `json:"credentialId,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// SessionStore keeps admin sessions in SQLite. Sessions are only honoured
// while the gate still has the fingerprint they were issued under; a
// passkey session is deleted with its credential.
type SessionStore struct {
	db     *sql.DB
	gate   *Gate
	secure bool
	now    func() time.Time
}

// NewSessionStore creates a session store. secure marks cookies
// HTTPS-only.
func NewSessionStore(db *sql.DB, gate *Gate, secure bool) *SessionStore {
	return &SessionStore{db: db, gate: gate, secure: secure, now: time.Now}
}

// GrantPassphrase starts a session for a caller who entered the passphrase.
func (s *SessionStore) GrantPassphrase(w http.ResponseWriter) (Grant, error) {
	return s.grant(w, MethodPassphrase, "")
}

// GrantPasskey starts a session for a caller who signed in with the
// passkey credentialID.
func (s *SessionStore) GrantPasskey(w http.ResponseWriter, credentialID string) (Grant, error) {
	return s.grant(w, MethodPasskey, credentialID)
}

func (s *SessionStore) grant(w http.ResponseWriter, method Method, credentialID string) (Grant, error) {
	fp := s.gate.Fingerprint()
	if fp == "" {
		return Grant{}, ErrGateDisabled
	}

	id, err := generateSessionID()
	if err != nil {
		return Grant{}, fmt.Errorf("generating session ID: %w", err)
	}

	g := Grant{Method: method, CredentialID: credentialID, ExpiresAt: s.now().Add(sessionExpiry)}
	var cred any
	if credentialID != "" {
		cred = credentialID
	}

	if _, err := s.db.Exec(
		"INSERT INTO sessions (id, method, credential_id, gate, expires_at) VALUES (?, ?, ?, ?, ?)",
		id, string(method), cred, fp, g.ExpiresAt,
	); err != nil {
		return Grant{}, fmt.Errorf("storing session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		Expires:  g.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return g, nil
}

// Admin returns the grant held by the request's session cookie. Expired
// and revoked sessions are deleted as they are found.
func (s *SessionStore) Admin(r *http.Request) (Grant, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return Grant{}, ErrNoSession
	}

	var g Grant
	var method, fp string
	var cred sql.NullString
	err = s.db.QueryRow(
		"SELECT method, credential_id, gate, expires_at FROM sessions WHERE id = ?",
		cookie.Value,
	).Scan(&method, &cred, &fp, &g.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Grant{}, ErrNoSession
	}
	if err != nil {
		return Grant{}, fmt.Errorf("querying session: %w", err)
	}

	var reason error
	switch {
	case s.now().After(g.ExpiresAt):
		reason = ErrSessionExpired
	case fp != s.gate.Fingerprint():
		reason = ErrSessionRevoked
	}
	if reason != nil {
		if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", cookie.Value); err != nil {
			return Grant{}, fmt.Errorf("deleting session: %w", err)
		}
		return Grant{}, reason
	}

	g.Method = Method(method)
	g.CredentialID = cred.String
	return g, nil
}

// Destroy removes the session and clears the cookie. A request without a
// cookie is a no-op.
func (s *SessionStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil
	}

	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", cookie.Value); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Cleanup removes expired sessions and those issued under an old
// passphrase, and returns how many were deleted.
func (s *SessionStore) Cleanup() (int64, error) {
	result, err := s.db.Exec(
		"DELETE FROM sessions WHERE expires_at < ? OR gate != ?",
		s.now(), s.gate.Fingerprint(),
	)
	if err != nil {
		return 0, fmt.Errorf("cleaning up sessions: %w", err)
	}
	return result.RowsAffected()
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
