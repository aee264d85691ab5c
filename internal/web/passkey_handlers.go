package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/auth"
)

const (
	ceremonyCookie = "offer_passkey"
	ceremonyTTL    = 5 * time.Minute
)

type ceremony struct {
	data    *webauthn.SessionData
	expires time.Time
}

// ceremonies holds in-flight WebAuthn exchanges keyed by a random id kept
// in a short-lived cookie.
type ceremonies struct {
	mu      sync.Mutex
	pending map[string]ceremony
	now     func() time.Time
}

func newCeremonies() *ceremonies {
	return &ceremonies{pending: make(map[string]ceremony), now: time.Now}
}

func (c *ceremonies) put(w http.ResponseWriter, data *webauthn.SessionData) error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	id := hex.EncodeToString(b)

	c.mu.Lock()
	now := c.now()
	for k, v := range c.pending {
		if now.After(v.expires) {
			delete(c.pending, k)
		}
	}
	c.pending[id] = ceremony{data: data, expires: now.Add(ceremonyTTL)}
	c.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     ceremonyCookie,
		Value:    id,
		Path:     "/passkey/",
		MaxAge:   int(ceremonyTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (c *ceremonies) take(r *http.Request) (*webauthn.SessionData, bool) {
	cookie, err := r.Cookie(ceremonyCookie)
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cer, ok := c.pending[cookie.Value]
	delete(c.pending, cookie.Value)
	if !ok || c.now().After(cer.expires) {
		return nil, false
	}
	return cer.data, true
}

// passkeyHandlers holds WebAuthn-related HTTP handlers. Every passkey is a
// second way in for the passphrase holder and lapses when the passphrase
// changes.
type passkeyHandlers struct {
	wan      *webauthn.WebAuthn
	passkeys *auth.PasskeyStore
	sessions *auth.SessionStore

	registrations *ceremonies
	logins        *ceremonies
}

func newPasskeyHandlers(cfg PasskeyConfig, passkeys *auth.PasskeyStore, sessions *auth.SessionStore) (*passkeyHandlers, error) {
	wan, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Offer Form",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, err
	}

	return &passkeyHandlers{
		wan:           wan,
		passkeys:      passkeys,
		sessions:      sessions,
		registrations: newCeremonies(),
		logins:        newCeremonies(),
	}, nil
}

// adminUser loads the admin's passkeys, writing the error response when
// that fails.
func (h *passkeyHandlers) adminUser(w http.ResponseWriter) (*auth.AdminUser, bool) {
	user, err := h.passkeys.AdminUser()
	if errors.Is(err, auth.ErrGateDisabled) {
		apiError(w, "admin login is not configured", http.StatusServiceUnavailable)
		return nil, false
	}
	if err != nil {
		internalError(w, "loading credentials", err)
		return nil, false
	}
	return user, true
}

// handleBeginRegistration starts passkey registration for the admin.
func (h *passkeyHandlers) handleBeginRegistration(w http.ResponseWriter, r *http.Request) {
	user, ok := h.adminUser(w)
	if !ok {
		return
	}

	// Exclude existing credentials so the same authenticator isn't added twice.
	creds := user.WebAuthnCredentials()
	excludeList := make([]protocol.CredentialDescriptor, len(creds))
	for i, c := range creds {
		excludeList[i] = c.Descriptor()
	}

	creation, session, err := h.wan.BeginRegistration(user, webauthn.WithExclusions(excludeList))
	if err != nil {
		internalError(w, "beginning registration", err)
		return
	}
	if err := h.registrations.put(w, session); err != nil {
		internalError(w, "storing registration", err)
		return
	}

	apiJSON(w, creation, http.StatusOK)
}

// handleFinishRegistration completes passkey registration. ?name= labels
// the credential.
func (h *passkeyHandlers) handleFinishRegistration(w http.ResponseWriter, r *http.Request) {
	session, ok := h.registrations.take(r)
	if !ok {
		apiError(w, "no registration in progress", http.StatusBadRequest)
		return
	}

	user, ok := h.adminUser(w)
	if !ok {
		return
	}

	credential, err := h.wan.FinishRegistration(user, *session, r)
	if err != nil {
		zap.L().Warn("finishing registration", zap.Error(err))
		apiError(w, "registration failed", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Passkey"
	}

	pk, err := h.passkeys.Register(name, credential)
	if err != nil {
		internalError(w, "saving credential", err)
		return
	}

	zap.L().Info("passkey registered", zap.String("id", pk.ID), zap.String("name", pk.Name))
	apiJSON(w, pk, http.StatusOK)
}

func (h *passkeyHandlers) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	stored, err := h.passkeys.List()
	if err != nil {
		internalError(w, "listing credentials", err)
		return
	}
	apiJSON(w, stored, http.StatusOK)
}

func (h *passkeyHandlers) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.passkeys.Delete(r.PathValue("id")); err != nil {
		if errors.Is(err, auth.ErrCredentialNotFound) {
			apiError(w, "credential not found", http.StatusNotFound)
			return
		}
		internalError(w, "deleting credential", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBeginLogin starts a discoverable passkey login.
func (h *passkeyHandlers) handleBeginLogin(w http.ResponseWriter, r *http.Request) {
	assertion, session, err := h.wan.BeginDiscoverableLogin()
	if err != nil {
		internalError(w, "beginning passkey login", err)
		return
	}
	if err := h.logins.put(w, session); err != nil {
		internalError(w, "storing login", err)
		return
	}

	apiJSON(w, assertion, http.StatusOK)
}

// handleFinishLogin completes passkey login and creates an admin session.
func (h *passkeyHandlers) handleFinishLogin(w http.ResponseWriter, r *http.Request) {
	session, ok := h.logins.take(r)
	if !ok {
		apiError(w, "no login in progress", http.StatusBadRequest)
		return
	}

	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		// userHandle is the handle derived from the passphrase fingerprint.
		user, err := h.passkeys.AdminUser()
		if err != nil {
			return nil, err
		}
		if string(user.WebAuthnID()) != string(userHandle) {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		return user, nil
	}

	_, credential, err := h.wan.FinishPasskeyLogin(handler, *session, r)
	if err != nil {
		zap.L().Warn("finishing passkey login", zap.Error(err))
		apiError(w, "login failed", http.StatusUnauthorized)
		return
	}

	if err := h.passkeys.Used(credential); err != nil {
		internalError(w, "updating credential", err)
		return
	}
	if _, err := h.sessions.GrantPasskey(w, auth.CredentialID(credential)); err != nil {
		internalError(w, "creating session", err)
		return
	}

	zap.L().Info("login success", zap.String("method", "passkey"))
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
