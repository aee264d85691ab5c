// Package web provides the HTTP API for offer forms and their admin.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/admin"
	"github.com/evcraddock/offer-form/internal/auth"
	"github.com/evcraddock/offer-form/internal/formsvc"
	"github.com/evcraddock/offer-form/internal/logging"
	"github.com/evcraddock/offer-form/internal/metrics"
	"github.com/evcraddock/offer-form/internal/places"
)

// AddressLookup suggests and resolves street addresses.
type AddressLookup interface {
	Suggest(ctx context.Context, input string) ([]places.Suggestion, error)
	Resolve(ctx context.Context, placeID string) (string, error)
}

// PasskeyConfig identifies the WebAuthn relying party.
type PasskeyConfig struct {
	RPID      string
	RPOrigins []string
}

// Deps are the collaborators of a Server.
type Deps struct {
	Forms    *formsvc.Service
	Admin    *admin.Service
	Places   AddressLookup // nil disables address suggestions
	Gate     *auth.Gate
	Sessions *auth.SessionStore
	APIKeys  *auth.APIKeyStore
	Passkeys *auth.PasskeyStore
	Passkey  PasskeyConfig
	DevMode  bool
}

// Server is the HTTP API server.
type Server struct {
	deps    Deps
	limiter *auth.Limiter
	mux     *http.ServeMux
}

// NewServer creates a server and registers its routes.
func NewServer(deps Deps) (*Server, error) {
	if deps.Forms == nil || deps.Admin == nil {
		return nil, fmt.Errorf("forms and admin services are required")
	}
	if deps.Gate == nil || deps.Sessions == nil || deps.APIKeys == nil {
		return nil, fmt.Errorf("auth stores are required")
	}

	s := &Server{
		deps:    deps,
		limiter: auth.NewDefaultLimiter(),
		mux:     http.NewServeMux(),
	}

	var pk *passkeyHandlers
	if deps.Passkeys != nil {
		var err error
		pk, err = newPasskeyHandlers(deps.Passkey, deps.Passkeys, deps.Sessions)
		if err != nil {
			return nil, fmt.Errorf("configuring passkeys: %w", err)
		}
	}

	s.routes(pk)
	return s, nil
}

func (s *Server) routes(pk *passkeyHandlers) {
	m := s.mux

	m.HandleFunc("GET /health", s.handleHealth)
	m.Handle("GET /metrics", metrics.Handler())

	// Forms
	m.HandleFunc("POST /api/forms", s.handleStartForm)
	m.HandleFunc("GET /api/forms/{id}", s.handleGetForm)
	m.HandleFunc("DELETE /api/forms/{id}", s.handleCloseForm)
	m.HandleFunc("POST /api/forms/{id}/fields", s.handleSetFields)
	m.HandleFunc("POST /api/forms/{id}/agent", s.handleSelectAgent)
	m.HandleFunc("POST /api/forms/{id}/clear", s.handleClearForm)
	m.HandleFunc("POST /api/forms/{id}/submit", s.handleSubmitForm)
	m.HandleFunc("PUT /api/forms/{id}/record", s.handleReplaceRecord)
	m.HandleFunc("GET /api/forms/{id}/validation", s.handleValidateForm)
	m.HandleFunc("GET /api/forms/{id}/pdf", s.handleFormPDF)
	m.HandleFunc("POST /api/forms/{id}/buyers", s.handleAddBuyer)
	m.HandleFunc("DELETE /api/forms/{id}/buyers/{i}", s.handleRemoveBuyer)
	m.HandleFunc("POST /api/forms/{id}/buyers/{i}/toggle", s.handleToggleBuyer)
	m.HandleFunc("POST /api/forms/{id}/buyers/{i}/fields", s.handleSetBuyerFields)

	// Shared lookups
	m.HandleFunc("GET /api/agents", s.handleListAgents)
	m.HandleFunc("GET /api/logos", s.handleListLogos)
	m.HandleFunc("GET /api/settings", s.handleGetSettings)
	m.HandleFunc("GET /api/deposit", s.handleDeposit)
	m.HandleFunc("GET /api/address/suggest", s.handleAddressSuggest)
	m.HandleFunc("GET /api/address/resolve", s.handleAddressResolve)
	m.HandleFunc("GET /api/live", s.handleLive)

	// Auth
	m.HandleFunc("POST /auth/login", s.handleLogin)
	m.HandleFunc("POST /auth/logout", s.handleLogout)
	m.HandleFunc("POST /auth/cli", s.handleCLILogin)
	m.HandleFunc("GET /auth/status", s.handleAuthStatus)
	if pk != nil {
		m.Handle("POST /passkey/register/begin", s.admin(http.HandlerFunc(pk.handleBeginRegistration)))
		m.Handle("POST /passkey/register/finish", s.admin(http.HandlerFunc(pk.handleFinishRegistration)))
		m.Handle("GET /passkey/credentials", s.admin(http.HandlerFunc(pk.handleListCredentials)))
		m.Handle("DELETE /passkey/credentials/{id}", s.admin(http.HandlerFunc(pk.handleDeleteCredential)))
		m.HandleFunc("POST /passkey/login/begin", pk.handleBeginLogin)
		m.HandleFunc("POST /passkey/login/finish", pk.handleFinishLogin)
	}

	// Admin
	m.Handle("POST /api/admin/agents", s.admin(http.HandlerFunc(s.handleAddAgent)))
	m.Handle("POST /api/admin/agents/seed", s.admin(http.HandlerFunc(s.handleSeedAgents)))
	m.Handle("PUT /api/admin/agents/{id}", s.admin(http.HandlerFunc(s.handleUpdateAgent)))
	m.Handle("DELETE /api/admin/agents/{id}", s.admin(http.HandlerFunc(s.handleDeleteAgent)))
	m.Handle("PUT /api/admin/settings", s.admin(http.HandlerFunc(s.handleSaveSettings)))
	m.Handle("POST /api/admin/logos", s.admin(http.HandlerFunc(s.handleUploadLogo)))
	m.Handle("DELETE /api/admin/logos/{id}", s.admin(http.HandlerFunc(s.handleDeleteLogo)))
	m.Handle("POST /api/admin/shortlinks", s.admin(http.HandlerFunc(s.handleCreateLink)))
	m.Handle("GET /api/admin/shortlinks", s.admin(http.HandlerFunc(s.handleListLinks)))
	m.Handle("GET /api/admin/qr", s.admin(http.HandlerFunc(s.handleQRCode)))

	keys := &apikeyHandlers{apiKeys: s.deps.APIKeys}
	m.Handle("GET /api/keys", s.admin(http.HandlerFunc(keys.handleListKeys)))
	m.Handle("POST /api/keys", s.admin(http.HandlerFunc(keys.handleCreateKey)))
	m.Handle("DELETE /api/keys/{id}", s.admin(http.HandlerFunc(keys.handleDeleteKey)))
}

func (s *Server) admin(next http.Handler) http.Handler {
	return auth.RequireAdmin(s.deps.Sessions, s.deps.APIKeys, s.limiter, next)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the server wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return logging.RequestLogger(s)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	zap.L().Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]any{"status": "ok", "sessions": s.deps.Forms.Len()}, http.StatusOK)
}
