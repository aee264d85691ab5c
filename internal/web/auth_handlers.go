package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/auth"
)

type loginRequest struct {
	Passphrase string `json:"passphrase"`
	Name       string `json:"name,omitempty"` // API key label for /auth/cli
}

// checkPassphrase verifies the admin passphrase, counting failures against
// the caller's IP. It writes the error response and returns false on
// failure.
func (s *Server) checkPassphrase(w http.ResponseWriter, r *http.Request, req loginRequest) bool {
	if !s.deps.Gate.Enabled() {
		apiError(w, "admin login is not configured", http.StatusServiceUnavailable)
		return false
	}

	ip := auth.ClientIP(r)
	if s.limiter.Limited(ip) {
		apiError(w, "too many attempts", http.StatusTooManyRequests)
		return false
	}
	if !s.deps.Gate.Check(req.Passphrase) {
		s.limiter.Fail(ip)
		zap.L().Warn("admin login failed", zap.String("ip", ip))
		apiError(w, "incorrect passphrase", http.StatusUnauthorized)
		return false
	}
	return true
}

// handleLogin exchanges the admin passphrase for a session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	if !s.checkPassphrase(w, r, req) {
		return
	}

	if _, err := s.deps.Sessions.GrantPassphrase(w); err != nil {
		if errors.Is(err, auth.ErrGateDisabled) {
			apiError(w, "admin login is not configured", http.StatusServiceUnavailable)
			return
		}
		internalError(w, "creating session", err)
		return
	}

	zap.L().Info("login success", zap.String("method", "passphrase"))
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleLogout destroys the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Destroy(w, r); err != nil {
		zap.L().Error("destroying session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCLILogin exchanges the admin passphrase for a new API key.
func (s *Server) handleCLILogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	if !s.checkPassphrase(w, r, req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "CLI"
	}

	raw, key, err := s.deps.APIKeys.Create(name)
	if err != nil {
		internalError(w, "creating api key", err)
		return
	}

	zap.L().Info("login success", zap.String("method", "cli"), zap.String("key", key.KeyPrefix))
	apiJSON(w, apiKeyCreateResponse{Key: raw, APIKey: toAPIKeyResponse(*key)}, http.StatusCreated)
}

type authStatus struct {
	Admin     bool       `json:"admin"`
	Method    string     `json:"method,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// handleAuthStatus reports whether the caller holds an admin session or
// a valid API key, and how.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	var st authStatus
	if g, err := s.deps.Sessions.Admin(r); err == nil {
		st = authStatus{Admin: true, Method: string(g.Method), ExpiresAt: &g.ExpiresAt}
	} else if key, ok := auth.BearerToken(r); ok {
		valid, err := s.deps.APIKeys.Validate(key)
		if err != nil {
			internalError(w, "validating api key", err)
			return
		}
		if valid {
			st = authStatus{Admin: true, Method: "apikey"}
		}
	}
	apiJSON(w, st, http.StatusOK)
}
