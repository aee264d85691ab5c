package auth

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

// Limiter tracks failed credential attempts per client IP.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewLimiter allows max failures per window before blocking an IP.
func NewLimiter(window time.Duration, max int) *Limiter {
	return &Limiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// NewDefaultLimiter allows ten failures a minute.
func NewDefaultLimiter() *Limiter {
	return NewLimiter(rateLimitWindow, rateLimitMaxFail)
}

// Limited reports whether ip has used up its failures for the window.
func (l *Limiter) Limited(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(ip)) >= l.max
}

// Fail records a failed attempt from ip.
func (l *Limiter) Fail(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[ip] = append(l.prune(ip), l.now())
}

// prune drops attempts outside the window. Callers hold l.mu.
func (l *Limiter) prune(ip string) []time.Time {
	cutoff := l.now().Add(-l.window)
	valid := l.attempts[ip][:0]
	for _, t := range l.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(l.attempts, ip)
		return nil
	}
	l.attempts[ip] = valid
	return valid
}

// RequireAdmin guards admin routes. A request passes with a valid admin
// session cookie or a bearer API key. Failed bearer attempts count
// against the client IP; once limited the IP gets 429 until the window
// passes.
func RequireAdmin(sessions *SessionStore, apiKeys *APIKeyStore, limiter *Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := sessions.Admin(r); err == nil {
			next.ServeHTTP(w, r)
			return
		}

		key, ok := BearerToken(r)
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		ip := ClientIP(r)
		if limiter.Limited(ip) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		valid, err := apiKeys.Validate(key)
		if err != nil {
			zap.L().Error("validating api key", zap.Error(err))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if !valid {
			limiter.Fail(ip)
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
