package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/creative-hub/internal/config"
	"github.com/JonMunkholm/creative-hub/internal/core"
)

// AdminCookie carries the admin session token.
const AdminCookie = "hub_admin"

// AdminSessions holds issued admin tokens in memory until they expire.
type AdminSessions struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

// NewAdminSessions creates an empty session store.
func NewAdminSessions(ttl time.Duration) *AdminSessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AdminSessions{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]time.Time),
	}
}

// Create issues a new token. Expired tokens are dropped on the way.
func (a *AdminSessions) Create() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for tok, exp := range a.tokens {
		if now.After(exp) {
			delete(a.tokens, tok)
		}
	}

	token := uuid.NewString()
	a.tokens[token] = now.Add(a.ttl)
	return token
}

// Valid reports whether token was issued and has not expired.
func (a *AdminSessions) Valid(token string) bool {
	if token == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	exp, ok := a.tokens[token]
	if !ok {
		return false
	}
	if a.now().After(exp) {
		delete(a.tokens, token)
		return false
	}
	return true
}

// Revoke forgets token.
func (a *AdminSessions) Revoke(token string) {
	a.mu.Lock()
	delete(a.tokens, token)
	a.mu.Unlock()
}

// TTL returns the session lifetime.
func (a *AdminSessions) TTL() time.Duration { return a.ttl }

// CheckCredentials compares user and password against the configured pair
// in constant time. Both comparisons always run.
func CheckCredentials(cfg *config.AdminConfig, user, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password))
	return u&p == 1
}

// IsAdmin reports whether r carries a live admin session cookie or a valid
// X-API-Key.
func IsAdmin(r *http.Request, sessions *AdminSessions, sec *config.SecurityConfig) bool {
	if c, err := r.Cookie(AdminCookie); err == nil && sessions.Valid(c.Value) {
		return true
	}
	if key := r.Header.Get("X-API-Key"); key != "" && len(sec.APIKeys) > 0 {
		return isValidAPIKey(key, sec.APIKeys)
	}
	return false
}

// RequireAdmin returns middleware that only lets admin requests through and
// marks their context with core.ActorAdmin. Other requests are handed to
// denied.
func RequireAdmin(sessions *AdminSessions, sec *config.SecurityConfig, denied http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r, sessions, sec) {
				slog.Warn("auth: admin required",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				denied.ServeHTTP(w, r)
				return
			}
			ctx := core.ContextWithActor(r.Context(), core.ActorAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyAuth returns middleware that validates X-API-Key header against configured keys.
// If RequireAPIKey is false, all requests pass through.
// If RequireAPIKey is true but no keys are configured, all requests are rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			if !isValidAPIKey(apiKey, cfg.APIKeys) {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `","code":"AUTH002"}`))
}

// isValidAPIKey checks if the provided key matches any configured key.
// Every key is compared so timing does not depend on which one matches.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
