package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/ashureev/emotext/internal/domain"
)

const (
	// SessionCookieName identifies the browser's routing session. The
	// cookie carries only a random ID; all state lives server-side and
	// none of it survives a process restart.
	SessionCookieName = "emotext_sid"
	sessionCookieAge  = 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^sid_[a-f0-9]{32}$`)

// SessionManager holds the per-session routing snapshots in memory.
// Reads return copies; the map entry is only replaced, never mutated.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewSessionManager creates an empty session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]domain.Session)}
}

// Get returns the snapshot for id, or the initial state for unknown IDs.
func (m *SessionManager) Get(id string) domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	return domain.NewSession()
}

// Put replaces the snapshot for id.
func (m *SessionManager) Put(id string, s domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
}

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return "sid_" + hex.EncodeToString(buf), nil
}

func isValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func setSessionCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// SessionMiddleware issues the session cookie and injects the session ID
// into the request context.
func SessionMiddleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
				id = c.Value
			} else {
				generated, err := generateSessionID()
				if err != nil {
					http.Error(w, `{"error":"failed to establish session"}`, http.StatusInternalServerError)
					return
				}
				id = generated
			}
			setSessionCookie(w, id, isDev)

			ctx := context.WithValue(r.Context(), sessionIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
