// Package identity persists the current user's identity token between visits.
package identity

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/sessions"
)

// UserIDKey is the key the user token is stored under.
const UserIDKey = "fidha_user_id"

// SessionName is the cookie name used by SessionTokenStore.
const SessionName = "fidha-session"

// TokenStore is a small string key/value store that outlives a single request.
type TokenStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// MemoryTokenStore keeps tokens in a map. Used for bearer-token callers and tests.
type MemoryTokenStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: make(map[string]string)}
}

func (m *MemoryTokenStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryTokenStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// NewCookieStore returns the signed cookie store backing browser sessions.
func NewCookieStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(365 * 24 * time.Hour.Seconds()),
	}
	return store
}

// SessionTokenStore is a TokenStore bound to one HTTP request's cookie session.
type SessionTokenStore struct {
	session *sessions.Session
	r       *http.Request
	w       http.ResponseWriter
}

// NewSessionTokenStore loads the request's session. A cookie that no longer
// decodes (rotated secret, tampering) is replaced by a fresh session.
func NewSessionTokenStore(store sessions.Store, r *http.Request, w http.ResponseWriter) *SessionTokenStore {
	session, err := store.Get(r, SessionName)
	if err != nil {
		log.Printf("WARNING: discarding unreadable session cookie: %v", err)
	}
	return &SessionTokenStore{session: session, r: r, w: w}
}

func (s *SessionTokenStore) Get(key string) (string, bool, error) {
	v, ok := s.session.Values[key].(string)
	return v, ok && v != "", nil
}

// Set stores the value and writes the cookie right away.
func (s *SessionTokenStore) Set(key, value string) error {
	s.session.Values[key] = value
	return s.session.Save(s.r, s.w)
}
