// Package session defines the key/value session contract forms use to keep
// per-form secrets between requests, and provides stores implementing it.
package session

import (
	"net/http"
	"sync"
	"time"
)

// Values is the set of values stored under a single session key.
type Values map[string]string

// Store gives get/set access to the values of the active session.
type Store interface {
	// Get returns the values stored under key.  Missing keys return nil
	// without an error.
	Get(key string) (Values, error)
	// Set replaces the values stored under key.
	Set(key string, vals Values) error
}

// Starter is implemented by stores whose session has to be started before
// values can be written.
type Starter interface {
	Started() bool
	Start() error
}

// Memory is an in-process Store.  It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	started bool
	data    map[string]Values
}

// NewMemory returns an empty, not yet started, memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]Values)}
}

func (m *Memory) Get(key string) (Values, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyValues(m.data[key]), nil
}

func (m *Memory) Set(key string, vals Values) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	m.data[key] = copyValues(vals)
	return nil
}

func (m *Memory) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *Memory) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

func copyValues(vals Values) Values {
	if vals == nil {
		return nil
	}
	cp := make(Values, len(vals))
	for k, v := range vals {
		cp[k] = v
	}
	return cp
}

// cookieValue returns the session ID carried by the named cookie.
func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setCookie(w http.ResponseWriter, name, id string, created time.Time, maxAge time.Duration) {
	cookie := http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.Expires = created.Add(maxAge)
	}
	http.SetCookie(w, &cookie)
}

// expired returns true if a session created at the given time is older than
// maxAge.  Sessions never expire if maxAge is zero.
func expired(created time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(created) > maxAge
}
