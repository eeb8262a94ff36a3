// Package csrf issues and verifies per-form anti-forgery tokens kept in the
// session.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/G-Node/formwork/formwork/session"
)

// TokenKey is the name of the session value (and of the submitted field)
// holding the token.
const TokenKey = "csrf_token"

// TokenBytes is the number of random bytes in a token.
const TokenBytes = 32

// Guard issues and verifies tokens for forms sharing a session store.
type Guard struct {
	store session.Store
}

// New returns a Guard backed by the given session store.
func New(store session.Store) *Guard {
	return &Guard{store: store}
}

// SlotKey returns the session key under which the token of the form with the
// given ID is stored.
func SlotKey(formID string) string {
	return "form_" + formID
}

// Issue generates a new token for the form, stores it in the session and
// returns it.  Any token issued earlier for the same form is replaced.  The
// session is started if the store requires it and it is not active yet.
func (g *Guard) Issue(formID string) (string, error) {
	if starter, ok := g.store.(session.Starter); ok && !starter.Started() {
		if err := starter.Start(); err != nil {
			return "", fmt.Errorf("starting session: %w", err)
		}
	}

	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token := hex.EncodeToString(buf)

	key := SlotKey(formID)
	vals, err := g.store.Get(key)
	if err != nil {
		return "", err
	}
	if vals == nil {
		vals = make(session.Values)
	}
	vals[TokenKey] = token
	if err := g.store.Set(key, vals); err != nil {
		return "", err
	}
	return token, nil
}

// Token returns the token currently stored for the form, or an empty string.
func (g *Guard) Token(formID string) (string, error) {
	vals, err := g.store.Get(SlotKey(formID))
	if err != nil {
		return "", err
	}
	return vals[TokenKey], nil
}

// Verify returns true if submitted matches the token stored for the form.  An
// empty stored token never matches.
func (g *Guard) Verify(formID, submitted string) (bool, error) {
	expected, err := g.Token(formID)
	if err != nil {
		return false, err
	}
	if expected == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1, nil
}
