package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/G-Node/formwork/formwork/db"
)

// DBStore is a Store for a single browser session, identified by a cookie and
// persisted in the service database.  The session is only created (and the
// cookie only sent) when the first value is written or Start is called.
type DBStore struct {
	conn       *db.Connection
	w          http.ResponseWriter
	cookieName string
	maxAge     time.Duration
	id         string
}

// FromRequest returns the DBStore for the session referenced by the request
// cookie.  Unknown or expired session IDs are ignored; a new session will be
// started on the first write.  Expired sessions are removed from the
// database; an error is returned if that fails.
func FromRequest(conn *db.Connection, w http.ResponseWriter, r *http.Request, cookieName string, maxAge time.Duration) (*DBStore, error) {
	store := &DBStore{conn: conn, w: w, cookieName: cookieName, maxAge: maxAge}
	id := cookieValue(r, cookieName)
	if id == "" {
		return store, nil
	}
	sess, err := conn.GetSession(id)
	if err != nil {
		return store, nil
	}
	if expired(sess.Created, maxAge) {
		if err := conn.DeleteSession(sess.ID); err != nil {
			return nil, fmt.Errorf("removing expired session: %w", err)
		}
		return store, nil
	}
	store.id = sess.ID
	return store, nil
}

// ID returns the session ID, or an empty string if the session has not been
// started.
func (s *DBStore) ID() string {
	return s.id
}

func (s *DBStore) Started() bool {
	return s.id != ""
}

// Start creates a new session in the database and sets the session cookie on
// the response.
func (s *DBStore) Start() error {
	sess := db.NewSession()
	if err := s.conn.InsertSession(sess); err != nil {
		return err
	}
	s.id = sess.ID
	setCookie(s.w, s.cookieName, sess.ID, sess.Created, s.maxAge)
	return nil
}

func (s *DBStore) Get(key string) (Values, error) {
	if !s.Started() {
		return nil, nil
	}
	slot, err := s.conn.GetSlot(s.id, key)
	if err != nil || slot == nil {
		return nil, err
	}
	return Values(slot.Data), nil
}

func (s *DBStore) Set(key string, vals Values) error {
	if !s.Started() {
		if err := s.Start(); err != nil {
			return err
		}
	}
	return s.conn.PutSlot(s.id, key, vals)
}
