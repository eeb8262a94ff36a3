package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session holds the information for a given browser session.
type Session struct {
	// Session ID (stored in the cookie)
	ID string `xorm:"pk"`
	// Time when the session was created (for expiration)
	Created time.Time
}

// SessionSlot is a named set of values stored in a session.  Forms keep their
// CSRF token in the slot "form_<id>".
type SessionSlot struct {
	ID        int64  `xorm:"pk autoincr"`
	SessionID string `xorm:"index notnull"`
	Name      string `xorm:"notnull"`
	Data      map[string]string
	Updated   time.Time
}

// NewSession creates a new session with a new unique ID.
func NewSession() *Session {
	sess := new(Session)
	sess.ID = uuid.New().String()
	sess.Created = time.Now()
	return sess
}

// InsertSession inserts a new Session into the database.
func (conn *Connection) InsertSession(sess *Session) error {
	_, err := conn.engine.Insert(sess)
	return err
}

// GetSession retrieves a session from the database given its ID.
func (conn *Connection) GetSession(id string) (*Session, error) {
	sess := new(Session)
	sess.ID = id
	if has, err := conn.engine.Get(sess); err != nil {
		return nil, err
	} else if !has {
		return nil, fmt.Errorf("not found")
	}
	return sess, nil
}

// DeleteSession removes a session and all its slots from the database.
func (conn *Connection) DeleteSession(id string) error {
	if _, err := conn.engine.Where("session_id = ?", id).Delete(new(SessionSlot)); err != nil {
		return err
	}
	_, err := conn.engine.ID(id).Delete(new(Session))
	return err
}

// GetSlot retrieves the named slot of a session.  It returns nil without an
// error if the slot does not exist.
func (conn *Connection) GetSlot(sessionID, name string) (*SessionSlot, error) {
	slot := &SessionSlot{SessionID: sessionID, Name: name}
	if has, err := conn.engine.Get(slot); err != nil {
		return nil, err
	} else if !has {
		return nil, nil
	}
	return slot, nil
}

// PutSlot stores the values under the named slot of a session, replacing any
// values stored there before.
func (conn *Connection) PutSlot(sessionID, name string, values map[string]string) error {
	existing, err := conn.GetSlot(sessionID, name)
	if err != nil {
		return err
	}
	if existing == nil {
		slot := &SessionSlot{SessionID: sessionID, Name: name, Data: values, Updated: time.Now()}
		_, err := conn.engine.Insert(slot)
		return err
	}
	existing.Data = values
	existing.Updated = time.Now()
	_, err = conn.engine.ID(existing.ID).AllCols().Update(existing)
	return err
}
