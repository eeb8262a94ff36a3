package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	sessionsBucket = []byte("sessions")
	createdBucket  = []byte("created")
)

// OpenBolt opens (or creates) a bbolt session database at path.
func OpenBolt(path string) (*bolt.DB, error) {
	bdb, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{sessionsBucket, createdBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return bdb, nil
}

// BoltStore is a Store for a single browser session, identified by a cookie
// and persisted in a bbolt database opened with OpenBolt.  Each session is a
// nested bucket holding one JSON document per key.  Like DBStore, the session
// is only created when the first value is written or Start is called.
type BoltStore struct {
	db         *bolt.DB
	w          http.ResponseWriter
	cookieName string
	maxAge     time.Duration
	id         string
}

// BoltFromRequest returns the BoltStore for the session referenced by the
// request cookie.  Unknown session IDs are ignored and expired sessions are
// deleted.
func BoltFromRequest(bdb *bolt.DB, w http.ResponseWriter, r *http.Request, cookieName string, maxAge time.Duration) (*BoltStore, error) {
	store := &BoltStore{db: bdb, w: w, cookieName: cookieName, maxAge: maxAge}
	id := cookieValue(r, cookieName)
	if id == "" {
		return store, nil
	}

	var created time.Time
	found := false
	err := bdb.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(createdBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return created.UnmarshalText(data)
	})
	if err != nil {
		return nil, fmt.Errorf("reading session %q: %w", id, err)
	}
	if !found {
		return store, nil
	}

	store.id = id
	if expired(created, maxAge) {
		if err := store.Delete(); err != nil {
			return nil, fmt.Errorf("removing expired session: %w", err)
		}
	}
	return store, nil
}

// ID returns the session ID, or an empty string if the session has not been
// started.
func (s *BoltStore) ID() string {
	return s.id
}

func (s *BoltStore) Started() bool {
	return s.id != ""
}

// Start creates a new session bucket and sets the session cookie on the
// response.
func (s *BoltStore) Start() error {
	id := uuid.New().String()
	created := time.Now()
	stamp, err := created.MarshalText()
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.Bucket(sessionsBucket).CreateBucket([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(createdBucket).Put([]byte(id), stamp)
	})
	if err != nil {
		return err
	}
	s.id = id
	if s.w != nil {
		setCookie(s.w, s.cookieName, id, created, s.maxAge)
	}
	return nil
}

func (s *BoltStore) Get(key string) (Values, error) {
	if !s.Started() {
		return nil, nil
	}
	var vals Values
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket).Bucket([]byte(s.id))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &vals)
	})
	if err != nil {
		return nil, err
	}
	return vals, nil
}

func (s *BoltStore) Set(key string, vals Values) error {
	if !s.Started() {
		if err := s.Start(); err != nil {
			return err
		}
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket(sessionsBucket).CreateBucketIfNotExists([]byte(s.id))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	})
}

// Delete removes the session and all its values.  The store is no longer
// started afterwards.
func (s *BoltStore) Delete() error {
	if !s.Started() {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(createdBucket).Delete([]byte(s.id)); err != nil {
			return err
		}
		err := tx.Bucket(sessionsBucket).DeleteBucket([]byte(s.id))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	s.id = ""
	return nil
}
