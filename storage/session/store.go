// Package sessionstore keeps the signed in session in a small key-value file beside the database.
package sessionstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/tamkeen/tamkeen/core/auth"
)

var (
	sessionBucket = []byte("session")
	currentKey    = []byte("current")
)

type Store struct {
	db *bolt.DB
}

var _ auth.SessionStore = (*Store)(nil) // interface compliance check

// Open opens (creating if needed) the session file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating session directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening session store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating session bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveSession(sess auth.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(currentKey, data)
	})
}

func (s *Store) LoadSession() (auth.Session, error) {
	var sess auth.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get(currentKey)
		if data == nil {
			return auth.ErrNoSession
		}
		return errors.Wrap(json.Unmarshal(data, &sess), "decoding session")
	})
	if err != nil {
		return auth.Session{}, err
	}
	return sess, nil
}

func (s *Store) ClearSession() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(currentKey)
	})
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing session store")
}
