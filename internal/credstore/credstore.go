// Package credstore persists the access token across process restarts.
package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kshimizu/anitrack/internal/domain"
)

var bucketCredentials = []byte("credentials")

const keyToken = "token"

// Store is a durable single-token credential store backed by BoltDB.
// If the database cannot be opened it degrades to memory-only mode:
// credential persistence is lost but the client stays usable, which
// matches the "store unavailable means no token" contract.
type Store struct {
	db *bolt.DB

	mu    sync.RWMutex
	token string // Memory copy, authoritative in memory-only mode
}

// Open opens (or creates) the credential database under dir. When the
// database cannot be opened the returned store is usable but memory-only,
// and the error (wrapping domain.ErrStoreUnavailable) reports why; callers
// log it and continue. An empty dir requests memory-only mode explicitly.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{}, nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return &Store{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	dbPath := filepath.Join(dir, "credentials.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return &Store{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCredentials)
		return err
	})
	if err != nil {
		db.Close()
		return &Store{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return &Store{db: db}, nil
}

// Save persists the access token.
func (s *Store) Save(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		return b.Put([]byte(keyToken), []byte(token))
	})
}

// Load returns the stored token. The second return value reports whether a
// token is present; a missing or unreadable store reads as absent.
func (s *Store) Load() (string, bool) {
	s.mu.RLock()
	if s.token != "" {
		defer s.mu.RUnlock()
		return s.token, true
	}
	s.mu.RUnlock()

	if s.db == nil {
		return "", false
	}

	var token string
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(keyToken)); v != nil {
			token = string(v)
		}
		return nil
	})

	if token == "" {
		return "", false
	}

	// Promote to memory for subsequent reads
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	return token, true
}

// Clear removes the stored token. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(keyToken))
	})
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
