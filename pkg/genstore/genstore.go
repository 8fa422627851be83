// Package genstore persists the leadership generation a master stashes each
// time it takes over.
package genstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"

	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

const (
	boltFileMode   os.FileMode = 0o600
	boltBucketName             = "repmgr"
	generationKey              = "generation"
)

var (
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("genstore: store is closed")
	// ErrCorrupt is returned when the stored generation is not eight bytes
	ErrCorrupt = errors.New("genstore: stored generation is corrupt")

	defaultBoltOptions = &bbolt.Options{Timeout: 5 * time.Second}
)

// BoltStore keeps the generation in a bbolt file.
// bbolt serializes writers, so StashGeneration is safe from any goroutine.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
	path   string
	closed atomic.Bool
}

// Open opens (or creates) the store at path
func Open(path string) (*BoltStore, error) {
	optionsCopy := *defaultBoltOptions
	db, err := bbolt.Open(path, boltFileMode, &optionsCopy)
	if err != nil {
		return nil, fmt.Errorf("genstore: opening %s: %w", path, err)
	}

	bucket := []byte(boltBucketName)
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("genstore: initializing bucket: %w", err)
	}

	return &BoltStore{db: db, bucket: bucket, path: path}, nil
}

// StashGeneration increments the stored generation and returns the new value
func (s *BoltStore) StashGeneration() (uint64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	var next uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("genstore: bucket %q missing", s.bucket)
		}
		current, err := decodeGeneration(bucket.Get([]byte(generationKey)))
		if err != nil {
			return err
		}
		next = current + 1
		return bucket.Put([]byte(generationKey), encodeGeneration(next))
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Current returns the stored generation, zero when none was stashed yet
func (s *BoltStore) Current() (uint64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	var current uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("genstore: bucket %q missing", s.bucket)
		}
		var err error
		current, err = decodeGeneration(bucket.Get([]byte(generationKey)))
		return err
	})
	return current, err
}

// Path returns the backing file
func (s *BoltStore) Path() string {
	return s.path
}

// Close closes the database; later calls are no-ops
func (s *BoltStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func encodeGeneration(gen uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, gen)
	return buf
}

func decodeGeneration(raw []byte) (uint64, error) {
	if raw == nil {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, ErrCorrupt
	}
	return binary.BigEndian.Uint64(raw), nil
}

// MemoryStore keeps the generation in memory, for tests and ephemeral sites
type MemoryStore struct {
	mu  sync.Mutex
	gen uint64
	err error
}

// NewMemoryStore creates a store starting at generation start
func NewMemoryStore(start uint64) *MemoryStore {
	return &MemoryStore{gen: start}
}

// StashGeneration increments the generation
func (m *MemoryStore) StashGeneration() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}
	m.gen++
	return m.gen, nil
}

// Current returns the generation
func (m *MemoryStore) Current() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen, nil
}

// FailWith makes later stashes return err; nil clears it
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Ensure both stores serve the coordinator
var (
	_ repmgr.GenerationStore = (*BoltStore)(nil)
	_ repmgr.GenerationStore = (*MemoryStore)(nil)
)
