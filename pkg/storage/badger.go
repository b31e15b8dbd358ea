package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/hverdal/muninn/pkg/graph"
)

// Key prefixes. Single-byte prefixes keep keys compact and make prefix
// scans cheap.
const (
	prefixConcept     = byte(0x01) // 0x01 + conceptID -> JSON(Concept)
	prefixAssociation = byte(0x02) // 0x02 + source + 0x00 + target + 0x00 + type -> JSON(Association)
)

// keySeparator splits the association key components. Concept IDs are
// UUIDs and association types are ASCII names, so 0x00 never collides.
const keySeparator = byte(0x00)

// BadgerStore persists the knowledge graph in BadgerDB.
//
// Key structure:
//   - Concepts:     0x01 + conceptID
//   - Associations: 0x02 + sourceID + 0x00 + targetID + 0x00 + type
//
// Values are JSON. Safe for concurrent use.
type BadgerStore struct {
	db *badger.DB

	mu     sync.Mutex
	closed bool
}

// BadgerOptions configures the Badger-backed store.
type BadgerOptions struct {
	// DataDir is the directory for data files. Required unless InMemory.
	DataDir string

	// InMemory runs BadgerDB without touching disk. Data is lost on
	// close; useful for tests.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool
}

// NewBadgerStore opens a persistent store at dataDir with default
// settings.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerStoreWithOptions opens a store with custom configuration.
func NewBadgerStoreWithOptions(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).WithLogger(nil)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	// Memory-constrained defaults; the graph workload is small-value and
	// read-mostly.
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func conceptKey(id string) []byte {
	key := make([]byte, 0, 1+len(id))
	key = append(key, prefixConcept)
	return append(key, id...)
}

func associationKey(sourceID, targetID string, assocType graph.AssocType) []byte {
	key := make([]byte, 0, 3+len(sourceID)+len(targetID)+len(assocType))
	key = append(key, prefixAssociation)
	key = append(key, sourceID...)
	key = append(key, keySeparator)
	key = append(key, targetID...)
	key = append(key, keySeparator)
	return append(key, assocType...)
}

// LoadAllConcepts streams every persisted concept into fn.
func (s *BadgerStore) LoadAllConcepts(fn func(*graph.Concept) error) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefixConcept, func(val []byte) error {
			var c graph.Concept
			if err := json.Unmarshal(val, &c); err != nil {
				return fmt.Errorf("storage: decode concept: %w", err)
			}
			return fn(&c)
		})
	})
}

// LoadAllAssociations streams every persisted association into fn.
func (s *BadgerStore) LoadAllAssociations(fn func(*graph.Association) error) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefixAssociation, func(val []byte) error {
			var a graph.Association
			if err := json.Unmarshal(val, &a); err != nil {
				return fmt.Errorf("storage: decode association: %w", err)
			}
			return fn(&a)
		})
	})
}

// PersistConcept durably stores a concept keyed by ID.
func (s *BadgerStore) PersistConcept(c *graph.Concept) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if c == nil || c.ID == "" {
		return graph.ErrInvalidID
	}
	val, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("storage: encode concept: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(conceptKey(c.ID), val)
	})
}

// PersistAssociation durably stores an association keyed by its
// (source, target, type) identity.
func (s *BadgerStore) PersistAssociation(a *graph.Association) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if a == nil || a.SourceID == "" || a.TargetID == "" {
		return graph.ErrInvalidID
	}
	val, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("storage: encode association: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(associationKey(a.SourceID, a.TargetID, a.Type), val)
	})
}

// RemoveAssociation deletes a persisted association. Absent keys are a
// no-op.
func (s *BadgerStore) RemoveAssociation(sourceID, targetID string, assocType graph.AssocType) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(associationKey(sourceID, targetID, assocType))
	})
}

// Stats counts persisted concepts and associations with key-only scans.
func (s *BadgerStore) Stats() (Stats, error) {
	if err := s.ensureOpen(); err != nil {
		return Stats{}, err
	}
	var stats Stats
	err := s.db.View(func(txn *badger.Txn) error {
		stats.TotalConcepts = countPrefix(txn, prefixConcept)
		stats.TotalAssociations = countPrefix(txn, prefixAssociation)
		return nil
	})
	return stats, err
}

// Close releases the database. Idempotent.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BadgerStore) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("storage: store is closed")
	}
	return nil
}

func scanPrefix(txn *badger.Txn, prefix byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{prefix}
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			return fn(val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func countPrefix(txn *badger.Txn, prefix byte) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{prefix}
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}
