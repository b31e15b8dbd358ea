// Package storage provides durable persistence for the knowledge graph.
//
// The in-memory graph store is the working copy; storage is authoritative
// for durability. At startup the engine rebuilds the graph from storage,
// and every concept or association mutation is written through.
//
// Two implementations exist: BadgerStore for persistent disk-backed
// operation and NullStore for purely in-memory use.
package storage

import "github.com/hverdal/muninn/pkg/graph"

// Stats reports durable-store counts.
type Stats struct {
	TotalConcepts     int `json:"total_concepts"`
	TotalAssociations int `json:"total_associations"`
}

// Store is the durability contract the engine consumes. Implementations
// must be safe for concurrent use; write-through happens from the
// engine's writer lane but loads may overlap with other readers.
type Store interface {
	// LoadAllConcepts streams every persisted concept into fn. Iteration
	// stops early if fn returns an error, which is then surfaced.
	LoadAllConcepts(fn func(*graph.Concept) error) error

	// LoadAllAssociations streams every persisted association into fn.
	LoadAllAssociations(fn func(*graph.Association) error) error

	// PersistConcept durably stores a concept, overwriting any previous
	// version with the same ID.
	PersistConcept(c *graph.Concept) error

	// PersistAssociation durably stores an association, overwriting any
	// previous version with the same (source, target, type) identity.
	PersistAssociation(a *graph.Association) error

	// RemoveAssociation deletes a persisted association. Removing an
	// absent association is not an error.
	RemoveAssociation(sourceID, targetID string, assocType graph.AssocType) error

	// Stats returns durable-store counts.
	Stats() (Stats, error)

	// Close releases the store. Further calls fail.
	Close() error
}

// NullStore discards all writes and loads nothing. It backs pure
// in-memory operation and tests that do not exercise durability.
type NullStore struct{}

// NewNullStore returns a store that persists nothing.
func NewNullStore() *NullStore { return &NullStore{} }

func (*NullStore) LoadAllConcepts(func(*graph.Concept) error) error         { return nil }
func (*NullStore) LoadAllAssociations(func(*graph.Association) error) error { return nil }
func (*NullStore) PersistConcept(*graph.Concept) error                      { return nil }
func (*NullStore) PersistAssociation(*graph.Association) error              { return nil }
func (*NullStore) RemoveAssociation(string, string, graph.AssocType) error  { return nil }
func (*NullStore) Stats() (Stats, error)                                    { return Stats{}, nil }
func (*NullStore) Close() error                                             { return nil }
