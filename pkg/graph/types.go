// Package graph provides the in-memory knowledge graph store for Muninn.
//
// The graph holds atomic units of knowledge ("concepts") connected by typed,
// weighted relations ("associations"). It maintains two derived indexes that
// are rebuilt incrementally on every write and never serialized:
//   - A neighbor index mapping a concept to every concept it shares an
//     association with, in either direction.
//   - An inverted word index mapping significant content words to the
//     concepts that contain them.
//
// Design Principles:
//   - Thread-safe: many concurrent readers, serialized writers
//   - Readers receive copies, never aliases into store-owned memory
//   - Absence is data: unknown IDs yield ErrNotFound or empty sets,
//     never a panic
//
// Example Usage:
//
//	store := graph.NewStore()
//
//	c := &graph.Concept{
//		ID:       "concept-1",
//		Content:  "Photosynthesis converts sunlight into energy",
//		Strength: 1.0,
//		Confidence: 0.8,
//		Created:  time.Now(),
//	}
//	store.PutConcept(c)
//
//	a := &graph.Association{
//		SourceID: "concept-1",
//		TargetID: "concept-2",
//		Type:     graph.AssocSemantic,
//		Weight:   0.6,
//		Confidence: 0.7,
//	}
//	store.PutAssociation(a)
//
//	ids := store.Neighbors("concept-1")
//	fmt.Printf("%d neighbors\n", len(ids))
package graph

import (
	"errors"
	"time"
)

// Common errors returned by the graph store.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidID    = errors.New("invalid id")
	ErrInvalidData  = errors.New("invalid data")
	ErrEmptyContent = errors.New("empty content")
	ErrStoreClosed  = errors.New("store closed")
)

// Strength bounds for concepts. Strength is an adaptive weight reflecting
// how well-established a concept is through repeated learning and access.
const (
	MinStrength = 1.0
	MaxStrength = 10.0
)

// AssocType classifies the relation an association expresses.
type AssocType string

const (
	// AssocSemantic links concepts that share meaning (word overlap,
	// embedding similarity).
	AssocSemantic AssocType = "semantic"
	// AssocCausal links a cause to its effect, detected from causal
	// phrasing in the content.
	AssocCausal AssocType = "causal"
	// AssocTemporal links concepts learned close together in time.
	AssocTemporal AssocType = "temporal"
	// AssocHierarchical links a specific concept to a more general one.
	AssocHierarchical AssocType = "hierarchical"
	// AssocCompositional links a part to the whole it belongs to, and is
	// also used for central hub links that keep the graph connected.
	AssocCompositional AssocType = "compositional"
)

// AssocTypes lists every valid association type.
var AssocTypes = []AssocType{
	AssocSemantic,
	AssocCausal,
	AssocTemporal,
	AssocHierarchical,
	AssocCompositional,
}

// Valid reports whether t is a known association type.
func (t AssocType) Valid() bool {
	switch t {
	case AssocSemantic, AssocCausal, AssocTemporal, AssocHierarchical, AssocCompositional:
		return true
	}
	return false
}

// Concept is an atomic knowledge unit with adaptive strength.
//
// Concepts are owned exclusively by the Store. They are mutated only through
// the adaptive learner (create/reinforce) and the explicit Access operation,
// and deleted only by an explicit optimization pass.
//
// Fields:
//   - Strength: adaptive weight in [1.0, 10.0]. New concepts start at 1.0
//     and are reinforced on repeated learning and access.
//   - Confidence: how certain the system is about the content, in [0, 1].
//   - AccessCount / LastAccessed: usage tracking, drives reinforcement.
//
// Example:
//
//	c := &graph.Concept{
//		ID:         uuid.NewString(),
//		Content:    "Paris is the capital of France",
//		Strength:   1.0,
//		Confidence: 0.9,
//		Source:     "geography-notes",
//		Category:   "geography",
//		Created:    time.Now(),
//	}
type Concept struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Strength     float64   `json:"strength"`
	Confidence   float64   `json:"confidence"`
	AccessCount  int64     `json:"access_count"`
	Created      time.Time `json:"created"`
	LastAccessed time.Time `json:"last_accessed"`
	Source       string    `json:"source,omitempty"`
	Category     string    `json:"category,omitempty"`
}

// Clone returns a deep copy of the concept.
func (c *Concept) Clone() *Concept {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Association is a typed, weighted, directed edge between two concepts.
//
// Directionality is semantic only: bidirectional reasoning is achieved by
// the store's neighbor index covering both endpoints, not by storing a
// duplicate reverse edge. Weight and Confidence are clamped to [0, 1].
// Inserting a duplicate (source, target, type) edge merges by reinforcing
// the stored weight instead of overwriting it.
type Association struct {
	SourceID   string    `json:"source_id"`
	TargetID   string    `json:"target_id"`
	Type       AssocType `json:"type"`
	Weight     float64   `json:"weight"`
	Confidence float64   `json:"confidence"`
	Created    time.Time `json:"created"`
}

// Clone returns a deep copy of the association.
func (a *Association) Clone() *Association {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// Key returns the identity of the edge used for duplicate detection.
func (a *Association) Key() AssocKey {
	return AssocKey{Source: a.SourceID, Target: a.TargetID, Type: a.Type}
}

// AssocKey identifies an association by its (source, target, type) triple.
type AssocKey struct {
	Source string
	Target string
	Type   AssocType
}

// ClampUnit clamps v to [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampStrength clamps v to [MinStrength, MaxStrength].
func ClampStrength(v float64) float64 {
	if v < MinStrength {
		return MinStrength
	}
	if v > MaxStrength {
		return MaxStrength
	}
	return v
}
