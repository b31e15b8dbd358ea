package graph

import (
	"sort"
	"sync"
)

// Store is a thread-safe in-memory knowledge graph.
//
// Concurrency discipline: one writer lane, many concurrent readers. All
// mutations take the write lock, so a reader can never observe a
// half-written concept or association. Read operations return copies to
// prevent external mutation of store-owned data.
//
// Performance Characteristics:
//   - Concept lookup by ID: O(1)
//   - Association lookup by (source, target, type): O(1)
//   - Neighbors: O(degree)
//   - ConceptsContaining: O(matches) via the inverted word index
//
// Example:
//
//	store := graph.NewStore()
//	store.PutConcept(&graph.Concept{ID: "c1", Content: "gravity bends light"})
//	ids := store.ConceptsContaining("gravity")
type Store struct {
	mu       sync.RWMutex
	concepts map[string]*Concept
	assocs   map[AssocKey]*Association

	// Derived indexes, rebuilt incrementally on every write.
	neighbors map[string]map[string]struct{}
	wordIndex map[string]map[string]struct{}

	// Normalized content -> concept ID, for idempotent learning.
	byContent map[string]string

	// Write-through hooks, invoked after the lock is released so storage
	// round-trips never happen under the graph lock.
	hooks WriteHooks

	closed bool
}

// WriteHooks receives committed mutations for write-through persistence.
// Hooks run after the mutation is visible to readers and outside the
// store's lock; they get defensive copies. Set hooks before the store is
// shared across goroutines.
type WriteHooks struct {
	OnConcept            func(*Concept)
	OnAssociation        func(*Association)
	OnAssociationRemoved func(source, target string, typ AssocType)
}

// SetWriteHooks registers the write-through hooks.
func (s *Store) SetWriteHooks(h WriteHooks) {
	s.hooks = h
}

func (s *Store) notifyConcept(c *Concept) {
	if s.hooks.OnConcept != nil && c != nil {
		s.hooks.OnConcept(c)
	}
}

func (s *Store) notifyAssociation(a *Association) {
	if s.hooks.OnAssociation != nil && a != nil {
		s.hooks.OnAssociation(a)
	}
}

// NewStore creates an empty knowledge graph store.
func NewStore() *Store {
	return &Store{
		concepts:  make(map[string]*Concept),
		assocs:    make(map[AssocKey]*Association),
		neighbors: make(map[string]map[string]struct{}),
		wordIndex: make(map[string]map[string]struct{}),
		byContent: make(map[string]string),
	}
}

// PutConcept inserts or replaces a concept.
//
// Strength and Confidence are clamped to their valid ranges before the
// concept is stored. The inverted word index and the content identity
// index are updated in the same critical section.
func (s *Store) PutConcept(c *Concept) error {
	if c == nil {
		return ErrInvalidData
	}
	if c.ID == "" {
		return ErrInvalidID
	}
	if NormalizeContent(c.Content) == "" {
		return ErrEmptyContent
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	if old, exists := s.concepts[c.ID]; exists {
		s.unindexConceptLocked(old)
	}

	stored := c.Clone()
	stored.Strength = ClampStrength(stored.Strength)
	stored.Confidence = ClampUnit(stored.Confidence)
	s.concepts[stored.ID] = stored
	s.indexConceptLocked(stored)
	// Snapshot for the hook while still holding the lock; the stored record
	// stays mutable under it.
	committed := stored.Clone()
	s.mu.Unlock()

	s.notifyConcept(committed)
	return nil
}

// FindOrPutConcept stores c unless a concept with the same normalized
// content already exists, in which case a copy of the existing concept is
// returned with created == false. Lookup and insert share one critical
// section, so concurrent calls with identical content always resolve to a
// single stored concept.
func (s *Store) FindOrPutConcept(c *Concept) (*Concept, bool, error) {
	if c == nil {
		return nil, false, ErrInvalidData
	}
	if c.ID == "" {
		return nil, false, ErrInvalidID
	}
	norm := NormalizeContent(c.Content)
	if norm == "" {
		return nil, false, ErrEmptyContent
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, false, ErrStoreClosed
	}

	if id, ok := s.byContent[norm]; ok {
		existing := s.concepts[id].Clone()
		s.mu.Unlock()
		return existing, false, nil
	}

	if old, exists := s.concepts[c.ID]; exists {
		s.unindexConceptLocked(old)
	}

	stored := c.Clone()
	stored.Strength = ClampStrength(stored.Strength)
	stored.Confidence = ClampUnit(stored.Confidence)
	s.concepts[stored.ID] = stored
	s.indexConceptLocked(stored)
	committed := stored.Clone()
	returned := stored.Clone()
	s.mu.Unlock()

	s.notifyConcept(committed)
	return returned, true, nil
}

// GetConcept returns a copy of the concept with the given ID, or
// ErrNotFound. Callers must treat ErrNotFound as an empty result, not a
// fatal condition.
func (s *Store) GetConcept(id string) (*Concept, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	c, ok := s.concepts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// FindByContent returns the concept whose normalized content equals the
// normalized form of content, or ErrNotFound.
func (s *Store) FindByContent(content string) (*Concept, error) {
	norm := NormalizeContent(content)
	if norm == "" {
		return nil, ErrEmptyContent
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byContent[norm]
	if !ok {
		return nil, ErrNotFound
	}
	return s.concepts[id].Clone(), nil
}

// Access records a read of the concept: the access count is incremented
// and strength is nudged upward, bounded at MaxStrength. Returns the
// updated concept.
func (s *Store) Access(id string) (*Concept, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}

	c, ok := s.concepts[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	c.AccessCount++
	c.Strength = ClampStrength(c.Strength + accessStrengthNudge)
	c.LastAccessed = now()
	updated := c.Clone()
	s.mu.Unlock()

	s.notifyConcept(updated.Clone())
	return updated, nil
}

// accessStrengthNudge is the strength increment applied per access.
const accessStrengthNudge = 0.05

// UpdateConcept applies fn to the stored concept under the write lock and
// returns a copy of the result. The learner uses this for reinforcement so
// read-modify-write is atomic from a reader's perspective.
func (s *Store) UpdateConcept(id string, fn func(*Concept)) (*Concept, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}

	c, ok := s.concepts[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	fn(c)
	c.Strength = ClampStrength(c.Strength)
	c.Confidence = ClampUnit(c.Confidence)
	updated := c.Clone()
	s.mu.Unlock()

	s.notifyConcept(updated.Clone())
	return updated, nil
}

// PutAssociation inserts an association, or merges it into an existing
// edge with the same (source, target, type).
//
// Both endpoints must exist. Weight and Confidence are clamped to [0, 1].
// Merge policy: the stored weight is reinforced by a fraction of the new
// weight rather than overwritten, and confidence keeps the maximum of the
// two values.
func (s *Store) PutAssociation(a *Association) error {
	if a == nil {
		return ErrInvalidData
	}
	if a.SourceID == "" || a.TargetID == "" {
		return ErrInvalidID
	}
	if !a.Type.Valid() {
		return ErrInvalidData
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if _, ok := s.concepts[a.SourceID]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if _, ok := s.concepts[a.TargetID]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	key := a.Key()
	if existing, ok := s.assocs[key]; ok {
		existing.Weight = ClampUnit(existing.Weight + mergeReinforcement*ClampUnit(a.Weight))
		if conf := ClampUnit(a.Confidence); conf > existing.Confidence {
			existing.Confidence = conf
		}
		merged := existing.Clone()
		s.mu.Unlock()

		s.notifyAssociation(merged)
		return nil
	}

	stored := a.Clone()
	stored.Weight = ClampUnit(stored.Weight)
	stored.Confidence = ClampUnit(stored.Confidence)
	if stored.Created.IsZero() {
		stored.Created = now()
	}
	s.assocs[key] = stored

	s.linkLocked(stored.SourceID, stored.TargetID)
	committed := stored.Clone()
	s.mu.Unlock()

	s.notifyAssociation(committed)
	return nil
}

// mergeReinforcement is the fraction of the incoming weight added to an
// existing edge on duplicate insert.
const mergeReinforcement = 0.1

// GetAssociation returns a copy of the association identified by the
// (source, target, type) triple, or ErrNotFound.
func (s *Store) GetAssociation(source, target string, typ AssocType) (*Association, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assocs[AssocKey{Source: source, Target: target, Type: typ}]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

// AssociationsBetween returns every association between the two concepts,
// in either direction.
func (s *Store) AssociationsBetween(a, b string) []*Association {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Association
	for _, typ := range AssocTypes {
		if e, ok := s.assocs[AssocKey{Source: a, Target: b, Type: typ}]; ok {
			out = append(out, e.Clone())
		}
		if e, ok := s.assocs[AssocKey{Source: b, Target: a, Type: typ}]; ok {
			out = append(out, e.Clone())
		}
	}
	return out
}

// BestAssociationBetween returns the highest-confidence association
// between the two concepts in either direction, or nil when none exists.
func (s *Store) BestAssociationBetween(a, b string) *Association {
	var best *Association
	for _, e := range s.AssociationsBetween(a, b) {
		if best == nil || e.Confidence > best.Confidence {
			best = e
		}
	}
	return best
}

// RemoveAssociation deletes the association identified by the triple.
// The neighbor index entry is dropped once no edge remains between the
// endpoints. Used only by the optimization sweep.
func (s *Store) RemoveAssociation(source, target string, typ AssocType) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	key := AssocKey{Source: source, Target: target, Type: typ}
	if _, ok := s.assocs[key]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.assocs, key)

	if !s.anyEdgeBetweenLocked(source, target) {
		s.unlinkLocked(source, target)
	}
	s.mu.Unlock()

	if s.hooks.OnAssociationRemoved != nil {
		s.hooks.OnAssociationRemoved(source, target, typ)
	}
	return nil
}

// Neighbors returns the IDs of concepts directly associated with id, in
// either direction. Unknown IDs yield an empty slice.
func (s *Store) Neighbors(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.neighbors[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for nid := range set {
		out = append(out, nid)
	}
	sort.Strings(out)
	return out
}

// ConceptsContaining returns the IDs of concepts whose content contains
// the given word, via the inverted word index. Matching is
// case-insensitive; stop words match nothing.
func (s *Store) ConceptsContaining(word string) []string {
	toks := Tokenize(word)
	if len(toks) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.wordIndex[toks[0]]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AllConcepts returns copies of every concept in the store.
func (s *Store) AllConcepts() []*Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Concept, 0, len(s.concepts))
	for _, c := range s.concepts {
		out = append(out, c.Clone())
	}
	return out
}

// AllAssociations returns copies of every association in the store.
func (s *Store) AllAssociations() []*Association {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Association, 0, len(s.assocs))
	for _, a := range s.assocs {
		out = append(out, a.Clone())
	}
	return out
}

// ConceptCount returns the number of stored concepts.
func (s *Store) ConceptCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.concepts)
}

// AssociationCount returns the number of stored associations.
func (s *Store) AssociationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assocs)
}

// Close marks the store closed. Subsequent writes fail with
// ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// --- internal index maintenance (callers hold the write lock) ---

func (s *Store) indexConceptLocked(c *Concept) {
	s.byContent[NormalizeContent(c.Content)] = c.ID
	for _, tok := range Tokenize(c.Content) {
		if s.wordIndex[tok] == nil {
			s.wordIndex[tok] = make(map[string]struct{})
		}
		s.wordIndex[tok][c.ID] = struct{}{}
	}
}

func (s *Store) unindexConceptLocked(c *Concept) {
	delete(s.byContent, NormalizeContent(c.Content))
	for _, tok := range Tokenize(c.Content) {
		if set, ok := s.wordIndex[tok]; ok {
			delete(set, c.ID)
			if len(set) == 0 {
				delete(s.wordIndex, tok)
			}
		}
	}
}

func (s *Store) linkLocked(a, b string) {
	if s.neighbors[a] == nil {
		s.neighbors[a] = make(map[string]struct{})
	}
	if s.neighbors[b] == nil {
		s.neighbors[b] = make(map[string]struct{})
	}
	s.neighbors[a][b] = struct{}{}
	s.neighbors[b][a] = struct{}{}
}

func (s *Store) unlinkLocked(a, b string) {
	if set, ok := s.neighbors[a]; ok {
		delete(set, b)
		if len(set) == 0 {
			delete(s.neighbors, a)
		}
	}
	if set, ok := s.neighbors[b]; ok {
		delete(set, a)
		if len(set) == 0 {
			delete(s.neighbors, b)
		}
	}
}

func (s *Store) anyEdgeBetweenLocked(a, b string) bool {
	for _, typ := range AssocTypes {
		if _, ok := s.assocs[AssocKey{Source: a, Target: b, Type: typ}]; ok {
			return true
		}
		if _, ok := s.assocs[AssocKey{Source: b, Target: a, Type: typ}]; ok {
			return true
		}
	}
	return false
}
