// Package extract derives candidate associations for newly learned
// concepts.
//
// The extractor works from lightweight lexical and co-occurrence signals
// (shared significant words, causal phrasing, hierarchical cues and the
// temporal ordering of ingestion), so it needs no external model. An
// optional similarity scorer (for example an embedding service) can
// sharpen the lexical weights, but the extractor is fully functional
// without one.
//
// Candidate generation is pure computation and may run concurrently for
// different concepts; insertion goes through the graph store's writer
// lane, which preserves the merge-on-duplicate invariant.
//
// A concept producing no candidate above the minimum confidence is stored
// without edges; that is an expected outcome, not an error.
package extract

import (
	"strings"
	"sync"
	"time"

	"github.com/hverdal/muninn/pkg/graph"
	"github.com/hverdal/muninn/pkg/similarity"
)

// Options tunes candidate generation.
type Options struct {
	// MinConfidence is the floor below which a candidate association is
	// discarded.
	MinConfidence float64
	// MaxCandidates bounds how many semantic candidates a single concept
	// may link to, keeping hub words from producing dense fans.
	MaxCandidates int
	// TemporalWindow is the ingestion-time proximity within which two
	// concepts receive a temporal association.
	TemporalWindow time.Duration
	// CentralLinks enables compositional hub links from every new concept
	// to a category-representative concept, keeping the graph connected
	// for concepts with weak lexical overlap.
	CentralLinks bool
	// Scorer optionally refines lexical weights. When set, the candidate
	// weight blends the lexical overlap with the scorer fifty-fifty.
	Scorer similarity.Scorer
}

// Extraction defaults.
const (
	DefaultMinConfidence  = 0.1
	DefaultMaxCandidates  = 8
	DefaultTemporalWindow = 2 * time.Minute
)

// DefaultOptions returns the default extraction parameters.
func DefaultOptions() *Options {
	return &Options{
		MinConfidence:  DefaultMinConfidence,
		MaxCandidates:  DefaultMaxCandidates,
		TemporalWindow: DefaultTemporalWindow,
		CentralLinks:   true,
	}
}

func (o *Options) withDefaults() Options {
	out := *DefaultOptions()
	if o == nil {
		return out
	}
	if o.MinConfidence > 0 {
		out.MinConfidence = o.MinConfidence
	}
	if o.MaxCandidates > 0 {
		out.MaxCandidates = o.MaxCandidates
	}
	if o.TemporalWindow > 0 {
		out.TemporalWindow = o.TemporalWindow
	}
	out.CentralLinks = o.CentralLinks
	out.Scorer = o.Scorer
	return out
}

// Extractor proposes and stores associations for new concepts.
type Extractor struct {
	store  *graph.Store
	opts   Options
	scorer similarity.Scorer

	mu     sync.Mutex
	recent []ingestion       // recently learned concepts, for temporal links
	hubs   map[string]string // category -> hub concept ID
}

type ingestion struct {
	id   string
	when time.Time
}

// recentWindowSize bounds the temporal-ordering memory.
const recentWindowSize = 16

// New creates an Extractor over the given store. opts may be nil.
func New(store *graph.Store, opts *Options) *Extractor {
	o := opts.withDefaults()

	var scorer similarity.Scorer = similarity.Lexical{}
	if o.Scorer != nil {
		scorer = similarity.Blend{
			Primary:       o.Scorer,
			Secondary:     similarity.Lexical{},
			PrimaryWeight: 0.5,
		}
	}

	return &Extractor{
		store:  store,
		opts:   o,
		scorer: scorer,
		hubs:   make(map[string]string),
	}
}

// candidate is one proposed association before thresholding.
type candidate struct {
	targetID   string
	assocType  graph.AssocType
	weight     float64
	confidence float64
}

// ExtractAssociations proposes associations between the newly learned
// concept and the existing graph, stores every candidate passing the
// minimum confidence, and returns the number of associations written.
func (e *Extractor) ExtractAssociations(c *graph.Concept) int {
	var cands []candidate
	cands = append(cands, e.semanticCandidates(c)...)
	cands = append(cands, e.temporalCandidates(c)...)
	if e.opts.CentralLinks {
		if hub := e.hubFor(c); hub != nil {
			cands = append(cands, *hub)
		}
	}

	written := 0
	for _, cand := range cands {
		if cand.confidence < e.opts.MinConfidence {
			continue
		}
		err := e.store.PutAssociation(&graph.Association{
			SourceID:   c.ID,
			TargetID:   cand.targetID,
			Type:       cand.assocType,
			Weight:     cand.weight,
			Confidence: cand.confidence,
			Created:    time.Now(),
		})
		if err == nil {
			written++
		}
	}

	e.recordIngestion(c.ID)
	return written
}

// semanticCandidates links the concept to existing concepts sharing
// significant words. The association type is refined by phrasing:
// causal wording yields causal edges, hierarchical cues yield
// hierarchical or compositional edges.
func (e *Extractor) semanticCandidates(c *graph.Concept) []candidate {
	tokens := graph.Tokenize(c.Content)
	if len(tokens) == 0 {
		return nil
	}

	// Count shared-word hits per existing concept via the inverted index.
	hits := make(map[string]int)
	for _, tok := range tokens {
		for _, id := range e.store.ConceptsContaining(tok) {
			if id == c.ID {
				continue
			}
			hits[id]++
		}
	}
	if len(hits) == 0 {
		return nil
	}

	assocType := graph.AssocSemantic
	typeBoost := 0.0
	switch {
	case hasCausalPhrase(c.Content):
		assocType = graph.AssocCausal
		typeBoost = 0.1
	case hasHierarchicalCue(c.Content):
		assocType = graph.AssocHierarchical
		typeBoost = 0.05
	case hasCompositionalCue(c.Content):
		assocType = graph.AssocCompositional
		typeBoost = 0.05
	}

	var out []candidate
	for id, shared := range hits {
		if shared < 1 {
			continue
		}
		other, err := e.store.GetConcept(id)
		if err != nil {
			continue
		}

		weight := e.scorer.Similarity(c.Content, other.Content)
		conf := graph.ClampUnit(weight + typeBoost)
		out = append(out, candidate{
			targetID:   id,
			assocType:  assocType,
			weight:     weight,
			confidence: conf,
		})
	}

	// Keep only the strongest candidates so hub words do not fan out.
	if len(out) > e.opts.MaxCandidates {
		sortCandidates(out)
		out = out[:e.opts.MaxCandidates]
	}
	return out
}

// temporalCandidates links the concept to others ingested within the
// temporal window, weighted by recency.
func (e *Extractor) temporalCandidates(c *graph.Concept) []candidate {
	e.mu.Lock()
	recent := append([]ingestion(nil), e.recent...)
	e.mu.Unlock()

	now := time.Now()
	var out []candidate
	for _, r := range recent {
		if r.id == c.ID {
			continue
		}
		age := now.Sub(r.when)
		if age < 0 || age > e.opts.TemporalWindow {
			continue
		}
		// Fresh neighbors score higher; the floor keeps window-edge
		// links above the default threshold.
		weight := 1.0 - age.Seconds()/e.opts.TemporalWindow.Seconds()
		if weight < 0.15 {
			weight = 0.15
		}
		out = append(out, candidate{
			targetID:   r.id,
			assocType:  graph.AssocTemporal,
			weight:     weight * 0.5,
			confidence: weight * 0.5,
		})
	}
	return out
}

// hubFor returns a compositional link to the category's hub concept. The
// first concept seen in a category becomes its hub.
func (e *Extractor) hubFor(c *graph.Concept) *candidate {
	category := c.Category
	if category == "" {
		category = "general"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	hubID, ok := e.hubs[category]
	if !ok {
		e.hubs[category] = c.ID
		return nil
	}
	if hubID == c.ID {
		return nil
	}
	return &candidate{
		targetID:   hubID,
		assocType:  graph.AssocCompositional,
		weight:     0.3,
		confidence: 0.3,
	}
}

func (e *Extractor) recordIngestion(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recent = append(e.recent, ingestion{id: id, when: time.Now()})
	if len(e.recent) > recentWindowSize {
		e.recent = e.recent[len(e.recent)-recentWindowSize:]
	}
}

func sortCandidates(cands []candidate) {
	// Insertion sort: candidate lists are small by construction.
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && less(cands[j-1], cands[j]); j-- {
			cands[j-1], cands[j] = cands[j], cands[j-1]
		}
	}
}

func less(a, b candidate) bool {
	if a.confidence != b.confidence {
		return a.confidence < b.confidence
	}
	return a.targetID > b.targetID
}

var causalPhrases = []string{
	"because", "causes", "caused by", "leads to", "results in",
	"due to", "therefore", "consequently",
}

var hierarchicalCues = []string{
	"is a ", "is an ", "type of", "kind of", "subclass of",
}

var compositionalCues = []string{
	"part of", "consists of", "composed of", "contains",
}

func hasCausalPhrase(content string) bool {
	return containsAny(content, causalPhrases)
}

func hasHierarchicalCue(content string) bool {
	return containsAny(content, hierarchicalCues)
}

func hasCompositionalCue(content string) bool {
	return containsAny(content, compositionalCues)
}

func containsAny(content string, phrases []string) bool {
	lower := strings.ToLower(content)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
