package pathfind

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hverdal/muninn/pkg/graph"
)

// ErrNoStartConcepts is returned for a structurally invalid call with an
// empty start or target set. This is the only hard failure the finder
// produces; "no paths found" is an empty slice, not an error.
var ErrNoStartConcepts = errors.New("pathfind: empty start or target concept set")

// Options tunes the search. Zero values fall back to the defaults below.
type Options struct {
	// MaxDepth is the maximum number of hops per path.
	MaxDepth int
	// ConfidenceDecay is the per-hop discount applied to accumulated
	// confidence.
	ConfidenceDecay float64
	// MinConfidence stops expansion once accumulated confidence falls
	// below it.
	MinConfidence float64
}

// Search defaults.
const (
	DefaultMaxDepth        = 6
	DefaultConfidenceDecay = 0.85
	DefaultMinConfidence   = 0.1
)

// DefaultOptions returns the default search parameters.
func DefaultOptions() *Options {
	return &Options{
		MaxDepth:        DefaultMaxDepth,
		ConfidenceDecay: DefaultConfidenceDecay,
		MinConfidence:   DefaultMinConfidence,
	}
}

func (o *Options) withDefaults() Options {
	out := Options{
		MaxDepth:        DefaultMaxDepth,
		ConfidenceDecay: DefaultConfidenceDecay,
		MinConfidence:   DefaultMinConfidence,
	}
	if o == nil {
		return out
	}
	if o.MaxDepth > 0 {
		out.MaxDepth = o.MaxDepth
	}
	if o.ConfidenceDecay > 0 {
		out.ConfidenceDecay = o.ConfidenceDecay
	}
	if o.MinConfidence > 0 {
		out.MinConfidence = o.MinConfidence
	}
	return out
}

// Finder runs graph searches over a store. It holds no per-query state, so
// one Finder may serve concurrent queries; per-strategy searches are
// independent and safe to run in parallel.
type Finder struct {
	store *graph.Store
	opts  Options
}

// New creates a Finder over the given store. opts may be nil for defaults.
func New(store *graph.Store, opts *Options) *Finder {
	return &Finder{store: store, opts: opts.withDefaults()}
}

// FindReasoningPaths discovers up to numPaths reasoning paths from the
// start concepts to the target concepts using the given strategy.
//
// Paths are returned sorted by confidence descending and diversified:
// a candidate sharing more than half of its intermediate concepts with an
// already-selected path is skipped while enough distinct candidates
// remain. Fewer than numPaths results (including none) is a valid outcome.
func (f *Finder) FindReasoningPaths(ctx context.Context, startIDs, targetIDs []string, numPaths int, strategy Strategy) ([]*ReasoningPath, error) {
	if len(startIDs) == 0 || len(targetIDs) == 0 {
		return nil, ErrNoStartConcepts
	}
	if !strategy.Valid() {
		return nil, errors.New("pathfind: unknown strategy " + string(strategy))
	}
	if numPaths <= 0 {
		numPaths = 1
	}

	began := time.Now()
	targets := make(map[string]struct{}, len(targetIDs))
	for _, id := range targetIDs {
		targets[id] = struct{}{}
	}

	var raw []*ReasoningPath
	switch strategy {
	case StrategyBestFirst:
		raw = f.bestFirst(ctx, startIDs, targets, numPaths)
	case StrategyBreadthFirst:
		raw = f.breadthFirst(ctx, startIDs, targets, numPaths)
	case StrategyBidirectional:
		raw = f.bidirectional(ctx, startIDs, targetIDs, numPaths)
	}

	elapsed := time.Since(began)
	for _, p := range raw {
		p.Strategy = strategy
		p.TotalTime = elapsed
	}

	sortPaths(raw)
	return selectDiverse(raw, numPaths), nil
}

// sortPaths orders paths by confidence descending, breaking ties by fewer
// hops and then by answer for determinism.
func sortPaths(paths []*ReasoningPath) {
	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].Confidence != paths[j].Confidence {
			return paths[i].Confidence > paths[j].Confidence
		}
		if len(paths[i].Steps) != len(paths[j].Steps) {
			return len(paths[i].Steps) < len(paths[j].Steps)
		}
		return paths[i].Answer < paths[j].Answer
	})
}

// selectDiverse picks up to k paths, preferring candidates that do not
// share more than half their intermediate concepts with an already
// selected path. When strict selection cannot fill k, the remaining slots
// are topped up with the best skipped candidates.
func selectDiverse(paths []*ReasoningPath, k int) []*ReasoningPath {
	if len(paths) <= k {
		return paths
	}

	selected := make([]*ReasoningPath, 0, k)
	var skipped []*ReasoningPath

	for _, cand := range paths {
		if len(selected) == k {
			break
		}
		if tooSimilar(cand, selected) {
			skipped = append(skipped, cand)
			continue
		}
		selected = append(selected, cand)
	}

	for _, cand := range skipped {
		if len(selected) == k {
			break
		}
		selected = append(selected, cand)
	}

	sortPaths(selected)
	return selected
}

func tooSimilar(cand *ReasoningPath, selected []*ReasoningPath) bool {
	mids := cand.IntermediateIDs()
	if len(mids) == 0 {
		return false
	}
	midSet := make(map[string]struct{}, len(mids))
	for _, id := range mids {
		midSet[id] = struct{}{}
	}

	for _, sel := range selected {
		shared := 0
		for _, id := range sel.IntermediateIDs() {
			if _, ok := midSet[id]; ok {
				shared++
			}
		}
		if shared*2 > len(mids) {
			return true
		}
	}
	return false
}

// proximity estimates how lexically close a concept is to the target set:
// the best token-overlap similarity between the concept's content and any
// target's content, floored so distant concepts still expand. This is the
// heuristic term of the best-first priority; documented here because it
// materially affects tie-break ordering.
func (f *Finder) proximity(conceptID string, targets map[string]struct{}) float64 {
	const floor = 0.1

	c, err := f.store.GetConcept(conceptID)
	if err != nil {
		return floor
	}
	set := graph.TokenSet(c.Content)
	if len(set) == 0 {
		return floor
	}

	best := 0.0
	for tid := range targets {
		t, err := f.store.GetConcept(tid)
		if err != nil {
			continue
		}
		tset := graph.TokenSet(t.Content)
		if len(tset) == 0 {
			continue
		}
		shared := 0
		for tok := range set {
			if _, ok := tset[tok]; ok {
				shared++
			}
		}
		union := len(set) + len(tset) - shared
		if union > 0 {
			if score := float64(shared) / float64(union); score > best {
				best = score
			}
		}
	}

	if best < floor {
		return floor
	}
	return best
}

// edgeBetween returns the best association between two concepts along with
// the confidence used for the step, or ok=false when no edge exists.
func (f *Finder) edgeBetween(a, b string) (relation string, weight, confidence float64, ok bool) {
	e := f.store.BestAssociationBetween(a, b)
	if e == nil {
		return "", 0, 0, false
	}
	conf := e.Confidence
	if conf <= 0 {
		conf = e.Weight
	}
	return string(e.Type), e.Weight, conf, true
}

// buildPath assembles an immutable ReasoningPath from a chain of concept
// IDs, resolving each hop's relation and confidence from the store.
func (f *Finder) buildPath(query string, chain []string, decay float64) *ReasoningPath {
	if len(chain) < 2 {
		return nil
	}

	steps := make([]ReasoningStep, 0, len(chain)-1)
	confs := make([]float64, 0, len(chain)-1)
	for i := 0; i+1 < len(chain); i++ {
		relation, _, conf, ok := f.edgeBetween(chain[i], chain[i+1])
		if !ok {
			return nil
		}
		steps = append(steps, ReasoningStep{
			SourceConcept: chain[i],
			Relation:      relation,
			TargetConcept: chain[i+1],
			Confidence:    conf,
			StepNumber:    i + 1,
		})
		confs = append(confs, conf)
	}

	answer := chain[len(chain)-1]
	if c, err := f.store.GetConcept(answer); err == nil {
		answer = c.Content
	}

	return &ReasoningPath{
		Query:      query,
		Answer:     answer,
		Steps:      steps,
		Confidence: pathConfidence(confs, decay),
	}
}

// cancelled reports whether the context has been cancelled. Searches call
// it at expansion granularity; they are read-only, so abandoning a search
// mid-way is always safe.
func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
