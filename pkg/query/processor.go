// Package query orchestrates the full question-answering pipeline.
//
// A query runs through a fixed sequence of stages: normalize the text,
// classify intent, extract seed concepts from the graph, expand context
// through neighbors, generate reasoning paths per search strategy,
// aggregate them into a consensus, and apply deterministic confidence
// adjustments. The processor is stateless across queries except for the
// shared result cache, which is an explicit field with its own locking,
// never package-global state.
//
// A cache hit returns the stored result unchanged and bypasses every
// other stage.
package query

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hverdal/muninn/pkg/consensus"
	"github.com/hverdal/muninn/pkg/graph"
	"github.com/hverdal/muninn/pkg/pathfind"
)

// ErrEmptyQuery is returned for a question that normalizes to nothing.
var ErrEmptyQuery = errors.New("query: empty question")

// Intent is the coarse question category. It biases confidence
// adjustment only; it never changes graph traversal.
type Intent string

const (
	IntentWhat  Intent = "what"
	IntentHow   Intent = "how"
	IntentWhy   Intent = "why"
	IntentWhen  Intent = "when"
	IntentWhere Intent = "where"
	IntentWho   Intent = "who"
	IntentOther Intent = "other"
)

// Options tunes the pipeline. Zero values fall back to the defaults.
type Options struct {
	// NumReasoningPaths is the total number of paths requested across
	// strategies.
	NumReasoningPaths int
	// MaxConcepts bounds the seed concept set extracted from the question.
	MaxConcepts int
	// ExpandThreshold is the minimum association confidence for a neighbor
	// to join the expanded target set.
	ExpandThreshold float64
	// Strategies lists the search strategies to run. Defaults to all.
	Strategies []pathfind.Strategy
	// CacheSize and CacheTTL configure the result cache.
	CacheSize int
	CacheTTL  time.Duration
}

// Pipeline defaults.
const (
	DefaultNumReasoningPaths = 5
	DefaultMaxConcepts       = 10
	DefaultExpandThreshold   = 0.3
)

// DefaultOptions returns the default pipeline parameters.
func DefaultOptions() *Options {
	return &Options{
		NumReasoningPaths: DefaultNumReasoningPaths,
		MaxConcepts:       DefaultMaxConcepts,
		ExpandThreshold:   DefaultExpandThreshold,
		Strategies:        append([]pathfind.Strategy(nil), pathfind.Strategies...),
		CacheSize:         DefaultCacheSize,
		CacheTTL:          DefaultCacheTTL,
	}
}

func (o *Options) withDefaults() Options {
	out := *DefaultOptions()
	if o == nil {
		return out
	}
	if o.NumReasoningPaths > 0 {
		out.NumReasoningPaths = o.NumReasoningPaths
	}
	if o.MaxConcepts > 0 {
		out.MaxConcepts = o.MaxConcepts
	}
	if o.ExpandThreshold > 0 {
		out.ExpandThreshold = o.ExpandThreshold
	}
	if len(o.Strategies) > 0 {
		out.Strategies = append([]pathfind.Strategy(nil), o.Strategies...)
	}
	if o.CacheSize > 0 {
		out.CacheSize = o.CacheSize
	}
	if o.CacheTTL > 0 {
		out.CacheTTL = o.CacheTTL
	}
	return out
}

// Processor runs questions through the reasoning pipeline. Safe for
// concurrent use; per-query state lives on the stack and shared state is
// limited to the store (reader-locked) and the cache (self-locking).
type Processor struct {
	store  *graph.Store
	finder *pathfind.Finder
	agg    *consensus.Aggregator
	cache  *ResultCache
	log    *zap.Logger
	opts   Options
}

// New creates a Processor. logger and opts may be nil.
func New(store *graph.Store, finder *pathfind.Finder, agg *consensus.Aggregator, logger *zap.Logger, opts *Options) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := opts.withDefaults()
	return &Processor{
		store:  store,
		finder: finder,
		agg:    agg,
		cache:  NewResultCache(o.CacheSize, o.CacheTTL),
		log:    logger,
		opts:   o,
	}
}

// Cache exposes the result cache for stats and maintenance.
func (p *Processor) Cache() *ResultCache { return p.cache }

// ProcessQuery answers a free-text question against the knowledge graph.
//
// A question that connects to nothing yields a zero-confidence result
// with the no-evidence answer, not an error; only a question that
// normalizes to empty text fails, with ErrEmptyQuery.
func (p *Processor) ProcessQuery(ctx context.Context, question string) (*consensus.ConsensusResult, error) {
	normalized := Normalize(question)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	key := p.cache.Key(normalized, p.opts.NumReasoningPaths, p.opts.MaxConcepts)
	if cached, ok := p.cache.Get(key); ok {
		p.log.Debug("query cache hit", zap.String("query", normalized))
		return cached, nil
	}

	intent := ClassifyIntent(normalized)
	seeds := p.extractConcepts(normalized)

	var paths []*pathfind.ReasoningPath
	if len(seeds) > 0 {
		for _, id := range seeds {
			p.store.Access(id)
		}
		targets := p.expandContext(seeds)
		paths = p.generatePaths(ctx, seeds, targets)
	}

	result := p.agg.AggregateReasoningPaths(paths, normalized)
	result.Confidence = AdjustConfidence(result.Confidence, normalized, intent)

	p.cache.Put(key, result)
	p.log.Debug("query answered",
		zap.String("query", normalized),
		zap.String("intent", string(intent)),
		zap.Int("seed_concepts", len(seeds)),
		zap.Int("paths", len(paths)),
		zap.Float64("confidence", result.Confidence))

	return result, nil
}

// Normalize lowercases the question, strips punctuation noise and
// collapses whitespace.
func Normalize(question string) string {
	lower := strings.ToLower(question)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r > 127 && !isPunct(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isPunct(r rune) bool {
	switch r {
	case '«', '»', '“', '”', '‘', '’', '—', '–', '…', '¿', '¡':
		return true
	}
	return false
}

// ClassifyIntent pattern-matches the normalized question's leading word.
func ClassifyIntent(normalized string) Intent {
	first := normalized
	if i := strings.IndexByte(normalized, ' '); i >= 0 {
		first = normalized[:i]
	}
	switch first {
	case "what":
		return IntentWhat
	case "how":
		return IntentHow
	case "why":
		return IntentWhy
	case "when":
		return IntentWhen
	case "where":
		return IntentWhere
	case "who", "whose", "whom":
		return IntentWho
	}
	return IntentOther
}

// seedScore ranks a seed candidate during extraction.
type seedScore struct {
	id      string
	matches int
	score   float64
}

// extractConcepts finds the concepts most relevant to the question:
// candidates are looked up per significant token through the inverted
// index, ranked by matching-word count times concept strength, and capped
// at MaxConcepts.
func (p *Processor) extractConcepts(normalized string) []string {
	tokens := graph.Tokenize(normalized)
	if len(tokens) == 0 {
		return nil
	}

	matches := make(map[string]int)
	for _, tok := range tokens {
		for _, id := range p.store.ConceptsContaining(tok) {
			matches[id]++
		}
	}
	if len(matches) == 0 {
		return nil
	}

	ranked := make([]seedScore, 0, len(matches))
	for id, n := range matches {
		c, err := p.store.GetConcept(id)
		if err != nil {
			continue
		}
		ranked = append(ranked, seedScore{
			id:      id,
			matches: n,
			score:   float64(n) * c.Strength,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	if len(ranked) > p.opts.MaxConcepts {
		ranked = ranked[:p.opts.MaxConcepts]
	}

	ids := make([]string, len(ranked))
	for i, s := range ranked {
		ids[i] = s.id
	}
	return ids
}

// expandContext widens the target set with neighbors reachable above the
// expansion confidence threshold. Seeds are always part of the target set
// so direct seed-to-seed connections still count.
func (p *Processor) expandContext(seeds []string) []string {
	inSet := make(map[string]struct{}, len(seeds))
	targets := make([]string, 0, len(seeds))
	for _, id := range seeds {
		inSet[id] = struct{}{}
		targets = append(targets, id)
	}

	for _, seed := range seeds {
		for _, nb := range p.store.Neighbors(seed) {
			if _, dup := inSet[nb]; dup {
				continue
			}
			e := p.store.BestAssociationBetween(seed, nb)
			if e == nil {
				continue
			}
			conf := e.Confidence
			if conf <= 0 {
				conf = e.Weight
			}
			if conf < p.opts.ExpandThreshold {
				continue
			}
			inSet[nb] = struct{}{}
			targets = append(targets, nb)
		}
	}
	return targets
}

// generatePaths runs every configured strategy, splitting the requested
// path budget across them, and returns the union.
func (p *Processor) generatePaths(ctx context.Context, seeds, targets []string) []*pathfind.ReasoningPath {
	strategies := p.opts.Strategies
	if len(strategies) == 0 {
		return nil
	}

	perStrategy := (p.opts.NumReasoningPaths + len(strategies) - 1) / len(strategies)
	if perStrategy < 1 {
		perStrategy = 1
	}

	var all []*pathfind.ReasoningPath
	for _, strategy := range strategies {
		paths, err := p.finder.FindReasoningPaths(ctx, seeds, targets, perStrategy, strategy)
		if err != nil {
			p.log.Debug("strategy search failed",
				zap.String("strategy", string(strategy)),
				zap.Error(err))
			continue
		}
		all = append(all, paths...)
	}
	return all
}

// AdjustConfidence applies the deterministic query-complexity
// adjustments: definition-style questions gain a small boost, long,
// causal and comparison questions are discounted. Adjustments compound
// multiplicatively and the outcome is clamped to [0, 1].
func AdjustConfidence(confidence float64, normalized string, intent Intent) float64 {
	adjusted := confidence
	if intent == IntentWhat && strings.HasPrefix(normalized, "what is ") {
		adjusted *= 1.10
	}
	if len(strings.Fields(normalized)) > 10 {
		adjusted *= 0.95
	}
	if intent == IntentWhy {
		adjusted *= 0.90
	}
	if isComparison(normalized) {
		adjusted *= 0.85
	}
	return graph.ClampUnit(adjusted)
}

func isComparison(normalized string) bool {
	if strings.Contains(normalized, "difference between") || strings.Contains(normalized, "compare") {
		return true
	}
	for _, w := range strings.Fields(normalized) {
		if w == "vs" || w == "versus" {
			return true
		}
	}
	return false
}
