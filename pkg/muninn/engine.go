// Package muninn is the engine facade: one handle tying together the
// graph store, adaptive learning, path finding, consensus aggregation and
// query processing, with write-through persistence underneath.
//
// The engine rebuilds the in-memory graph from storage at startup and
// keeps storage current by persisting every committed mutation. Closing
// the engine tears down the cache, the graph and the durable store.
//
// Example:
//
//	cfg := config.Default()
//	cfg.Storage.InMemory = true
//
//	engine, err := muninn.Open(cfg, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.Learn("Photosynthesis converts sunlight into energy", "notes", "biology")
//	result, _ := engine.Ask(ctx, "What is photosynthesis?")
//	fmt.Println(result.PrimaryAnswer, result.Confidence)
package muninn

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hverdal/muninn/pkg/config"
	"github.com/hverdal/muninn/pkg/consensus"
	"github.com/hverdal/muninn/pkg/extract"
	"github.com/hverdal/muninn/pkg/graph"
	"github.com/hverdal/muninn/pkg/learn"
	"github.com/hverdal/muninn/pkg/pathfind"
	"github.com/hverdal/muninn/pkg/query"
	"github.com/hverdal/muninn/pkg/storage"
)

// Engine is the top-level handle for the knowledge graph reasoning
// system. Safe for concurrent use: queries run as readers, learning runs
// through the store's writer lane.
type Engine struct {
	cfg *config.Config
	log *zap.Logger

	store     *graph.Store
	durable   storage.Store
	extractor *extract.Extractor
	learner   *learn.Learner
	finder    *pathfind.Finder
	agg       *consensus.Aggregator
	processor *query.Processor
}

// Open builds an engine from the configuration, rebuilds the in-memory
// graph from storage and wires write-through persistence. cfg and logger
// may be nil; a nil cfg uses defaults with in-memory storage.
func Open(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
		cfg.Storage.InMemory = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var durable storage.Store
	if cfg.Storage.InMemory {
		durable = storage.NewNullStore()
	} else {
		bs, err := storage.NewBadgerStoreWithOptions(storage.BadgerOptions{
			DataDir:    cfg.Storage.DataDir,
			SyncWrites: cfg.Storage.SyncWrites,
		})
		if err != nil {
			return nil, err
		}
		durable = bs
	}

	store := graph.NewStore()
	if err := rebuild(store, durable); err != nil {
		durable.Close()
		return nil, err
	}

	// Hooks go in after the rebuild so loading does not echo every record
	// straight back into storage.
	store.SetWriteHooks(graph.WriteHooks{
		OnConcept: func(c *graph.Concept) {
			if err := durable.PersistConcept(c); err != nil {
				logger.Warn("persist concept failed", zap.String("concept_id", c.ID), zap.Error(err))
			}
		},
		OnAssociation: func(a *graph.Association) {
			if err := durable.PersistAssociation(a); err != nil {
				logger.Warn("persist association failed",
					zap.String("source_id", a.SourceID),
					zap.String("target_id", a.TargetID),
					zap.Error(err))
			}
		},
		OnAssociationRemoved: func(source, target string, typ graph.AssocType) {
			if err := durable.RemoveAssociation(source, target, typ); err != nil {
				logger.Warn("remove persisted association failed",
					zap.String("source_id", source),
					zap.String("target_id", target),
					zap.Error(err))
			}
		},
	})

	extractor := extract.New(store, &extract.Options{
		MinConfidence:  cfg.Learning.MinConfidence,
		MaxCandidates:  cfg.Learning.MaxCandidates,
		TemporalWindow: cfg.Learning.TemporalWindow,
		CentralLinks:   true,
	})
	learner := learn.New(store, extractor, logger, &learn.Options{
		DifficultThreshold: cfg.Learning.DifficultThreshold,
		EasyThreshold:      cfg.Learning.EasyThreshold,
	})
	finder := pathfind.New(store, &pathfind.Options{
		MaxDepth:        cfg.Pathfind.MaxDepth,
		ConfidenceDecay: cfg.Pathfind.ConfidenceDecay,
		MinConfidence:   cfg.Pathfind.MinConfidence,
	})
	agg := consensus.New(&consensus.Options{
		ClusterThreshold:     cfg.Consensus.ClusterThreshold,
		DiversityPenalty:     cfg.Consensus.DiversityPenalty,
		OutlierPenalty:       cfg.Consensus.OutlierPenalty,
		MinPathsForConsensus: cfg.Consensus.MinPathsForConsensus,
		ConsensusThreshold:   cfg.Consensus.ConsensusThreshold,
	})
	processor := query.New(store, finder, agg, logger, &query.Options{
		NumReasoningPaths: cfg.Query.NumReasoningPaths,
		MaxConcepts:       cfg.Query.MaxConcepts,
		ExpandThreshold:   cfg.Query.ExpandThreshold,
		CacheSize:         cfg.Query.CacheSize,
		CacheTTL:          cfg.Query.CacheTTL,
	})

	logger.Info("engine opened",
		zap.Int("concepts", store.ConceptCount()),
		zap.Int("associations", store.AssociationCount()),
		zap.Bool("in_memory", cfg.Storage.InMemory))

	return &Engine{
		cfg:       cfg,
		log:       logger,
		store:     store,
		durable:   durable,
		extractor: extractor,
		learner:   learner,
		finder:    finder,
		agg:       agg,
		processor: processor,
	}, nil
}

// rebuild loads the durable store into the fresh in-memory graph.
// Concepts first, then associations, so every edge finds its endpoints.
func rebuild(store *graph.Store, durable storage.Store) error {
	err := durable.LoadAllConcepts(func(c *graph.Concept) error {
		return store.PutConcept(c)
	})
	if err != nil {
		return fmt.Errorf("muninn: rebuild concepts: %w", err)
	}
	err = durable.LoadAllAssociations(func(a *graph.Association) error {
		return store.PutAssociation(a)
	})
	if err != nil {
		return fmt.Errorf("muninn: rebuild associations: %w", err)
	}
	return nil
}

// Learn ingests content and returns the concept ID, which is stable
// across repeated learns of identical normalized content.
func (e *Engine) Learn(content, source, category string) (string, error) {
	c, created, err := e.learner.Learn(content, source, category)
	if err != nil {
		return "", err
	}
	if created {
		e.log.Info("learned new concept", zap.String("concept_id", c.ID))
	}
	return c.ID, nil
}

// Ask answers a free-text question against the knowledge graph.
func (e *Engine) Ask(ctx context.Context, question string) (*consensus.ConsensusResult, error) {
	return e.processor.ProcessQuery(ctx, question)
}

// Suggest proposes complete questions for a partial query.
func (e *Engine) Suggest(partialQuery string, maxSuggestions int) []string {
	return e.processor.GetQuerySuggestions(partialQuery, maxSuggestions)
}

// ConceptSummary is a ranked concept search hit.
type ConceptSummary struct {
	ID          string  `json:"id"`
	Content     string  `json:"content"`
	Category    string  `json:"category"`
	Strength    float64 `json:"strength"`
	Confidence  float64 `json:"confidence"`
	AccessCount int64   `json:"access_count"`
	Score       float64 `json:"score"`
}

// SearchConcepts returns up to limit concepts relevant to the query,
// ranked by matching-word count times strength. Read-only: no access
// recording, no strength nudges.
func (e *Engine) SearchConcepts(queryText string, limit int) []ConceptSummary {
	if limit <= 0 {
		limit = 10
	}
	tokens := graph.Tokenize(queryText)
	if len(tokens) == 0 {
		return nil
	}

	matches := make(map[string]int)
	for _, tok := range tokens {
		for _, id := range e.store.ConceptsContaining(tok) {
			matches[id]++
		}
	}

	summaries := make([]ConceptSummary, 0, len(matches))
	for id, n := range matches {
		c, err := e.store.GetConcept(id)
		if err != nil {
			continue
		}
		summaries = append(summaries, ConceptSummary{
			ID:          c.ID,
			Content:     c.Content,
			Category:    c.Category,
			Strength:    c.Strength,
			Confidence:  c.Confidence,
			AccessCount: c.AccessCount,
			Score:       float64(n) * c.Strength,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Score != summaries[j].Score {
			return summaries[i].Score > summaries[j].Score
		}
		return summaries[i].ID < summaries[j].ID
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// SystemStats reports graph, cache and storage counters.
type SystemStats struct {
	Concepts     int              `json:"concepts"`
	Associations int              `json:"associations"`
	Cache        query.CacheStats `json:"cache"`
	Storage      storage.Stats    `json:"storage"`
}

// Stats returns a snapshot of the system counters. Storage stats are
// best-effort; a storage error leaves them zeroed.
func (e *Engine) Stats() SystemStats {
	stats := SystemStats{
		Concepts:     e.store.ConceptCount(),
		Associations: e.store.AssociationCount(),
		Cache:        e.processor.Cache().Stats(),
	}
	if ss, err := e.durable.Stats(); err == nil {
		stats.Storage = ss
	}
	return stats
}

// Close tears down the engine: the cache is cleared, the graph store is
// closed and the durable store is released.
func (e *Engine) Close() error {
	e.processor.Cache().Clear()
	e.store.Close()
	err := e.durable.Close()
	e.log.Info("engine closed")
	return err
}
