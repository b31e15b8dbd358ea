// Package learn implements adaptive knowledge ingestion.
//
// Learning is idempotent by content: ingesting text whose normalized form
// matches an existing concept reinforces that concept instead of creating
// a duplicate. Reinforcement is adaptive: how hard a concept is pushed
// depends on how established it already is, mirroring spaced-repetition
// practice, so weak concepts get a strong multiplier while well-established
// concepts barely move.
//
// Example:
//
//	learner := learn.New(store, extractor, logger, nil)
//
//	c, created, err := learner.Learn("Water boils at 100 degrees Celsius", "notes", "physics")
//	// created == true, c.Strength == 1.0
//
//	c, created, _ = learner.Learn("water boils at 100 degrees celsius", "", "")
//	// created == false, c.Strength == 1.15 (difficult-band reinforcement)
package learn

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hverdal/muninn/pkg/extract"
	"github.com/hverdal/muninn/pkg/graph"
)

// Difficulty classifies how established a concept is, derived from its
// current strength. The classification selects the reinforcement
// multiplier.
type Difficulty string

const (
	// DifficultyHard marks weak concepts that need strong reinforcement.
	DifficultyHard Difficulty = "difficult"
	// DifficultyModerate marks concepts still being consolidated.
	DifficultyModerate Difficulty = "moderate"
	// DifficultyEasy marks well-established concepts that barely need
	// reinforcement.
	DifficultyEasy Difficulty = "easy"
)

// Options tunes reinforcement policy. Zero values use the defaults below.
type Options struct {
	// DifficultThreshold: strength below this is "difficult".
	DifficultThreshold float64
	// EasyThreshold: strength above this is "easy".
	EasyThreshold float64
	// Multipliers per difficulty band.
	DifficultMultiplier float64
	ModerateMultiplier  float64
	EasyMultiplier      float64
	// NewConceptConfidence is the initial confidence for created concepts.
	NewConceptConfidence float64
}

// Reinforcement defaults.
const (
	DefaultDifficultThreshold   = 4.0
	DefaultEasyThreshold        = 7.0
	DefaultDifficultMultiplier  = 1.15
	DefaultModerateMultiplier   = 1.08
	DefaultEasyMultiplier       = 1.01
	DefaultNewConceptConfidence = 0.5
)

// DefaultOptions returns the default reinforcement parameters.
func DefaultOptions() *Options {
	return &Options{
		DifficultThreshold:   DefaultDifficultThreshold,
		EasyThreshold:        DefaultEasyThreshold,
		DifficultMultiplier:  DefaultDifficultMultiplier,
		ModerateMultiplier:   DefaultModerateMultiplier,
		EasyMultiplier:       DefaultEasyMultiplier,
		NewConceptConfidence: DefaultNewConceptConfidence,
	}
}

func (o *Options) withDefaults() Options {
	out := *DefaultOptions()
	if o == nil {
		return out
	}
	if o.DifficultThreshold > 0 {
		out.DifficultThreshold = o.DifficultThreshold
	}
	if o.EasyThreshold > 0 {
		out.EasyThreshold = o.EasyThreshold
	}
	if o.DifficultMultiplier > 0 {
		out.DifficultMultiplier = o.DifficultMultiplier
	}
	if o.ModerateMultiplier > 0 {
		out.ModerateMultiplier = o.ModerateMultiplier
	}
	if o.EasyMultiplier > 0 {
		out.EasyMultiplier = o.EasyMultiplier
	}
	if o.NewConceptConfidence > 0 {
		out.NewConceptConfidence = o.NewConceptConfidence
	}
	return out
}

// Learner creates and reinforces concepts. Mutations are serialized
// through the store's writer lane, so learners are safe to call from
// concurrent goroutines.
type Learner struct {
	store     *graph.Store
	extractor *extract.Extractor
	log       *zap.Logger
	opts      Options
}

// New creates a Learner. logger and opts may be nil.
func New(store *graph.Store, extractor *extract.Extractor, logger *zap.Logger, opts *Options) *Learner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Learner{
		store:     store,
		extractor: extractor,
		log:       logger,
		opts:      opts.withDefaults(),
	}
}

// Learn ingests content. If a concept with identical normalized content
// exists it is reinforced and returned with created == false; otherwise a
// new concept is created, associations are extracted against the current
// graph, and created == true.
//
// Empty or whitespace-only content fails with graph.ErrEmptyContent
// before any graph mutation occurs.
func (l *Learner) Learn(content, source, category string) (*graph.Concept, bool, error) {
	if strings.TrimSpace(content) == "" {
		return nil, false, graph.ErrEmptyContent
	}

	now := time.Now()
	c := &graph.Concept{
		ID:           uuid.NewString(),
		Content:      strings.TrimSpace(content),
		Strength:     graph.MinStrength,
		Confidence:   l.opts.NewConceptConfidence,
		Created:      now,
		LastAccessed: now,
		Source:       source,
		Category:     category,
	}

	// Lookup and insert are one critical section in the store, so two
	// concurrent learns of identical content resolve to the same concept.
	stored, created, err := l.store.FindOrPutConcept(c)
	if err != nil {
		return nil, false, err
	}
	if !created {
		reinforced, err := l.Reinforce(stored.ID)
		if err != nil {
			return nil, false, err
		}
		return reinforced, false, nil
	}

	links := l.extractor.ExtractAssociations(stored)
	l.log.Debug("concept learned",
		zap.String("concept_id", stored.ID),
		zap.String("category", category),
		zap.Int("associations", links))

	return stored, true, nil
}

// Reinforce strengthens an existing concept by the multiplier its
// difficulty band selects, bounded at MaxStrength, and records the access.
func (l *Learner) Reinforce(id string) (*graph.Concept, error) {
	updated, err := l.store.UpdateConcept(id, func(c *graph.Concept) {
		mult := l.multiplierFor(l.Classify(c.Strength))
		c.Strength = graph.ClampStrength(c.Strength * mult)
		c.AccessCount++
		c.LastAccessed = time.Now()
	})
	if err != nil {
		return nil, err
	}

	l.log.Debug("concept reinforced",
		zap.String("concept_id", id),
		zap.Float64("strength", updated.Strength))
	return updated, nil
}

// Classify maps a strength value to its difficulty band.
func (l *Learner) Classify(strength float64) Difficulty {
	switch {
	case strength < l.opts.DifficultThreshold:
		return DifficultyHard
	case strength > l.opts.EasyThreshold:
		return DifficultyEasy
	default:
		return DifficultyModerate
	}
}

func (l *Learner) multiplierFor(d Difficulty) float64 {
	switch d {
	case DifficultyHard:
		return l.opts.DifficultMultiplier
	case DifficultyEasy:
		return l.opts.EasyMultiplier
	default:
		return l.opts.ModerateMultiplier
	}
}
