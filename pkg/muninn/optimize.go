package muninn

import (
	"go.uber.org/zap"

	"github.com/hverdal/muninn/pkg/graph"
)

// Maintenance sweep thresholds.
const (
	// optimizeAccessThreshold is the access count above which a concept
	// earns a maintenance reinforcement.
	optimizeAccessThreshold = 5
	// optimizeStrengthBonus is the multiplicative reinforcement applied to
	// frequently accessed concepts.
	optimizeStrengthBonus = 1.05
	// optimizeConfidenceFloor is the association confidence below which an
	// edge is pruned.
	optimizeConfidenceFloor = 0.2
)

// OptimizeReport summarizes a maintenance sweep.
type OptimizeReport struct {
	ConceptsStrengthened    int `json:"concepts_strengthened"`
	WeakAssociationsRemoved int `json:"weak_associations_removed"`
	CacheEntriesPruned      int `json:"cache_entries_pruned"`
}

// Optimize runs the maintenance sweep: frequently accessed concepts are
// reinforced, associations below the confidence floor are removed, and
// expired cache entries are evicted. Each mutation is individually
// atomic; queries may run concurrently with the sweep.
func (e *Engine) Optimize() OptimizeReport {
	var report OptimizeReport

	for _, c := range e.store.AllConcepts() {
		if c.AccessCount < optimizeAccessThreshold {
			continue
		}
		_, err := e.store.UpdateConcept(c.ID, func(cc *graph.Concept) {
			cc.Strength = graph.ClampStrength(cc.Strength * optimizeStrengthBonus)
		})
		if err == nil {
			report.ConceptsStrengthened++
		}
	}

	for _, a := range e.store.AllAssociations() {
		if a.Confidence >= optimizeConfidenceFloor {
			continue
		}
		if err := e.store.RemoveAssociation(a.SourceID, a.TargetID, a.Type); err == nil {
			report.WeakAssociationsRemoved++
		}
	}

	report.CacheEntriesPruned = e.processor.Cache().PruneExpired()

	e.log.Info("optimize sweep complete",
		zap.Int("concepts_strengthened", report.ConceptsStrengthened),
		zap.Int("weak_associations_removed", report.WeakAssociationsRemoved),
		zap.Int("cache_entries_pruned", report.CacheEntriesPruned))

	return report
}
