// Package pathfind discovers ranked reasoning paths through the knowledge
// graph.
//
// A reasoning path is an ordered chain of associations connecting a seed
// concept to a candidate answer concept. The finder supports three search
// strategies behind one contract:
//
//   - StrategyBestFirst: priority search ordered by accumulated confidence
//     times a lexical proximity-to-target heuristic, with per-hop
//     confidence decay.
//   - StrategyBreadthFirst: level-order expansion with a shortest-path
//     bias, recording the first path that reaches a target at each depth.
//   - StrategyBidirectional: simultaneous expansion from both ends,
//     joined at the meeting concept.
//
// All strategies are read-only over the graph store and interruptible at
// path-expansion granularity: cancelling the context simply stops the
// search and returns whatever was found. An empty result is valid data
// meaning "no connection found", never an error.
//
// Example:
//
//	finder := pathfind.New(store, nil)
//	paths, err := finder.FindReasoningPaths(ctx, seeds, targets, 5, pathfind.StrategyBestFirst)
//	for _, p := range paths {
//		fmt.Printf("%s (confidence %.2f, %d hops)\n", p.Answer, p.Confidence, len(p.Steps))
//	}
package pathfind

import (
	"math"
	"time"
)

// Strategy selects the search algorithm. It is a closed set: callers pick
// one explicitly and the finder dispatches exhaustively over it.
type Strategy string

const (
	StrategyBestFirst     Strategy = "best_first"
	StrategyBreadthFirst  Strategy = "breadth_first"
	StrategyBidirectional Strategy = "bidirectional"
)

// Strategies lists every available search strategy.
var Strategies = []Strategy{StrategyBestFirst, StrategyBreadthFirst, StrategyBidirectional}

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyBestFirst, StrategyBreadthFirst, StrategyBidirectional:
		return true
	}
	return false
}

// ReasoningStep is one hop in a reasoning path. Steps are immutable once
// the path is constructed.
type ReasoningStep struct {
	SourceConcept string  `json:"source_concept"`
	Relation      string  `json:"relation"`
	TargetConcept string  `json:"target_concept"`
	Confidence    float64 `json:"confidence"`
	StepNumber    int     `json:"step_number"`
}

// ReasoningPath is an ordered chain of reasoning steps from a seed concept
// to an answer concept. Paths are produced by the finder and consumed
// read-only by the consensus aggregator; they are never mutated after
// creation.
//
// Invariants:
//   - steps form a connected chain: step[i].TargetConcept ==
//     step[i+1].SourceConcept
//   - no concept repeats across steps (paths are acyclic)
//   - Confidence strictly decreases with added hops under the per-hop
//     decay discount
type ReasoningPath struct {
	Query      string          `json:"query"`
	Answer     string          `json:"answer"`
	Steps      []ReasoningStep `json:"steps"`
	Confidence float64         `json:"confidence"`
	Strategy   Strategy        `json:"strategy"`
	TotalTime  time.Duration   `json:"total_time"`
}

// ConceptIDs returns every concept ID the path traverses, in order.
func (p *ReasoningPath) ConceptIDs() []string {
	if len(p.Steps) == 0 {
		return nil
	}
	ids := make([]string, 0, len(p.Steps)+1)
	ids = append(ids, p.Steps[0].SourceConcept)
	for _, s := range p.Steps {
		ids = append(ids, s.TargetConcept)
	}
	return ids
}

// IntermediateIDs returns the concept IDs strictly between the path's
// endpoints. Used by the diversity filter and the robustness report.
func (p *ReasoningPath) IntermediateIDs() []string {
	ids := p.ConceptIDs()
	if len(ids) <= 2 {
		return nil
	}
	return ids[1 : len(ids)-1]
}

// pathConfidence computes the final confidence for a chain of step
// confidences: the product of the steps discounted by decay per added
// hop. A single-hop path carries no decay, so a path of length n is
// bounded by decay^(n-1) relative to it under identical edge confidence.
func pathConfidence(stepConfidences []float64, decay float64) float64 {
	if len(stepConfidences) == 0 {
		return 0
	}
	conf := 1.0
	for _, c := range stepConfidences {
		conf *= c
	}
	conf *= math.Pow(decay, float64(len(stepConfidences)-1))
	if conf > 1 {
		conf = 1
	}
	return conf
}
