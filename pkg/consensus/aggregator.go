// Package consensus fuses independent reasoning paths into one answer.
//
// The multi-path aggregator clusters paths whose final answers are
// textually similar, scores each cluster by corroboration, and selects a
// primary answer with a calibrated confidence. Answers supported by a
// single path pay an outlier penalty; clusters whose supporting paths are
// structurally near-identical pay a diversity penalty, because they do not
// count as independent evidence.
//
// The aggregator is total: every input, including an empty path list,
// produces a ConsensusResult. "Insufficient evidence" is a zero-confidence
// result, never an error; downstream quality gating is the caller's
// policy decision.
//
// ELI12:
//
// Imagine asking five friends the same question. If three of them reach
// the same answer by different routes, you trust that answer more than a
// single very confident friend. If the three "different routes" turn out
// to be the same route retold, you trust them a bit less again. That is
// exactly what this package computes.
package consensus

import (
	"fmt"
	"math"
	"sort"

	"github.com/hverdal/muninn/pkg/pathfind"
	"github.com/hverdal/muninn/pkg/similarity"
)

// NoEvidenceAnswer is the primary answer reported when no reasoning paths
// were supplied or no cluster could be formed.
const NoEvidenceAnswer = "insufficient evidence"

// Options tunes clustering and scoring. Zero values fall back to the
// defaults below.
type Options struct {
	// ClusterThreshold is the minimum answer similarity for two paths to
	// share a cluster.
	ClusterThreshold float64
	// DiversityPenalty is subtracted from a cluster's score when its
	// supporting paths are structurally near-identical.
	DiversityPenalty float64
	// OutlierPenalty is subtracted from singleton clusters.
	OutlierPenalty float64
	// MinPathsForConsensus is the cluster-count floor for a true consensus.
	// Below it there is no competing cluster to corroborate against, and a
	// primary answer carried by a single path pays the outlier penalty on
	// its confidence.
	MinPathsForConsensus int
	// ConsensusThreshold is the minimum agreement (cluster size / total
	// paths) required for full confidence; below it confidence is capped
	// downward, not rejected.
	ConsensusThreshold float64
	// Scorer computes answer similarity. Defaults to similarity.Lexical;
	// an embedding-backed scorer can be plugged in here.
	Scorer similarity.Scorer
}

// Scoring defaults.
const (
	DefaultClusterThreshold     = 0.8
	DefaultDiversityPenalty     = 0.1
	DefaultOutlierPenalty       = 0.3
	DefaultMinPathsForConsensus = 2
	DefaultConsensusThreshold   = 0.5

	// lowDiversityFloor is the within-cluster path diversity under which
	// the diversity penalty applies.
	lowDiversityFloor = 0.3

	// lowAgreementCap is the multiplicative confidence cap applied when
	// agreement falls below ConsensusThreshold.
	lowAgreementCap = 0.75
)

// DefaultOptions returns the default aggregation parameters.
func DefaultOptions() *Options {
	return &Options{
		ClusterThreshold:     DefaultClusterThreshold,
		DiversityPenalty:     DefaultDiversityPenalty,
		OutlierPenalty:       DefaultOutlierPenalty,
		MinPathsForConsensus: DefaultMinPathsForConsensus,
		ConsensusThreshold:   DefaultConsensusThreshold,
		Scorer:               similarity.Lexical{},
	}
}

func (o *Options) withDefaults() Options {
	out := *DefaultOptions()
	if o == nil {
		return out
	}
	if o.ClusterThreshold > 0 {
		out.ClusterThreshold = o.ClusterThreshold
	}
	if o.DiversityPenalty > 0 {
		out.DiversityPenalty = o.DiversityPenalty
	}
	if o.OutlierPenalty > 0 {
		out.OutlierPenalty = o.OutlierPenalty
	}
	if o.MinPathsForConsensus > 0 {
		out.MinPathsForConsensus = o.MinPathsForConsensus
	}
	if o.ConsensusThreshold > 0 {
		out.ConsensusThreshold = o.ConsensusThreshold
	}
	if o.Scorer != nil {
		out.Scorer = o.Scorer
	}
	return out
}

// AnswerConfidence pairs an alternative answer with its cluster's mean
// confidence.
type AnswerConfidence struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// ConsensusResult is the agreed-upon answer derived from multiple
// reasoning paths. Immutable once returned; the query processor may cache
// it keyed by normalized query text.
type ConsensusResult struct {
	PrimaryAnswer        string                    `json:"primary_answer"`
	Confidence           float64                   `json:"confidence"`
	ConsensusStrength    float64                   `json:"consensus_strength"`
	SupportingPaths      []*pathfind.ReasoningPath `json:"supporting_paths"`
	AlternativeAnswers   []AnswerConfidence        `json:"alternative_answers"`
	ReasoningExplanation string                    `json:"reasoning_explanation"`
}

// Aggregator clusters and scores reasoning paths. Stateless; safe for
// concurrent use.
type Aggregator struct {
	opts Options
}

// New creates an Aggregator. opts may be nil for defaults.
func New(opts *Options) *Aggregator {
	return &Aggregator{opts: opts.withDefaults()}
}

type cluster struct {
	answer string
	paths  []*pathfind.ReasoningPath
	score  float64
	mean   float64
}

// AggregateReasoningPaths fuses the given paths into one consensus result
// for the query. An empty path list yields the NoEvidenceAnswer with
// confidence exactly 0.
func (a *Aggregator) AggregateReasoningPaths(paths []*pathfind.ReasoningPath, query string) *ConsensusResult {
	if len(paths) == 0 {
		return &ConsensusResult{
			PrimaryAnswer:        NoEvidenceAnswer,
			Confidence:           0.0,
			ReasoningExplanation: "no reasoning paths connected the question to the knowledge graph",
		}
	}

	clusters := a.clusterByAnswer(paths)
	total := len(paths)

	for _, cl := range clusters {
		cl.mean = meanConfidence(cl.paths)
		sizeWeight := float64(len(cl.paths)) / float64(total)
		cl.score = cl.mean * sizeWeight
		if len(cl.paths) == 1 {
			cl.score -= a.opts.OutlierPenalty
		} else if clusterPathDiversity(cl.paths) < lowDiversityFloor {
			cl.score -= a.opts.DiversityPenalty
		}
	}

	// Highest score wins; ties break on larger cluster, then answer text,
	// keeping selection deterministic.
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].score != clusters[j].score {
			return clusters[i].score > clusters[j].score
		}
		if len(clusters[i].paths) != len(clusters[j].paths) {
			return len(clusters[i].paths) > len(clusters[j].paths)
		}
		return clusters[i].answer < clusters[j].answer
	})

	primary := clusters[0]
	agreement := float64(len(primary.paths)) / float64(total)

	confidence := primary.mean
	capped := false
	if agreement < a.opts.ConsensusThreshold {
		confidence *= lowAgreementCap
		capped = true
	}
	// Fewer clusters than the consensus minimum means nothing corroborated
	// the answer; single-path support then docks confidence directly, not
	// just the selection score.
	if len(clusters) < a.opts.MinPathsForConsensus && len(primary.paths) == 1 {
		confidence -= a.opts.OutlierPenalty
	}
	confidence = clampUnit(confidence)

	alternatives := make([]AnswerConfidence, 0, len(clusters)-1)
	for _, cl := range clusters[1:] {
		alternatives = append(alternatives, AnswerConfidence{Answer: cl.answer, Confidence: cl.mean})
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		if alternatives[i].Confidence != alternatives[j].Confidence {
			return alternatives[i].Confidence > alternatives[j].Confidence
		}
		return alternatives[i].Answer < alternatives[j].Answer
	})

	return &ConsensusResult{
		PrimaryAnswer:        primary.answer,
		Confidence:           confidence,
		ConsensusStrength:    clampUnit(agreement),
		SupportingPaths:      primary.paths,
		AlternativeAnswers:   alternatives,
		ReasoningExplanation: explain(query, primary, total, len(clusters), capped),
	}
}

// clusterByAnswer greedily groups paths whose answers score at or above
// the cluster threshold against a cluster's representative answer. The
// representative is the first (highest-confidence) path assigned, so
// clustering is order-dependent on confidence rank and deterministic.
func (a *Aggregator) clusterByAnswer(paths []*pathfind.ReasoningPath) []*cluster {
	ordered := append([]*pathfind.ReasoningPath(nil), paths...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Confidence != ordered[j].Confidence {
			return ordered[i].Confidence > ordered[j].Confidence
		}
		return ordered[i].Answer < ordered[j].Answer
	})

	var clusters []*cluster
	for _, p := range ordered {
		assigned := false
		for _, cl := range clusters {
			if a.opts.Scorer.Similarity(p.Answer, cl.answer) >= a.opts.ClusterThreshold {
				cl.paths = append(cl.paths, p)
				assigned = true
				break
			}
		}
		if !assigned {
			clusters = append(clusters, &cluster{answer: p.Answer, paths: []*pathfind.ReasoningPath{p}})
		}
	}
	return clusters
}

func meanConfidence(paths []*pathfind.ReasoningPath) float64 {
	if len(paths) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range paths {
		sum += p.Confidence
	}
	return sum / float64(len(paths))
}

// clusterPathDiversity measures how structurally independent a cluster's
// paths are: distinct intermediate concepts across all paths relative to
// total intermediate slots. 1.0 means fully disjoint routes.
func clusterPathDiversity(paths []*pathfind.ReasoningPath) float64 {
	distinct := make(map[string]struct{})
	totalSlots := 0
	for _, p := range paths {
		for _, id := range p.IntermediateIDs() {
			distinct[id] = struct{}{}
			totalSlots++
		}
	}
	if totalSlots == 0 {
		// Direct one-hop paths have no intermediates to overlap on.
		return 1.0
	}
	return float64(len(distinct)) / float64(totalSlots)
}

func explain(query string, primary *cluster, totalPaths, totalClusters int, capped bool) string {
	msg := fmt.Sprintf("%d of %d reasoning paths agree on this answer (%d answer cluster(s) considered)",
		len(primary.paths), totalPaths, totalClusters)
	if len(primary.paths) == 1 {
		msg += "; single-path support, outlier penalty applied"
	}
	if capped {
		msg += "; agreement below consensus threshold, confidence capped"
	}
	if query != "" {
		msg = fmt.Sprintf("query %q: %s", query, msg)
	}
	return msg
}

func clampUnit(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
