package consensus

import "math"

// RobustnessReport summarizes how trustworthy a consensus result is,
// independent of the answer itself.
//
// Fields:
//   - PathDiversity: fraction of distinct intermediate concepts across
//     supporting paths relative to total steps. High diversity means the
//     paths constitute genuinely independent evidence.
//   - ConfidenceConsistency: 1 minus the normalized standard deviation of
//     per-path confidences. High consistency means the paths agree on how
//     sure they are, not just on the answer.
//   - RobustnessScore: weighted combination of consensus strength,
//     diversity and consistency.
type RobustnessReport struct {
	RobustnessScore        float64 `json:"robustness_score"`
	PathDiversity          float64 `json:"path_diversity"`
	ConfidenceConsistency  float64 `json:"confidence_consistency"`
	ConsensusStrength      float64 `json:"consensus_strength"`
	SupportingPathCount    int     `json:"supporting_path_count"`
	AlternativeAnswerCount int     `json:"alternative_answer_count"`
}

// Robustness weights. Consensus carries the largest share because
// agreement across paths is the primary trust signal.
const (
	robustnessConsensusWeight   = 0.4
	robustnessDiversityWeight   = 0.3
	robustnessConsistencyWeight = 0.3
)

// AnalyzeReasoningRobustness computes the robustness report for a
// consensus result. A result with no supporting paths scores zero across
// the board.
func (a *Aggregator) AnalyzeReasoningRobustness(result *ConsensusResult) *RobustnessReport {
	report := &RobustnessReport{
		ConsensusStrength:      result.ConsensusStrength,
		SupportingPathCount:    len(result.SupportingPaths),
		AlternativeAnswerCount: len(result.AlternativeAnswers),
	}
	if len(result.SupportingPaths) == 0 {
		return report
	}

	report.PathDiversity = pathDiversity(result)
	report.ConfidenceConsistency = confidenceConsistency(result)
	report.RobustnessScore = clampUnit(
		robustnessConsensusWeight*report.ConsensusStrength +
			robustnessDiversityWeight*report.PathDiversity +
			robustnessConsistencyWeight*report.ConfidenceConsistency)

	return report
}

// pathDiversity is the fraction of distinct intermediate concepts across
// the supporting paths relative to the total number of steps.
func pathDiversity(result *ConsensusResult) float64 {
	distinct := make(map[string]struct{})
	totalSteps := 0
	for _, p := range result.SupportingPaths {
		totalSteps += len(p.Steps)
		for _, id := range p.IntermediateIDs() {
			distinct[id] = struct{}{}
		}
	}
	if totalSteps == 0 {
		return 0
	}
	d := float64(len(distinct)) / float64(totalSteps)
	return clampUnit(d)
}

// confidenceConsistency is 1 minus the normalized standard deviation of
// the per-path confidences. Confidences live in [0, 1], so the maximum
// possible deviation is 0.5 and normalization divides by it.
func confidenceConsistency(result *ConsensusResult) float64 {
	n := len(result.SupportingPaths)
	if n <= 1 {
		return 1.0
	}

	mean := 0.0
	for _, p := range result.SupportingPaths {
		mean += p.Confidence
	}
	mean /= float64(n)

	variance := 0.0
	for _, p := range result.SupportingPaths {
		d := p.Confidence - mean
		variance += d * d
	}
	variance /= float64(n)

	normalized := math.Sqrt(variance) / 0.5
	return clampUnit(1 - normalized)
}
