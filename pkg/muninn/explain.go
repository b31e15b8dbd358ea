package muninn

import (
	"context"

	"github.com/hverdal/muninn/pkg/consensus"
	"github.com/hverdal/muninn/pkg/pathfind"
)

// StepExplanation is one reasoning hop with concept IDs resolved to
// content.
type StepExplanation struct {
	From       string  `json:"from"`
	Relation   string  `json:"relation"`
	To         string  `json:"to"`
	Confidence float64 `json:"confidence"`
}

// PathExplanation describes one supporting reasoning path.
type PathExplanation struct {
	Answer     string            `json:"answer"`
	Confidence float64           `json:"confidence"`
	Strategy   pathfind.Strategy `json:"strategy"`
	Steps      []StepExplanation `json:"steps,omitempty"`
}

// Explanation is the structured answer to an explain request: the
// consensus result, its robustness report, and, when detailed, the full
// per-path step sequences.
type Explanation struct {
	Question   string                      `json:"question"`
	Result     *consensus.ConsensusResult  `json:"result"`
	Robustness *consensus.RobustnessReport `json:"robustness"`
	Paths      []PathExplanation           `json:"paths,omitempty"`
}

// Explain answers the question and reports how the answer was reached.
// With detailed set, every supporting path is expanded into readable
// steps with concept contents in place of IDs.
func (e *Engine) Explain(ctx context.Context, question string, detailed bool) (*Explanation, error) {
	result, err := e.Ask(ctx, question)
	if err != nil {
		return nil, err
	}

	out := &Explanation{
		Question:   question,
		Result:     result,
		Robustness: e.agg.AnalyzeReasoningRobustness(result),
	}
	if !detailed {
		return out, nil
	}

	for _, p := range result.SupportingPaths {
		pe := PathExplanation{
			Answer:     p.Answer,
			Confidence: p.Confidence,
			Strategy:   p.Strategy,
			Steps:      make([]StepExplanation, 0, len(p.Steps)),
		}
		for _, s := range p.Steps {
			pe.Steps = append(pe.Steps, StepExplanation{
				From:       e.conceptLabel(s.SourceConcept),
				Relation:   s.Relation,
				To:         e.conceptLabel(s.TargetConcept),
				Confidence: s.Confidence,
			})
		}
		out.Paths = append(out.Paths, pe)
	}
	return out, nil
}

// conceptLabel resolves a concept ID to its content, falling back to the
// ID when the concept has since disappeared.
func (e *Engine) conceptLabel(id string) string {
	if c, err := e.store.GetConcept(id); err == nil {
		return c.Content
	}
	return id
}
