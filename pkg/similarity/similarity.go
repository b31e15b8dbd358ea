// Package similarity provides pluggable text-similarity scoring.
//
// The reasoning core uses similarity in two places: refining association
// candidate scores during extraction, and clustering path answers during
// consensus aggregation. An external embedding service can be plugged in
// through the Scorer interface; when none is configured the core falls
// back to Lexical, a deterministic token-overlap measure, so the engine
// is fully functional without any external collaborator.
package similarity

import "github.com/hverdal/muninn/pkg/graph"

// Scorer computes a similarity score for two texts in [0, 1].
//
// Implementations must be safe for concurrent use. A score of 1.0 means
// the texts are interchangeable, 0.0 means no detectable relation.
type Scorer interface {
	Similarity(a, b string) float64
}

// Lexical scores similarity as the Jaccard coefficient over the distinct
// significant tokens of each text:
//
//	score = |tokens(a) ∩ tokens(b)| / |tokens(a) ∪ tokens(b)|
//
// It shares the graph tokenizer, so stop words and punctuation never
// influence the score. Deterministic and allocation-light, which matters
// because answer clustering calls it for every path pair.
type Lexical struct{}

// Similarity implements Scorer.
func (Lexical) Similarity(a, b string) float64 {
	sa := graph.TokenSet(a)
	sb := graph.TokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range sa {
		if _, ok := sb[tok]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union)
}

// Blend combines two scorers with the given weight on primary.
// Used to mix an embedding-backed scorer with the lexical fallback.
type Blend struct {
	Primary   Scorer
	Secondary Scorer
	// PrimaryWeight in [0, 1]. The secondary scorer receives the
	// complement.
	PrimaryWeight float64
}

// Similarity implements Scorer.
func (b Blend) Similarity(x, y string) float64 {
	w := b.PrimaryWeight
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}
	return w*b.Primary.Similarity(x, y) + (1-w)*b.Secondary.Similarity(x, y)
}
