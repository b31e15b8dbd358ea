package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hverdal/muninn/pkg/graph"
)

// suggestionTemplates render a matched concept label as a question. They
// rotate per suggestion so a single strong concept still yields varied
// phrasings.
var suggestionTemplates = []string{
	"What is %s?",
	"How does %s work?",
	"Why is %s important?",
}

type suggestionCandidate struct {
	label    string
	strength float64
}

// GetQuerySuggestions proposes complete questions for a partial query.
// Concepts whose content prefix-matches or token-overlaps the partial
// text are ranked by strength and rendered through the question
// templates. Purely presentational: no graph mutation, no access
// recording.
func (p *Processor) GetQuerySuggestions(partialQuery string, maxSuggestions int) []string {
	if maxSuggestions <= 0 {
		return nil
	}
	partial := Normalize(partialQuery)
	if partial == "" {
		return nil
	}
	partialTokens := strings.Fields(partial)

	seen := make(map[string]struct{})
	var candidates []suggestionCandidate
	for _, c := range p.store.AllConcepts() {
		label, ok := matchLabel(c.Content, partial, partialTokens)
		if !ok {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		candidates = append(candidates, suggestionCandidate{label: label, strength: c.Strength})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].strength != candidates[j].strength {
			return candidates[i].strength > candidates[j].strength
		}
		return candidates[i].label < candidates[j].label
	})

	var out []string
	for i, cand := range candidates {
		if len(out) == maxSuggestions {
			break
		}
		tmpl := suggestionTemplates[i%len(suggestionTemplates)]
		out = append(out, fmt.Sprintf(tmpl, cand.label))
	}
	return out
}

// matchLabel reports whether the concept content matches the partial
// query, returning the label to surface in the suggestion: the first
// content token extending a partial token, or the leading significant
// token on a whole-token overlap.
func matchLabel(content, partial string, partialTokens []string) (string, bool) {
	contentTokens := graph.Tokenize(content)
	if len(contentTokens) == 0 {
		return "", false
	}

	for _, ct := range contentTokens {
		for _, pt := range partialTokens {
			if strings.HasPrefix(ct, pt) {
				return ct, true
			}
		}
	}

	normalized := graph.NormalizeContent(content)
	if strings.HasPrefix(normalized, partial) {
		return contentTokens[0], true
	}
	return "", false
}
