package pathfind

import "context"

// breadthFirst expands level by level up to MaxDepth, recording the first
// path that reaches any target concept at each depth. The shortest-path
// bias follows from the level ordering. Each frontier entry carries its
// own traversed chain, so a path can never revisit a concept it already
// contains.
func (f *Finder) breadthFirst(ctx context.Context, startIDs []string, targets map[string]struct{}, numPaths int) []*ReasoningPath {
	type bfsState struct {
		chain []string
	}

	var frontier []bfsState
	for _, id := range startIDs {
		if _, err := f.store.GetConcept(id); err != nil {
			continue
		}
		frontier = append(frontier, bfsState{chain: []string{id}})
	}

	var found []*ReasoningPath
	seen := make(map[string]struct{})

	for depth := 0; depth < f.opts.MaxDepth && len(frontier) > 0 && len(found) < numPaths; depth++ {
		if cancelled(ctx) {
			break
		}

		var next []bfsState
		reachedThisLevel := false

		for _, state := range frontier {
			current := state.chain[len(state.chain)-1]

			for _, nb := range f.store.Neighbors(current) {
				if containsID(state.chain, nb) {
					continue
				}

				chain := append(append([]string(nil), state.chain...), nb)

				if _, isTarget := targets[nb]; isTarget {
					// Shortest-path bias: only the first arrival at each
					// depth level is recorded.
					if reachedThisLevel {
						continue
					}
					if path := f.buildPath("", chain, f.opts.ConfidenceDecay); path != nil && path.Confidence >= f.opts.MinConfidence {
						sig := chainSignature(chain)
						if _, dup := seen[sig]; !dup {
							seen[sig] = struct{}{}
							found = append(found, path)
							reachedThisLevel = true
						}
					}
					continue
				}

				next = append(next, bfsState{chain: chain})
			}
		}

		frontier = next
	}

	return found
}

func containsID(chain []string, id string) bool {
	for _, c := range chain {
		if c == id {
			return true
		}
	}
	return false
}

func chainSignature(chain []string) string {
	sig := ""
	for i, c := range chain {
		if i > 0 {
			sig += "\x00"
		}
		sig += c
	}
	return sig
}
