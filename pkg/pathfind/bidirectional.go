package pathfind

import "context"

// bidirectional expands two frontiers simultaneously, one hop per side in
// alternation: forward from the start concepts and backward from the
// target concepts. When the frontiers intersect, the full path is
// reconstructed by joining the two half-paths at the meeting concept.
// Meeting points found in the same round all yield candidate paths, which
// keeps the result set diverse when several short connections exist.
func (f *Finder) bidirectional(ctx context.Context, startIDs, targetIDs []string, numPaths int) []*ReasoningPath {
	fromStart := make(map[string][]string) // concept -> chain from a start
	fromTarget := make(map[string][]string)

	var startFrontier, targetFrontier []string
	for _, id := range startIDs {
		if _, err := f.store.GetConcept(id); err != nil {
			continue
		}
		fromStart[id] = []string{id}
		startFrontier = append(startFrontier, id)
	}
	for _, id := range targetIDs {
		if _, err := f.store.GetConcept(id); err != nil {
			continue
		}
		fromTarget[id] = []string{id}
		targetFrontier = append(targetFrontier, id)
	}

	var found []*ReasoningPath
	seen := make(map[string]struct{})
	want := numPaths * 4

	// Each side may take up to half the depth budget, rounded up.
	budget := (f.opts.MaxDepth + 1) / 2

	expandStart := true
	for round := 0; round < budget*2 && len(found) < want; round++ {
		if cancelled(ctx) {
			break
		}

		var frontier *[]string
		var own, other map[string][]string
		if expandStart {
			frontier, own, other = &startFrontier, fromStart, fromTarget
		} else {
			frontier, own, other = &targetFrontier, fromTarget, fromStart
		}
		expandStart = !expandStart

		if len(*frontier) == 0 {
			continue
		}

		var next []string
		for _, current := range *frontier {
			chain := own[current]
			for _, nb := range f.store.Neighbors(current) {
				if containsID(chain, nb) {
					continue
				}
				if _, known := own[nb]; known {
					continue
				}

				extended := append(append([]string(nil), chain...), nb)
				own[nb] = extended
				next = append(next, nb)

				// Frontier intersection: join the two half-paths.
				if otherChain, met := other[nb]; met {
					full := joinChains(extended, otherChain, expandStart)
					if full == nil {
						continue
					}
					if path := f.buildPath("", full, f.opts.ConfidenceDecay); path != nil && path.Confidence >= f.opts.MinConfidence {
						sig := chainSignature(full)
						if _, dup := seen[sig]; !dup {
							seen[sig] = struct{}{}
							found = append(found, path)
						}
					}
				}
			}
		}

		*frontier = next
	}

	return found
}

// joinChains merges a chain ending at the meeting concept with the other
// side's chain, which also ends at the meeting concept, producing one
// start→target path. expandedTarget is true when the chain just extended
// belongs to the target side. Returns nil if the joined path would revisit
// a concept.
func joinChains(extended, otherChain []string, expandedTarget bool) []string {
	// extended: side just grown, ends at meeting point.
	// otherChain: opposite side, also ends at meeting point.
	startSide, targetSide := extended, otherChain
	if expandedTarget {
		startSide, targetSide = otherChain, extended
	}

	full := append([]string(nil), startSide...)
	// Walk the target-side chain backwards, skipping the shared meeting
	// concept.
	for i := len(targetSide) - 2; i >= 0; i-- {
		full = append(full, targetSide[i])
	}

	// Reject cycles introduced by the join.
	seen := make(map[string]struct{}, len(full))
	for _, id := range full {
		if _, dup := seen[id]; dup {
			return nil
		}
		seen[id] = struct{}{}
	}
	return full
}
