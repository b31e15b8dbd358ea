package pathfind

import (
	"container/heap"
	"context"
	"strings"
)

// bestFirst runs a priority search ordered by accumulated confidence times
// the lexical proximity heuristic. Confidence is discounted per hop by the
// configured decay; expansion stops once accumulated confidence drops
// below MinConfidence or depth exceeds MaxDepth. Ties break on higher edge
// weight, then lexicographically smaller target ID, so the search is
// deterministic.
func (f *Finder) bestFirst(ctx context.Context, startIDs []string, targets map[string]struct{}, numPaths int) []*ReasoningPath {
	pq := make(searchQueue, 0)
	heap.Init(&pq)

	for _, id := range startIDs {
		if _, err := f.store.GetConcept(id); err != nil {
			continue
		}
		heap.Push(&pq, &searchState{
			chain:    []string{id},
			acc:      1.0,
			priority: f.proximity(id, targets),
		})
	}

	var found []*ReasoningPath
	seen := make(map[string]struct{})
	// Collect extra candidates so the diversity filter has room to choose.
	want := numPaths * 4
	expansions := 0

	for pq.Len() > 0 && len(found) < want {
		if cancelled(ctx) {
			break
		}
		expansions++
		if expansions > maxExpansions {
			break
		}

		state := heap.Pop(&pq).(*searchState)
		current := state.chain[len(state.chain)-1]

		if _, isTarget := targets[current]; isTarget && len(state.chain) > 1 {
			if path := f.buildPath("", state.chain, f.opts.ConfidenceDecay); path != nil {
				sig := strings.Join(state.chain, "\x00")
				if _, dup := seen[sig]; !dup {
					seen[sig] = struct{}{}
					found = append(found, path)
				}
			}
			// A target can still be an intermediate hop toward a deeper
			// target, so expansion continues below.
		}

		if len(state.chain)-1 >= f.opts.MaxDepth {
			continue
		}

		for _, next := range f.store.Neighbors(current) {
			if state.visited(next) {
				continue
			}
			relationOK, edgeWeight, edgeConf := f.stepInto(current, next)
			if !relationOK {
				continue
			}

			confs := append(append([]float64(nil), state.confs...), edgeConf)
			acc := pathConfidence(confs, f.opts.ConfidenceDecay)
			if acc < f.opts.MinConfidence {
				continue
			}

			chain := append(append([]string(nil), state.chain...), next)
			heap.Push(&pq, &searchState{
				chain:      chain,
				confs:      confs,
				acc:        acc,
				priority:   acc * f.proximity(next, targets),
				edgeWeight: edgeWeight,
			})
		}
	}

	return found
}

// maxExpansions bounds best-first work on dense graphs.
const maxExpansions = 10000

func (f *Finder) stepInto(from, to string) (ok bool, weight, confidence float64) {
	_, w, c, ok := f.edgeBetween(from, to)
	return ok, w, c
}

// searchState is one frontier entry of the best-first search.
type searchState struct {
	chain      []string
	confs      []float64
	acc        float64
	priority   float64
	edgeWeight float64
	index      int
}

func (s *searchState) visited(id string) bool {
	for _, c := range s.chain {
		if c == id {
			return true
		}
	}
	return false
}

func (s *searchState) tail() string {
	return s.chain[len(s.chain)-1]
}

// searchQueue is a max-heap over search states. Ordering: higher priority
// first, then higher entering edge weight, then lexicographically smaller
// tail concept ID.
type searchQueue []*searchState

func (pq searchQueue) Len() int { return len(pq) }

func (pq searchQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority > pq[j].priority
	}
	if pq[i].edgeWeight != pq[j].edgeWeight {
		return pq[i].edgeWeight > pq[j].edgeWeight
	}
	return pq[i].tail() < pq[j].tail()
}

func (pq searchQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *searchQueue) Push(x any) {
	n := len(*pq)
	item := x.(*searchState)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *searchQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}
