package graph

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConcept(id, content string) *Concept {
	return &Concept{
		ID:         id,
		Content:    content,
		Strength:   1.0,
		Confidence: 0.5,
		Created:    time.Now(),
	}
}

// =============================================================================
// Concept Tests
// =============================================================================

func TestPutConcept(t *testing.T) {
	t.Run("stores and retrieves", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.PutConcept(newConcept("c1", "gravity bends light")))

		got, err := s.GetConcept("c1")
		require.NoError(t, err)
		assert.Equal(t, "gravity bends light", got.Content)
	})

	t.Run("clamps strength and confidence", func(t *testing.T) {
		s := NewStore()
		c := newConcept("c1", "overcharged")
		c.Strength = 42.0
		c.Confidence = 3.0
		require.NoError(t, s.PutConcept(c))

		got, err := s.GetConcept("c1")
		require.NoError(t, err)
		assert.Equal(t, MaxStrength, got.Strength)
		assert.Equal(t, 1.0, got.Confidence)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		s := NewStore()
		assert.ErrorIs(t, s.PutConcept(nil), ErrInvalidData)
		assert.ErrorIs(t, s.PutConcept(newConcept("", "no id")), ErrInvalidID)
		assert.ErrorIs(t, s.PutConcept(newConcept("c1", "   ")), ErrEmptyContent)
	})

	t.Run("returned copy is isolated", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.PutConcept(newConcept("c1", "original")))

		got, _ := s.GetConcept("c1")
		got.Strength = 99

		again, _ := s.GetConcept("c1")
		assert.Equal(t, 1.0, again.Strength)
	})

	t.Run("closed store rejects writes", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Close())
		assert.ErrorIs(t, s.PutConcept(newConcept("c1", "late")), ErrStoreClosed)
	})
}

func TestFindByContent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.PutConcept(newConcept("c1", "Water boils at 100 degrees")))

	t.Run("exact content", func(t *testing.T) {
		got, err := s.FindByContent("Water boils at 100 degrees")
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ID)
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		got, err := s.FindByContent("  water BOILS at 100   degrees ")
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ID)
	})

	t.Run("unknown content", func(t *testing.T) {
		_, err := s.FindByContent("lava freezes")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFindOrPutConcept(t *testing.T) {
	t.Run("creates when content is new", func(t *testing.T) {
		s := NewStore()
		got, created, err := s.FindOrPutConcept(newConcept("c1", "gravity bends light"))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "c1", got.ID)
		assert.Equal(t, 1, s.ConceptCount())
	})

	t.Run("identical normalized content returns the existing concept", func(t *testing.T) {
		s := NewStore()
		_, _, err := s.FindOrPutConcept(newConcept("c1", "Water boils at 100 degrees"))
		require.NoError(t, err)

		got, created, err := s.FindOrPutConcept(newConcept("c2", "  water BOILS at 100 degrees "))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "c1", got.ID)
		assert.Equal(t, 1, s.ConceptCount())
	})

	t.Run("concurrent identical content stores exactly once", func(t *testing.T) {
		s := NewStore()

		const workers = 8
		ids := make([]string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got, _, err := s.FindOrPutConcept(newConcept(fmt.Sprintf("w%d", i), "the moon orbits the earth"))
				assert.NoError(t, err)
				ids[i] = got.ID
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, s.ConceptCount())
		for _, id := range ids[1:] {
			assert.Equal(t, ids[0], id, "every caller must resolve to the same concept")
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		s := NewStore()
		_, _, err := s.FindOrPutConcept(nil)
		assert.ErrorIs(t, err, ErrInvalidData)
		_, _, err = s.FindOrPutConcept(newConcept("", "no id"))
		assert.ErrorIs(t, err, ErrInvalidID)
		_, _, err = s.FindOrPutConcept(newConcept("c1", "   "))
		assert.ErrorIs(t, err, ErrEmptyContent)
	})
}

func TestAccess(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.PutConcept(newConcept("c1", "accessed concept")))

	first, err := s.Access("c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.AccessCount)
	assert.InDelta(t, 1.05, first.Strength, 1e-9)

	second, err := s.Access("c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.AccessCount)
	assert.Greater(t, second.Strength, first.Strength)

	t.Run("strength bounded at max", func(t *testing.T) {
		c := newConcept("c2", "maxed out")
		c.Strength = MaxStrength
		require.NoError(t, s.PutConcept(c))

		got, err := s.Access("c2")
		require.NoError(t, err)
		assert.Equal(t, MaxStrength, got.Strength)
	})
}

// =============================================================================
// Association Tests
// =============================================================================

func TestPutAssociation(t *testing.T) {
	setup := func(t *testing.T) *Store {
		s := NewStore()
		require.NoError(t, s.PutConcept(newConcept("a", "first concept")))
		require.NoError(t, s.PutConcept(newConcept("b", "second concept")))
		return s
	}

	t.Run("stores edge and links neighbors", func(t *testing.T) {
		s := setup(t)
		require.NoError(t, s.PutAssociation(&Association{
			SourceID: "a", TargetID: "b", Type: AssocSemantic, Weight: 0.6, Confidence: 0.7,
		}))

		assert.Equal(t, []string{"b"}, s.Neighbors("a"))
		assert.Equal(t, []string{"a"}, s.Neighbors("b"))

		got, err := s.GetAssociation("a", "b", AssocSemantic)
		require.NoError(t, err)
		assert.Equal(t, 0.6, got.Weight)
		assert.False(t, got.Created.IsZero())
	})

	t.Run("requires both endpoints", func(t *testing.T) {
		s := setup(t)
		err := s.PutAssociation(&Association{
			SourceID: "a", TargetID: "ghost", Type: AssocSemantic, Weight: 0.5,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		s := setup(t)
		err := s.PutAssociation(&Association{
			SourceID: "a", TargetID: "b", Type: AssocType("mystery"), Weight: 0.5,
		})
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("duplicate insert merges instead of overwriting", func(t *testing.T) {
		s := setup(t)
		require.NoError(t, s.PutAssociation(&Association{
			SourceID: "a", TargetID: "b", Type: AssocSemantic, Weight: 0.5, Confidence: 0.4,
		}))
		require.NoError(t, s.PutAssociation(&Association{
			SourceID: "a", TargetID: "b", Type: AssocSemantic, Weight: 0.8, Confidence: 0.9,
		}))

		assert.Equal(t, 1, s.AssociationCount())

		got, err := s.GetAssociation("a", "b", AssocSemantic)
		require.NoError(t, err)
		// Reinforced: original weight plus a fraction of the new weight.
		assert.InDelta(t, 0.58, got.Weight, 1e-9)
		assert.Equal(t, 0.9, got.Confidence)
	})

	t.Run("different types are distinct edges", func(t *testing.T) {
		s := setup(t)
		require.NoError(t, s.PutAssociation(&Association{
			SourceID: "a", TargetID: "b", Type: AssocSemantic, Weight: 0.5,
		}))
		require.NoError(t, s.PutAssociation(&Association{
			SourceID: "a", TargetID: "b", Type: AssocCausal, Weight: 0.5,
		}))
		assert.Equal(t, 2, s.AssociationCount())
	})
}

func TestRemoveAssociation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.PutConcept(newConcept("a", "first concept")))
	require.NoError(t, s.PutConcept(newConcept("b", "second concept")))
	require.NoError(t, s.PutAssociation(&Association{
		SourceID: "a", TargetID: "b", Type: AssocSemantic, Weight: 0.5,
	}))
	require.NoError(t, s.PutAssociation(&Association{
		SourceID: "a", TargetID: "b", Type: AssocCausal, Weight: 0.5,
	}))

	require.NoError(t, s.RemoveAssociation("a", "b", AssocSemantic))
	// Another edge remains, so the neighbor link survives.
	assert.Equal(t, []string{"b"}, s.Neighbors("a"))

	require.NoError(t, s.RemoveAssociation("a", "b", AssocCausal))
	assert.Empty(t, s.Neighbors("a"))
	assert.Empty(t, s.Neighbors("b"))

	assert.ErrorIs(t, s.RemoveAssociation("a", "b", AssocCausal), ErrNotFound)
}

func TestBestAssociationBetween(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.PutConcept(newConcept("a", "first concept")))
	require.NoError(t, s.PutConcept(newConcept("b", "second concept")))
	require.NoError(t, s.PutAssociation(&Association{
		SourceID: "a", TargetID: "b", Type: AssocSemantic, Weight: 0.5, Confidence: 0.4,
	}))
	require.NoError(t, s.PutAssociation(&Association{
		SourceID: "b", TargetID: "a", Type: AssocCausal, Weight: 0.5, Confidence: 0.8,
	}))

	best := s.BestAssociationBetween("a", "b")
	require.NotNil(t, best)
	assert.Equal(t, AssocCausal, best.Type)

	assert.Nil(t, s.BestAssociationBetween("a", "ghost"))
}

// =============================================================================
// Index Tests
// =============================================================================

func TestConceptsContaining(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.PutConcept(newConcept("c1", "Photosynthesis converts sunlight into energy")))
	require.NoError(t, s.PutConcept(newConcept("c2", "Solar panels convert sunlight into electricity")))

	t.Run("shared word matches both", func(t *testing.T) {
		assert.Equal(t, []string{"c1", "c2"}, s.ConceptsContaining("sunlight"))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, []string{"c1"}, s.ConceptsContaining("PHOTOSYNTHESIS"))
	})

	t.Run("stop words match nothing", func(t *testing.T) {
		assert.Empty(t, s.ConceptsContaining("the"))
	})

	t.Run("replacing content reindexes", func(t *testing.T) {
		require.NoError(t, s.PutConcept(newConcept("c2", "Wind turbines harvest moving air")))
		assert.Equal(t, []string{"c1"}, s.ConceptsContaining("sunlight"))
		assert.Equal(t, []string{"c2"}, s.ConceptsContaining("turbines"))
	})
}

// =============================================================================
// Write Hook Tests
// =============================================================================

func TestWriteHooks(t *testing.T) {
	s := NewStore()

	var concepts []string
	var assocs []AssocKey
	var removed []AssocKey
	s.SetWriteHooks(WriteHooks{
		OnConcept: func(c *Concept) { concepts = append(concepts, c.ID) },
		OnAssociation: func(a *Association) {
			assocs = append(assocs, a.Key())
		},
		OnAssociationRemoved: func(src, dst string, typ AssocType) {
			removed = append(removed, AssocKey{Source: src, Target: dst, Type: typ})
		},
	})

	require.NoError(t, s.PutConcept(newConcept("a", "first concept")))
	require.NoError(t, s.PutConcept(newConcept("b", "second concept")))
	_, err := s.Access("a")
	require.NoError(t, err)

	require.NoError(t, s.PutAssociation(&Association{
		SourceID: "a", TargetID: "b", Type: AssocSemantic, Weight: 0.5, Confidence: 0.5,
	}))
	// Merge also notifies so storage sees the reinforced weight.
	require.NoError(t, s.PutAssociation(&Association{
		SourceID: "a", TargetID: "b", Type: AssocSemantic, Weight: 0.5, Confidence: 0.5,
	}))
	require.NoError(t, s.RemoveAssociation("a", "b", AssocSemantic))

	assert.Equal(t, []string{"a", "b", "a"}, concepts)
	assert.Len(t, assocs, 2)
	assert.Equal(t, []AssocKey{{Source: "a", Target: "b", Type: AssocSemantic}}, removed)
}

func TestWriteHooksUnderConcurrentWrites(t *testing.T) {
	s := NewStore()

	// The hook reads its copy while other goroutines keep mutating the
	// stored record; every observed snapshot must be internally valid.
	var mu sync.Mutex
	var snapshots []float64
	s.SetWriteHooks(WriteHooks{
		OnConcept: func(c *Concept) {
			mu.Lock()
			snapshots = append(snapshots, c.Strength)
			mu.Unlock()
		},
	})

	require.NoError(t, s.PutConcept(newConcept("c1", "contested concept")))

	const workers = 4
	const iterations = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				_, err := s.UpdateConcept("c1", func(c *Concept) { c.Strength += 0.01 })
				assert.NoError(t, err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := s.Access("c1")
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	assert.Len(t, snapshots, 1+workers*iterations+iterations)
	for _, strength := range snapshots {
		assert.GreaterOrEqual(t, strength, MinStrength)
		assert.LessOrEqual(t, strength, MaxStrength)
	}
}

func TestClosedStoreRejectsMutations(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.PutConcept(newConcept("c1", "first concept")))
	require.NoError(t, s.PutConcept(newConcept("c2", "second concept")))
	require.NoError(t, s.PutAssociation(&Association{
		SourceID: "c1", TargetID: "c2", Type: AssocSemantic, Weight: 0.5,
	}))
	require.NoError(t, s.Close())

	_, err := s.Access("c1")
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = s.UpdateConcept("c1", func(c *Concept) { c.Strength = 5 })
	assert.ErrorIs(t, err, ErrStoreClosed)

	assert.ErrorIs(t, s.RemoveAssociation("c1", "c2", AssocSemantic), ErrStoreClosed)

	_, _, err = s.FindOrPutConcept(newConcept("c3", "late concept"))
	assert.ErrorIs(t, err, ErrStoreClosed)
}

// =============================================================================
// Tokenizer Tests
// =============================================================================

func TestTokenize(t *testing.T) {
	t.Run("filters stop words and short tokens", func(t *testing.T) {
		toks := Tokenize("The cat is on a mat!")
		assert.Equal(t, []string{"cat", "mat"}, toks)
	})

	t.Run("lowercases", func(t *testing.T) {
		toks := Tokenize("Quantum PHYSICS")
		assert.Equal(t, []string{"quantum", "physics"}, toks)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Tokenize("   "))
	})
}

func TestNormalizeContent(t *testing.T) {
	assert.Equal(t, "water boils fast", NormalizeContent("  Water   BOILS fast "))
	assert.Equal(t, "", NormalizeContent("   "))
}
