package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hverdal/muninn/pkg/graph"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStoreWithOptions(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerStore_Concepts(t *testing.T) {
	s := openTestStore(t)

	c := &graph.Concept{
		ID:       "c1",
		Content:  "gravity bends light",
		Strength: 2.5, Confidence: 0.6,
		Created: time.Now().UTC(),
	}
	require.NoError(t, s.PersistConcept(c))

	t.Run("load round-trips", func(t *testing.T) {
		var loaded []*graph.Concept
		require.NoError(t, s.LoadAllConcepts(func(c *graph.Concept) error {
			loaded = append(loaded, c)
			return nil
		}))
		require.Len(t, loaded, 1)
		assert.Equal(t, "c1", loaded[0].ID)
		assert.Equal(t, "gravity bends light", loaded[0].Content)
		assert.Equal(t, 2.5, loaded[0].Strength)
	})

	t.Run("persist overwrites same id", func(t *testing.T) {
		c.Strength = 3.0
		require.NoError(t, s.PersistConcept(c))

		count := 0
		require.NoError(t, s.LoadAllConcepts(func(c *graph.Concept) error {
			count++
			assert.Equal(t, 3.0, c.Strength)
			return nil
		}))
		assert.Equal(t, 1, count)
	})

	t.Run("rejects missing id", func(t *testing.T) {
		assert.ErrorIs(t, s.PersistConcept(&graph.Concept{Content: "no id"}), graph.ErrInvalidID)
	})
}

func TestBadgerStore_Associations(t *testing.T) {
	s := openTestStore(t)

	a := &graph.Association{
		SourceID: "a", TargetID: "b", Type: graph.AssocCausal,
		Weight: 0.7, Confidence: 0.8, Created: time.Now().UTC(),
	}
	require.NoError(t, s.PersistAssociation(a))

	t.Run("load round-trips", func(t *testing.T) {
		var loaded []*graph.Association
		require.NoError(t, s.LoadAllAssociations(func(a *graph.Association) error {
			loaded = append(loaded, a)
			return nil
		}))
		require.Len(t, loaded, 1)
		assert.Equal(t, graph.AssocCausal, loaded[0].Type)
		assert.Equal(t, 0.7, loaded[0].Weight)
	})

	t.Run("identity is the full triple", func(t *testing.T) {
		other := &graph.Association{
			SourceID: "a", TargetID: "b", Type: graph.AssocSemantic, Weight: 0.3,
		}
		require.NoError(t, s.PersistAssociation(other))

		stats, err := s.Stats()
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalAssociations)
	})

	t.Run("remove deletes one edge", func(t *testing.T) {
		require.NoError(t, s.RemoveAssociation("a", "b", graph.AssocSemantic))

		stats, err := s.Stats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalAssociations)
	})

	t.Run("removing absent edge is a no-op", func(t *testing.T) {
		assert.NoError(t, s.RemoveAssociation("x", "y", graph.AssocSemantic))
	})
}

func TestBadgerStore_Stats(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalConcepts)
	assert.Equal(t, 0, stats.TotalAssociations)

	require.NoError(t, s.PersistConcept(&graph.Concept{ID: "c1", Content: "one"}))
	require.NoError(t, s.PersistConcept(&graph.Concept{ID: "c2", Content: "two"}))

	stats, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalConcepts)
}

func TestBadgerStore_ClosedRejectsOperations(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	assert.Error(t, s.PersistConcept(&graph.Concept{ID: "c1", Content: "late"}))
	assert.Error(t, s.LoadAllConcepts(func(*graph.Concept) error { return nil }))
	assert.NoError(t, s.Close(), "close is idempotent")
}

func TestNullStore(t *testing.T) {
	s := NewNullStore()

	assert.NoError(t, s.PersistConcept(&graph.Concept{ID: "c1", Content: "ignored"}))
	assert.NoError(t, s.LoadAllConcepts(func(*graph.Concept) error {
		t.Fatal("null store must load nothing")
		return nil
	}))

	stats, err := s.Stats()
	assert.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.NoError(t, s.Close())
}
