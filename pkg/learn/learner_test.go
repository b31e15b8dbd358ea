package learn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hverdal/muninn/pkg/extract"
	"github.com/hverdal/muninn/pkg/graph"
)

func newLearner(t *testing.T) (*Learner, *graph.Store) {
	t.Helper()
	s := graph.NewStore()
	e := extract.New(s, &extract.Options{CentralLinks: false})
	return New(s, e, nil, nil), s
}

func TestLearnCreatesConcept(t *testing.T) {
	l, s := newLearner(t)

	c, created, err := l.Learn("Water boils at 100 degrees Celsius", "notes", "physics")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, graph.MinStrength, c.Strength)
	assert.Equal(t, 0.5, c.Confidence)
	assert.Equal(t, "physics", c.Category)
	assert.Equal(t, 1, s.ConceptCount())
}

func TestLearnRejectsEmptyContent(t *testing.T) {
	l, s := newLearner(t)

	for _, content := range []string{"", "   ", "\t\n"} {
		_, _, err := l.Learn(content, "", "")
		assert.ErrorIs(t, err, graph.ErrEmptyContent)
	}
	assert.Equal(t, 0, s.ConceptCount(), "no partial writes on rejection")
}

func TestIdempotentReinforcement(t *testing.T) {
	l, s := newLearner(t)

	first, created, err := l.Learn("Water boils at 100 degrees Celsius", "", "")
	require.NoError(t, err)
	require.True(t, created)

	// Identical normalized content reinforces instead of duplicating.
	second, created, err := l.Learn("  water BOILS at 100 degrees celsius ", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.ConceptCount())

	// Difficult band: 1.0 * 1.15.
	assert.InDelta(t, 1.15, second.Strength, 1e-9)
	assert.Greater(t, second.Strength, first.Strength)
	assert.Equal(t, first.AccessCount+1, second.AccessCount)
}

func TestConcurrentIdenticalLearns(t *testing.T) {
	l, s := newLearner(t)

	// Identical content learned from concurrent goroutines must still
	// resolve to a single concept.
	const workers = 4
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _, err := l.Learn("The moon orbits the earth", "", "")
			assert.NoError(t, err)
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, s.ConceptCount())
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
}

func TestReinforcementBands(t *testing.T) {
	l, s := newLearner(t)

	cases := []struct {
		name     string
		strength float64
		want     float64
	}{
		{"difficult band multiplies by 1.15", 2.0, 2.30},
		{"moderate band multiplies by 1.08", 5.0, 5.40},
		{"easy band multiplies by 1.01", 8.0, 8.08},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, s.PutConcept(&graph.Concept{
				ID: tc.name, Content: tc.name, Strength: tc.strength,
			}))
			got, err := l.Reinforce(tc.name)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got.Strength, 1e-9)
		})
	}
}

func TestReinforcementBoundedAtMax(t *testing.T) {
	l, s := newLearner(t)
	require.NoError(t, s.PutConcept(&graph.Concept{
		ID: "c1", Content: "nearly maximal concept", Strength: 9.95,
	}))

	got, err := l.Reinforce("c1")
	require.NoError(t, err)
	assert.Equal(t, graph.MaxStrength, got.Strength)
}

func TestClassify(t *testing.T) {
	l, _ := newLearner(t)

	assert.Equal(t, DifficultyHard, l.Classify(1.0))
	assert.Equal(t, DifficultyHard, l.Classify(3.99))
	assert.Equal(t, DifficultyModerate, l.Classify(4.0))
	assert.Equal(t, DifficultyModerate, l.Classify(7.0))
	assert.Equal(t, DifficultyEasy, l.Classify(7.01))
	assert.Equal(t, DifficultyEasy, l.Classify(10.0))
}

func TestLearnExtractsAssociations(t *testing.T) {
	l, s := newLearner(t)

	_, _, err := l.Learn("Photosynthesis converts sunlight into chemical energy", "", "biology")
	require.NoError(t, err)
	_, _, err = l.Learn("Chlorophyll absorbs sunlight during photosynthesis", "", "biology")
	require.NoError(t, err)

	assert.Greater(t, s.AssociationCount(), 0)
}
