package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexical(t *testing.T) {
	lex := Lexical{}

	t.Run("identical text scores one", func(t *testing.T) {
		assert.Equal(t, 1.0, lex.Similarity("solar energy storage", "solar energy storage"))
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, lex.Similarity("Solar Energy Storage!", "solar energy storage"))
	})

	t.Run("disjoint text scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, lex.Similarity("solar energy", "parliament votes"))
	})

	t.Run("partial overlap is fractional", func(t *testing.T) {
		got := lex.Similarity("solar energy storage", "solar energy capture")
		assert.Greater(t, got, 0.0)
		assert.Less(t, got, 1.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "gravity bends light", "light bends around gravity wells"
		assert.Equal(t, lex.Similarity(a, b), lex.Similarity(b, a))
	})

	t.Run("empty input scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, lex.Similarity("", "anything"))
	})
}

func TestBlend(t *testing.T) {
	fixed := fixedScorer(0.4)
	b := Blend{Primary: fixedScorer(1.0), Secondary: fixed, PrimaryWeight: 0.75}

	got := b.Similarity("a", "b")
	assert.InDelta(t, 0.75*1.0+0.25*0.4, got, 1e-9)
}

type fixedScorer float64

func (f fixedScorer) Similarity(a, b string) float64 { return float64(f) }
