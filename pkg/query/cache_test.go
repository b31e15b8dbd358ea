package query

import (
	"sync"
	"testing"
	"time"

	"github.com/hverdal/muninn/pkg/consensus"
)

func result(answer string) *consensus.ConsensusResult {
	return &consensus.ConsensusResult{PrimaryAnswer: answer, Confidence: 0.5}
}

// =============================================================================
// Key Tests
// =============================================================================

func TestResultCache_Key(t *testing.T) {
	c := NewResultCache(10, time.Minute)

	t.Run("same inputs same key", func(t *testing.T) {
		if c.Key("what is gravity", 5, 10) != c.Key("what is gravity", 5, 10) {
			t.Error("identical inputs must produce identical keys")
		}
	})

	t.Run("different query different key", func(t *testing.T) {
		if c.Key("what is gravity", 5, 10) == c.Key("what is light", 5, 10) {
			t.Error("different queries must produce different keys")
		}
	})

	t.Run("different parameters different key", func(t *testing.T) {
		if c.Key("what is gravity", 5, 10) == c.Key("what is gravity", 3, 10) {
			t.Error("different numPaths must produce different keys")
		}
	})
}

// =============================================================================
// Get/Put Tests
// =============================================================================

func TestResultCache_GetPut(t *testing.T) {
	t.Run("hit returns stored value unchanged", func(t *testing.T) {
		c := NewResultCache(10, time.Minute)
		key := c.Key("q", 5, 10)
		stored := result("alpha")
		c.Put(key, stored)

		got, ok := c.Get(key)
		if !ok {
			t.Fatal("expected cache hit")
		}
		if got != stored {
			t.Error("hit must return the stored result pointer unchanged")
		}
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		c := NewResultCache(10, time.Minute)
		if _, ok := c.Get(12345); ok {
			t.Error("expected cache miss")
		}
	})

	t.Run("put same key updates", func(t *testing.T) {
		c := NewResultCache(10, time.Minute)
		key := c.Key("q", 5, 10)
		c.Put(key, result("old"))
		c.Put(key, result("new"))

		got, ok := c.Get(key)
		if !ok || got.PrimaryAnswer != "new" {
			t.Errorf("got %v, want updated value", got)
		}
		if c.Len() != 1 {
			t.Errorf("Len = %d, want 1", c.Len())
		}
	})
}

// =============================================================================
// Eviction Tests
// =============================================================================

func TestResultCache_LRUEviction(t *testing.T) {
	c := NewResultCache(2, 0)

	c.Put(1, result("one"))
	c.Put(2, result("two"))

	// Touch key 1 so key 2 becomes the eviction victim.
	c.Get(1)
	c.Put(3, result("three"))

	if _, ok := c.Get(2); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if _, ok := c.Get(3); !ok {
		t.Error("new entry should be present")
	}
}

func TestResultCache_TTLExpiry(t *testing.T) {
	c := NewResultCache(10, time.Millisecond)
	c.Put(1, result("stale"))

	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(1); ok {
		t.Error("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after expiry removal", c.Len())
	}
}

func TestResultCache_PruneExpired(t *testing.T) {
	c := NewResultCache(10, time.Millisecond)
	c.Put(1, result("one"))
	c.Put(2, result("two"))

	time.Sleep(5 * time.Millisecond)

	if pruned := c.PruneExpired(); pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestResultCache_ConcurrentGetPut(t *testing.T) {
	c := NewResultCache(8, time.Millisecond)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := uint64(i % 16)
				c.Put(key, result("answer"))
				if got, ok := c.Get(key); ok && got == nil {
					t.Error("hit must never return a nil result")
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() > 8 {
		t.Errorf("Len = %d, want at most 8", c.Len())
	}
}

// =============================================================================
// Stats Tests
// =============================================================================

func TestResultCache_Stats(t *testing.T) {
	c := NewResultCache(10, time.Minute)
	c.Put(1, result("one"))

	c.Get(1) // hit
	c.Get(2) // miss

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.HitRate != 50.0 {
		t.Errorf("HitRate = %.1f, want 50.0", stats.HitRate)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
}

func TestResultCache_SetEnabled(t *testing.T) {
	c := NewResultCache(10, time.Minute)
	c.Put(1, result("one"))

	c.SetEnabled(false)
	if _, ok := c.Get(1); ok {
		t.Error("disabled cache must always miss")
	}

	c.Put(2, result("two"))
	if c.Len() != 0 {
		t.Error("disabled cache must not store")
	}
}
