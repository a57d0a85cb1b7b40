package hebbian

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/models"
	"github.com/tonitangpotato/engramai/internal/store"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.RemoveAll(dir)
	})
	return db
}

// seedMemories inserts stub rows satisfying hebbian_links' FK constraint on
// memories(id), independent of the activation/strength values under test.
func seedMemories(t *testing.T, db *store.DB, ids ...string) {
	t.Helper()
	memories := store.NewMemoryStore(db)
	for _, id := range ids {
		m := &models.Memory{
			ID:          id,
			Content:     id,
			MemoryType:  models.MemoryTypeFactual,
			Layer:       models.LayerWorking,
			ContentHash: id,
		}
		if err := memories.Insert(m); err != nil {
			t.Fatalf("seed memory %s: %v", id, err)
		}
	}
}

func TestRecordCoactivationFormsLinkAtThreshold(t *testing.T) {
	db := setupTestDB(t)
	seedMemories(t, db, "a", "b")
	links := store.NewHebbianLinkStore(db)
	cfg := config.Default().Hebbian
	cfg.Threshold = 3
	eng := New(links, cfg)

	for i := 0; i < 2; i++ {
		formed, err := eng.RecordCoactivation([]string{"a", "b"})
		if err != nil {
			t.Fatalf("record coactivation: %v", err)
		}
		if len(formed) != 0 {
			t.Fatalf("expected no link formed before threshold, got %v", formed)
		}
	}

	formed, err := eng.RecordCoactivation([]string{"a", "b"})
	if err != nil {
		t.Fatalf("record coactivation: %v", err)
	}
	if len(formed) != 1 {
		t.Fatalf("expected link to form at threshold, got %v", formed)
	}

	neighbors, err := eng.Neighbors("a")
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0] != "b" {
		t.Fatalf("expected b as formed neighbor of a, got %v", neighbors)
	}
}

func TestRecordCoactivationRejectsSelfLinks(t *testing.T) {
	db := setupTestDB(t)
	seedMemories(t, db, "a")
	links := store.NewHebbianLinkStore(db)
	eng := New(links, config.Default().Hebbian)

	// A batch containing only a duplicate id must not attempt a self-pair.
	if _, err := eng.RecordCoactivation([]string{"a", "a"}); err != nil {
		t.Fatalf("expected dedup to prevent self-link error, got %v", err)
	}
}

func TestDecayPrunesWeakLinks(t *testing.T) {
	db := setupTestDB(t)
	seedMemories(t, db, "x", "y")
	links := store.NewHebbianLinkStore(db)
	cfg := config.Default().Hebbian
	cfg.Threshold = 1
	cfg.DecayFactor = 0.1
	cfg.PruneBelow = 0.5
	eng := New(links, cfg)

	if _, err := eng.RecordCoactivation([]string{"x", "y"}); err != nil {
		t.Fatalf("record coactivation: %v", err)
	}
	if err := eng.Decay(); err != nil {
		t.Fatalf("decay: %v", err)
	}

	neighbors, err := eng.Neighbors("x")
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(neighbors) != 0 {
		t.Fatalf("expected link pruned after heavy decay, got %v", neighbors)
	}
}

func TestDisabledEngineIsNoop(t *testing.T) {
	db := setupTestDB(t)
	seedMemories(t, db, "a", "b")
	links := store.NewHebbianLinkStore(db)
	cfg := config.Default().Hebbian
	cfg.Enabled = false
	eng := New(links, cfg)

	formed, err := eng.RecordCoactivation([]string{"a", "b"})
	if err != nil {
		t.Fatalf("record coactivation: %v", err)
	}
	if formed != nil {
		t.Fatalf("expected no-op when disabled, got %v", formed)
	}
}
