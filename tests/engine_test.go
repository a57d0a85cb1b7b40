package tests

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/engine"
	"github.com/tonitangpotato/engramai/internal/models"
	"github.com/tonitangpotato/engramai/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T) (*engine.Engine, *config.Config, *store.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		os.RemoveAll(dir)
	})
	cfg := config.Default()
	return engine.New(db, cfg), cfg, db
}

func ptr(f float64) *float64 { return &f }

func TestAddThenRecall(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	m, err := eng.Add("the eiffel tower is in paris", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	require.Equal(t, models.InitialWorkingStrength[models.MemoryTypeFactual], m.WorkingStrength)
	require.Equal(t, models.InitialStability[models.MemoryTypeFactual], m.Stability)

	results, err := eng.Recall("paris", models.RecallOptions{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, m.ID, results[0].ID)
}

// S1 (spec.md §8): at equal importance, the more recently added memory
// outranks the older one in recall.
func TestS1RecencyRanksOverStaleness(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	t0 := 1_700_000_000.0

	a, err := eng.Add("A", models.AddOptions{Type: models.MemoryTypeFactual, Importance: ptr(0.5)}, t0)
	require.NoError(t, err)
	b, err := eng.Add("B", models.AddOptions{Type: models.MemoryTypeFactual, Importance: ptr(0.5)}, t0+30*86400)
	require.NoError(t, err)

	results, err := eng.Recall("", models.RecallOptions{Limit: 2}, t0+30*86400)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, b.ID, results[0].ID)
	require.Equal(t, a.ID, results[1].ID)
}

// S2 (spec.md §8): a much more important older memory still outranks a
// recent, low-importance one.
func TestS2ImportancePersists(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	t0 := 1_700_000_000.0

	a, err := eng.Add("A", models.AddOptions{Type: models.MemoryTypeFactual, Importance: ptr(0.95)}, t0)
	require.NoError(t, err)
	b, err := eng.Add("B", models.AddOptions{Type: models.MemoryTypeFactual, Importance: ptr(0.2)}, t0+10*86400)
	require.NoError(t, err)

	results, err := eng.Recall("", models.RecallOptions{Limit: 2}, t0+30*86400)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, a.ID, results[0].ID)
	require.Equal(t, b.ID, results[1].ID)
}

// S3 (spec.md §8): three memories recalled together three times form
// Hebbian links at the default threshold, with coactivation_count == 3 per
// pair and strength 1.0 in both directions.
func TestS3HebbianFormationThroughRecall(t *testing.T) {
	eng, _, db := newTestEngine(t)
	now := 1_700_000_000.0

	x, err := eng.Add("widget launch plan", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)
	y, err := eng.Add("widget pricing notes", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)
	z, err := eng.Add("widget support faq", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		results, err := eng.Recall("widget", models.RecallOptions{Limit: 3}, now+float64(i))
		require.NoError(t, err)
		require.Len(t, results, 3)
	}

	links := store.NewHebbianLinkStore(db)
	pairs := [][2]string{{x.ID, y.ID}, {x.ID, z.ID}, {y.ID, z.ID}}
	for _, p := range pairs {
		link, err := links.Get(p[0], p[1])
		require.NoError(t, err)
		require.NotNil(t, link)
		require.Equal(t, 3, link.CoactivationCount)
		require.Equal(t, 1.0, link.Strength)
	}

	neighbors, err := links.Neighbors(x.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{y.ID, z.ID}, neighbors)
}

// S4 (spec.md §8): update_memory contradicts the old memory, which ranks
// below its replacement and carries an attenuated, at-most-"uncertain"
// confidence label.
func TestS4ContradictionAttenuates(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	a, err := eng.Add("db is us-east-1", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)
	b, err := eng.UpdateMemory(a.ID, "db is us-west-2", now)
	require.NoError(t, err)

	results, err := eng.Recall("database", models.RecallOptions{}, now)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var aResult, bResult *models.SearchResult
	for i := range results {
		switch results[i].ID {
		case a.ID:
			aResult = &results[i]
		case b.ID:
			bResult = &results[i]
		}
	}
	require.NotNil(t, aResult)
	require.NotNil(t, bResult)
	require.Greater(t, bResult.Activation, aResult.Activation)
	require.Contains(t, []string{"uncertain", "vague"}, aResult.ConfidenceLabel)
}

// S5 (spec.md §8): of ten memories with one pinned, forget(threshold=100)
// deletes every unpinned memory and leaves the pinned one untouched.
func TestS5PinExemptsFromForget(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	var pinnedID string
	for i := 0; i < 10; i++ {
		m, err := eng.Add(fmt.Sprintf("memory number %d", i), models.AddOptions{Type: models.MemoryTypeFactual}, now)
		require.NoError(t, err)
		if i == 0 {
			pinnedID = m.ID
			require.NoError(t, eng.Pin(m.ID))
		}
	}

	threshold := 100.0
	summary, err := eng.Forget("", &threshold, now)
	require.NoError(t, err)
	require.Equal(t, 9, summary.Deleted)

	results, err := eng.Recall("", models.RecallOptions{}, now)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, pinnedID, results[0].ID)
}

// S6 (spec.md §8): 1000 reward() calls followed by consolidate keep
// working_strength finite and within the configured anomaly cap.
func TestS6RewardThenConsolidateBoundsWorkingStrength(t *testing.T) {
	eng, cfg, _ := newTestEngine(t)
	now := 1_700_000_000.0

	m, err := eng.Add("a memory to reward repeatedly", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)

	feedback := "great!"
	for i := 0; i < 1000; i++ {
		_, err := eng.Reward(&feedback, nil)
		require.NoError(t, err)
	}

	_, err = eng.Consolidate(now, 1.0)
	require.NoError(t, err)

	results, err := eng.Recall(m.Content, models.RecallOptions{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.False(t, math.IsInf(results[0].Strength, 0))
	require.False(t, math.IsNaN(results[0].Strength))
	require.LessOrEqual(t, results[0].Strength, cfg.Anomaly.MaxWorkingStrength)
}

func TestRecallReinforcesAccessCount(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	_, err := eng.Add("remember the launch checklist", models.AddOptions{Type: models.MemoryTypeProcedural}, now)
	require.NoError(t, err)

	_, err = eng.Recall("launch checklist", models.RecallOptions{}, now+10)
	require.NoError(t, err)

	stats, err := eng.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
	require.Greater(t, stats.AvgAccessCount, 0.0)
}

func TestRewardModulatesRecentWindow(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	_, err := eng.Add("the user prefers dark mode", models.AddOptions{Type: models.MemoryTypeOpinion}, now)
	require.NoError(t, err)

	before, err := eng.Recall("dark mode", models.RecallOptions{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, before)
	strengthBefore := before[0].Strength

	score := 1.0
	n, err := eng.Reward(nil, &score)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	after, err := eng.Recall("dark mode", models.RecallOptions{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, after)
	require.Greater(t, after[0].Strength, strengthBefore)
}

func TestForgetSkipsPinnedMemory(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	m, err := eng.Add("a fact nobody will revisit", models.AddOptions{Type: models.MemoryTypeEpisodic}, now)
	require.NoError(t, err)
	require.NoError(t, eng.Pin(m.ID))

	// Threshold above any possible effective strength forces a delete decision
	// for every unpinned memory.
	threshold := 1e6
	summary, err := eng.Forget("", &threshold, now+1_000_000)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Deleted)

	stats, err := eng.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
}

func TestUpdateMemoryContradictsOldAndRejectsChaining(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	old, err := eng.Add("the meeting is on tuesday", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)

	updated, err := eng.UpdateMemory(old.ID, "the meeting is on wednesday", now+10)
	require.NoError(t, err)
	require.NotNil(t, updated.Contradicts)
	require.Equal(t, old.ID, *updated.Contradicts)

	_, err = eng.UpdateMemory(old.ID, "the meeting is on thursday", now+20)
	require.Error(t, err)
}

func TestConsolidateZeroDaysIsNoop(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	m, err := eng.Add("a durable fact", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)

	before, err := eng.Stats()
	require.NoError(t, err)

	summary, err := eng.Consolidate(now, 0)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Replayed)

	after, err := eng.Stats()
	require.NoError(t, err)
	require.Equal(t, before.Total, after.Total)

	results, err := eng.Recall(m.Content, models.RecallOptions{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

// Consolidation over many days promotes an important, frequently replayed
// memory toward the core layer.
func TestConsolidatePromotesImportantMemoryToCore(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	importance := 0.9
	_, err := eng.Add("a load-bearing architectural decision", models.AddOptions{
		Type:       models.MemoryTypeFactual,
		Importance: &importance,
	}, now)
	require.NoError(t, err)

	var summary *models.ConsolidateSummary
	for i := 0; i < 30; i++ {
		summary, err = eng.Consolidate(now+float64(i)*86400, 1)
		require.NoError(t, err)
	}
	require.NotNil(t, summary)

	stats, err := eng.Stats()
	require.NoError(t, err)
	require.Greater(t, stats.ByLayer[models.LayerCore], 0)
}

func TestDownscaleShrinksUnpinnedStrengths(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	m, err := eng.Add("transient detail", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)

	n, err := eng.Downscale(0.5)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	results, err := eng.Recall(m.Content, models.RecallOptions{MinConfidence: -1}, now)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Less(t, results[0].Strength, m.WorkingStrength)
}

func TestAddRejectsInvalidType(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	_, err := eng.Add("content", models.AddOptions{Type: models.MemoryType("bogus")}, 0)
	require.Error(t, err)
}

func TestAddRejectsEmptyContent(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	_, err := eng.Add("", models.AddOptions{}, 0)
	require.Error(t, err)
}

func TestExportWritesAllMemories(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := 1_700_000_000.0

	_, err := eng.Add("first memory", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)
	_, err = eng.Add("second memory", models.AddOptions{Type: models.MemoryTypeFactual}, now)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	n, err := eng.Export(path)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, n, len(data))
	require.Contains(t, string(data), "first memory")
	require.Contains(t, string(data), "second memory")
}
