// Package consolidation implements the periodic "sleep" operator: working
// decay, transfer into core, core decay, replay, re-layering, Hebbian
// decay, and downscaling, all in one transaction (spec.md §4.5). Grounded
// on the teacher's memory.LifecycleManager.Compact (staged,
// transaction-wrapped, summary-counts result, slog logging at each stage),
// generalized from TTL-expiry/promotion to the dual-trace cycle.
package consolidation

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/models"
	"github.com/tonitangpotato/engramai/internal/store"
)

// defaultReplaySampleSize bounds how many memories are touched by the
// replay step (spec.md §4.5 step 4 names the interleave ratio but not an
// absolute sample size; this package picks a practical cap).
const defaultReplaySampleSize = 10

// recentWindowSeconds is the "last 24h" window used to classify a memory
// as a recent-replay candidate.
const recentWindowSeconds = 86400.0

// Engine runs consolidate() and the standalone downscale() operator that
// shares its store wiring.
type Engine struct {
	db       *store.DB
	memories *store.MemoryStore
	logger   *slog.Logger

	consolidationCfg config.ConsolidationConfig
	downscaleCfg     config.DownscaleConfig
	hebbianCfg       config.HebbianConfig
}

func New(db *store.DB, memories *store.MemoryStore, logger *slog.Logger, consolidationCfg config.ConsolidationConfig, downscaleCfg config.DownscaleConfig, hebbianCfg config.HebbianConfig) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:               db,
		memories:         memories,
		logger:           logger,
		consolidationCfg: consolidationCfg,
		downscaleCfg:     downscaleCfg,
		hebbianCfg:       hebbianCfg,
	}
}

type memState struct {
	id         string
	working    float64
	core       float64
	layer      models.Layer
	pinned     bool
	importance float64
	createdAt  float64
}

// Consolidate runs the full sleep cycle for the given elapsed days. days==0
// is a valid call that leaves every strength unchanged (spec.md §8
// invariant 4): replay, Hebbian decay and downscale are skipped, though
// layers are still re-derived and written. Only a negative days is an
// InvalidArgument.
func (e *Engine) Consolidate(now, days float64) (*models.ConsolidateSummary, error) {
	if days < 0 {
		return nil, fmt.Errorf("consolidate: days must be >= 0, got %v", days)
	}

	all, err := e.memories.All()
	if err != nil {
		return nil, fmt.Errorf("consolidate: load memories: %w", err)
	}

	states := make([]*memState, len(all))
	for i, m := range all {
		states[i] = &memState{
			id:         m.ID,
			working:    m.WorkingStrength,
			core:       m.CoreStrength,
			layer:      m.Layer,
			pinned:     m.Pinned,
			importance: m.Importance,
			createdAt:  m.CreatedAt,
		}
	}

	cfg := e.consolidationCfg

	// Step 1: working decay.
	for _, s := range states {
		s.working *= math.Exp(-cfg.WorkingDecayRate * days)
	}

	// Step 2: transfer.
	for _, s := range states {
		imp := s.importance
		if imp < cfg.ImportanceFloor {
			imp = cfg.ImportanceFloor
		}
		delta := cfg.TransferRate * days * s.working * imp
		s.core += delta
		s.working -= delta
		if s.working < 0 {
			s.working = 0
		}
	}

	// Step 3: core decay.
	for _, s := range states {
		s.core *= math.Exp(-cfg.CoreDecayRate * days)
	}

	var replayedIDs []string
	if days > 0 {
		// Step 4: replay.
		replayedIDs = selectReplaySample(all, now, cfg.InterleaveRatio)
		replaySet := make(map[string]bool, len(replayedIDs))
		for _, id := range replayedIDs {
			replaySet[id] = true
		}
		for _, s := range states {
			if replaySet[s.id] {
				s.core += cfg.ReplayBoost
			}
		}
	}

	// Step 5: layer update.
	for _, s := range states {
		switch {
		case s.pinned || s.core >= cfg.PromoteThreshold:
			s.layer = models.LayerCore
		case s.core <= cfg.DemoteThreshold && s.working <= cfg.ArchiveThreshold:
			s.layer = models.LayerArchive
		default:
			s.layer = models.LayerWorking
		}
	}

	if days > 0 {
		// Step 7: downscale (unpinned only). Computed before the write so
		// step 5's layer classification used the pre-downscale values.
		for _, s := range states {
			if !s.pinned {
				s.working *= e.downscaleCfg.DefaultFactor
				s.core *= e.downscaleCfg.DefaultFactor
			}
		}
	}

	summary := &models.ConsolidateSummary{Processed: len(states), Replayed: len(replayedIDs)}
	for _, s := range states {
		switch s.layer {
		case models.LayerCore:
			summary.PromotedCore++
		case models.LayerArchive:
			summary.Archived++
		default:
			summary.Working++
		}
	}

	if err := e.commit(states, replayedIDs, now, days); err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}

	e.logger.Info("consolidate complete",
		"processed", summary.Processed, "replayed", summary.Replayed,
		"promoted_core", summary.PromotedCore, "archived", summary.Archived)

	return summary, nil
}

// commit writes the whole cycle's effects in one transaction: observers
// see either the pre- or post-state (spec.md §4.5).
func (e *Engine) commit(states []*memState, replayedIDs []string, now, days float64) error {
	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, s := range states {
		if err := e.memories.SetStrengthsTx(tx, s.id, s.working, s.core, s.layer); err != nil {
			return fmt.Errorf("update memory %s: %w", s.id, err)
		}
	}

	for _, id := range replayedIDs {
		if _, err := tx.Exec(`INSERT INTO access_records (memory_id, accessed_at) VALUES (?, ?)`, id, now); err != nil {
			return fmt.Errorf("insert replay access record for %s: %w", id, err)
		}
	}

	if days > 0 {
		// Step 6: Hebbian decay.
		if _, err := tx.Exec(`UPDATE hebbian_links SET strength = strength * ? WHERE strength > 0`, e.hebbianCfg.DecayFactor); err != nil {
			return fmt.Errorf("hebbian decay: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM hebbian_links WHERE strength > 0 AND strength < ?`, e.hebbianCfg.PruneBelow); err != nil {
			return fmt.Errorf("prune hebbian links: %w", err)
		}
	}

	return tx.Commit()
}

// selectReplaySample picks an interleaved sample: interleaveRatio from
// memories created within the last 24h, the rest spread across older
// memories weighted by importance (spec.md §4.5 step 4).
func selectReplaySample(all []*models.Memory, now, interleaveRatio float64) []string {
	if len(all) == 0 {
		return nil
	}
	sampleSize := defaultReplaySampleSize
	if sampleSize > len(all) {
		sampleSize = len(all)
	}

	var recent, older []*models.Memory
	for _, m := range all {
		if now-m.CreatedAt <= recentWindowSeconds {
			recent = append(recent, m)
		} else {
			older = append(older, m)
		}
	}

	recentCount := int(math.Round(interleaveRatio * float64(sampleSize)))
	if recentCount > len(recent) {
		recentCount = len(recent)
	}
	olderCount := sampleSize - recentCount
	if olderCount > len(older) {
		olderCount = len(older)
	}

	rng := rand.New(rand.NewSource(int64(now*1000) + 1))

	picked := make([]string, 0, recentCount+olderCount)
	picked = append(picked, sampleIDs(rng, recent, recentCount)...)
	picked = append(picked, weightedSampleIDs(rng, older, olderCount)...)
	return picked
}

func sampleIDs(rng *rand.Rand, pool []*models.Memory, n int) []string {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	idx := rng.Perm(len(pool))[:n]
	out := make([]string, n)
	for i, p := range idx {
		out[i] = pool[p].ID
	}
	return out
}

// weightedSampleIDs samples n ids from pool without replacement, with
// selection probability proportional to importance.
func weightedSampleIDs(rng *rand.Rand, pool []*models.Memory, n int) []string {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	remaining := make([]*models.Memory, len(pool))
	copy(remaining, pool)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].Importance > remaining[j].Importance })

	out := make([]string, 0, n)
	for len(out) < n && len(remaining) > 0 {
		total := 0.0
		for _, m := range remaining {
			total += m.Importance + 0.01
		}
		r := rng.Float64() * total
		acc := 0.0
		chosen := 0
		for i, m := range remaining {
			acc += m.Importance + 0.01
			if r <= acc {
				chosen = i
				break
			}
		}
		out = append(out, remaining[chosen].ID)
		remaining = append(remaining[:chosen], remaining[chosen+1:]...)
	}
	return out
}

// Downscale is the standalone downscale(factor) operation, applied to
// every unpinned memory's working/core strength (spec.md §6.1, §8
// invariant 5).
func (e *Engine) Downscale(factor float64) (int, error) {
	if factor <= 0 || factor > 1 {
		return 0, fmt.Errorf("downscale: factor must be in (0,1], got %v", factor)
	}
	res, err := e.db.Exec(`
		UPDATE memories SET working_strength = working_strength * ?, core_strength = core_strength * ?
		WHERE pinned = 0
	`, factor, factor)
	if err != nil {
		return 0, fmt.Errorf("downscale: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
