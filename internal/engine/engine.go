// Package engine is the public facade over every store and computation
// package: add, recall, consolidate, forget, reward, pin/unpin,
// update_memory, stats, downscale, and export (spec.md §6.1). Grounded on the
// teacher's memory.Service constructor-wiring pattern: a struct of store/
// collaborator pointers built by NewEngine, one method per public
// operation, slog logging at entry/exit of the multi-step operations.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/tonitangpotato/engramai/internal/activation"
	"github.com/tonitangpotato/engramai/internal/capability"
	"github.com/tonitangpotato/engramai/internal/confidence"
	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/consolidation"
	"github.com/tonitangpotato/engramai/internal/engerr"
	"github.com/tonitangpotato/engramai/internal/forgetting"
	"github.com/tonitangpotato/engramai/internal/hebbian"
	"github.com/tonitangpotato/engramai/internal/models"
	"github.com/tonitangpotato/engramai/internal/reward"
	"github.com/tonitangpotato/engramai/internal/search"
	"github.com/tonitangpotato/engramai/internal/store"
)

// Engine is the single entry point embedders construct once per database.
type Engine struct {
	db       *store.DB
	memories *store.MemoryStore
	access   *store.AccessStore
	links    *store.HebbianLinkStore
	entities *store.EntityStore
	lexical  *store.LexicalStore

	hebbian       *hebbian.Engine
	searcher      *search.Engine
	consolidator  *consolidation.Engine
	rewarder      *reward.Engine

	extractor capability.EntityExtractor
	cfg       *config.Config
	logger    *slog.Logger
}

// Option configures optional collaborators at construction time.
type Option func(*Engine)

// WithEntityExtractor overrides the default no-op entity extractor used by
// add() to populate the graph-expansion index (spec.md §9).
func WithEntityExtractor(e capability.EntityExtractor) Option {
	return func(eng *Engine) { eng.extractor = e }
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// New wires every store and computation package against one open database
// and configuration, matching the teacher's NewService dependency-injection
// shape.
func New(db *store.DB, cfg *config.Config, opts ...Option) *Engine {
	memories := store.NewMemoryStore(db)
	access := store.NewAccessStore(db)
	links := store.NewHebbianLinkStore(db)
	entities := store.NewEntityStore(db)
	lexical := store.NewLexicalStore(db)

	hebbianEngine := hebbian.New(links, cfg.Hebbian)
	searcher := search.New(memories, access, lexical, entities, hebbianEngine, cfg.Activation, cfg.Confidence)
	consolidator := consolidation.New(db, memories, nil, cfg.Consolidation, cfg.Downscale, cfg.Hebbian)
	rewarder := reward.New(memories, cfg.Reward, cfg.Anomaly)

	eng := &Engine{
		db:           db,
		memories:     memories,
		access:       access,
		links:        links,
		entities:     entities,
		lexical:      lexical,
		hebbian:      hebbianEngine,
		searcher:     searcher,
		consolidator: consolidator,
		rewarder:     rewarder,
		extractor:    capability.NoopEntityExtractor{},
		cfg:          cfg,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// contentHash returns the hex SHA-256 digest of a memory's content, stored
// in the content_hash column; nothing looks memories up by it.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Add stores a new memory, seeding working_strength/stability from its type
// (spec.md §4.5 init table) and core_strength from importance (spec.md §3.3
// Create), indexing any entities the configured extractor finds, and wiring
// an optional contradiction pointer.
func (e *Engine) Add(content string, opts models.AddOptions, now float64) (*models.Memory, error) {
	if content == "" {
		return nil, engerr.InvalidArgument("add", fmt.Errorf("content must not be empty"))
	}
	memType := opts.Type
	if memType == "" {
		memType = models.MemoryTypeFactual
	}
	if !memType.IsValid() {
		return nil, engerr.InvalidArgument("add", fmt.Errorf("invalid memory type: %s", memType))
	}

	importance := 0.5
	if opts.Importance != nil {
		if *opts.Importance < 0 || *opts.Importance > 1 {
			return nil, engerr.InvalidArgument("add", fmt.Errorf("importance must be in [0,1], got %v", *opts.Importance))
		}
		importance = *opts.Importance
	}

	working := models.InitialWorkingStrength[memType]
	stability := models.InitialStability[memType]

	var core float64
	if importance >= e.cfg.Create.CoreSeedImportanceFloor {
		core = e.cfg.Create.CoreSeedValue
	}

	entities := e.extractor.Extract(content)

	m := &models.Memory{
		ID:              uuid.New().String(),
		Content:         content,
		MemoryType:      memType,
		Importance:      importance,
		Layer:           models.LayerWorking,
		Source:          opts.Source,
		Tags:            opts.Tags,
		ContentHash:     contentHash(content),
		WorkingStrength: working,
		CoreStrength:    core,
		Stability:       stability,
		CreatedAt:       now,
		LastAccessedAt:  now,
		Entities:        entities,
	}

	if err := e.memories.Insert(m); err != nil {
		return nil, engerr.StorageUnavailable("add", err)
	}

	if len(entities) > 0 {
		if err := e.entities.Index(m.ID, entities); err != nil {
			return nil, engerr.StorageUnavailable("add", err)
		}
	}

	if opts.Contradicts != "" {
		if err := e.memories.Contradict(opts.Contradicts, m.ID); err != nil {
			return nil, engerr.Conflict("add", err)
		}
		m.Contradicts = &opts.Contradicts
	}

	e.logger.Info("memory added", "id", m.ID, "type", m.MemoryType)
	return m, nil
}

// Recall runs the hybrid lexical+graph pipeline (spec.md §4.7).
func (e *Engine) Recall(query string, opts models.RecallOptions, now float64) ([]models.SearchResult, error) {
	results, err := e.searcher.Recall(query, opts, now)
	if err != nil {
		return nil, engerr.StorageUnavailable("recall", err)
	}
	return results, nil
}

// Consolidate runs the sleep cycle for the given elapsed days (spec.md
// §4.5). days must be >= 0; days == 0 leaves strengths unchanged.
func (e *Engine) Consolidate(now, days float64) (*models.ConsolidateSummary, error) {
	if days < 0 {
		return nil, engerr.InvalidArgument("consolidate", fmt.Errorf("days must be >= 0, got %v", days))
	}
	summary, err := e.consolidator.Consolidate(now, days)
	if err != nil {
		return nil, engerr.StorageUnavailable("consolidate", err)
	}
	return summary, nil
}

// Downscale applies the standalone homeostasis operator to every unpinned
// memory (spec.md §6.1, §8 invariant 5).
func (e *Engine) Downscale(factor float64) (int, error) {
	if factor <= 0 || factor > 1 {
		return 0, engerr.InvalidArgument("downscale", fmt.Errorf("factor must be in (0,1], got %v", factor))
	}
	n, err := e.consolidator.Downscale(factor)
	if err != nil {
		return 0, engerr.StorageUnavailable("downscale", err)
	}
	return n, nil
}

// Forget deletes unpinned memories whose effective strength has decayed
// below threshold, or a single memory by id. Pinned memories are never
// touched by forget — archiving across the working/core/archive layers is
// exclusively a consolidation-time transition (spec.md §3.2 invariant 5,
// §3.3).
func (e *Engine) Forget(id string, threshold *float64, now float64) (*models.ForgetSummary, error) {
	if id != "" {
		m, err := e.memories.GetByID(id)
		if err != nil {
			return nil, engerr.StorageUnavailable("forget", err)
		}
		if m == nil {
			return nil, engerr.NotFound("forget", fmt.Errorf("memory not found: %s", id))
		}
		if m.Pinned {
			return &models.ForgetSummary{}, nil
		}
		if err := e.memories.Delete(id); err != nil {
			return nil, engerr.StorageUnavailable("forget", err)
		}
		return &models.ForgetSummary{Deleted: 1}, nil
	}

	t := e.cfg.Forgetting.DefaultThreshold
	if threshold != nil {
		if *threshold < 0 {
			return nil, engerr.InvalidArgument("forget", fmt.Errorf("threshold must be >= 0, got %v", *threshold))
		}
		t = *threshold
	}

	all, err := e.memories.All()
	if err != nil {
		return nil, engerr.StorageUnavailable("forget", err)
	}

	summary := &models.ForgetSummary{}
	for _, m := range all {
		if m.Pinned {
			continue
		}
		r := forgetting.Retrievability(now, m.LastAccessedAt, m.Stability)
		strength := forgetting.EffectiveStrength(m.WorkingStrength, m.CoreStrength, r)
		if strength < t {
			if err := e.memories.Delete(m.ID); err != nil {
				return nil, engerr.StorageUnavailable("forget", err)
			}
			summary.Deleted++
		}
	}
	e.logger.Info("forget complete", "deleted", summary.Deleted, "threshold", t)
	return summary, nil
}

// Reward applies signed feedback to the recently-accessed window (spec.md
// §4.4).
func (e *Engine) Reward(textFeedback *string, score *float64) (int, error) {
	n, err := e.rewarder.Apply(textFeedback, score)
	if err != nil {
		return 0, engerr.InvalidArgument("reward", err)
	}
	return n, nil
}

// Pin marks a memory as pinned, exempting it from forget and forcing it to
// the core layer at the next consolidation (spec.md §3.2 invariant 5).
func (e *Engine) Pin(id string) error {
	if err := e.memories.SetPinned(id, true); err != nil {
		return engerr.NotFound("pin", err)
	}
	return nil
}

// Unpin clears a memory's pinned flag.
func (e *Engine) Unpin(id string) error {
	if err := e.memories.SetPinned(id, false); err != nil {
		return engerr.NotFound("unpin", err)
	}
	return nil
}

// UpdateMemory creates a new memory with the revised content and marks the
// old one contradicted by it (spec.md §4.8). Fails with a Conflict-kind
// error if old is already contradicted.
func (e *Engine) UpdateMemory(oldID, newContent string, now float64) (*models.Memory, error) {
	old, err := e.memories.GetByID(oldID)
	if err != nil {
		return nil, engerr.StorageUnavailable("update_memory", err)
	}
	if old == nil {
		return nil, engerr.NotFound("update_memory", fmt.Errorf("memory not found: %s", oldID))
	}
	if old.ContradictedBy != nil {
		return nil, engerr.Conflict("update_memory", fmt.Errorf("memory already contradicted: %s", oldID))
	}

	return e.Add(newContent, models.AddOptions{
		Type:        old.MemoryType,
		Importance:  &old.Importance,
		Source:      old.Source,
		Tags:        old.Tags,
		Contradicts: oldID,
	}, now)
}

// Stats aggregates counts and averages over every stored memory (spec.md
// §6.1).
func (e *Engine) Stats() (*models.Stats, error) {
	all, err := e.memories.All()
	if err != nil {
		return nil, engerr.StorageUnavailable("stats", err)
	}

	stats := &models.Stats{
		ByLayer: map[models.Layer]int{},
		ByType:  map[models.MemoryType]int{},
	}
	var sumImportance, sumStability float64
	var sumAccess int
	for _, m := range all {
		stats.Total++
		stats.ByLayer[m.Layer]++
		stats.ByType[m.MemoryType]++
		sumImportance += m.Importance
		sumStability += m.Stability
		sumAccess += m.AccessCount
	}
	if stats.Total > 0 {
		stats.AvgImportance = sumImportance / float64(stats.Total)
		stats.AvgStability = sumStability / float64(stats.Total)
		stats.AvgAccessCount = float64(sumAccess) / float64(stats.Total)
	}
	return stats, nil
}

// Confidence re-derives the confidence score/label for a single memory,
// exposed for callers inspecting an id returned from Recall (spec.md §4.6).
func (e *Engine) Confidence(m *models.Memory, now float64) (value float64, label string) {
	r := forgetting.Retrievability(now, m.LastAccessedAt, m.Stability)
	strength := forgetting.EffectiveStrength(m.WorkingStrength, m.CoreStrength, r)
	return confidence.Score(m.MemoryType, m.ContradictedBy != nil, strength, e.cfg.Confidence)
}

// Activation re-derives the ranking score for a single memory outside the
// recall pipeline, e.g. for diagnostics (spec.md §4.1).
func (e *Engine) Activation(m *models.Memory, now float64, keywords []string) (float64, error) {
	times, err := e.access.TimesFor(m.ID)
	if err != nil {
		return 0, engerr.StorageUnavailable("activation", err)
	}
	return activation.Score(m, times, now, keywords, e.cfg.Activation), nil
}

// Export writes every stored memory as indented JSON to path and returns
// the number of bytes written (spec.md §6.1). Grounded on the store
// package's existing encoding/json convention for Tags/Entities rather than
// a new serialization dependency, since no pack example implements a
// comparable whole-store dump (DESIGN.md records this choice).
func (e *Engine) Export(path string) (int, error) {
	all, err := e.memories.All()
	if err != nil {
		return 0, engerr.StorageUnavailable("export", err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return 0, engerr.InvalidArgument("export", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, engerr.StorageUnavailable("export", err)
	}
	e.logger.Info("export complete", "path", path, "memories", len(all), "bytes", len(data))
	return len(data), nil
}

// Close releases the underlying database handle.
func (e *Engine) Close() error {
	return e.db.Close()
}
