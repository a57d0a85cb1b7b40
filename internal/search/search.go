// Package search orchestrates the recall pipeline: lexical candidate
// generation, filtering, graph expansion over entities and Hebbian
// neighbors, activation scoring, confidence filtering, ranking, and the
// access/coactivation side effects (spec.md §4.7).
// Generalized from the teacher's search.HybridSearcher.Search staged-merge
// structure (vector+BM25 fusion dropped; replaced with lexical+graph).
package search

import (
	"fmt"
	"sort"

	"github.com/tonitangpotato/engramai/internal/activation"
	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/confidence"
	"github.com/tonitangpotato/engramai/internal/forgetting"
	"github.com/tonitangpotato/engramai/internal/hebbian"
	"github.com/tonitangpotato/engramai/internal/models"
	"github.com/tonitangpotato/engramai/internal/store"
)

// Engine wires every store/component needed to run recall().
type Engine struct {
	memories *store.MemoryStore
	access   *store.AccessStore
	lexical  *store.LexicalStore
	entities *store.EntityStore
	hebbian  *hebbian.Engine

	activationCfg config.ActivationConfig
	confidenceCfg config.ConfidenceConfig
}

func New(
	memories *store.MemoryStore,
	access *store.AccessStore,
	lexical *store.LexicalStore,
	entities *store.EntityStore,
	hebbianEngine *hebbian.Engine,
	activationCfg config.ActivationConfig,
	confidenceCfg config.ConfidenceConfig,
) *Engine {
	return &Engine{
		memories:      memories,
		access:        access,
		lexical:       lexical,
		entities:      entities,
		hebbian:       hebbianEngine,
		activationCfg: activationCfg,
		confidenceCfg: confidenceCfg,
	}
}

type scored struct {
	mem        *models.Memory
	activation float64
	confidence float64
	label      string
	strength   float64
}

const defaultLexicalCandidateLimit = 100
const defaultRecallLimit = 5
const lexicalRelevanceBonus = 0.5

// Recall runs the full pipeline and returns ranked results, applying the
// access/coactivation side effects before returning (spec.md §4.7).
func (e *Engine) Recall(query string, opts models.RecallOptions, now float64) ([]models.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	graphExpand := true
	if opts.GraphExpand != nil {
		graphExpand = *opts.GraphExpand
	}

	candidates, lexicalMatched, err := e.gatherCandidates(query)
	if err != nil {
		return nil, fmt.Errorf("recall: %w", err)
	}

	candidates = applyFilters(candidates, opts)

	if graphExpand {
		candidates, err = e.expand(candidates)
		if err != nil {
			return nil, fmt.Errorf("recall: expand: %w", err)
		}
		candidates = applyFilters(candidates, opts)
	}

	results := make([]scored, 0, len(candidates))
	for _, m := range candidates {
		times, err := e.access.TimesFor(m.ID)
		if err != nil {
			return nil, fmt.Errorf("recall: access times for %s: %w", m.ID, err)
		}
		a := activation.Score(m, times, now, opts.Context, e.activationCfg)
		if activation.Filtered(a, e.activationCfg) {
			continue
		}
		if query != "" && lexicalMatched[m.ID] {
			a += lexicalRelevanceBonus
		}

		r := forgetting.Retrievability(now, m.LastAccessedAt, m.Stability)
		strength := forgetting.EffectiveStrength(m.WorkingStrength, m.CoreStrength, r)
		conf, label := confidence.Score(m.MemoryType, m.ContradictedBy != nil, strength, e.confidenceCfg)

		if conf < opts.MinConfidence {
			continue
		}

		results = append(results, scored{mem: m, activation: a, confidence: conf, label: label, strength: strength})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].activation > results[j].activation
	})
	if len(results) > limit {
		results = results[:limit]
	}

	if err := e.applySideEffects(results, now); err != nil {
		return nil, fmt.Errorf("recall: side effects: %w", err)
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, models.SearchResult{
			ID:              r.mem.ID,
			Content:         r.mem.Content,
			MemoryType:      r.mem.MemoryType,
			Layer:           r.mem.Layer,
			Importance:      r.mem.Importance,
			Activation:      r.activation,
			Strength:        r.strength,
			Confidence:      r.confidence,
			ConfidenceLabel: r.label,
			AgeDays:         (now - r.mem.CreatedAt) / 86400.0,
		})
	}
	return out, nil
}

// gatherCandidates runs the lexical stage (or falls back to all memories)
// and returns the candidate set plus the set of ids that matched lexically
// (for the relevance bonus in step 5).
func (e *Engine) gatherCandidates(query string) ([]*models.Memory, map[string]bool, error) {
	lexicalMatched := map[string]bool{}

	if query == "" {
		all, err := e.memories.All()
		if err != nil {
			return nil, nil, fmt.Errorf("load all memories: %w", err)
		}
		return all, lexicalMatched, nil
	}

	hits, err := e.lexical.Search(query, defaultLexicalCandidateLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("lexical search: %w", err)
	}
	if len(hits) == 0 {
		all, err := e.memories.All()
		if err != nil {
			return nil, nil, fmt.Errorf("load all memories: %w", err)
		}
		return all, lexicalMatched, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
		lexicalMatched[h.ID] = true
	}
	mems, err := e.memories.GetByIDs(ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load lexical candidates: %w", err)
	}
	return mems, lexicalMatched, nil
}

// expand adds the memories referencing any entity 1-hop away (via
// entity_adjacency) from an entity referenced by a candidate, plus the
// Hebbian neighbors of every candidate (spec.md §4.7 step 3).
func (e *Engine) expand(candidates []*models.Memory) ([]*models.Memory, error) {
	seen := make(map[string]bool, len(candidates))
	for _, m := range candidates {
		seen[m.ID] = true
	}

	var entityTokens []string
	for _, m := range candidates {
		entityTokens = append(entityTokens, m.Entities...)
	}

	var extraIDs []string
	if len(entityTokens) > 0 {
		neighborTokens, err := e.entities.AdjacentEntities(entityTokens)
		if err != nil {
			return nil, fmt.Errorf("entity adjacency: %w", err)
		}
		expandedTokens := append(append([]string{}, entityTokens...), neighborTokens...)
		ids, err := e.entities.MemoriesForEntities(expandedTokens)
		if err != nil {
			return nil, fmt.Errorf("entity expansion: %w", err)
		}
		extraIDs = append(extraIDs, ids...)
	}

	for _, m := range candidates {
		neighbors, err := e.hebbian.Neighbors(m.ID)
		if err != nil {
			return nil, fmt.Errorf("hebbian expansion: %w", err)
		}
		extraIDs = append(extraIDs, neighbors...)
	}

	var newIDs []string
	for _, id := range extraIDs {
		if !seen[id] {
			seen[id] = true
			newIDs = append(newIDs, id)
		}
	}
	if len(newIDs) == 0 {
		return candidates, nil
	}

	extra, err := e.memories.GetByIDs(newIDs)
	if err != nil {
		return nil, fmt.Errorf("load expanded candidates: %w", err)
	}
	return append(candidates, extra...), nil
}

func applyFilters(candidates []*models.Memory, opts models.RecallOptions) []*models.Memory {
	if len(opts.Types) == 0 && len(opts.Layers) == 0 && opts.TimeRangeFrom == nil && opts.TimeRangeTo == nil {
		return candidates
	}

	typeSet := make(map[models.MemoryType]bool, len(opts.Types))
	for _, t := range opts.Types {
		typeSet[t] = true
	}
	layerSet := make(map[models.Layer]bool, len(opts.Layers))
	for _, l := range opts.Layers {
		layerSet[l] = true
	}

	out := make([]*models.Memory, 0, len(candidates))
	for _, m := range candidates {
		if len(typeSet) > 0 && !typeSet[m.MemoryType] {
			continue
		}
		if len(layerSet) > 0 && !layerSet[m.Layer] {
			continue
		}
		if opts.TimeRangeFrom != nil && m.CreatedAt < *opts.TimeRangeFrom {
			continue
		}
		if opts.TimeRangeTo != nil && m.CreatedAt > *opts.TimeRangeTo {
			continue
		}
		out = append(out, m)
	}
	return out
}

// applySideEffects appends an AccessRecord, bumps access_count/stability,
// and records Hebbian coactivation for every returned memory (spec.md §4.7
// step 8). Each write is its own statement: they do not share one
// transaction, so a failure part-way leaves the earlier writes in place.
func (e *Engine) applySideEffects(results []scored, now float64) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if err := e.access.Append(r.mem.ID, now); err != nil {
			return err
		}
		if err := e.memories.RecordAccess(r.mem.ID, now, stabilityReinforcementBeta); err != nil {
			return err
		}
		ids = append(ids, r.mem.ID)
	}
	if _, err := e.hebbian.RecordCoactivation(ids); err != nil {
		return err
	}
	return nil
}

// stabilityReinforcementBeta is the per-access stability multiplier
// (1 + beta), beta approx 0.1 (spec.md §3.3).
const stabilityReinforcementBeta = 0.1
