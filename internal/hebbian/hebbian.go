// Package hebbian tracks co-retrieval counts and promotes frequent memory
// pairs to bidirectional associative links (spec.md §4.3). Grounded on the
// teacher's store.LinkStore for the storage half and on the pack's
// qubicdb/pkg/synapse Hebbian engine for the co-activation/strengthen/decay
// vocabulary, ported from neuron/synapse naming to memory/link naming and
// simplified to the spec's scalar strength model.
package hebbian

import (
	"fmt"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/store"
)

// Pair is an unordered memory-id pair whose link just formed.
type Pair struct {
	SourceID string
	TargetID string
}

// Engine wraps the Hebbian link store with the bookkeeping rules from
// spec.md §4.3.
type Engine struct {
	links *store.HebbianLinkStore
	cfg   config.HebbianConfig
}

func New(links *store.HebbianLinkStore, cfg config.HebbianConfig) *Engine {
	return &Engine{links: links, cfg: cfg}
}

// RecordCoactivation increments coactivation_count for every unordered pair
// within ids. Self-links are forbidden and duplicate ids are collapsed
// before pairing. When a pair's count crosses cfg.Threshold and the link
// was not already formed, its strength is set to 1.0 in both directions
// and the pair is returned as newly formed. A no-op when Hebbian tracking
// is disabled.
func (e *Engine) RecordCoactivation(ids []string) ([]Pair, error) {
	if !e.cfg.Enabled {
		return nil, nil
	}
	unique := dedupe(ids)
	var formed []Pair
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a, b := unique[i], unique[j]
			link, err := e.links.IncrementCoactivation(a, b)
			if err != nil {
				return formed, fmt.Errorf("record coactivation %s/%s: %w", a, b, err)
			}
			if link.Strength == 0 && link.CoactivationCount >= e.cfg.Threshold {
				if err := e.links.Form(a, b); err != nil {
					return formed, fmt.Errorf("form link %s/%s: %w", a, b, err)
				}
				formed = append(formed, Pair{SourceID: link.SourceID, TargetID: link.TargetID})
			}
		}
	}
	return formed, nil
}

// Strengthen boosts an already-formed link's strength, clamped at 2.0
// inside the store query; cfg.StrengthCap is not consulted.
func (e *Engine) Strengthen(id1, id2 string, boost float64) error {
	return e.links.Strengthen(id1, id2, boost)
}

// Decay applies the configured decay factor to every formed link, pruning
// any that fall below cfg.PruneBelow.
func (e *Engine) Decay() error {
	return e.links.Decay(e.cfg.DecayFactor)
}

// Neighbors returns the formed-link neighbors of a memory.
func (e *Engine) Neighbors(id string) ([]string, error) {
	return e.links.Neighbors(id)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
