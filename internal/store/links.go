package store

import (
	"database/sql"
	"fmt"

	"github.com/tonitangpotato/engramai/internal/models"
)

// HebbianLinkStore handles hebbian_links CRUD, always canonicalizing
// (sourceID, targetID) so that sourceID <= targetID (spec.md §3.1).
type HebbianLinkStore struct {
	db *DB
}

func NewHebbianLinkStore(db *DB) *HebbianLinkStore {
	return &HebbianLinkStore{db: db}
}

func canonicalPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Get returns the link row for a pair, or nil if no tracking row exists yet.
func (s *HebbianLinkStore) Get(id1, id2 string) (*models.HebbianLink, error) {
	src, tgt := canonicalPair(id1, id2)
	var l models.HebbianLink
	err := s.db.QueryRow(`
		SELECT source_id, target_id, strength, coactivation_count
		FROM hebbian_links WHERE source_id = ? AND target_id = ?
	`, src, tgt).Scan(&l.SourceID, &l.TargetID, &l.Strength, &l.CoactivationCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hebbian link: %w", err)
	}
	return &l, nil
}

// IncrementCoactivation bumps the coactivation_count for a canonical pair,
// creating the tracking row (strength 0) if it doesn't exist yet, and
// returns the row's state *after* the increment.
func (s *HebbianLinkStore) IncrementCoactivation(id1, id2 string) (*models.HebbianLink, error) {
	if id1 == id2 {
		return nil, fmt.Errorf("self-link forbidden: %s", id1)
	}
	src, tgt := canonicalPair(id1, id2)
	_, err := s.db.Exec(`
		INSERT INTO hebbian_links (source_id, target_id, strength, coactivation_count)
		VALUES (?, ?, 0.0, 1)
		ON CONFLICT(source_id, target_id) DO UPDATE SET
			coactivation_count = coactivation_count + 1
	`, src, tgt)
	if err != nil {
		return nil, fmt.Errorf("increment coactivation: %w", err)
	}
	return s.Get(src, tgt)
}

// Form sets a tracking row's strength to 1.0, marking it as a formed link
// (spec.md §4.3: transition on coactivation_count >= hebbian_threshold).
func (s *HebbianLinkStore) Form(id1, id2 string) error {
	src, tgt := canonicalPair(id1, id2)
	_, err := s.db.Exec(`UPDATE hebbian_links SET strength = 1.0 WHERE source_id = ? AND target_id = ?`, src, tgt)
	if err != nil {
		return fmt.Errorf("form hebbian link: %w", err)
	}
	return nil
}

// Strengthen increases an already-formed link's strength by boost, capped
// at 2.0 (spec.md §4.3). No-op if the link isn't formed (strength == 0).
func (s *HebbianLinkStore) Strengthen(id1, id2 string, boost float64) error {
	src, tgt := canonicalPair(id1, id2)
	_, err := s.db.Exec(`
		UPDATE hebbian_links SET strength = MIN(2.0, strength + ?)
		WHERE source_id = ? AND target_id = ? AND strength > 0
	`, boost, src, tgt)
	if err != nil {
		return fmt.Errorf("strengthen hebbian link: %w", err)
	}
	return nil
}

// Decay multiplies every link's strength by factor, deleting rows whose
// resulting strength falls below 0.1. Tracking-only rows (strength 0)
// are left untouched (spec.md §4.3).
func (s *HebbianLinkStore) Decay(factor float64) error {
	if _, err := s.db.Exec(`
		UPDATE hebbian_links SET strength = strength * ? WHERE strength > 0
	`, factor); err != nil {
		return fmt.Errorf("decay hebbian links: %w", err)
	}
	if _, err := s.db.Exec(`
		DELETE FROM hebbian_links WHERE strength > 0 AND strength < 0.1
	`); err != nil {
		return fmt.Errorf("prune decayed hebbian links: %w", err)
	}
	return nil
}

// Neighbors returns ids of formed links only (strength > 0) for a memory.
func (s *HebbianLinkStore) Neighbors(id string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT CASE WHEN source_id = ? THEN target_id ELSE source_id END AS neighbor
		FROM hebbian_links
		WHERE (source_id = ? OR target_id = ?) AND strength > 0
	`, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("get hebbian neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan hebbian neighbor: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}
