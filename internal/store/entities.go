package store

import (
	"fmt"
	"strings"
)

// EntityStore maintains the entity inverted index and entity-entity
// adjacency counts used by the graph-expansion stage of recall
// (spec.md §4.7 step 3, §4.8). It has no direct teacher file; it follows
// the teacher's small-store-wrapping-*DB pattern used throughout this
// package.
type EntityStore struct {
	db *DB
}

func NewEntityStore(db *DB) *EntityStore {
	return &EntityStore{db: db}
}

// Index records a memory's extracted entities: upserts each entity token,
// links it to the memory, and increments the pairwise adjacency count for
// every pair of entities that co-occur in this memory.
func (s *EntityStore) Index(memoryID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin entity index tx: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}

	for _, t := range unique {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO entities (token) VALUES (?)`, t); err != nil {
			return fmt.Errorf("upsert entity: %w", err)
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO entity_memories (token, memory_id) VALUES (?, ?)`, t, memoryID); err != nil {
			return fmt.Errorf("link entity to memory: %w", err)
		}
	}

	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a, b := unique[i], unique[j]
			if a > b {
				a, b = b, a
			}
			if _, err := tx.Exec(`
				INSERT INTO entity_adjacency (source_token, target_token, count)
				VALUES (?, ?, 1)
				ON CONFLICT(source_token, target_token) DO UPDATE SET count = count + 1
			`, a, b); err != nil {
				return fmt.Errorf("bump entity adjacency: %w", err)
			}
		}
	}

	return tx.Commit()
}

// AdjacentEntities returns the distinct entity tokens directly adjacent (1
// hop) to any of the given tokens in entity_adjacency, excluding the input
// tokens themselves. This is the graph-expansion step's hop over the
// co-occurrence graph built incrementally by Index (spec.md §4.7 step 3).
func (s *EntityStore) AdjacentEntities(tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(tokens))
	args := make([]any, len(tokens)*2)
	for i, t := range tokens {
		placeholders[i] = "?"
		args[i] = t
		args[i+len(tokens)] = t
	}
	ph := strings.Join(placeholders, ",")
	q := fmt.Sprintf(`
		SELECT target_token FROM entity_adjacency WHERE source_token IN (%s)
		UNION
		SELECT source_token FROM entity_adjacency WHERE target_token IN (%s)
	`, ph, ph)
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("adjacent entities: %w", err)
	}
	defer rows.Close()

	input := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		input[t] = true
	}
	seen := make(map[string]bool)
	var out []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan adjacent entity: %w", err)
		}
		if input[token] || seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}
	return out, rows.Err()
}

// MemoriesForEntities returns the distinct memory ids that reference any of
// the given entity tokens (the 1-hop expansion set).
func (s *EntityStore) MemoriesForEntities(tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(tokens))
	args := make([]any, len(tokens))
	for i, t := range tokens {
		placeholders[i] = "?"
		args[i] = t
	}
	q := fmt.Sprintf(`SELECT DISTINCT memory_id FROM entity_memories WHERE token IN (%s)`, strings.Join(placeholders, ","))
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("memories for entities: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan memory id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
