package store

import (
	"fmt"
)

// LexicalResult holds an FTS5 match result used as a recall candidate.
type LexicalResult struct {
	ID    string
	Score float64
}

// LexicalStore performs full-text candidate generation via SQLite FTS5
// (spec.md §4.7 step 1). It is the store's lexical stage, not a final
// ranking — activation scoring happens afterward in internal/search.
type LexicalStore struct {
	db *DB
}

func NewLexicalStore(db *DB) *LexicalStore {
	return &LexicalStore{db: db}
}

// Search runs an FTS5 MATCH query and returns up to limit memory IDs,
// ordered by FTS5 rank (best match first).
func (s *LexicalStore) Search(query string, limit int) ([]LexicalResult, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	// bm25() returns negative values where more negative = better match,
	// so negate to get positive scores where higher = better.
	q := `
		SELECT m.id, -rank AS score
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`

	rows, err := s.db.Query(q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var results []LexicalResult
	for rows.Next() {
		var r LexicalResult
		if err := rows.Scan(&r.ID, &r.Score); err != nil {
			return nil, fmt.Errorf("scan lexical result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
