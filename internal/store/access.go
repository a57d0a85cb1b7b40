package store

import "fmt"

// AccessStore manages access_records rows, the base-level activation
// term's only data source (spec.md §4.1, §3.1).
type AccessStore struct {
	db *DB
}

func NewAccessStore(db *DB) *AccessStore {
	return &AccessStore{db: db}
}

// Append records one access event for a memory at the given epoch-seconds
// timestamp.
func (s *AccessStore) Append(memoryID string, accessedAt float64) error {
	_, err := s.db.Exec(`INSERT INTO access_records (memory_id, accessed_at) VALUES (?, ?)`, memoryID, accessedAt)
	if err != nil {
		return fmt.Errorf("append access record: %w", err)
	}
	return nil
}

// TimesFor returns every recorded access timestamp for a memory, used as
// the {t_k} set in the base-level activation formula.
func (s *AccessStore) TimesFor(memoryID string) ([]float64, error) {
	rows, err := s.db.Query(`SELECT accessed_at FROM access_records WHERE memory_id = ?`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("get access times: %w", err)
	}
	defer rows.Close()

	var times []float64
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan access time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// Count returns the number of access_records rows for a memory; used to
// cross-check the access_count invariant (spec.md §3.2 invariant 2).
func (s *AccessStore) Count(memoryID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM access_records WHERE memory_id = ?`, memoryID).Scan(&n)
	return n, err
}
