package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tonitangpotato/engramai/internal/models"
)

// memoryColumns is the canonical column list for all SELECT queries.
// Order must match scanOne/scanMany.
const memoryColumns = `id, content, memory_type, importance,
	working_strength, core_strength, stability,
	created_at, last_accessed_at, access_count,
	layer, pinned, source, tags, content_hash,
	contradicted_by, contradicts, entities`

// MemoryStore handles Memory CRUD operations on SQLite.
type MemoryStore struct {
	db *DB
}

func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// Insert stores a new memory. The caller must set all required fields
// including ID and ContentHash.
func (s *MemoryStore) Insert(m *models.Memory) error {
	tagsJSON, _ := json.Marshal(m.Tags)
	entitiesJSON, _ := json.Marshal(m.Entities)

	_, err := s.db.Exec(`
		INSERT INTO memories (
			id, content, memory_type, importance,
			working_strength, core_strength, stability,
			created_at, last_accessed_at, access_count,
			layer, pinned, source, tags, content_hash,
			contradicted_by, contradicts, entities
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.Content, string(m.MemoryType), m.Importance,
		m.WorkingStrength, m.CoreStrength, m.Stability,
		m.CreatedAt, m.LastAccessedAt, m.AccessCount,
		string(m.Layer), m.Pinned, m.Source, string(tagsJSON), m.ContentHash,
		m.ContradictedBy, m.Contradicts, string(entitiesJSON),
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// GetByID fetches a single memory by ID.
func (s *MemoryStore) GetByID(id string) (*models.Memory, error) {
	m, err := s.scanOne(s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, memoryColumns), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// Delete removes a memory by ID. Dependent access_records and hebbian_links
// rows are removed by ON DELETE CASCADE in the same statement (spec.md §3.2
// invariant 6).
func (s *MemoryStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("memory not found: %s", id)
	}
	return nil
}

// RecordAccess bumps access_count and last_accessed_at, and reinforces
// stability by the (1+beta) factor (spec.md §3.3 Mutate).
func (s *MemoryStore) RecordAccess(id string, now, beta float64) error {
	_, err := s.db.Exec(`
		UPDATE memories
		SET access_count = access_count + 1,
		    last_accessed_at = ?,
		    stability = stability * (1.0 + ?)
		WHERE id = ?
	`, now, beta, id)
	return err
}

// SetPinned sets or clears the pinned flag.
func (s *MemoryStore) SetPinned(id string, pinned bool) error {
	res, err := s.db.Exec(`UPDATE memories SET pinned = ? WHERE id = ?`, pinned, id)
	if err != nil {
		return fmt.Errorf("set pinned: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("memory not found: %s", id)
	}
	return nil
}

// Contradict atomically points old -> contradicted_by = newID. Fails (0 rows
// affected) if old is already contradicted, which the caller surfaces as a
// Conflict-kind error (spec.md §7, §4.8).
func (s *MemoryStore) Contradict(oldID, newID string) error {
	res, err := s.db.Exec(`
		UPDATE memories SET contradicted_by = ?
		WHERE id = ? AND contradicted_by IS NULL
	`, newID, oldID)
	if err != nil {
		return fmt.Errorf("contradict memory: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("memory not found or already contradicted: %s", oldID)
	}
	return nil
}

// SetStrengths overwrites working/core strength and layer for one memory.
func (s *MemoryStore) SetStrengths(id string, working, core float64, layer models.Layer) error {
	return s.setStrengths(s.db, id, working, core, layer)
}

// SetStrengthsTx is SetStrengths run against an existing transaction, so
// consolidation's per-memory writes share its single enclosing commit
// (spec.md §4.5 "the whole cycle runs in one transaction").
func (s *MemoryStore) SetStrengthsTx(tx *sql.Tx, id string, working, core float64, layer models.Layer) error {
	return s.setStrengths(tx, id, working, core, layer)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *MemoryStore) setStrengths(e execer, id string, working, core float64, layer models.Layer) error {
	_, err := e.Exec(`
		UPDATE memories SET working_strength = ?, core_strength = ?, layer = ?
		WHERE id = ?
	`, working, core, string(layer), id)
	return err
}

// RewardUpdate is one memory's new working_strength/stability values,
// applied atomically in ApplyRewards.
type RewardUpdate struct {
	ID              string
	WorkingStrength float64
	Stability       float64
}

// ApplyRewards writes every update in a single transaction (spec.md §4.4:
// "writes are committed atomically").
func (s *MemoryStore) ApplyRewards(updates []RewardUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reward tx: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		if _, err := tx.Exec(`
			UPDATE memories SET working_strength = ?, stability = ? WHERE id = ?
		`, u.WorkingStrength, u.Stability, u.ID); err != nil {
			return fmt.Errorf("apply reward to %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// RecentlyAccessed returns up to limit memories ordered by last_accessed_at
// descending (most recent first), the candidate window for reward().
func (s *MemoryStore) RecentlyAccessed(limit int) ([]*models.Memory, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM memories ORDER BY last_accessed_at DESC LIMIT ?`, memoryColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("recently accessed: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

// All returns every memory row, used by consolidate/forget/stats which
// operate over the full set.
func (s *MemoryStore) All() ([]*models.Memory, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT %s FROM memories`, memoryColumns))
	if err != nil {
		return nil, fmt.Errorf("get all memories: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

// GetByIDs fetches multiple memories by their IDs in a single query.
func (s *MemoryStore) GetByIDs(ids []string) ([]*models.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM memories WHERE id IN (%s)`,
		memoryColumns, strings.Join(placeholders, ","))
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get by ids: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

func (s *MemoryStore) scanOne(row *sql.Row) (*models.Memory, error) {
	var m models.Memory
	var tagsJSON, entitiesJSON sql.NullString
	var source sql.NullString
	var contradictedBy, contradicts sql.NullString

	err := row.Scan(
		&m.ID, &m.Content, &m.MemoryType, &m.Importance,
		&m.WorkingStrength, &m.CoreStrength, &m.Stability,
		&m.CreatedAt, &m.LastAccessedAt, &m.AccessCount,
		&m.Layer, &m.Pinned, &source, &tagsJSON, &m.ContentHash,
		&contradictedBy, &contradicts, &entitiesJSON,
	)
	if err != nil {
		return nil, err
	}
	populateMemoryNullables(&m, source, tagsJSON, entitiesJSON, contradictedBy, contradicts)
	return &m, nil
}

func (s *MemoryStore) scanMany(rows *sql.Rows) ([]*models.Memory, error) {
	var result []*models.Memory
	for rows.Next() {
		var m models.Memory
		var tagsJSON, entitiesJSON sql.NullString
		var source sql.NullString
		var contradictedBy, contradicts sql.NullString

		if err := rows.Scan(
			&m.ID, &m.Content, &m.MemoryType, &m.Importance,
			&m.WorkingStrength, &m.CoreStrength, &m.Stability,
			&m.CreatedAt, &m.LastAccessedAt, &m.AccessCount,
			&m.Layer, &m.Pinned, &source, &tagsJSON, &m.ContentHash,
			&contradictedBy, &contradicts, &entitiesJSON,
		); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		populateMemoryNullables(&m, source, tagsJSON, entitiesJSON, contradictedBy, contradicts)
		result = append(result, &m)
	}
	return result, rows.Err()
}

// populateMemoryNullables fills in optional fields from nullable SQL columns.
func populateMemoryNullables(
	m *models.Memory,
	source, tagsJSON, entitiesJSON sql.NullString,
	contradictedBy, contradicts sql.NullString,
) {
	if source.Valid {
		m.Source = source.String
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if entitiesJSON.Valid {
		json.Unmarshal([]byte(entitiesJSON.String), &m.Entities)
	}
	if contradictedBy.Valid {
		v := contradictedBy.String
		m.ContradictedBy = &v
	}
	if contradicts.Valid {
		v := contradicts.String
		m.Contradicts = &v
	}
}
