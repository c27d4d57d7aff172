package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
)

const sqliteVecSchema = `
CREATE TABLE IF NOT EXISTS vec_keys (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS vec_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteVec is a durable index on the sqlite-vec vec0 virtual table.
// Vectors are stored unit-normalized, so the L2 distance vec0 ranks by
// orders results exactly like cosine similarity. The vec0 table is created
// lazily once the first vector fixes the dimension.
type SQLiteVec struct {
	db  *sql.DB
	dim int
}

var _ Backend = (*SQLiteVec)(nil)

// NewSQLiteVec prepares the key tables in db and reloads the dimension of
// an existing index. db must be opened with the sqlite-vec extension loaded.
func NewSQLiteVec(ctx context.Context, db *sql.DB) (*SQLiteVec, error) {
	if _, err := db.ExecContext(ctx, sqliteVecSchema); err != nil {
		return nil, fmt.Errorf("failed to create vector schema: %w", err)
	}

	s := &SQLiteVec{db: db}

	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM vec_meta WHERE key = 'dim'`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read vector dimension: %w", err)
	}

	dim, err := strconv.Atoi(raw)
	if err != nil || dim <= 0 {
		return nil, fmt.Errorf("invalid stored vector dimension %q", raw)
	}
	s.dim = dim
	return s, nil
}

// ensureTable creates the vec0 table for dim on first use.
func (s *SQLiteVec) ensureTable(ctx context.Context, dim int) error {
	if s.dim == dim {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_notes USING vec0(embedding float[%d])`, dim)); err != nil {
		return fmt.Errorf("failed to create vec_notes(float[%d]): %w", dim, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_meta (key, value) VALUES ('dim', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.Itoa(dim)); err != nil {
		return fmt.Errorf("failed to record vector dimension: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.dim = dim
	return nil
}

func (s *SQLiteVec) Upsert(ctx context.Context, id string, vec []float32) error {
	if err := checkDim(s.dim, vec); err != nil {
		return err
	}
	if err := s.ensureTable(ctx, len(vec)); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_keys (note_id) VALUES (?) ON CONFLICT(note_id) DO NOTHING`, id); err != nil {
		return fmt.Errorf("failed to register vector key: %w", err)
	}

	var rowid int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM vec_keys WHERE note_id = ?`, id).Scan(&rowid); err != nil {
		return fmt.Errorf("failed to look up vector key: %w", err)
	}

	// vec0 does not reliably support INSERT OR REPLACE; use DELETE + INSERT.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_notes WHERE rowid = ?`, rowid); err != nil {
		return fmt.Errorf("failed to replace vector: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_notes (rowid, embedding) VALUES (?, ?)`, rowid, serializeFloat32(Normalized(vec))); err != nil {
		return fmt.Errorf("failed to insert vector: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteVec) Remove(ctx context.Context, id string) (bool, error) {
	if s.dim == 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rowid int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM vec_keys WHERE note_id = ?`, id).Scan(&rowid)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up vector key: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_notes WHERE rowid = ?`, rowid); err != nil {
		return false, fmt.Errorf("failed to delete vector: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_keys WHERE id = ?`, rowid); err != nil {
		return false, fmt.Errorf("failed to delete vector key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

func (s *SQLiteVec) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 || s.dim == 0 {
		return nil, nil
	}
	if err := checkDim(s.dim, query); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH knn AS (
			SELECT rowid, distance FROM vec_notes
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT vec_keys.note_id, knn.distance
		FROM knn JOIN vec_keys ON vec_keys.id = knn.rowid
		ORDER BY knn.distance`,
		serializeFloat32(Normalized(query)), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id string
		var dist float64
		if err := rows.Scan(&id, &dist); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hits = append(hits, Hit{NoteID: id, Score: l2ToCosine(dist)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rank(hits, k), nil
}

func (s *SQLiteVec) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM vec_keys`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// serializeFloat32 encodes v as the little-endian blob vec0 expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// l2ToCosine converts an L2 distance between unit vectors to cosine
// similarity: cos = 1 - d²/2.
func l2ToCosine(d float64) float64 {
	return 1.0 - (d*d)/2.0
}
