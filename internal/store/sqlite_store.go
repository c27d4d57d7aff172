package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed data store.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface,
// with the sqlite-vec extension loaded so the same database can host the
// similarity index.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

var _ Storer = (*SQLiteStore)(nil)

// schema defines all workspace tables.
const schema = `
CREATE TABLE IF NOT EXISTS clusters (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    path TEXT NOT NULL,
    parent_id TEXT,
    cluster_id TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_folders_cluster ON folders(cluster_id);

-- Note: No foreign keys - the graph tolerates dangling references
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    path TEXT NOT NULL,
    cluster_id TEXT,
    content TEXT NOT NULL,
    tags TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_cluster ON notes(cluster_id);

CREATE TABLE IF NOT EXISTS blobs (
    key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dsn == ":memory:" {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying database for components sharing it, such as
// the sqlite-vec similarity backend.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Folders
// =============================================================================

func (s *SQLiteStore) UpsertFolder(folder *Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO folders (id, name, path, parent_id, cluster_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			parent_id = excluded.parent_id,
			cluster_id = excluded.cluster_id,
			updated_at = excluded.updated_at
	`, folder.ID, folder.Name, folder.Path, folder.ParentID, folder.ClusterID,
		folder.CreatedAt, folder.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetFolder(id string) (*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f Folder
	var parentID, clusterID sql.NullString
	err := s.db.QueryRow(`
		SELECT id, name, path, parent_id, cluster_id, created_at, updated_at
		FROM folders WHERE id = ?
	`, id).Scan(&f.ID, &f.Name, &f.Path, &parentID, &clusterID, &f.CreatedAt, &f.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f.ParentID = parentID.String
	f.ClusterID = clusterID.String
	return &f, nil
}

func (s *SQLiteStore) DeleteFolder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM folders WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ListFolders(clusterID string) ([]*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, path, parent_id, cluster_id, created_at, updated_at FROM folders`
	var args []any
	if clusterID != "" {
		query += ` WHERE cluster_id = ?`
		args = append(args, clusterID)
	}
	query += ` ORDER BY path, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		var f Folder
		var parentID, cID sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &parentID, &cID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		f.ParentID = parentID.String
		f.ClusterID = cID.String
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

// =============================================================================
// Notes
// =============================================================================

func (s *SQLiteStore) UpsertNote(note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO notes (id, title, path, cluster_id, content, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			path = excluded.path,
			cluster_id = excluded.cluster_id,
			content = excluded.content,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`, note.ID, note.Title, note.Path, note.ClusterID, note.Content, string(tags),
		note.CreatedAt, note.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetNote(id string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, title, path, cluster_id, content, tags, created_at, updated_at
		FROM notes WHERE id = ?
	`, id)

	note, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return note, err
}

func (s *SQLiteStore) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ListNotes(clusterID string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, title, path, cluster_id, content, tags, created_at, updated_at FROM notes`
	var args []any
	if clusterID != "" {
		query += ` WHERE cluster_id = ?`
		args = append(args, clusterID)
	}
	query += ` ORDER BY path, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (s *SQLiteStore) CountNotes() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*Note, error) {
	var note Note
	var clusterID, tags sql.NullString
	if err := row.Scan(&note.ID, &note.Title, &note.Path, &clusterID, &note.Content, &tags,
		&note.CreatedAt, &note.UpdatedAt); err != nil {
		return nil, err
	}

	note.ClusterID = clusterID.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &note.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of note %s: %w", note.ID, err)
		}
	}
	return &note, nil
}

// =============================================================================
// Clusters
// =============================================================================

func (s *SQLiteStore) UpsertCluster(cluster *Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO clusters (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, cluster.ID, cluster.Name, cluster.CreatedAt)
	return err
}

func (s *SQLiteStore) ListClusters() ([]*Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, created_at FROM clusters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []*Cluster
	for rows.Next() {
		var c Cluster
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		clusters = append(clusters, &c)
	}
	return clusters, rows.Err()
}

// =============================================================================
// Blobs
// =============================================================================

func (s *SQLiteStore) PutBlob(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data == nil {
		data = []byte{}
	}
	_, err := s.db.Exec(`
		INSERT INTO blobs (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = unixepoch()
	`, key, data)
	return err
}

func (s *SQLiteStore) GetBlob(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s *SQLiteStore) DeleteBlob(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM blobs WHERE key = ?`, key)
	return err
}
