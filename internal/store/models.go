// Package store provides workspace persistence for Galaxy: folders, notes,
// clusters and opaque blobs such as the similarity index snapshot.
package store

// Folder represents a folder in the workspace tree.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	ParentID  string `json:"parentId,omitempty"`
	ClusterID string `json:"clusterId,omitempty"`
	CreatedAt int64  `json:"createdAt"` // Unix milliseconds
	UpdatedAt int64  `json:"updatedAt"`
}

// Note represents a note. Content is the editor block tree as raw JSON.
type Note struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Path      string   `json:"path"`
	ClusterID string   `json:"clusterId,omitempty"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// Cluster represents a workspace grouping.
type Cluster struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// Storer defines the interface for data persistence.
// This allows swapping between MemStore (testing) and SQLiteStore (production).
// Getters return nil without error for absent records.
type Storer interface {
	// Folders
	UpsertFolder(folder *Folder) error
	GetFolder(id string) (*Folder, error)
	DeleteFolder(id string) error
	ListFolders(clusterID string) ([]*Folder, error)

	// Notes
	UpsertNote(note *Note) error
	GetNote(id string) (*Note, error)
	DeleteNote(id string) error
	ListNotes(clusterID string) ([]*Note, error)
	CountNotes() (int, error)

	// Clusters
	UpsertCluster(cluster *Cluster) error
	ListClusters() ([]*Cluster, error)

	// Blobs
	PutBlob(key string, data []byte) error
	GetBlob(key string) ([]byte, error)
	DeleteBlob(key string) error

	// Lifecycle
	Close() error
}
