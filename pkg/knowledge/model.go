package knowledge

import (
	"time"

	"github.com/kittclouds/galaxy/pkg/scanner/blocks"
)

// Folder is a folder record supplied by the store layer.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	ParentID  string    `json:"parentId,omitempty"`
	ClusterID string    `json:"clusterId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Note is a note record supplied by the store layer. Content is the editor
// block tree; the graph core only reads its text.
type Note struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Path      string          `json:"path"`
	ClusterID string          `json:"clusterId,omitempty"`
	Content   blocks.Document `json:"content,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Cluster is a workspace grouping notes and folders. It only surfaces in the
// graph as the clusterId attribute.
type Cluster struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
