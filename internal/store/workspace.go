package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kittclouds/galaxy/pkg/knowledge"
	"github.com/kittclouds/galaxy/pkg/scanner/blocks"
)

// Load reads every note and folder of a cluster ("" for all) as graph
// builder input.
func Load(s Storer, clusterID string) ([]knowledge.Note, []knowledge.Folder, error) {
	folders, err := s.ListFolders(clusterID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list folders: %w", err)
	}
	notes, err := s.ListNotes(clusterID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list notes: %w", err)
	}

	outFolders := make([]knowledge.Folder, 0, len(folders))
	for _, f := range folders {
		outFolders = append(outFolders, f.Knowledge())
	}
	outNotes := make([]knowledge.Note, 0, len(notes))
	for _, n := range notes {
		outNotes = append(outNotes, n.Knowledge())
	}
	return outNotes, outFolders, nil
}

// Knowledge converts the record to graph builder input.
func (f *Folder) Knowledge() knowledge.Folder {
	return knowledge.Folder{
		ID:        f.ID,
		Name:      f.Name,
		Path:      f.Path,
		ParentID:  f.ParentID,
		ClusterID: f.ClusterID,
		CreatedAt: fromMillis(f.CreatedAt),
		UpdatedAt: fromMillis(f.UpdatedAt),
	}
}

// Knowledge converts the record to graph builder input. Content that is
// not a block tree is kept as plain text.
func (n *Note) Knowledge() knowledge.Note {
	var doc blocks.Document
	if err := json.Unmarshal([]byte(n.Content), &doc); err != nil {
		doc = blocks.FromText(n.Content)
	}
	return knowledge.Note{
		ID:        n.ID,
		Title:     n.Title,
		Path:      n.Path,
		ClusterID: n.ClusterID,
		Content:   doc,
		Tags:      n.Tags,
		CreatedAt: fromMillis(n.CreatedAt),
		UpdatedAt: fromMillis(n.UpdatedAt),
	}
}

// FromKnowledgeNote converts builder input back to a record.
func FromKnowledgeNote(n knowledge.Note) (*Note, error) {
	content, err := json.Marshal(n.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode content of note %s: %w", n.ID, err)
	}
	return &Note{
		ID:        n.ID,
		Title:     n.Title,
		Path:      n.Path,
		ClusterID: n.ClusterID,
		Content:   string(content),
		Tags:      n.Tags,
		CreatedAt: toMillis(n.CreatedAt),
		UpdatedAt: toMillis(n.UpdatedAt),
	}, nil
}

// FromKnowledgeFolder converts builder input back to a record.
func FromKnowledgeFolder(f knowledge.Folder) *Folder {
	return &Folder{
		ID:        f.ID,
		Name:      f.Name,
		Path:      f.Path,
		ParentID:  f.ParentID,
		ClusterID: f.ClusterID,
		CreatedAt: toMillis(f.CreatedAt),
		UpdatedAt: toMillis(f.UpdatedAt),
	}
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
