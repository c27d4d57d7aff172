package internal

import (
	"context"

	"github.com/kittclouds/galaxy/pkg/vector"
)

// SimilarNote is a similarity hit enriched with the note title.
type SimilarNote struct {
	NoteID string  `json:"noteId"`
	Title  string  `json:"title,omitempty"`
	Score  float64 `json:"score"`
}

// Embed stores the embedding of a note and schedules a snapshot.
func (a *App) Embed(ctx context.Context, noteID string, vec []float32) error {
	if err := a.index.Upsert(ctx, noteID, vec); err != nil {
		return err
	}
	a.index.PersistAsync()
	return nil
}

// Forget drops the embedding of a note, reporting whether it existed.
func (a *App) Forget(ctx context.Context, noteID string) (bool, error) {
	removed, err := a.index.Remove(ctx, noteID)
	if err != nil || !removed {
		return removed, err
	}
	a.index.PersistAsync()
	return true, nil
}

// Similar returns the k notes closest to vec. Notes missing from the graph
// keep an empty title.
func (a *App) Similar(ctx context.Context, vec []float32, k int) ([]SimilarNote, error) {
	hits, err := a.index.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	return a.withTitles(hits), nil
}

func (a *App) withTitles(hits []vector.Hit) []SimilarNote {
	out := make([]SimilarNote, 0, len(hits))
	for _, h := range hits {
		sn := SimilarNote{NoteID: h.NoteID, Score: h.Score}
		if n, ok := a.graph.Node(h.NoteID); ok {
			sn.Title = n.Title
		}
		out = append(out, sn)
	}
	return out
}
