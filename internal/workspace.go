package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kittclouds/galaxy/internal/store"
	"github.com/kittclouds/galaxy/pkg/knowledge"
)

// Workspace is the interchange file format: a full export of clusters,
// folders and notes as the editor produces them.
type Workspace struct {
	Clusters []knowledge.Cluster `json:"clusters,omitempty"`
	Folders  []knowledge.Folder  `json:"folders"`
	Notes    []knowledge.Note    `json:"notes"`
}

// ImportResult counts the records written by an import.
type ImportResult struct {
	Clusters int `json:"clusters"`
	Folders  int `json:"folders"`
	Notes    int `json:"notes"`
}

// Import upserts every record of a workspace file into the store. The graph
// is not rebuilt; call Rebuild once all imports are done.
func (a *App) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var ws Workspace
	if err := json.NewDecoder(r).Decode(&ws); err != nil {
		return ImportResult{}, fmt.Errorf("decode workspace: %w", err)
	}

	var res ImportResult
	for _, c := range ws.Clusters {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := a.store.UpsertCluster(&store.Cluster{ID: c.ID, Name: c.Name}); err != nil {
			return res, fmt.Errorf("import cluster %s: %w", c.ID, err)
		}
		res.Clusters++
	}
	for _, f := range ws.Folders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := a.store.UpsertFolder(store.FromKnowledgeFolder(f)); err != nil {
			return res, fmt.Errorf("import folder %s: %w", f.ID, err)
		}
		res.Folders++
	}
	for _, n := range ws.Notes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := store.FromKnowledgeNote(n)
		if err != nil {
			return res, err
		}
		if err := a.store.UpsertNote(rec); err != nil {
			return res, fmt.Errorf("import note %s: %w", n.ID, err)
		}
		res.Notes++
	}

	a.logger.Info("workspace imported",
		slog.Int("clusters", res.Clusters),
		slog.Int("folders", res.Folders),
		slog.Int("notes", res.Notes))
	return res, nil
}

// ImportFile imports a workspace file from disk.
func (a *App) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open workspace: %w", err)
	}
	defer f.Close()
	return a.Import(ctx, f)
}

// DeleteNote removes a note from the store and its embedding from the
// similarity index, then rebuilds the graph without it.
func (a *App) DeleteNote(ctx context.Context, noteID string) error {
	if err := a.store.DeleteNote(noteID); err != nil {
		return fmt.Errorf("delete note %s: %w", noteID, err)
	}
	removed, err := a.index.Remove(ctx, noteID)
	if err != nil {
		return fmt.Errorf("remove embedding of %s: %w", noteID, err)
	}
	if removed {
		a.index.PersistAsync()
	}
	if _, err := a.Rebuild(); err != nil {
		return err
	}
	return nil
}

// Export writes the graph as JSON.
func (a *App) Export(w io.Writer) error {
	data, err := a.graph.ToJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
