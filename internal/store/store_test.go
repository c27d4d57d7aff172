package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/galaxy/pkg/knowledge"
	"github.com/kittclouds/galaxy/pkg/scanner/blocks"
	"github.com/kittclouds/galaxy/pkg/vector"
)

// =============================================================================
// Store Factory for Testing Both Implementations
// =============================================================================

// storeFactory creates a store for testing.
// We test both MemStore and SQLiteStore with the same test suite.
type storeFactory func() (Storer, error)

func memStoreFactory() (Storer, error) {
	return NewMemStore(), nil
}

func sqliteStoreFactory() (Storer, error) {
	return NewSQLiteStore()
}

// runTestsForAllStores runs a test function against both store implementations.
func runTestsForAllStores(t *testing.T, testName string, testFn func(t *testing.T, store Storer)) {
	factories := map[string]storeFactory{
		"MemStore":    memStoreFactory,
		"SQLiteStore": sqliteStoreFactory,
	}

	for name, factory := range factories {
		t.Run(name+"/"+testName, func(t *testing.T) {
			store, err := factory()
			require.NoError(t, err, "Failed to create store")
			defer store.Close()
			testFn(t, store)
		})
	}
}

// =============================================================================
// Folder Tests
// =============================================================================

func TestFolderCRUD(t *testing.T) {
	runTestsForAllStores(t, "FolderCRUD", func(t *testing.T, store Storer) {
		now := time.Now().UnixMilli()
		folder := &Folder{ID: "f1", Name: "Projects", Path: "/Projects", ParentID: "root", ClusterID: "c1", CreatedAt: now, UpdatedAt: now}

		require.NoError(t, store.UpsertFolder(folder))

		got, err := store.GetFolder("f1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, folder, got)

		folder.Name = "Work"
		require.NoError(t, store.UpsertFolder(folder))
		got, _ = store.GetFolder("f1")
		assert.Equal(t, "Work", got.Name)

		require.NoError(t, store.DeleteFolder("f1"))
		got, err = store.GetFolder("f1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestListFoldersByCluster(t *testing.T) {
	runTestsForAllStores(t, "ListFolders", func(t *testing.T, store Storer) {
		require.NoError(t, store.UpsertFolder(&Folder{ID: "b", Name: "B", Path: "/b", ClusterID: "c1"}))
		require.NoError(t, store.UpsertFolder(&Folder{ID: "a", Name: "A", Path: "/a", ClusterID: "c1"}))
		require.NoError(t, store.UpsertFolder(&Folder{ID: "x", Name: "X", Path: "/x", ClusterID: "c2"}))

		all, err := store.ListFolders("")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		c1, err := store.ListFolders("c1")
		require.NoError(t, err)
		require.Len(t, c1, 2)
		assert.Equal(t, "a", c1[0].ID, "ordered by path")
	})
}

// =============================================================================
// Note Tests
// =============================================================================

func TestNoteUpsertAndGet(t *testing.T) {
	runTestsForAllStores(t, "UpsertAndGet", func(t *testing.T, store Storer) {
		now := time.Now().UnixMilli()
		note := &Note{
			ID:        "n1",
			Title:     "Intro",
			Path:      "/Projects",
			ClusterID: "c1",
			Content:   `[{"type":"paragraph","content":"hello [[World]]"}]`,
			Tags:      []string{"a", "b"},
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, store.UpsertNote(note))

		got, err := store.GetNote("n1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, note, got)

		missing, err := store.GetNote("nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		count, err := store.CountNotes()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestNoteUpdateAndDelete(t *testing.T) {
	runTestsForAllStores(t, "UpdateAndDelete", func(t *testing.T, store Storer) {
		note := &Note{ID: "n1", Title: "Old", Path: "/", Content: "x"}
		require.NoError(t, store.UpsertNote(note))

		note.Title = "New"
		note.Tags = nil
		require.NoError(t, store.UpsertNote(note))

		got, _ := store.GetNote("n1")
		assert.Equal(t, "New", got.Title)
		assert.Empty(t, got.Tags)

		require.NoError(t, store.DeleteNote("n1"))
		count, _ := store.CountNotes()
		assert.Equal(t, 0, count)
	})
}

func TestListNotesByCluster(t *testing.T) {
	runTestsForAllStores(t, "ListNotes", func(t *testing.T, store Storer) {
		require.NoError(t, store.UpsertNote(&Note{ID: "n1", Title: "A", Path: "/", ClusterID: "c1"}))
		require.NoError(t, store.UpsertNote(&Note{ID: "n2", Title: "B", Path: "/", ClusterID: "c2"}))

		c1, err := store.ListNotes("c1")
		require.NoError(t, err)
		require.Len(t, c1, 1)
		assert.Equal(t, "n1", c1[0].ID)

		all, err := store.ListNotes("")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestClusters(t *testing.T) {
	runTestsForAllStores(t, "Clusters", func(t *testing.T, store Storer) {
		require.NoError(t, store.UpsertCluster(&Cluster{ID: "c2", Name: "Two"}))
		require.NoError(t, store.UpsertCluster(&Cluster{ID: "c1", Name: "One"}))
		require.NoError(t, store.UpsertCluster(&Cluster{ID: "c1", Name: "Uno"}))

		clusters, err := store.ListClusters()
		require.NoError(t, err)
		require.Len(t, clusters, 2)
		assert.Equal(t, "Uno", clusters[0].Name)
	})
}

// =============================================================================
// Blob Tests
// =============================================================================

func TestBlobs(t *testing.T) {
	runTestsForAllStores(t, "Blobs", func(t *testing.T, store Storer) {
		ctx := context.Background()
		blobs := Blobs(store)

		_, err := blobs.Get(ctx, vector.DefaultKey)
		assert.ErrorIs(t, err, vector.ErrNotFound)

		require.NoError(t, blobs.Put(ctx, vector.DefaultKey, []byte{1, 2, 3}))
		require.NoError(t, blobs.Put(ctx, vector.DefaultKey, []byte{4, 5}))
		got, err := blobs.Get(ctx, vector.DefaultKey)
		require.NoError(t, err)
		assert.Equal(t, []byte{4, 5}, got)

		require.NoError(t, blobs.Delete(ctx, vector.DefaultKey))
		_, err = blobs.Get(ctx, vector.DefaultKey)
		assert.ErrorIs(t, err, vector.ErrNotFound)
	})
}

func TestIndexSnapshotInStore(t *testing.T) {
	runTestsForAllStores(t, "IndexSnapshot", func(t *testing.T, store Storer) {
		ctx := context.Background()

		x := vector.NewIndex(vector.NewFlat(), vector.WithBlobStore(Blobs(store)))
		require.NoError(t, x.Open(ctx))
		require.NoError(t, x.Upsert(ctx, "n1", []float32{1, 0}))
		require.NoError(t, x.Persist(ctx))

		restored := vector.NewIndex(vector.NewFlat(), vector.WithBlobStore(Blobs(store)))
		require.NoError(t, restored.Open(ctx))
		assert.Equal(t, 1, restored.Len())
	})
}

// =============================================================================
// Workspace Tests
// =============================================================================

func TestLoadFeedsGraph(t *testing.T) {
	runTestsForAllStores(t, "Load", func(t *testing.T, store Storer) {
		require.NoError(t, store.UpsertFolder(&Folder{ID: "f1", Name: "Projects", Path: "/Projects"}))
		require.NoError(t, store.UpsertNote(&Note{ID: "n1", Title: "Intro", Path: "/Projects", Content: "plain text"}))

		n2, err := FromKnowledgeNote(knowledge.Note{
			ID:      "n2",
			Title:   "Details",
			Path:    "/Projects",
			Content: blocks.FromText("[[Intro]]"),
		})
		require.NoError(t, err)
		require.NoError(t, store.UpsertNote(n2))

		notes, folders, err := Load(store, "")
		require.NoError(t, err)
		require.Len(t, notes, 2)
		require.Len(t, folders, 1)

		g := knowledge.New()
		g.Rebuild(notes, folders)

		out := g.OutgoingLinks("n2")
		require.Len(t, out, 1)
		assert.Equal(t, "n1", out[0].Node.ID)
		assert.Len(t, g.FolderContents("f1").Notes, 2)
	})
}

func TestKnowledgeConversionKeepsTimes(t *testing.T) {
	ts := time.UnixMilli(1700000000123).UTC()
	rec := FromKnowledgeFolder(knowledge.Folder{ID: "f", Name: "F", Path: "/f", CreatedAt: ts, UpdatedAt: ts})
	assert.Equal(t, int64(1700000000123), rec.CreatedAt)
	assert.Equal(t, ts, rec.Knowledge().CreatedAt)

	plain := (&Note{ID: "n", Content: "just words #tag"}).Knowledge()
	assert.Equal(t, "just words #tag", plain.Content.Text())
}

func TestSQLiteStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galaxy.db")

	s, err := NewSQLiteStoreWithDSN(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertNote(&Note{ID: "n1", Title: "Kept", Path: "/"}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStoreWithDSN(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetNote("n1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kept", got.Title)
	assert.NotNil(t, s.DB())
}
