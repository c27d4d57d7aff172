package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/galaxy/internal/store"
	"github.com/kittclouds/galaxy/pkg/graph"
	"github.com/kittclouds/galaxy/pkg/knowledge"
)

const workspaceJSON = `{
  "clusters": [{"id": "c1", "name": "Main"}],
  "folders": [
    {"id": "root", "name": "Root", "path": "/", "clusterId": "c1"},
    {"id": "f1", "name": "Projects", "path": "/Projects", "parentId": "root", "clusterId": "c1"}
  ],
  "notes": [
    {"id": "n1", "title": "Intro", "path": "/Projects", "clusterId": "c1",
     "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Start here."}]}]},
    {"id": "n2", "title": "Details", "path": "/Projects", "clusterId": "c1",
     "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Builds on [[Intro|Extends]] #design"}]}]}
  ]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Store.Path = ":memory:"
	cfg.Vector.Backend = BackendFlat
	cfg.Watch.Debounce = 20 * time.Millisecond
	return cfg
}

func openApp(t *testing.T, cfg *Config, s store.Storer) *App {
	t.Helper()
	app, err := Open(context.Background(), WithConfig(cfg), WithLogger(quietLogger()), WithStore(s))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestOpenRequiresConfig(t *testing.T) {
	_, err := Open(context.Background(), WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestImportAndRebuild(t *testing.T) {
	app := openApp(t, testConfig(), store.NewMemStore())

	res, err := app.Import(context.Background(), strings.NewReader(workspaceJSON))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Clusters: 1, Folders: 2, Notes: 2}, res)
	assert.Equal(t, 0, app.Graph().Stats().Titles, "import does not rebuild")

	report, err := app.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Notes)
	assert.Equal(t, 1, report.Links)
	assert.Equal(t, report, app.LastReport())

	out := app.Graph().OutgoingLinks("n2")
	require.Len(t, out, 1)
	assert.Equal(t, "n1", out[0].Node.ID)
	assert.Equal(t, "Extends", out[0].Relationship)

	contents := app.Graph().FolderContents("f1")
	assert.Len(t, contents.Notes, 2)
}

func TestOpenRebuildsFromStore(t *testing.T) {
	s := store.NewMemStore()
	first := openApp(t, testConfig(), s)
	_, err := first.Import(context.Background(), strings.NewReader(workspaceJSON))
	require.NoError(t, err)

	second := openApp(t, testConfig(), s)
	assert.True(t, second.Graph().Built())
	id, ok := second.Graph().ResolveTitle("details")
	assert.True(t, ok)
	assert.Equal(t, "n2", id)
}

func TestClusterFilter(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.UpsertNote(&store.Note{ID: "x", Title: "Elsewhere", Path: "/", ClusterID: "c2", Content: "{}"}))

	cfg := testConfig()
	cfg.Store.Cluster = "c1"
	app := openApp(t, cfg, s)
	_, err := app.Import(context.Background(), strings.NewReader(workspaceJSON))
	require.NoError(t, err)

	report, err := app.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Notes)
	_, ok := app.Graph().Node("x")
	assert.False(t, ok)
}

func TestImportRejectsGarbage(t *testing.T) {
	app := openApp(t, testConfig(), store.NewMemStore())
	_, err := app.Import(context.Background(), strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	app := openApp(t, testConfig(), store.NewMemStore())
	_, err := app.Import(context.Background(), strings.NewReader(workspaceJSON))
	require.NoError(t, err)
	_, err = app.Rebuild()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, app.Export(&buf))

	var snap graph.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &snap))
	assert.NotEmpty(t, snap.Nodes)
	assert.NotEmpty(t, snap.Edges)
}

func TestSimilarityRoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	app := openApp(t, testConfig(), s)
	_, err := app.Import(ctx, strings.NewReader(workspaceJSON))
	require.NoError(t, err)
	_, err = app.Rebuild()
	require.NoError(t, err)

	require.NoError(t, app.Embed(ctx, "n1", []float32{1, 0, 0}))
	require.NoError(t, app.Embed(ctx, "n2", []float32{0, 1, 0}))

	hits, err := app.Similar(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "n1", hits[0].NoteID)
	assert.Equal(t, "Intro", hits[0].Title)

	require.NoError(t, app.Close())

	reopened := openApp(t, testConfig(), s)
	assert.Equal(t, 2, reopened.Index().Len())
	assert.False(t, reopened.Index().Degraded())
}

func TestForgetAndDeleteNote(t *testing.T) {
	ctx := context.Background()
	app := openApp(t, testConfig(), store.NewMemStore())
	_, err := app.Import(ctx, strings.NewReader(workspaceJSON))
	require.NoError(t, err)

	_, err = app.Rebuild()
	require.NoError(t, err)
	require.NotEmpty(t, app.Graph().IncomingLinks("n1"))

	require.NoError(t, app.Embed(ctx, "n1", []float32{1, 0}))
	require.NoError(t, app.Embed(ctx, "n2", []float32{0, 1}))

	removed, err := app.Forget(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = app.Forget(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, app.DeleteNote(ctx, "n2"))
	assert.Equal(t, 0, app.Index().Len())
	n, err := app.Store().GetNote("n2")
	require.NoError(t, err)
	assert.Nil(t, n)

	_, ok := app.Graph().Node("n2")
	assert.False(t, ok, "deleted note leaves the graph")
	assert.Empty(t, app.Graph().IncomingLinks("n1"))
}

func TestSQLiteVecWithoutSQLiteStoreDegrades(t *testing.T) {
	cfg := testConfig()
	cfg.Vector.Backend = BackendSQLiteVec
	app := openApp(t, cfg, store.NewMemStore())

	assert.True(t, app.Index().Ready())
	assert.True(t, app.Index().Degraded())
	require.NoError(t, app.Embed(context.Background(), "n1", []float32{1, 0, 0}))
	hits, err := app.Similar(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "n1", hits[0].NoteID)
}

func TestSQLiteVecCorruptMetaDegrades(t *testing.T) {
	s, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`CREATE TABLE vec_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		INSERT INTO vec_meta (key, value) VALUES ('dim', 'garbage');`)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Vector.Backend = BackendSQLiteVec
	app := openApp(t, cfg, s)

	assert.True(t, app.Index().Degraded())
	require.NoError(t, app.Embed(context.Background(), "n1", []float32{0, 1}))
	assert.Equal(t, 1, app.Index().Len())
}

func TestFSSnapshotDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")

	cfg := testConfig()
	cfg.Vector.Snapshot = SnapshotFS
	cfg.Vector.Dir = dir

	app := openApp(t, cfg, store.NewMemStore())
	require.NoError(t, app.Embed(ctx, "n1", []float32{1, 2, 3}))
	require.NoError(t, app.Close())

	_, err := os.Stat(filepath.Join(dir, cfg.Vector.Key))
	require.NoError(t, err)

	reopened := openApp(t, cfg, store.NewMemStore())
	assert.Equal(t, 1, reopened.Index().Len())
}

func TestWatchImportsWorkspaceFiles(t *testing.T) {
	dir := t.TempDir()
	app := openApp(t, testConfig(), store.NewMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []knowledge.Report
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.Watch(ctx, dir, func(_ []string, report knowledge.Report) {
			mu.Lock()
			got = append(got, report)
			mu.Unlock()
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ws.json"), []byte(workspaceJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1].Notes == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestWatchImportsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "ws.json"), []byte(workspaceJSON), 0o644))
	app := openApp(t, testConfig(), store.NewMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var files []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.Watch(ctx, dir, func(imported []string, _ knowledge.Report) {
			mu.Lock()
			files = append(files, imported...)
			mu.Unlock()
		})
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(files) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, app.Graph().Built())
	_, ok := app.Graph().ResolveTitle("intro")
	assert.True(t, ok)

	cancel()
	<-done
}
