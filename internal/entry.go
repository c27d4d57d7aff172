// Package internal wires the Galaxy runtime: configuration, the workspace
// store, the knowledge graph and the similarity index.
package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	osfs "github.com/hack-pad/hackpadfs/os"
	"golang.org/x/sync/errgroup"

	"github.com/kittclouds/galaxy/internal/store"
	"github.com/kittclouds/galaxy/pkg/knowledge"
	"github.com/kittclouds/galaxy/pkg/vector"
)

// App is an opened Galaxy workspace.
type App struct {
	config   *Config
	logger   *slog.Logger
	store    store.Storer
	borrowed bool
	graph    *knowledge.Graph
	index    *vector.Index
	report   knowledge.Report
}

// Open loads the workspace: the graph is rebuilt from the store while the
// similarity index restores its snapshot.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	if app.logger == nil {
		app.logger = NewLogger(cfg.App)
		slog.SetDefault(app.logger)
	}
	logger := app.logger

	logger.Debug("Configuration loaded",
		slog.String("store_path", cfg.Store.Path),
		slog.String("vector_backend", cfg.Vector.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if app.store == nil {
		s, err := store.NewSQLiteStoreWithDSN(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		app.store = s
	}

	index, err := app.newIndex(ctx)
	if err != nil {
		app.closeStore()
		return nil, fmt.Errorf("init similarity index: %w", err)
	}
	app.index = index

	app.graph = knowledge.New(
		knowledge.WithLogger(logger),
		knowledge.WithRelationships(cfg.Graph.Registry()),
		knowledge.WithRootID(cfg.Graph.RootID),
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := app.Rebuild()
		return err
	})
	g.Go(func() error {
		return app.index.Open(gCtx)
	})
	if err := g.Wait(); err != nil {
		app.closeStore()
		return nil, err
	}

	return app, nil
}

// NewLogger builds the process logger from configuration. Logs go to
// stderr; stdout carries command output.
func NewLogger(cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func (a *App) newIndex(ctx context.Context) (*vector.Index, error) {
	cfg := a.config.Vector

	var backend vector.Backend
	switch cfg.Backend {
	case BackendFlat:
		backend = vector.NewFlat()
	case BackendHNSW:
		backend = vector.NewHNSW(cfg.EfSearch)
	case BackendSQLiteVec:
		sv, err := a.sqliteVec(ctx)
		if err != nil {
			a.logger.Error("similarity index: sqlite-vec unavailable, falling back to an in-memory index",
				slog.String("error", err.Error()))
			return vector.NewIndex(vector.NewFlat(),
				vector.WithLogger(a.logger),
				vector.WithPersistTimeout(cfg.PersistTimeout),
				vector.WithDegraded()), nil
		}
		backend = sv
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	opts := []vector.IndexOption{
		vector.WithLogger(a.logger),
		vector.WithKey(cfg.Key),
		vector.WithPersistTimeout(cfg.PersistTimeout),
	}
	switch cfg.Snapshot {
	case SnapshotStore:
		opts = append(opts, vector.WithBlobStore(store.Blobs(a.store)))
	case SnapshotFS:
		blobs, err := dirBlobStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vector.WithBlobStore(blobs))
	}
	return vector.NewIndex(backend, opts...), nil
}

func (a *App) sqliteVec(ctx context.Context) (*vector.SQLiteVec, error) {
	db, ok := a.store.(interface{ DB() *sql.DB })
	if !ok {
		return nil, errors.New("sqlite-vec backend needs a SQLite store")
	}
	return vector.NewSQLiteVec(ctx, db.DB())
}

// dirBlobStore roots a blob store at an OS directory.
func dirBlobStore(dir string) (*vector.FSBlobStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	// The OS file system is rooted at "/" and takes unrooted paths.
	return vector.NewFSBlobStore(osfs.NewFS(), strings.TrimPrefix(filepath.ToSlash(abs), "/")), nil
}

// Close waits for pending snapshot writes and releases the store.
func (a *App) Close() error {
	if a.index != nil {
		a.index.Wait()
	}
	return a.closeStore()
}

func (a *App) closeStore() error {
	if a.store == nil || a.borrowed {
		return nil
	}
	return a.store.Close()
}

// Config returns the active configuration.
func (a *App) Config() *Config { return a.config }

// Store returns the workspace store.
func (a *App) Store() store.Storer { return a.store }

// Graph returns the knowledge graph.
func (a *App) Graph() *knowledge.Graph { return a.graph }

// Index returns the similarity index.
func (a *App) Index() *vector.Index { return a.index }

// LastReport returns the report of the most recent rebuild.
func (a *App) LastReport() knowledge.Report { return a.report }

// Rebuild reloads the configured cluster from the store into the graph.
func (a *App) Rebuild() (knowledge.Report, error) {
	notes, folders, err := store.Load(a.store, a.config.Store.Cluster)
	if err != nil {
		return knowledge.Report{}, fmt.Errorf("load workspace: %w", err)
	}
	a.report = a.graph.Rebuild(notes, folders)
	return a.report, nil
}
