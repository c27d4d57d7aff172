package vector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultPersistTimeout bounds a background persist.
const DefaultPersistTimeout = 10 * time.Second

// Index wraps a Backend with a restore/persist lifecycle. It is safe for
// concurrent use.
//
// Until Open completes, writes are dropped with a warning and searches
// return no hits. A failed restore leaves an empty, working index.
type Index struct {
	backend        Backend
	blobs          BlobStore
	key            string
	logger         *slog.Logger
	persistTimeout time.Duration

	mu       sync.RWMutex
	ready    bool
	degraded bool

	// persistMu orders snapshot writes so the last write is the newest.
	persistMu sync.Mutex
	pending   sync.WaitGroup
}

// IndexOption is a functional option for configuring an Index.
type IndexOption func(*Index)

// WithBlobStore sets where snapshots of in-memory backends are kept.
func WithBlobStore(b BlobStore) IndexOption {
	return func(x *Index) {
		x.blobs = b
	}
}

// WithKey overrides DefaultKey.
func WithKey(key string) IndexOption {
	return func(x *Index) {
		if key != "" {
			x.key = key
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) IndexOption {
	return func(x *Index) {
		if l != nil {
			x.logger = l
		}
	}
}

// WithPersistTimeout bounds PersistAsync.
func WithPersistTimeout(d time.Duration) IndexOption {
	return func(x *Index) {
		if d > 0 {
			x.persistTimeout = d
		}
	}
}

// WithDegraded marks the index as running on a fallback backend from the
// start, as when the configured backend could not be initialized.
func WithDegraded() IndexOption {
	return func(x *Index) {
		x.degraded = true
	}
}

// NewIndex wraps backend. Call Open before use.
func NewIndex(backend Backend, opts ...IndexOption) *Index {
	x := &Index{
		backend:        backend,
		key:            DefaultKey,
		logger:         slog.Default(),
		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Open restores the backend from its blob, if it has one. An absent blob
// means an empty index. Restore failures are logged and leave the index
// empty but usable; Open itself only fails when ctx is done.
func (x *Index) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.ready {
		return nil
	}

	if snap, ok := x.backend.(Snapshotter); ok && x.blobs != nil {
		data, err := x.blobs.Get(ctx, x.key)
		switch {
		case errors.Is(err, ErrNotFound):
			x.logger.Info("similarity index: no snapshot, starting empty", slog.String("key", x.key))
		case err != nil:
			x.degraded = true
			x.logger.Error("similarity index: restore failed, starting empty",
				slog.String("key", x.key),
				slog.String("error", err.Error()))
		default:
			if err := snap.UnmarshalBinary(data); err != nil {
				x.degraded = true
				x.logger.Error("similarity index: snapshot unreadable, starting empty",
					slog.String("key", x.key),
					slog.String("error", err.Error()))
			}
		}
	}

	x.ready = true
	x.logger.Info("similarity index ready", slog.Int("vectors", x.backend.Len()))
	return nil
}

// Ready reports whether Open has completed.
func (x *Index) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ready
}

// Degraded reports whether Open had to discard a snapshot.
func (x *Index) Degraded() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.degraded
}

// Len returns the number of vectors, zero before Open.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if !x.ready {
		return 0
	}
	return x.backend.Len()
}

// Upsert stores the embedding of a note.
func (x *Index) Upsert(ctx context.Context, noteID string, vec []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.ready {
		x.logger.Warn("similarity index not ready, dropping upsert", slog.String("note_id", noteID))
		return nil
	}
	return x.backend.Upsert(ctx, noteID, vec)
}

// Remove deletes the embedding of a note, reporting whether it existed.
func (x *Index) Remove(ctx context.Context, noteID string) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.ready {
		x.logger.Warn("similarity index not ready, dropping remove", slog.String("note_id", noteID))
		return false, nil
	}
	return x.backend.Remove(ctx, noteID)
}

// Search returns up to k notes most similar to query.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.ready {
		return nil, nil
	}
	return x.backend.Search(ctx, query, k)
}

// Persist writes a snapshot of an in-memory backend. Durable backends and
// indexes without a blob store have nothing to write.
func (x *Index) Persist(ctx context.Context) error {
	snap, ok := x.backend.(Snapshotter)
	if !ok || x.blobs == nil {
		return nil
	}

	x.persistMu.Lock()
	defer x.persistMu.Unlock()

	x.mu.RLock()
	if !x.ready {
		x.mu.RUnlock()
		return nil
	}
	data, err := snap.MarshalBinary()
	x.mu.RUnlock()
	if err != nil {
		return err
	}

	return x.blobs.Put(ctx, x.key, data)
}

// PersistAsync persists in the background. Failures are logged.
func (x *Index) PersistAsync() {
	x.pending.Add(1)
	go func() {
		defer x.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), x.persistTimeout)
		defer cancel()

		if err := x.Persist(ctx); err != nil {
			x.logger.Warn("similarity index persist failed",
				slog.String("key", x.key),
				slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until background persists have finished.
func (x *Index) Wait() {
	x.pending.Wait()
}
