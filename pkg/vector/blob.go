package vector

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/hack-pad/hackpadfs"
)

// DefaultKey is the blob key the similarity index is persisted under.
const DefaultKey = "similarity.idx"

// BlobStore is durable key-value storage for index snapshots.
// Get returns ErrNotFound for an absent key.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// FSBlobStore keeps blobs as files under one directory of a hackpadfs
// file system: the OS in the CLI, IndexedDB in the browser, memory in tests.
type FSBlobStore struct {
	FS  hackpadfs.FS
	Dir string
}

var _ BlobStore = (*FSBlobStore)(nil)

// NewFSBlobStore creates a blob store rooted at dir. An empty dir means
// the file system root.
func NewFSBlobStore(fs hackpadfs.FS, dir string) *FSBlobStore {
	if dir == "" {
		dir = "."
	}
	return &FSBlobStore{FS: fs, Dir: dir}
}

func (s *FSBlobStore) path(key string) string {
	return path.Join(s.Dir, key)
}

func (s *FSBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := hackpadfs.ReadFile(s.FS, s.path(key))
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return data, nil
}

func (s *FSBlobStore) Put(_ context.Context, key string, data []byte) error {
	if s.Dir != "." {
		if err := hackpadfs.MkdirAll(s.FS, s.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create blob dir: %w", err)
		}
	}
	if err := hackpadfs.WriteFullFile(s.FS, s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	return nil
}

func (s *FSBlobStore) Delete(_ context.Context, key string) error {
	err := hackpadfs.Remove(s.FS, s.path(key))
	if err != nil && !errors.Is(err, hackpadfs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %q: %w", key, err)
	}
	return nil
}
