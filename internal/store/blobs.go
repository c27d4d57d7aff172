package store

import (
	"context"

	"github.com/kittclouds/galaxy/pkg/vector"
)

// BlobStore adapts a Storer's blob table to vector.BlobStore.
type BlobStore struct {
	s Storer
}

var _ vector.BlobStore = (*BlobStore)(nil)

// Blobs returns a vector.BlobStore backed by s.
func Blobs(s Storer) *BlobStore {
	return &BlobStore{s: s}
}

func (b *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := b.s.GetBlob(key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, vector.ErrNotFound
	}
	return data, nil
}

func (b *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.s.PutBlob(key, data)
}

func (b *BlobStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.s.DeleteBlob(key)
}
