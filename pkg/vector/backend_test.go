package vector

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

type backendFactory func(t *testing.T) Backend

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"Flat": func(t *testing.T) Backend { return NewFlat() },
		"HNSW": func(t *testing.T) Backend { return NewHNSW(0) },
		"SQLiteVec": func(t *testing.T) Backend {
			db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "vec.db"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })

			b, err := NewSQLiteVec(context.Background(), db)
			require.NoError(t, err)
			return b
		},
	}
}

// runForAllBackends runs fn against every backend implementation.
func runForAllBackends(t *testing.T, fn func(t *testing.T, b Backend)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func seed(t *testing.T, b Backend) {
	ctx := context.Background()
	require.NoError(t, b.Upsert(ctx, "n1", []float32{0.1, 0.2, 0.3, 0.0}))
	require.NoError(t, b.Upsert(ctx, "n2", []float32{0.9, 0.8, 0.9, 0.0}))
	require.NoError(t, b.Upsert(ctx, "n3", []float32{0.1, 0.21, 0.31, 0.0}))
}

func TestBackendRanksExactMatchFirst(t *testing.T) {
	runForAllBackends(t, func(t *testing.T, b Backend) {
		seed(t, b)

		hits, err := b.Search(context.Background(), []float32{0.1, 0.2, 0.3, 0.0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)

		assert.Equal(t, "n1", hits[0].NoteID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-4)
		assert.Equal(t, "n3", hits[1].NoteID)
		assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	})
}

func TestBackendUpsertReplaces(t *testing.T) {
	runForAllBackends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		seed(t, b)

		require.NoError(t, b.Upsert(ctx, "n2", []float32{0.1, 0.2, 0.3, 0.0}))
		assert.Equal(t, 3, b.Len())

		hits, err := b.Search(ctx, []float32{0.9, 0.8, 0.9, 0.0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.NotEqual(t, "n2", hits[0].NoteID)
	})
}

func TestBackendOddDimensions(t *testing.T) {
	for _, dim := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("dim%d", dim), func(t *testing.T) {
			runForAllBackends(t, func(t *testing.T, b Backend) {
				ctx := context.Background()

				a := make([]float32, dim)
				c := make([]float32, dim)
				a[0], c[dim-1] = 1, 1

				require.NoError(t, b.Upsert(ctx, "a", a))
				require.NoError(t, b.Upsert(ctx, "c", c))

				hits, err := b.Search(ctx, c, 2)
				require.NoError(t, err)
				require.Len(t, hits, 2)
				assert.Equal(t, "c", hits[0].NoteID)
				assert.InDelta(t, 1.0, hits[0].Score, 1e-4)
				assert.InDelta(t, 0.0, hits[1].Score, 1e-4)
			})
		})
	}
}

func TestHNSWReplacedVectorsDoNotShortenResults(t *testing.T) {
	ctx := context.Background()
	h := NewHNSW(0)

	require.NoError(t, h.Upsert(ctx, "n1", []float32{0, 0, 1}))
	require.NoError(t, h.Upsert(ctx, "n2", []float32{1, 0, 0}))
	require.NoError(t, h.Upsert(ctx, "n3", []float32{0.95, 0.1, 0.2}))
	require.NoError(t, h.Upsert(ctx, "n2", []float32{0, 0, 1}))

	for k := 1; k <= 4; k++ {
		hits, err := h.Search(ctx, []float32{1, 0, 0}, k)
		require.NoError(t, err)
		assert.Len(t, hits, min(k, h.Len()), "k=%d", k)
	}
}

func TestBackendRemove(t *testing.T) {
	runForAllBackends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		seed(t, b)

		removed, err := b.Remove(ctx, "n1")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = b.Remove(ctx, "n1")
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, 2, b.Len())

		hits, err := b.Search(ctx, []float32{0.1, 0.2, 0.3, 0.0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.NotEqual(t, "n1", h.NoteID)
		}
	})
}

func TestBackendDimensionMismatch(t *testing.T) {
	runForAllBackends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		seed(t, b)

		assert.ErrorIs(t, b.Upsert(ctx, "bad", []float32{1, 2}), ErrDimensionMismatch)
		_, err := b.Search(ctx, []float32{1, 2}, 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.ErrorIs(t, b.Upsert(ctx, "empty", nil), ErrEmptyVector)
	})
}

func TestBackendEmptySearch(t *testing.T) {
	runForAllBackends(t, func(t *testing.T, b Backend) {
		hits, err := b.Search(context.Background(), []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
		assert.Equal(t, 0, b.Len())
	})
}

func TestSQLiteVecReopenKeepsDimension(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vec.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	b, err := NewSQLiteVec(ctx, db)
	require.NoError(t, err)
	seed(t, b)
	require.NoError(t, db.Close())

	db, err = sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	reopened, err := NewSQLiteVec(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Len())
	assert.ErrorIs(t, reopened.Upsert(ctx, "bad", []float32{1}), ErrDimensionMismatch)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))

	n := Normalized([]float32{3, 4})
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)
}
