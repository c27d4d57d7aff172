// Package vector provides the note similarity index: swappable
// nearest-neighbour backends behind a lifecycle wrapper that restores from
// and persists to a durable blob.
package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the dimension the index was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyVector is returned for zero-length vectors.
	ErrEmptyVector = errors.New("empty vector")
	// ErrNotFound is returned by a BlobStore for an absent key.
	ErrNotFound = errors.New("blob not found")
)

// Hit is one search result.
type Hit struct {
	NoteID string  `json:"noteId"`
	Score  float64 `json:"score"`
}

// Backend is a nearest-neighbour index over note embeddings.
// Implementations are not safe for concurrent use; Index serializes access.
type Backend interface {
	// Upsert inserts or replaces the vector of a note.
	Upsert(ctx context.Context, id string, vec []float32) error
	// Remove deletes a note's vector, reporting whether it existed.
	Remove(ctx context.Context, id string) (bool, error)
	// Search returns up to k hits ordered by descending cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Len returns the number of live vectors.
	Len() int
}

// Snapshotter is implemented by in-memory backends that persist as a blob.
// UnmarshalBinary must leave the backend untouched on error.
type Snapshotter interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns 0.0 if dimensions mismatch or either vector is zero-length.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	dotProduct := 0.0
	normA := 0.0
	normB := 0.0

	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalized returns a unit-length copy of v. Zero vectors are copied as is.
func Normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	sumSq := 0.0
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return out
	}

	norm := math.Sqrt(sumSq)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// checkDim validates vec against an index dimension; zero means unset.
func checkDim(dim int, vec []float32) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}
	if dim != 0 && len(vec) != dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(vec))
	}
	return nil
}

// rank orders hits by descending score, ties by note id, and keeps k.
func rank(hits []Hit, k int) []Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].NoteID < hits[j].NoteID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
