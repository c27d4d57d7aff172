package vector

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sort"
)

// Flat is an exact index: every search scores every vector.
type Flat struct {
	dim  int
	vecs map[string][]float32
}

var (
	_ Backend     = (*Flat)(nil)
	_ Snapshotter = (*Flat)(nil)
)

// NewFlat creates an empty exact index.
func NewFlat() *Flat {
	return &Flat{vecs: make(map[string][]float32)}
}

func (f *Flat) Upsert(_ context.Context, id string, vec []float32) error {
	if err := checkDim(f.dim, vec); err != nil {
		return err
	}
	f.dim = len(vec)

	stored := make([]float32, len(vec))
	copy(stored, vec)
	f.vecs[id] = stored
	return nil
}

func (f *Flat) Remove(_ context.Context, id string) (bool, error) {
	if _, ok := f.vecs[id]; !ok {
		return false, nil
	}
	delete(f.vecs, id)
	return true, nil
}

func (f *Flat) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(f.vecs) == 0 {
		return nil, nil
	}
	if err := checkDim(f.dim, query); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(f.vecs))
	for id, v := range f.vecs {
		hits = append(hits, Hit{NoteID: id, Score: CosineSimilarity(query, v)})
	}
	return rank(hits, k), nil
}

func (f *Flat) Len() int {
	return len(f.vecs)
}

type flatBlob struct {
	Dim  int
	IDs  []string
	Vecs [][]float32
}

// MarshalBinary encodes the index with gob, ids in sorted order.
func (f *Flat) MarshalBinary() ([]byte, error) {
	blob := flatBlob{Dim: f.dim, IDs: make([]string, 0, len(f.vecs))}
	for id := range f.vecs {
		blob.IDs = append(blob.IDs, id)
	}
	sort.Strings(blob.IDs)
	for _, id := range blob.IDs {
		blob.Vecs = append(blob.Vecs, f.vecs[id])
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(blob); err != nil {
		return nil, fmt.Errorf("failed to encode flat index: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *Flat) UnmarshalBinary(data []byte) error {
	var blob flatBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&blob); err != nil {
		return fmt.Errorf("failed to decode flat index: %w", err)
	}
	if len(blob.IDs) != len(blob.Vecs) {
		return fmt.Errorf("failed to decode flat index: %d ids for %d vectors", len(blob.IDs), len(blob.Vecs))
	}

	vecs := make(map[string][]float32, len(blob.IDs))
	for i, id := range blob.IDs {
		if len(blob.Vecs[i]) != blob.Dim {
			return fmt.Errorf("failed to decode flat index: %w for %q", ErrDimensionMismatch, id)
		}
		vecs[id] = blob.Vecs[i]
	}

	f.dim = blob.Dim
	f.vecs = vecs
	return nil
}
