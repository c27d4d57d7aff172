package vector

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	kvector "github.com/kshard/vector"
)

// DefaultEfSearch is the default size of the HNSW candidate list.
const DefaultEfSearch = 100

// HNSW is an approximate index over a hierarchical navigable small world
// graph. The graph does not support deletion, so removed and replaced
// vectors are tombstoned and filtered out of results.
type HNSW struct {
	efSearch int
	dim      int

	index *hnsw.HNSW[vector.VF32]
	keys  map[string]uint32    // note id -> live key
	ids   map[uint32]string    // live key -> note id
	vecs  map[string][]float32 // note id -> live vector, for exact fallback
	next  uint32

	// Keys of vectors no longer live
	tombstones *roaring.Bitmap
}

var (
	_ Backend     = (*HNSW)(nil)
	_ Snapshotter = (*HNSW)(nil)
)

// NewHNSW creates an empty approximate index. efSearch trades accuracy for
// speed; values below 1 select DefaultEfSearch.
func NewHNSW(efSearch int) *HNSW {
	if efSearch < 1 {
		efSearch = DefaultEfSearch
	}
	return &HNSW{
		efSearch:   efSearch,
		index:      newGraph(),
		keys:       make(map[string]uint32),
		ids:        make(map[uint32]string),
		vecs:       make(map[string][]float32),
		tombstones: roaring.New(),
	}
}

func newGraph() *hnsw.HNSW[vector.VF32] {
	return hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine()))
}

// EfSearch returns the candidate list size used by Search.
func (h *HNSW) EfSearch() int {
	return h.efSearch
}

func (h *HNSW) Upsert(_ context.Context, id string, vec []float32) error {
	if err := checkDim(h.dim, vec); err != nil {
		return err
	}
	h.dim = len(vec)

	if old, ok := h.keys[id]; ok {
		h.tombstones.Add(old)
		delete(h.ids, old)
	}

	key := h.next
	h.next++

	stored := make([]float32, len(vec))
	copy(stored, vec)
	h.index.Insert(vector.VF32{Key: key, Vec: padded(stored)})

	h.keys[id] = key
	h.ids[key] = id
	h.vecs[id] = stored
	return nil
}

// padded zero-extends v to a multiple of 4, the lane width of the cosine
// kernel. Zero components leave cosine similarity unchanged.
func padded(v []float32) []float32 {
	if len(v)%4 == 0 {
		return v
	}
	out := make([]float32, len(v)+4-len(v)%4)
	copy(out, v)
	return out
}

func (h *HNSW) Remove(_ context.Context, id string) (bool, error) {
	key, ok := h.keys[id]
	if !ok {
		return false, nil
	}
	h.tombstones.Add(key)
	delete(h.keys, id)
	delete(h.ids, key)
	delete(h.vecs, id)
	return true, nil
}

func (h *HNSW) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(h.keys) == 0 {
		return nil, nil
	}
	if err := checkDim(h.dim, query); err != nil {
		return nil, err
	}

	// Over-fetch so tombstoned results cannot starve the live ones.
	fetch := k + int(h.tombstones.GetCardinality())
	ef := h.efSearch
	if ef < fetch {
		ef = fetch
	}

	results := h.index.Search(vector.VF32{Vec: padded(query)}, fetch, ef)

	hits := make([]Hit, 0, k)
	for _, r := range results {
		if h.tombstones.Contains(r.Key) {
			continue
		}
		id, ok := h.ids[r.Key]
		if !ok {
			continue
		}
		hits = append(hits, Hit{NoteID: id, Score: CosineSimilarity(query, h.vecs[id])})
	}

	// The graph walk can miss live vectors reachable only through
	// tombstoned ones; fall back to an exact scan when short.
	if want := min(k, len(h.keys)); len(hits) < want {
		hits = h.exact(query)
	}
	return rank(hits, k), nil
}

func (h *HNSW) exact(query []float32) []Hit {
	hits := make([]Hit, 0, len(h.vecs))
	for id, v := range h.vecs {
		hits = append(hits, Hit{NoteID: id, Score: CosineSimilarity(query, v)})
	}
	return hits
}

func (h *HNSW) Len() int {
	return len(h.keys)
}

// Tombstones returns the number of dead vectors still held by the graph.
func (h *HNSW) Tombstones() int {
	return int(h.tombstones.GetCardinality())
}

type hnswHeader struct {
	Dim        int
	Next       uint32
	Keys       map[string]uint32
	Vecs       map[string][]float32
	Tombstones []byte
	HasNodes   bool
}

// MarshalBinary encodes the key map, the tombstones and the graph nodes.
func (h *HNSW) MarshalBinary() ([]byte, error) {
	tomb, err := h.tombstones.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode tombstones: %w", err)
	}

	header := hnswHeader{
		Dim:        h.dim,
		Next:       h.next,
		Keys:       h.keys,
		Vecs:       h.vecs,
		Tombstones: tomb,
		HasNodes:   h.index.Size() > 0,
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("failed to encode index header: %w", err)
	}
	if header.HasNodes {
		if err := enc.Encode(h.index.Nodes()); err != nil {
			return nil, fmt.Errorf("failed to encode index: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func (h *HNSW) UnmarshalBinary(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))

	var header hnswHeader
	if err := dec.Decode(&header); err != nil {
		return fmt.Errorf("failed to decode index header: %w", err)
	}

	tombstones := roaring.New()
	if len(header.Tombstones) > 0 {
		if err := tombstones.UnmarshalBinary(header.Tombstones); err != nil {
			return fmt.Errorf("failed to decode tombstones: %w", err)
		}
	}

	index := newGraph()
	if header.HasNodes {
		var nodes hnsw.Nodes[vector.VF32]
		if err := dec.Decode(&nodes); err != nil {
			return fmt.Errorf("failed to decode index: %w", err)
		}
		// Rehydrate
		index = hnsw.FromNodes[vector.VF32](vector.SurfaceVF32(kvector.Cosine()), nodes)
	}

	keys := header.Keys
	if keys == nil {
		keys = make(map[string]uint32)
	}
	ids := make(map[uint32]string, len(keys))
	for id, key := range keys {
		ids[key] = id
	}
	vecs := header.Vecs
	if vecs == nil {
		vecs = make(map[string][]float32)
	}
	if len(vecs) != len(keys) {
		return fmt.Errorf("failed to decode index: %d keys but %d vectors", len(keys), len(vecs))
	}

	h.dim = header.Dim
	h.next = header.Next
	h.keys = keys
	h.ids = ids
	h.vecs = vecs
	h.tombstones = tombstones
	h.index = index
	return nil
}
