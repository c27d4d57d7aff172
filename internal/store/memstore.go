package store

import (
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Storer for testing.
type MemStore struct {
	mu       sync.RWMutex
	folders  map[string]*Folder
	notes    map[string]*Note
	clusters map[string]*Cluster
	blobs    map[string][]byte
}

var _ Storer = (*MemStore)(nil)

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		folders:  make(map[string]*Folder),
		notes:    make(map[string]*Note),
		clusters: make(map[string]*Cluster),
		blobs:    make(map[string][]byte),
	}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error {
	return nil
}

// =============================================================================
// Folders
// =============================================================================

func (s *MemStore) UpsertFolder(folder *Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *folder
	s.folders[folder.ID] = &cp
	return nil
}

func (s *MemStore) GetFolder(id string) (*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, ok := s.folders[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

func (s *MemStore) DeleteFolder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.folders, id)
	return nil
}

func (s *MemStore) ListFolders(clusterID string) ([]*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Folder
	for _, f := range s.folders {
		if clusterID == "" || f.ClusterID == clusterID {
			cp := *f
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =============================================================================
// Notes
// =============================================================================

func (s *MemStore) UpsertNote(note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *note
	cp.Tags = append([]string(nil), note.Tags...)
	s.notes[note.ID] = &cp
	return nil
}

func (s *MemStore) GetNote(id string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n, ok := s.notes[id]; ok {
		cp := *n
		cp.Tags = append([]string(nil), n.Tags...)
		return &cp, nil
	}
	return nil, nil
}

func (s *MemStore) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.notes, id)
	return nil
}

func (s *MemStore) ListNotes(clusterID string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Note
	for _, n := range s.notes {
		if clusterID == "" || n.ClusterID == clusterID {
			cp := *n
			cp.Tags = append([]string(nil), n.Tags...)
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemStore) CountNotes() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes), nil
}

// =============================================================================
// Clusters
// =============================================================================

func (s *MemStore) UpsertCluster(cluster *Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *cluster
	s.clusters[cluster.ID] = &cp
	return nil
}

func (s *MemStore) ListClusters() ([]*Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Cluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// Blobs
// =============================================================================

func (s *MemStore) PutBlob(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemStore) GetBlob(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.blobs[key]; ok {
		return append([]byte{}, b...), nil
	}
	return nil, nil
}

func (s *MemStore) DeleteBlob(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}
