package knowledge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kittclouds/galaxy/pkg/graph"
	"github.com/kittclouds/galaxy/pkg/resolver"
)

// document is the JSON interchange form. Titles pins which note owns each
// title so duplicate titles resolve the same way after a round trip.
type document struct {
	graph.Snapshot
	Titles map[string]string `json:"titles,omitempty"`
}

// ToJSON encodes the graph as {"nodes": [...], "edges": [...], "titles": {...}}
// in a deterministic order.
func (g *Graph) ToJSON() ([]byte, error) {
	s := g.snapshot()
	data, err := json.Marshal(document{
		Snapshot: s.store.Snapshot(),
		Titles:   s.index.Winners(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}
	return data, nil
}

// FromJSON replaces the graph with a decoded one. The title index comes from
// the titles table when present, otherwise from the restored note nodes in id
// order. Edges with a missing endpoint are dropped. On error the current
// graph is left untouched.
func (g *Graph) FromJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode graph: %w", err)
	}

	s := emptyState()
	if dropped := s.store.Restore(doc.Snapshot); dropped > 0 {
		g.logger.Warn("dropped invalid edges on import", slog.Int("count", dropped))
	}
	s.index.Build(titleEntries(s.store, doc.Titles))
	s.built = true

	g.swap(s)
	g.logger.Info("graph imported",
		slog.Int("nodes", s.store.NodeCount()),
		slog.Int("edges", s.store.EdgeCount()))
	return nil
}

func titleEntries(store *graph.Graph, titles map[string]string) []resolver.Entry {
	if len(titles) == 0 {
		notes := store.NodesOfType(graph.NodeNote)
		entries := make([]resolver.Entry, 0, len(notes))
		for _, n := range notes {
			entries = append(entries, resolver.Entry{Title: n.Title, ID: n.ID})
		}
		return entries
	}

	keys := make([]string, 0, len(titles))
	for t := range titles {
		keys = append(keys, t)
	}
	sort.Strings(keys)

	entries := make([]resolver.Entry, 0, len(keys))
	for _, t := range keys {
		n := store.Node(titles[t])
		if n == nil || n.Type != graph.NodeNote {
			continue
		}
		entries = append(entries, resolver.Entry{Title: t, ID: n.ID})
	}
	return entries
}
