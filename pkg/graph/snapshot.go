package graph

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the portable form of a graph: nodes and edges as flat lists.
type Snapshot struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Snapshot captures the graph in deterministic order
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{
		Nodes: g.AllNodes(),
		Edges: g.AllEdges(),
	}
}

// Restore replaces the graph contents with s. Edges that would dangle or
// self-loop are dropped; the number dropped is returned.
func (g *Graph) Restore(s Snapshot) int {
	g.Clear()
	for _, n := range s.Nodes {
		if n != nil {
			g.UpsertNode(*n)
		}
	}

	dropped := 0
	for _, e := range s.Edges {
		if e == nil {
			dropped++
			continue
		}
		if _, ok := g.UpsertEdge(*e); !ok {
			dropped++
		}
	}
	return dropped
}

// MarshalJSON encodes the graph as a Snapshot
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Snapshot())
}

// UnmarshalJSON decodes a Snapshot into the graph, replacing its contents
func (g *Graph) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode graph snapshot: %w", err)
	}
	g.Restore(s)
	return nil
}
