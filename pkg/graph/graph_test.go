package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func note(id, title string) Node {
	return Node{ID: id, Type: NodeNote, Title: title}
}

func TestGraphBasics(t *testing.T) {
	g := New()

	g.UpsertNode(note("frodo", "Frodo Baggins"))
	g.UpsertNode(note("sam", "Samwise Gamgee"))
	g.UpsertNode(Node{ID: "shire", Type: NodeFolder, Title: "The Shire"})

	if g.NodeCount() != 3 {
		t.Errorf("NodeCount = %d, want 3", g.NodeCount())
	}

	g.UpsertEdge(Edge{Source: "frodo", Target: "sam", Type: EdgeLink, Relationship: "Mentions"})
	g.UpsertEdge(Edge{Source: "shire", Target: "frodo", Type: EdgeContains})

	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount = %d, want 2", g.EdgeCount())
	}

	neighbors := g.Neighbors("frodo", Both)
	if len(neighbors) != 2 {
		t.Errorf("Frodo neighbors = %d, want 2", len(neighbors))
	}
	assert.Equal(t, "sam", g.Neighbors("frodo", Outgoing)[0].ID)
	assert.Equal(t, "shire", g.Neighbors("frodo", Incoming)[0].ID)
	assert.Empty(t, g.Neighbors("frodo", Outgoing, EdgeTag))
}

func TestUpsertNodeMerges(t *testing.T) {
	g := New()
	g.UpsertNode(Node{ID: "n", Type: NodeNote, Title: "Old", Path: "/a", Attributes: map[string]any{"x": 1}})
	merged := g.UpsertNode(Node{ID: "n", Title: "New", Attributes: map[string]any{"y": 2}})

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, "New", merged.Title)
	assert.Equal(t, "/a", merged.Path)
	assert.Equal(t, NodeNote, merged.Type)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, merged.Attributes)
	assert.Nil(t, g.UpsertNode(Node{Title: "no id"}))
}

func TestUpsertEdgeRejectsInvalid(t *testing.T) {
	g := New()
	g.UpsertNode(note("a", "A"))

	_, ok := g.UpsertEdge(Edge{Source: "a", Target: "a", Type: EdgeLink})
	assert.False(t, ok, "self-loop")

	_, ok = g.UpsertEdge(Edge{Source: "a", Target: "ghost", Type: EdgeLink})
	assert.False(t, ok, "missing target")

	_, ok = g.UpsertEdge(Edge{Source: "ghost", Target: "a", Type: EdgeLink})
	assert.False(t, ok, "missing source")

	assert.Equal(t, 0, g.EdgeCount())
}

func TestUpsertEdgeOnePerType(t *testing.T) {
	g := New()
	g.UpsertNode(note("a", "A"))
	g.UpsertNode(note("b", "B"))

	g.UpsertEdge(Edge{Source: "a", Target: "b", Type: EdgeLink, Relationship: "Mentions"})
	e, ok := g.UpsertEdge(Edge{Source: "a", Target: "b", Type: EdgeLink, Relationship: "Supports"})
	require.True(t, ok)
	assert.Equal(t, "Supports", e.Relationship)
	assert.Equal(t, 1, g.EdgeCount())

	g.UpsertEdge(Edge{Source: "a", Target: "b", Type: EdgeConcept})
	assert.Equal(t, 2, g.EdgeCount())
	assert.True(t, g.HasEdge("a", "b", EdgeConcept))
	assert.Len(t, g.OutgoingEdges("a", EdgeLink), 1)
	assert.Len(t, g.IncomingEdges("b"), 2)
}

func TestRemoveNodeDropsEdges(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.UpsertNode(note(id, id))
	}
	g.UpsertEdge(Edge{Source: "a", Target: "b", Type: EdgeLink})
	g.UpsertEdge(Edge{Source: "b", Target: "c", Type: EdgeLink})

	assert.True(t, g.RemoveNode("b"))
	assert.False(t, g.RemoveNode("b"))
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.Inbound["c"])
	assert.Empty(t, g.Outbound["a"])

	assert.False(t, g.RemoveEdge("a", "c", EdgeLink))
}

func TestUnknownIDsAreEmpty(t *testing.T) {
	g := New()
	assert.Nil(t, g.Node("nope"))
	assert.Empty(t, g.Neighbors("nope", Both))
	assert.Empty(t, g.OutgoingEdges("nope"))
	assert.Empty(t, g.IncomingEdges("nope"))
}

func TestOrphanNodes(t *testing.T) {
	g := New()

	g.UpsertNode(note("connected", "Connected"))
	g.UpsertNode(note("orphan", "Orphan"))
	g.UpsertNode(note("target", "Target"))

	g.UpsertEdge(Edge{Source: "connected", Target: "target", Type: EdgeLink})

	orphans := g.OrphanNodes()
	if len(orphans) != 1 {
		t.Fatalf("Orphan count = %d, want 1", len(orphans))
	}
	if orphans[0].ID != "orphan" {
		t.Errorf("Orphan ID = %s, want 'orphan'", orphans[0].ID)
	}
}

func TestDegreeCentrality(t *testing.T) {
	g := New()

	for _, id := range []string{"hub", "a", "b", "c"} {
		g.UpsertNode(note(id, id))
	}

	// Hub connects to all
	g.UpsertEdge(Edge{Source: "hub", Target: "a", Type: EdgeLink})
	g.UpsertEdge(Edge{Source: "hub", Target: "b", Type: EdgeLink})
	g.UpsertEdge(Edge{Source: "hub", Target: "c", Type: EdgeLink})

	centrality := g.DegreeCentrality()

	if centrality["hub"] <= centrality["a"] {
		t.Error("Hub should have higher centrality than leaf nodes")
	}
	assert.InDelta(t, 0.5, centrality["hub"], 1e-9)
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New()
	g.UpsertNode(Node{ID: "f", Type: NodeFolder, Title: "Root", Path: "/"})
	g.UpsertNode(Node{ID: "n", Type: NodeNote, Title: "Intro", Tags: []string{"x"}})
	g.UpsertNode(Node{ID: "tag:x", Type: NodeTag, Title: "x"})
	g.UpsertEdge(Edge{Source: "f", Target: "n", Type: EdgeContains})
	g.UpsertEdge(Edge{Source: "n", Target: "tag:x", Type: EdgeTag})

	data, err := json.Marshal(g)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, g.Snapshot(), restored.Snapshot())

	again, err := json.Marshal(restored)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestRestoreDropsDanglingEdges(t *testing.T) {
	g := New()
	dropped := g.Restore(Snapshot{
		Nodes: []*Node{{ID: "a", Type: NodeNote}, {ID: "b", Type: NodeNote}},
		Edges: []*Edge{
			{Source: "a", Target: "b", Type: EdgeLink},
			{Source: "a", Target: "missing", Type: EdgeLink},
			{Source: "b", Target: "b", Type: EdgeLink},
		},
	})

	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	g := New()
	assert.Error(t, json.Unmarshal([]byte(`{"nodes": 5}`), g))
}
