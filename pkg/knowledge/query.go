package knowledge

import (
	"sort"

	"github.com/kittclouds/galaxy/pkg/graph"
	"github.com/kittclouds/galaxy/pkg/resolver"
)

// LinkedNode pairs a linked note with the relationship of the link.
type LinkedNode struct {
	Node         *graph.Node `json:"node"`
	Relationship string      `json:"relationship"`
}

// FolderContents lists the direct children of a folder.
type FolderContents struct {
	Folders []*graph.Node `json:"folders"`
	Notes   []*graph.Node `json:"notes"`
}

// ConnectionKind names a group of auxiliary nodes around a note.
type ConnectionKind string

const (
	ConnectionTag     ConnectionKind = "tag"
	ConnectionConcept ConnectionKind = "concept"
	ConnectionMention ConnectionKind = "mention"
)

var connectionEdges = map[graph.EdgeType]ConnectionKind{
	graph.EdgeTag:     ConnectionTag,
	graph.EdgeConcept: ConnectionConcept,
	graph.EdgeMention: ConnectionMention,
}

// Statement is a triple asserted by a note.
type Statement struct {
	ID        string      `json:"id"`
	Subject   *graph.Node `json:"subject"`
	Predicate string      `json:"predicate"`
	Object    *graph.Node `json:"object"`
}

// Ranked is a node with a score.
type Ranked struct {
	Node  *graph.Node `json:"node"`
	Score float64     `json:"score"`
}

// Stats describes the current graph.
type Stats struct {
	Nodes    int                    `json:"nodes"`
	Edges    int                    `json:"edges"`
	Titles   int                    `json:"titles"`
	Isolated int                    `json:"isolated"`
	ByNode   map[graph.NodeType]int `json:"byNode"`
	ByEdge   map[graph.EdgeType]int `json:"byEdge"`
}

// OutgoingLinks returns the notes noteID links to.
func (g *Graph) OutgoingLinks(noteID string) []LinkedNode {
	s := g.snapshot()
	var out []LinkedNode
	for _, e := range s.store.OutgoingEdges(noteID, graph.EdgeLink) {
		if n := s.store.Node(e.Target); n != nil {
			out = append(out, LinkedNode{Node: n, Relationship: e.Relationship})
		}
	}
	return out
}

// IncomingLinks returns the notes linking to noteID.
func (g *Graph) IncomingLinks(noteID string) []LinkedNode {
	s := g.snapshot()
	var out []LinkedNode
	for _, e := range s.store.IncomingEdges(noteID, graph.EdgeLink) {
		if n := s.store.Node(e.Source); n != nil {
			out = append(out, LinkedNode{Node: n, Relationship: e.Relationship})
		}
	}
	return out
}

// FolderContents splits the contained children of folderID by type.
func (g *Graph) FolderContents(folderID string) FolderContents {
	s := g.snapshot()
	var fc FolderContents
	for _, n := range s.store.Neighbors(folderID, graph.Outgoing, graph.EdgeContains) {
		switch n.Type {
		case graph.NodeFolder:
			fc.Folders = append(fc.Folders, n)
		case graph.NodeNote:
			fc.Notes = append(fc.Notes, n)
		}
	}
	return fc
}

// Connections groups the tags, entities and mentions of a note.
// Kinds with no nodes are absent from the result.
func (g *Graph) Connections(noteID string) map[ConnectionKind][]*graph.Node {
	s := g.snapshot()
	out := make(map[ConnectionKind][]*graph.Node)
	for _, e := range s.store.OutgoingEdges(noteID, graph.EdgeTag, graph.EdgeConcept, graph.EdgeMention) {
		n := s.store.Node(e.Target)
		if n == nil {
			continue
		}
		kind := connectionEdges[e.Type]
		out[kind] = append(out[kind], n)
	}
	return out
}

// Node looks up any node by id.
func (g *Graph) Node(id string) (*graph.Node, bool) {
	n := g.snapshot().store.Node(id)
	return n, n != nil
}

// ResolveTitle maps a note title to its id, ignoring case.
func (g *Graph) ResolveTitle(title string) (string, bool) {
	return g.snapshot().index.Resolve(title)
}

// NotesWithTag returns the notes carrying tag.
func (g *Graph) NotesWithTag(tag string) []*graph.Node {
	return g.snapshot().store.Neighbors(TagID(tag), graph.Incoming, graph.EdgeTag)
}

// EntitiesOf returns the entities a note references, loose or in triples.
func (g *Graph) EntitiesOf(noteID string) []*graph.Node {
	return g.snapshot().store.Neighbors(noteID, graph.Outgoing, graph.EdgeConcept)
}

// NotesAbout returns the notes referencing an entity.
func (g *Graph) NotesAbout(entityID string) []*graph.Node {
	return g.snapshot().store.Neighbors(entityID, graph.Incoming, graph.EdgeConcept)
}

// Triples returns the statements asserted by a note.
func (g *Graph) Triples(noteID string) []Statement {
	s := g.snapshot()
	var out []Statement
	for _, t := range s.store.Neighbors(noteID, graph.Outgoing, graph.EdgeAsserts) {
		st := Statement{ID: t.ID, Predicate: t.Kind}
		if subj := s.store.Neighbors(t.ID, graph.Incoming, graph.EdgeSubjectOf); len(subj) > 0 {
			st.Subject = subj[0]
		}
		if obj := s.store.Neighbors(t.ID, graph.Incoming, graph.EdgeObjectOf); len(obj) > 0 {
			st.Object = obj[0]
		}
		out = append(out, st)
	}
	return out
}

// UnlinkedMentions finds note titles that appear in a note's text without
// a wiki-link to them. Only available for notes of the last rebuild.
func (g *Graph) UnlinkedMentions(noteID string) []resolver.Mention {
	s := g.snapshot()
	text, ok := s.texts[noteID]
	if !ok {
		return nil
	}

	var out []resolver.Mention
	for _, m := range s.index.FindMentions(text) {
		if m.NoteID == noteID || s.store.HasEdge(noteID, m.NoteID, graph.EdgeLink) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Central returns the limit most connected nodes by degree centrality.
// A limit of zero or less returns all nodes.
func (g *Graph) Central(limit int) []Ranked {
	s := g.snapshot()
	scores := s.store.DegreeCentrality()

	out := make([]Ranked, 0, len(scores))
	for id, score := range scores {
		out = append(out, Ranked{Node: s.store.Node(id), Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Node.ID < out[j].Node.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Stats counts nodes and edges by type.
func (g *Graph) Stats() Stats {
	s := g.snapshot()
	st := Stats{
		Nodes:    s.store.NodeCount(),
		Edges:    s.store.EdgeCount(),
		Titles:   s.index.Len(),
		Isolated: len(s.store.OrphanNodes()),
		ByNode:   make(map[graph.NodeType]int),
		ByEdge:   make(map[graph.EdgeType]int),
	}
	for _, n := range s.store.Nodes {
		st.ByNode[n.Type]++
	}
	for _, e := range s.store.AllEdges() {
		st.ByEdge[e.Type]++
	}
	return st
}
