// Package graph provides a directed multi-relation graph over notes, folders,
// tags, mentions, entities and triples.
// Every mutation keeps the store consistent: node ids are unique, there is at
// most one edge per (source, target, type), no self-loops and no edge whose
// endpoint is missing.
package graph

import (
	"sort"
	"time"
)

// NodeType classifies a node
type NodeType string

const (
	NodeFolder  NodeType = "folder"
	NodeNote    NodeType = "note"
	NodeTag     NodeType = "tag"
	NodeMention NodeType = "mention"
	NodeEntity  NodeType = "entity"
	NodeTriple  NodeType = "triple"
)

// EdgeType classifies an edge
type EdgeType string

const (
	EdgeContains       EdgeType = "contains"
	EdgeLink           EdgeType = "link"
	EdgeTag            EdgeType = "tag"
	EdgeConcept        EdgeType = "concept"
	EdgeMention        EdgeType = "mention"
	EdgeAsserts        EdgeType = "asserts"
	EdgeSubjectOf      EdgeType = "subject_of"
	EdgeObjectOf       EdgeType = "object_of"
	EdgeParticipatesIn EdgeType = "participates_in"
)

// Direction selects which adjacency Neighbors walks
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Node is a vertex in the graph. Optional fields are set per type.
type Node struct {
	ID         string         `json:"id"`
	Type       NodeType       `json:"type"`
	Title      string         `json:"title"`
	Path       string         `json:"path,omitempty"`
	ParentID   string         `json:"parentId,omitempty"`
	ClusterID  string         `json:"clusterId,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	CreatedAt  *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time     `json:"updatedAt,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Edge is a typed, directed relation between two nodes
type Edge struct {
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	Type         EdgeType       `json:"type"`
	Relationship string         `json:"relationship,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// EdgeKey indexes an edge within one endpoint's adjacency map
type EdgeKey struct {
	Peer string
	Type EdgeType
}

// Graph is a directed multi-relation graph
type Graph struct {
	// Node storage: ID -> Node
	Nodes map[string]*Node

	// Adjacency lists: SourceID -> (TargetID, Type) -> Edge
	Outbound map[string]map[EdgeKey]*Edge
	// Reverse index: TargetID -> (SourceID, Type) -> Edge
	Inbound map[string]map[EdgeKey]*Edge
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Outbound: make(map[string]map[EdgeKey]*Edge),
		Inbound:  make(map[string]map[EdgeKey]*Edge),
	}
}

// UpsertNode inserts n or merges it into the existing node with the same id.
// Non-zero fields overwrite, attributes merge per key. Nodes without an id
// are ignored and nil is returned.
func (g *Graph) UpsertNode(n Node) *Node {
	if n.ID == "" {
		return nil
	}

	existing, ok := g.Nodes[n.ID]
	if !ok {
		node := n
		node.Tags = cloneStrings(n.Tags)
		node.Attributes = cloneAttrs(n.Attributes)
		g.Nodes[n.ID] = &node
		return &node
	}

	if n.Type != "" {
		existing.Type = n.Type
	}
	if n.Title != "" {
		existing.Title = n.Title
	}
	if n.Path != "" {
		existing.Path = n.Path
	}
	if n.ParentID != "" {
		existing.ParentID = n.ParentID
	}
	if n.ClusterID != "" {
		existing.ClusterID = n.ClusterID
	}
	if len(n.Tags) > 0 {
		existing.Tags = cloneStrings(n.Tags)
	}
	if n.Kind != "" {
		existing.Kind = n.Kind
	}
	if n.CreatedAt != nil {
		existing.CreatedAt = n.CreatedAt
	}
	if n.UpdatedAt != nil {
		existing.UpdatedAt = n.UpdatedAt
	}
	existing.Attributes = mergeAttrs(existing.Attributes, n.Attributes)
	return existing
}

// UpsertEdge inserts e or merges it into the existing edge with the same
// (source, target, type). It returns false without touching the graph when
// an endpoint is missing or the edge would be a self-loop.
func (g *Graph) UpsertEdge(e Edge) (*Edge, bool) {
	if e.Source == e.Target {
		return nil, false
	}
	if g.Nodes[e.Source] == nil || g.Nodes[e.Target] == nil {
		return nil, false
	}

	out := EdgeKey{Peer: e.Target, Type: e.Type}
	if existing := g.Outbound[e.Source][out]; existing != nil {
		if e.Relationship != "" {
			existing.Relationship = e.Relationship
		}
		existing.Attributes = mergeAttrs(existing.Attributes, e.Attributes)
		return existing, true
	}

	edge := e
	edge.Attributes = cloneAttrs(e.Attributes)

	// Ensure outbound map exists
	if g.Outbound[e.Source] == nil {
		g.Outbound[e.Source] = make(map[EdgeKey]*Edge)
	}
	g.Outbound[e.Source][out] = &edge

	// Maintain reverse index
	if g.Inbound[e.Target] == nil {
		g.Inbound[e.Target] = make(map[EdgeKey]*Edge)
	}
	g.Inbound[e.Target][EdgeKey{Peer: e.Source, Type: e.Type}] = &edge

	return &edge, true
}

// Node retrieves a node by ID
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// HasEdge reports whether an edge of the given type links source to target
func (g *Graph) HasEdge(source, target string, typ EdgeType) bool {
	_, ok := g.Outbound[source][EdgeKey{Peer: target, Type: typ}]
	return ok
}

// RemoveEdge deletes one edge. It reports whether the edge existed.
func (g *Graph) RemoveEdge(source, target string, typ EdgeType) bool {
	out := EdgeKey{Peer: target, Type: typ}
	if _, ok := g.Outbound[source][out]; !ok {
		return false
	}
	delete(g.Outbound[source], out)
	if len(g.Outbound[source]) == 0 {
		delete(g.Outbound, source)
	}

	delete(g.Inbound[target], EdgeKey{Peer: source, Type: typ})
	if len(g.Inbound[target]) == 0 {
		delete(g.Inbound, target)
	}
	return true
}

// RemoveNode deletes a node together with every edge touching it
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.Nodes[id]; !ok {
		return false
	}
	for k := range g.Outbound[id] {
		g.RemoveEdge(id, k.Peer, k.Type)
	}
	for k := range g.Inbound[id] {
		g.RemoveEdge(k.Peer, id, k.Type)
	}
	delete(g.Nodes, id)
	return true
}

// OutgoingEdges returns edges originating from a node, optionally filtered by
// type, sorted by (target, type)
func (g *Graph) OutgoingEdges(id string, types ...EdgeType) []*Edge {
	return collectEdges(g.Outbound[id], types)
}

// IncomingEdges returns edges pointing to a node, optionally filtered by type,
// sorted by (source, type)
func (g *Graph) IncomingEdges(id string, types ...EdgeType) []*Edge {
	return collectEdges(g.Inbound[id], types)
}

// Neighbors returns the distinct nodes adjacent to id in the given direction,
// optionally restricted to edge types, sorted by id
func (g *Graph) Neighbors(id string, dir Direction, types ...EdgeType) []*Node {
	seen := make(map[string]bool)
	var result []*Node

	visit := func(adj map[EdgeKey]*Edge) {
		for k := range adj {
			if !matchesType(k.Type, types) || seen[k.Peer] {
				continue
			}
			seen[k.Peer] = true
			if node := g.Nodes[k.Peer]; node != nil {
				result = append(result, node)
			}
		}
	}

	if dir == Outgoing || dir == Both {
		visit(g.Outbound[id])
	}
	if dir == Incoming || dir == Both {
		visit(g.Inbound[id])
	}

	sortNodes(result)
	return result
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	count := 0
	for _, targets := range g.Outbound {
		count += len(targets)
	}
	return count
}

// AllNodes returns every node sorted by (type, id)
func (g *Graph) AllNodes() []*Node {
	result := make([]*Node, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		result = append(result, node)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Type != result[j].Type {
			return result[i].Type < result[j].Type
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// AllEdges returns every edge sorted by (source, target, type)
func (g *Graph) AllEdges() []*Edge {
	result := make([]*Edge, 0, g.EdgeCount())
	for _, targets := range g.Outbound {
		for _, edge := range targets {
			result = append(result, edge)
		}
	}
	sortEdges(result)
	return result
}

// NodesOfType returns nodes of one type sorted by id
func (g *Graph) NodesOfType(typ NodeType) []*Node {
	var result []*Node
	for _, node := range g.Nodes {
		if node.Type == typ {
			result = append(result, node)
		}
	}
	sortNodes(result)
	return result
}

// Clear removes all nodes and edges
func (g *Graph) Clear() {
	g.Nodes = make(map[string]*Node)
	g.Outbound = make(map[string]map[EdgeKey]*Edge)
	g.Inbound = make(map[string]map[EdgeKey]*Edge)
}

// DegreeCentrality computes (in+out)/(2*(n-1)) for each node
func (g *Graph) DegreeCentrality() map[string]float64 {
	n := len(g.Nodes)
	if n <= 1 {
		result := make(map[string]float64)
		for id := range g.Nodes {
			result[id] = 0.0
		}
		return result
	}

	normalizer := 2.0 * float64(n-1)
	result := make(map[string]float64, n)

	for id := range g.Nodes {
		outDegree := len(g.Outbound[id])
		inDegree := len(g.Inbound[id])
		result[id] = float64(outDegree+inDegree) / normalizer
	}

	return result
}

// OrphanNodes returns nodes with no connections, sorted by id
func (g *Graph) OrphanNodes() []*Node {
	var orphans []*Node
	for id, node := range g.Nodes {
		if len(g.Outbound[id]) == 0 && len(g.Inbound[id]) == 0 {
			orphans = append(orphans, node)
		}
	}
	sortNodes(orphans)
	return orphans
}

func collectEdges(adj map[EdgeKey]*Edge, types []EdgeType) []*Edge {
	if len(adj) == 0 {
		return nil
	}
	result := make([]*Edge, 0, len(adj))
	for k, edge := range adj {
		if matchesType(k.Type, types) {
			result = append(result, edge)
		}
	}
	sortEdges(result)
	return result
}

func matchesType(t EdgeType, types []EdgeType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Type < b.Type
	})
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneAttrs(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeAttrs(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
