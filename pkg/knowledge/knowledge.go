// Package knowledge owns the note knowledge graph. It rebuilds the graph and
// the title resolver from note and folder records, and answers adjacency
// queries over the last completed build.
//
// A Graph is safe for concurrent use. Rebuild and FromJSON assemble a new
// graph off to the side and swap it in, so readers never observe a partial
// build. A swapped-in graph is never mutated again; nodes returned by queries
// must be treated as read-only.
package knowledge

import (
	"log/slog"
	"sync"

	"github.com/kittclouds/galaxy/pkg/graph"
	"github.com/kittclouds/galaxy/pkg/resolver"
	"github.com/kittclouds/galaxy/pkg/scanner"
)

// Graph is the knowledge graph together with its derived title index.
type Graph struct {
	logger  *slog.Logger
	scanner *scanner.Scanner
	rootID  string

	mu  sync.RWMutex
	cur *state
}

// state is one immutable build.
type state struct {
	store *graph.Graph
	index *resolver.Index
	texts map[string]string // note id -> scanned text
	built bool
}

func emptyState() *state {
	return &state{
		store: graph.New(),
		index: resolver.New(),
		texts: map[string]string{},
	}
}

// New creates an empty knowledge graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		logger:  slog.Default(),
		scanner: scanner.New(nil),
		rootID:  DefaultRootID,
		cur:     emptyState(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Relationships returns the link relationship registry in use.
func (g *Graph) Relationships() *scanner.Relationships {
	return g.scanner.Relationships()
}

// Built reports whether a rebuild or import has completed.
func (g *Graph) Built() bool {
	return g.snapshot().built
}

func (g *Graph) snapshot() *state {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cur
}

func (g *Graph) swap(s *state) {
	g.mu.Lock()
	g.cur = s
	g.mu.Unlock()
}
