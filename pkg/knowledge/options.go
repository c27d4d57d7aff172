package knowledge

import (
	"log/slog"

	"github.com/kittclouds/galaxy/pkg/scanner"
)

// DefaultRootID is the id of the synthetic root folder notes at "/" fall
// back to when no folder declares that path.
const DefaultRootID = "root"

// Option is a functional option for configuring a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for rebuild diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRelationships sets the link relationship registry.
func WithRelationships(r *scanner.Relationships) Option {
	return func(g *Graph) {
		if r != nil {
			g.scanner = scanner.New(r)
		}
	}
}

// WithRootID overrides the synthetic root folder id.
func WithRootID(id string) Option {
	return func(g *Graph) {
		if id != "" {
			g.rootID = id
		}
	}
}
