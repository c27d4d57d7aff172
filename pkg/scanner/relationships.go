package scanner

import "strings"

// DefaultRelationship labels links that carry no recognised qualifier.
const DefaultRelationship = "Mentions"

// DefaultRelationshipNames is the built-in set of link relationship types.
var DefaultRelationshipNames = []string{
	DefaultRelationship,
	"Supports",
	"Contradicts",
	"Related To",
	"Extends",
	"Depends On",
	"Part Of",
	"Example Of",
	"Precedes",
	"Follows",
}

// Relationships is a case-insensitive registry of known link relationship
// types. Lookups return the canonical spelling as registered.
type Relationships struct {
	def       string
	names     []string
	canonical map[string]string
}

// NewRelationships builds a registry. The default is always registered.
func NewRelationships(def string, names ...string) *Relationships {
	def = strings.TrimSpace(def)
	if def == "" {
		def = DefaultRelationship
	}

	r := &Relationships{
		def:       def,
		canonical: make(map[string]string, len(names)+1),
	}
	r.add(def)
	for _, n := range names {
		r.add(n)
	}
	return r
}

// DefaultRelationships returns the built-in registry.
func DefaultRelationships() *Relationships {
	return NewRelationships(DefaultRelationship, DefaultRelationshipNames...)
}

func (r *Relationships) add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	key := strings.ToLower(name)
	if _, exists := r.canonical[key]; exists {
		return
	}
	r.canonical[key] = name
	r.names = append(r.names, name)
}

// Lookup resolves a qualifier to its canonical relationship name.
func (r *Relationships) Lookup(qualifier string) (string, bool) {
	name, ok := r.canonical[strings.ToLower(strings.TrimSpace(qualifier))]
	return name, ok
}

// Default returns the fallback relationship.
func (r *Relationships) Default() string {
	return r.def
}

// Names returns registered names in registration order.
func (r *Relationships) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
