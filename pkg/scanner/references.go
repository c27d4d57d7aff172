// Package scanner turns note content into references: wiki-links, tags,
// mentions, typed entities and subject-predicate-object triples.
package scanner

import (
	"encoding/json"
	"strings"

	"github.com/kittclouds/galaxy/pkg/scanner/blocks"
	"github.com/kittclouds/galaxy/pkg/scanner/syntax"
)

// Link is a wiki-link to another note by title.
type Link struct {
	Title        string `json:"title"`
	Relationship string `json:"relationship"`
	Explicit     bool   `json:"explicit"` // relationship came from a qualifier
}

// Entity is a typed, labeled reference such as [CHARACTER|Alice].
type Entity struct {
	Kind       string         `json:"kind"`
	Label      string         `json:"label"`
	Subtype    string         `json:"subtype,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Triple is a subject-predicate-object statement between two entities.
type Triple struct {
	Subject   Entity `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Entity `json:"object"`
}

// Malformed records an attribute blob that could not be decoded.
type Malformed struct {
	Entity string `json:"entity"`
	Blob   string `json:"blob"`
	Err    string `json:"error"`
}

// References is the deduplicated result of one scan.
// Entities holds only standalone entities; triple participants live in
// Triples and are never repeated here.
type References struct {
	Links     []Link      `json:"links,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Mentions  []string    `json:"mentions,omitempty"`
	Entities  []Entity    `json:"entities,omitempty"`
	Triples   []Triple    `json:"triples,omitempty"`
	Malformed []Malformed `json:"malformed,omitempty"`
}

// Empty reports whether the scan found nothing.
func (r References) Empty() bool {
	return len(r.Links) == 0 && len(r.Tags) == 0 && len(r.Mentions) == 0 &&
		len(r.Entities) == 0 && len(r.Triples) == 0
}

// Scanner extracts references using a relationship registry.
type Scanner struct {
	syntax        *syntax.SyntaxScanner
	relationships *Relationships
}

// New creates a scanner. A nil registry means the built-in one.
func New(rels *Relationships) *Scanner {
	if rels == nil {
		rels = DefaultRelationships()
	}
	return &Scanner{
		syntax:        syntax.New(),
		relationships: rels,
	}
}

// Relationships exposes the registry in use.
func (s *Scanner) Relationships() *Relationships {
	return s.relationships
}

// ScanDocument extracts references from a block tree.
func (s *Scanner) ScanDocument(doc blocks.Document) References {
	return s.ExtractReferences(doc.Text())
}

// ExtractReferences extracts references from plain text.
func (s *Scanner) ExtractReferences(text string) References {
	var refs References

	seenLinks := make(map[string]struct{})
	seenTags := make(map[string]struct{})
	seenMentions := make(map[string]struct{})
	entityIdx := make(map[EntityKey]int)
	seenTriples := make(map[tripleKey]struct{})

	for _, m := range s.syntax.Scan(text) {
		switch m.Kind {
		case syntax.KindWikilink:
			key := strings.ToLower(m.Target)
			if _, dup := seenLinks[key]; dup {
				continue
			}
			seenLinks[key] = struct{}{}
			refs.Links = append(refs.Links, s.link(m))

		case syntax.KindTag:
			key := strings.ToLower(m.Label)
			if _, dup := seenTags[key]; dup {
				continue
			}
			seenTags[key] = struct{}{}
			refs.Tags = append(refs.Tags, m.Label)

		case syntax.KindMention:
			key := strings.ToLower(m.Label)
			if _, dup := seenMentions[key]; dup {
				continue
			}
			seenMentions[key] = struct{}{}
			refs.Mentions = append(refs.Mentions, m.Label)

		case syntax.KindEntity:
			ent := Entity{Kind: m.EntityKind, Label: m.Label, Subtype: m.Subtype}
			if m.Attributes != "" {
				attrs, err := ParseAttributes(m.Attributes)
				if err != nil {
					refs.Malformed = append(refs.Malformed, Malformed{
						Entity: m.EntityKind + "|" + m.Label,
						Blob:   m.Attributes,
						Err:    err.Error(),
					})
				}
				ent.Attributes = attrs
			}

			key := ent.Key()
			if i, dup := entityIdx[key]; dup {
				refs.Entities[i] = mergeEntity(refs.Entities[i], ent)
				continue
			}
			entityIdx[key] = len(refs.Entities)
			refs.Entities = append(refs.Entities, ent)

		case syntax.KindTriple:
			t := Triple{
				Subject:   Entity{Kind: m.SubjectKind, Label: m.Subject},
				Predicate: m.Predicate,
				Object:    Entity{Kind: m.ObjectKind, Label: m.Object},
			}
			key := tripleKey{t.Subject.Key(), t.Predicate, t.Object.Key()}
			if _, dup := seenTriples[key]; dup {
				continue
			}
			seenTriples[key] = struct{}{}
			refs.Triples = append(refs.Triples, t)
		}
	}

	return refs
}

// link resolves the first qualifier that names a known relationship.
func (s *Scanner) link(m syntax.SyntaxMatch) Link {
	for _, q := range m.Qualifiers {
		if rel, ok := s.relationships.Lookup(q); ok {
			return Link{Title: m.Target, Relationship: rel, Explicit: true}
		}
	}
	return Link{Title: m.Target, Relationship: s.relationships.Default()}
}

// EntityKey identifies an entity by its exact kind and label.
type EntityKey struct {
	Kind  string
	Label string
}

// Key returns the identity key of e.
func (e Entity) Key() EntityKey {
	return EntityKey{Kind: e.Kind, Label: e.Label}
}

type tripleKey struct {
	subject   EntityKey
	predicate string
	object    EntityKey
}

// mergeEntity folds a repeated occurrence into the first one. Values seen
// first win.
func mergeEntity(first, next Entity) Entity {
	if first.Subtype == "" {
		first.Subtype = next.Subtype
	}
	if len(next.Attributes) == 0 {
		return first
	}
	if first.Attributes == nil {
		first.Attributes = make(map[string]any, len(next.Attributes))
	}
	for k, v := range next.Attributes {
		if _, ok := first.Attributes[k]; !ok {
			first.Attributes[k] = v
		}
	}
	return first
}

// ParseAttributes decodes a JSON-ish attribute blob written with single
// quotes. On failure it returns nil attributes and the decode error.
func ParseAttributes(blob string) (map[string]any, error) {
	normalized := strings.ReplaceAll(blob, "'", `"`)

	var attrs map[string]any
	if err := json.Unmarshal([]byte(normalized), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
