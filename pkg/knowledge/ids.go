package knowledge

import (
	"strings"

	"github.com/google/uuid"
)

// Identity prefixes of derived nodes.
const (
	TagPrefix     = "tag:"
	MentionPrefix = "mention:"
	EntityPrefix  = "entity:"
	TriplePrefix  = "triple:"
)

// namespace scopes name-based UUIDs of entities and triples.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://galaxy-notes.app/graph"))

// TagID returns the node id of a tag. Tags are case-insensitive.
func TagID(tag string) string {
	return TagPrefix + normalizeLabel(tag)
}

// MentionID returns the node id of an @mention handle.
func MentionID(handle string) string {
	return MentionPrefix + normalizeLabel(handle)
}

// EntityID returns the node id of an entity. It is a pure function of the
// exact kind and label, so relabeling an entity yields a new identity.
func EntityID(kind, label string) string {
	return EntityPrefix + uuid.NewSHA1(namespace, []byte(kind+"|"+label)).String()
}

// TripleID returns the node id of a reified statement.
func TripleID(subjectID, predicate, objectID string) string {
	return TriplePrefix + uuid.NewSHA1(namespace, []byte(subjectID+"|"+predicate+"|"+objectID)).String()
}

func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#@")
	return strings.ToLower(s)
}
