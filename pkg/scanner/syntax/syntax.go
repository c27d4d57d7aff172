// Package syntax provides single-pass detection of inline note syntax.
// It detects Wikilinks, Explicit Entities, Triples, Tags, and Mentions.
package syntax

// SyntaxKind distinguishes the type of syntax match
type SyntaxKind int

const (
	KindWikilink SyntaxKind = iota
	KindEntity
	KindTriple
	KindTag
	KindMention
)

func (k SyntaxKind) String() string {
	switch k {
	case KindWikilink:
		return "wikilink"
	case KindEntity:
		return "entity"
	case KindTriple:
		return "triple"
	case KindTag:
		return "tag"
	case KindMention:
		return "mention"
	default:
		return "unknown"
	}
}

// SyntaxMatch represents a detected pattern
type SyntaxMatch struct {
	Start int
	End   int
	Text  string
	Kind  SyntaxKind

	// Wikilink
	Target     string
	Qualifiers []string // pipe-separated groups after the target, at most two

	// Entity (and tag/mention Label)
	EntityKind string
	Label      string
	Subtype    string
	Attributes string // raw {...} blob following an entity, braces included

	// Triple
	Subject     string
	SubjectKind string
	Predicate   string
	Object      string
	ObjectKind  string
}

// MaxQualifiers bounds how many pipe groups a wikilink may carry.
const MaxQualifiers = 2

// SyntaxScanner is stateless and safe for concurrent use.
type SyntaxScanner struct{}

// New creates a scanner
func New() *SyntaxScanner {
	return &SyntaxScanner{}
}
