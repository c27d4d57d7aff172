// Package blocks models the editor's block-content tree.
// A block has a kind, optional flat text, an optional inline-content list and
// optional children. Decoding is lenient: editor payloads are untrusted, so
// malformed members are dropped instead of failing the whole document.
package blocks

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Common block kinds emitted by the editor. Unknown kinds are kept verbatim.
const (
	KindParagraph = "paragraph"
	KindHeading   = "heading"
	KindListItem  = "bulletListItem"
	KindText      = "text"
	KindLink      = "link"
)

// Block is one node of a content tree.
type Block struct {
	ID       string  `json:"id,omitempty"`
	Kind     string  `json:"type,omitempty"`
	Text     string  `json:"text,omitempty"`
	Content  []Block `json:"content,omitempty"`
	Children []Block `json:"children,omitempty"`
}

// Document is the full content of a note.
type Document []Block

// Text builds an inline text node.
func Text(s string) Block {
	return Block{Kind: KindText, Text: s}
}

// Paragraph builds a paragraph holding a single inline text node.
func Paragraph(s string) Block {
	return Block{Kind: KindParagraph, Content: []Block{Text(s)}}
}

// FromText wraps plain text as a one-paragraph document.
func FromText(s string) Document {
	if s == "" {
		return nil
	}
	return Document{Paragraph(s)}
}

// ExtractText concatenates all text held by b and its descendants in
// document order, separated by single spaces.
func ExtractText(b Block) string {
	var sb strings.Builder
	appendText(&sb, b)
	return sb.String()
}

func appendText(sb *strings.Builder, b Block) {
	write := func(s string) {
		if s == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}

	write(b.Text)
	for _, c := range b.Content {
		write(ExtractText(c))
	}
	for _, c := range b.Children {
		write(ExtractText(c))
	}
}

// Text returns the plain text of the whole document.
func (d Document) Text() string {
	parts := make([]string, 0, len(d))
	for _, b := range d {
		if t := ExtractText(b); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// Lenient decoding
// =============================================================================

type rawBlock struct {
	ID       json.RawMessage `json:"id"`
	Kind     json.RawMessage `json:"type"`
	Text     json.RawMessage `json:"text"`
	Content  json.RawMessage `json:"content"`
	Children json.RawMessage `json:"children"`
}

// UnmarshalJSON accepts string- or array-valued content and ignores anything
// it cannot make sense of. It never returns an error.
func (b *Block) UnmarshalJSON(data []byte) error {
	*b = Block{}

	var raw rawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		// A bare string in an inline list is plain text.
		var s string
		if json.Unmarshal(data, &s) == nil {
			*b = Text(s)
		}
		return nil
	}

	b.ID = decodeString(raw.ID)
	b.Kind = decodeString(raw.Kind)
	b.Text = decodeString(raw.Text)
	b.Content = decodeList(raw.Content)
	b.Children = decodeList(raw.Children)
	return nil
}

// UnmarshalJSON accepts an array of blocks, a single block or a plain string.
func (d *Document) UnmarshalJSON(data []byte) error {
	*d = Document(decodeList(data))
	return nil
}

func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeList(raw json.RawMessage) []Block {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '"':
		if s := decodeString(raw); s != "" {
			return []Block{Text(s)}
		}
		return nil
	case '{':
		var b Block
		_ = b.UnmarshalJSON(raw)
		return []Block{b}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		out := make([]Block, 0, len(items))
		for _, item := range items {
			var b Block
			_ = b.UnmarshalJSON(item)
			out = append(out, b)
		}
		return out
	default:
		return nil
	}
}
