package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Single-pass scanner state
type fastScanner struct {
	text string
	n    int
}

// Scan finds all syntax patterns in the text, in order of appearance.
// Spans never overlap: a triple consumes both of its entity brackets.
func (s *SyntaxScanner) Scan(text string) []SyntaxMatch {
	fs := fastScanner{text: text, n: len(text)}
	var matches []SyntaxMatch
	i := 0

	for i < fs.n {
		// Skip until next potential trigger: [, #, @
		nextTrigger := strings.IndexAny(text[i:], "[#@")
		if nextTrigger == -1 {
			break
		}
		i += nextTrigger

		switch text[i] {
		case '[':
			// 1. Wikilink [[...]]
			if i+1 < fs.n && text[i+1] == '[' {
				if m := fs.tryWikilink(i); m != nil {
					matches = append(matches, *m)
					i = m.End
					continue
				}
			}

			// 2. Entity-like bracket, possibly the subject of a triple
			block := fs.parseBracketed(i)
			if block == nil {
				i++
				continue
			}

			// Triples must be recognised before standalone entity analysis,
			// otherwise their participants leak out as loose entities.
			if t := fs.tryTriple(block); t != nil {
				matches = append(matches, *t)
				i = t.End
				continue
			}

			if ent := fs.analyzeEntity(block); ent != nil {
				fs.attachAttributes(ent)
				matches = append(matches, *ent)
				i = ent.End
				continue
			}
			i++

		case '#':
			// &#39; style entities and mid-word hashes are not tags
			if i > 0 && (text[i-1] == '&' || fs.wordBefore(i)) {
				i++
				continue
			}
			if m := fs.tryWord(i, KindTag, isTagRune); m != nil {
				matches = append(matches, *m)
				i = m.End
			} else {
				i++
			}

		case '@':
			// e-mail addresses
			if fs.wordBefore(i) {
				i++
				continue
			}
			if m := fs.tryWord(i, KindMention, isMentionRune); m != nil {
				matches = append(matches, *m)
				i = m.End
			} else {
				i++
			}

		default:
			i++
		}
	}

	return matches
}

// ScanKind returns only matches of the given kind.
func (s *SyntaxScanner) ScanKind(text string, kind SyntaxKind) []SyntaxMatch {
	var out []SyntaxMatch
	for _, m := range s.Scan(text) {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// Helpers
// =============================================================================

type bracketBlock struct {
	start   int
	end     int // after ]
	content string
}

func (fs *fastScanner) parseBracketed(start int) *bracketBlock {
	// No nesting: the first ] closes the block.
	for k := start + 1; k < fs.n; k++ {
		switch fs.text[k] {
		case ']':
			return &bracketBlock{
				start:   start,
				end:     k + 1,
				content: fs.text[start+1 : k],
			}
		case '\n', '[':
			return nil
		}
	}
	return nil
}

func (fs *fastScanner) tryWikilink(start int) *SyntaxMatch {
	// [[Target]], [[Target|Q1]] or [[Target|Q1|Q2]]
	end := strings.Index(fs.text[start+2:], "]]")
	if end == -1 {
		return nil
	}
	end += start + 2

	content := fs.text[start+2 : end]
	if strings.ContainsAny(content, "[\n") {
		return nil
	}

	parts := strings.Split(content, "|")
	target := strings.TrimSpace(parts[0])
	if target == "" {
		return nil
	}

	var qualifiers []string
	for _, q := range parts[1:] {
		if len(qualifiers) == MaxQualifiers {
			break
		}
		qualifiers = append(qualifiers, strings.TrimSpace(q))
	}

	return &SyntaxMatch{
		Start:      start,
		End:        end + 2,
		Text:       fs.text[start : end+2],
		Kind:       KindWikilink,
		Target:     target,
		Label:      target,
		Qualifiers: qualifiers,
	}
}

func (fs *fastScanner) analyzeEntity(block *bracketBlock) *SyntaxMatch {
	// [Kind|Label], [Kind:Label] or [Kind|Label|Subtype]
	sepIdx := strings.IndexAny(block.content, "|:")
	if sepIdx == -1 {
		return nil
	}

	kindPart := strings.TrimSpace(block.content[:sepIdx])
	remainder := block.content[sepIdx+1:]
	if !isValidKind(kindPart) {
		return nil
	}

	label := remainder
	subtype := ""
	if nextSep := strings.IndexAny(remainder, "|:"); nextSep != -1 {
		label = remainder[:nextSep]
		subtype = strings.TrimSpace(remainder[nextSep+1:])
	}

	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}

	return &SyntaxMatch{
		Start:      block.start,
		End:        block.end,
		Text:       fs.text[block.start:block.end],
		Kind:       KindEntity,
		EntityKind: kindPart,
		Label:      label,
		Subtype:    subtype,
	}
}

// attachAttributes extends an entity match over a trailing {...} blob.
func (fs *fastScanner) attachAttributes(ent *SyntaxMatch) {
	k := fs.skipInlineSpace(ent.End)
	if k >= fs.n || fs.text[k] != '{' {
		return
	}
	end := fs.matchBraces(k)
	if end == -1 {
		return
	}
	ent.Attributes = fs.text[k:end]
	ent.End = end
	ent.Text = fs.text[ent.Start:end]
}

// matchBraces returns the index after the brace closing the one at start,
// or -1. Quoted braces are ignored.
func (fs *fastScanner) matchBraces(start int) int {
	depth := 0
	var quote byte
	for k := start; k < fs.n; k++ {
		c := fs.text[k]
		if quote != 0 {
			if c == '\\' {
				k++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return k + 1
			}
		case '\n':
			return -1
		}
	}
	return -1
}

func (fs *fastScanner) tryTriple(subj *bracketBlock) *SyntaxMatch {
	var predicate string
	var objStart int

	switch k := subj.end; {
	case k < fs.n && fs.text[k] == '(':
		// [S](predicate)[O]
		closeIdx := strings.IndexAny(fs.text[k+1:], ")\n([")
		if closeIdx == -1 || fs.text[k+1+closeIdx] != ')' {
			return nil
		}
		predicate = fs.text[k+1 : k+1+closeIdx]
		objStart = fs.skipInlineSpace(k + 2 + closeIdx)

	default:
		// [S] -[predicate]-> [O]
		k = fs.skipInlineSpace(k)
		if k+1 >= fs.n || fs.text[k] != '-' || fs.text[k+1] != '[' {
			return nil
		}
		predEnd := strings.Index(fs.text[k+2:], "]->")
		if predEnd == -1 {
			return nil
		}
		predEnd += k + 2
		predicate = fs.text[k+2 : predEnd]
		if strings.ContainsAny(predicate, "[]\n") {
			return nil
		}
		objStart = fs.skipInlineSpace(predEnd + 3)
	}

	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return nil
	}
	if objStart >= fs.n || fs.text[objStart] != '[' {
		return nil
	}

	objBlock := fs.parseBracketed(objStart)
	if objBlock == nil {
		return nil
	}

	subjEnt := fs.analyzeEntity(subj)
	if subjEnt == nil {
		return nil
	}
	objEnt := fs.analyzeEntity(objBlock)
	if objEnt == nil {
		return nil
	}

	return &SyntaxMatch{
		Start:       subj.start,
		End:         objBlock.end,
		Text:        fs.text[subj.start:objBlock.end],
		Kind:        KindTriple,
		SubjectKind: subjEnt.EntityKind,
		Subject:     subjEnt.Label,
		Predicate:   predicate,
		ObjectKind:  objEnt.EntityKind,
		Object:      objEnt.Label,
	}
}

// tryWord matches a sigil followed by a run of accepted runes (#tag, @name).
func (fs *fastScanner) tryWord(start int, kind SyntaxKind, accept func(rune) bool) *SyntaxMatch {
	k := start + 1
	for k < fs.n {
		r, size := utf8.DecodeRuneInString(fs.text[k:])
		if !accept(r) {
			break
		}
		k += size
	}

	label := fs.text[start+1 : k]
	if label == "" {
		return nil
	}

	return &SyntaxMatch{
		Start: start,
		End:   k,
		Text:  fs.text[start:k],
		Kind:  kind,
		Label: label,
	}
}

func (fs *fastScanner) wordBefore(i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(fs.text[:i])
	return isWordRune(r)
}

func (fs *fastScanner) skipInlineSpace(k int) int {
	for k < fs.n && (fs.text[k] == ' ' || fs.text[k] == '\t') {
		k++
	}
	return k
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isTagRune(r rune) bool {
	return isWordRune(r) || r == '-' || r == '/'
}

func isMentionRune(r rune) bool {
	return isWordRune(r) || r == '-'
}

func isValidKind(s string) bool {
	// [#@!]?[a-zA-Z0-9_-]+
	if len(s) == 0 {
		return false
	}

	start := 0
	if s[0] == '#' || s[0] == '@' || s[0] == '!' {
		start = 1
	}

	if start >= len(s) {
		return false
	}

	for i := start; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return false
		}
	}
	return true
}
