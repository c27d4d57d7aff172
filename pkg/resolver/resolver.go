// Package resolver maps note titles to note ids.
// It maintains a case-insensitive title index and an Aho-Corasick automaton
// over the same titles for spotting unlinked mentions in free text.
package resolver

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/orsinium-labs/stopwords"
	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// MinMentionLength is the shortest title, in runes, matched by FindMentions.
const MinMentionLength = 3

// Entry pairs a note title with its id
type Entry struct {
	Title string
	ID    string
}

// Mention is an occurrence of a known title in text
type Mention struct {
	Start  int    `json:"start"` // Byte offset start
	End    int    `json:"end"`   // Byte offset end
	Text   string `json:"text"`
	NoteID string `json:"noteId"`
}

// Index resolves titles to ids. It is not safe for concurrent mutation;
// owners rebuild a fresh Index and swap it in.
type Index struct {
	byTitle map[string]string

	// Automaton over mention-eligible titles
	ac       *ahocorasick.AhoCorasick
	patterns []string
}

// New creates an empty index
func New() *Index {
	return &Index{byTitle: make(map[string]string)}
}

// Build clears the index and repopulates it. When two entries share a title
// ignoring case, the later one wins.
func (x *Index) Build(entries []Entry) {
	x.byTitle = make(map[string]string, len(entries))
	for _, e := range entries {
		key := normalize(e.Title)
		if key == "" {
			continue
		}
		x.byTitle[key] = e.ID
	}

	x.patterns = x.patterns[:0]
	for key := range x.byTitle {
		if mentionable(key) {
			x.patterns = append(x.patterns, key)
		}
	}
	sort.Strings(x.patterns)

	x.ac = nil
	if len(x.patterns) == 0 {
		return
	}
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	ac := builder.Build(x.patterns)
	x.ac = &ac
}

// Resolve looks up a title, ignoring case and surrounding whitespace
func (x *Index) Resolve(title string) (string, bool) {
	id, ok := x.byTitle[normalize(title)]
	return id, ok
}

// Len returns the number of distinct titles
func (x *Index) Len() int {
	return len(x.byTitle)
}

// Winners returns a copy of the normalized title to note id mapping after
// duplicate titles have been settled.
func (x *Index) Winners() map[string]string {
	out := make(map[string]string, len(x.byTitle))
	for t, id := range x.byTitle {
		out[t] = id
	}
	return out
}

// Titles returns the normalized titles in sorted order
func (x *Index) Titles() []string {
	out := make([]string, 0, len(x.byTitle))
	for t := range x.byTitle {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// FindMentions reports whole-word occurrences of known titles in text.
// Stop-word titles and titles shorter than MinMentionLength are skipped.
func (x *Index) FindMentions(text string) []Mention {
	if x.ac == nil || text == "" {
		return nil
	}

	// Patterns are lower-cased; match on folded text and map offsets back.
	folded, offsets := foldCase(text)
	matches := x.ac.FindAll(folded)
	result := make([]Mention, 0, len(matches))
	for _, m := range matches {
		id, ok := x.byTitle[x.patterns[m.Pattern()]]
		if !ok {
			continue
		}
		start, end := offsets[m.Start()], offsets[m.End()]
		result = append(result, Mention{
			Start:  start,
			End:    end,
			Text:   text[start:end],
			NoteID: id,
		})
	}
	return result
}

// foldCase lower-cases text rune by rune. offsets[i] is the byte offset in
// text of the rune that produced byte i of the result; the extra final
// entry is len(text).
func foldCase(text string) (string, []int) {
	var sb strings.Builder
	sb.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)
	for i, r := range text {
		n, _ := sb.WriteRune(unicode.ToLower(r))
		for j := 0; j < n; j++ {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(text))
	return sb.String(), offsets
}

func normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

var english = stopwords.MustGet("en")

func mentionable(key string) bool {
	if utf8.RuneCountInString(key) < MinMentionLength {
		return false
	}
	return !english.Contains(key)
}
