package knowledge

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/kittclouds/galaxy/pkg/graph"
	"github.com/kittclouds/galaxy/pkg/resolver"
	"github.com/kittclouds/galaxy/pkg/scanner"
)

// UnresolvedLink is a wiki-link whose title matched no note.
type UnresolvedLink struct {
	NoteID string `json:"noteId"`
	Title  string `json:"title"`
}

// MalformedAttributes is an entity attribute blob that failed to decode.
type MalformedAttributes struct {
	NoteID string `json:"noteId"`
	Entity string `json:"entity"`
	Blob   string `json:"blob"`
	Err    string `json:"error"`
}

// Report summarizes one rebuild. Nothing in it is fatal.
type Report struct {
	Folders    int                   `json:"folders"`
	Notes      int                   `json:"notes"`
	Nodes      int                   `json:"nodes"`
	Edges      int                   `json:"edges"`
	Links      int                   `json:"links"`
	Unresolved []UnresolvedLink      `json:"unresolved,omitempty"`
	SelfLinks  []string              `json:"selfLinks,omitempty"` // note ids
	Orphans    []string              `json:"orphans,omitempty"`   // notes without a containing folder
	Malformed  []MalformedAttributes `json:"malformed,omitempty"`
	Duration   time.Duration         `json:"duration"`
}

// Rebuild replaces the graph with one built from notes and folders.
// The previous graph stays queryable until the new one is swapped in.
func (g *Graph) Rebuild(notes []Note, folders []Folder) Report {
	start := time.Now()
	b := &builder{
		g:      g,
		s:      emptyState(),
		report: Report{Folders: len(folders), Notes: len(notes)},
	}

	b.indexTitles(notes)
	b.addFolders(folders)
	b.addNotes(notes, folders)
	for _, n := range notes {
		b.addReferences(n)
	}

	b.s.built = true
	b.report.Nodes = b.s.store.NodeCount()
	b.report.Edges = b.s.store.EdgeCount()
	b.report.Duration = time.Since(start)

	g.swap(b.s)

	g.logger.Info("graph rebuilt",
		slog.Int("notes", b.report.Notes),
		slog.Int("folders", b.report.Folders),
		slog.Int("nodes", b.report.Nodes),
		slog.Int("edges", b.report.Edges),
		slog.Int("unresolved", len(b.report.Unresolved)),
		slog.String("duration", b.report.Duration.String()))

	return b.report
}

type builder struct {
	g      *Graph
	s      *state
	report Report
}

func (b *builder) indexTitles(notes []Note) {
	entries := make([]resolver.Entry, 0, len(notes))
	for _, n := range notes {
		entries = append(entries, resolver.Entry{Title: n.Title, ID: n.ID})
	}
	b.s.index.Build(entries)
}

func (b *builder) addFolders(folders []Folder) {
	for _, f := range folders {
		b.s.store.UpsertNode(graph.Node{
			ID:        f.ID,
			Type:      graph.NodeFolder,
			Title:     f.Name,
			Path:      cleanPath(f.Path),
			ParentID:  f.ParentID,
			ClusterID: f.ClusterID,
			CreatedAt: timePtr(f.CreatedAt),
			UpdatedAt: timePtr(f.UpdatedAt),
		})
	}

	// Parents may appear after their children in the input.
	for _, f := range folders {
		if f.ParentID == "" {
			continue
		}
		b.s.store.UpsertEdge(graph.Edge{Source: f.ParentID, Target: f.ID, Type: graph.EdgeContains})
	}
}

func (b *builder) addNotes(notes []Note, folders []Folder) {
	// First folder in input order wins a shared path.
	byPath := make(map[string]string, len(folders))
	for _, f := range folders {
		p := cleanPath(f.Path)
		if _, taken := byPath[p]; !taken {
			byPath[p] = f.ID
		}
	}

	for _, n := range notes {
		notePath := cleanPath(n.Path)
		b.s.store.UpsertNode(graph.Node{
			ID:        n.ID,
			Type:      graph.NodeNote,
			Title:     n.Title,
			Path:      notePath,
			ClusterID: n.ClusterID,
			Tags:      n.Tags,
			CreatedAt: timePtr(n.CreatedAt),
			UpdatedAt: timePtr(n.UpdatedAt),
		})

		folderID, ok := byPath[notePath]
		if !ok && notePath == "/" && b.s.store.Node(b.g.rootID) != nil {
			folderID, ok = b.g.rootID, true
		}
		if !ok {
			b.report.Orphans = append(b.report.Orphans, n.ID)
			continue
		}
		if _, added := b.s.store.UpsertEdge(graph.Edge{Source: folderID, Target: n.ID, Type: graph.EdgeContains}); !added {
			b.report.Orphans = append(b.report.Orphans, n.ID)
		}
	}
}

func (b *builder) addReferences(n Note) {
	text := n.Content.Text()
	b.s.texts[n.ID] = text
	refs := b.g.scanner.ExtractReferences(text)

	for _, l := range refs.Links {
		target, ok := b.s.index.Resolve(l.Title)
		switch {
		case !ok:
			b.report.Unresolved = append(b.report.Unresolved, UnresolvedLink{NoteID: n.ID, Title: l.Title})
		case target == n.ID:
			b.report.SelfLinks = append(b.report.SelfLinks, n.ID)
		default:
			if _, added := b.s.store.UpsertEdge(graph.Edge{
				Source:       n.ID,
				Target:       target,
				Type:         graph.EdgeLink,
				Relationship: l.Relationship,
			}); added {
				b.report.Links++
			}
		}
	}

	for _, tag := range mergeTags(n.Tags, refs.Tags) {
		id := TagID(tag)
		b.s.store.UpsertNode(graph.Node{ID: id, Type: graph.NodeTag, Title: normalizeLabel(tag)})
		b.s.store.UpsertEdge(graph.Edge{Source: n.ID, Target: id, Type: graph.EdgeTag})
	}

	for _, handle := range refs.Mentions {
		id := MentionID(handle)
		b.s.store.UpsertNode(graph.Node{ID: id, Type: graph.NodeMention, Title: normalizeLabel(handle)})
		b.s.store.UpsertEdge(graph.Edge{Source: n.ID, Target: id, Type: graph.EdgeMention})
	}

	for _, e := range refs.Entities {
		b.addEntity(n.ID, e)
	}

	for _, t := range refs.Triples {
		subjectID := b.addEntity(n.ID, t.Subject)
		objectID := b.addEntity(n.ID, t.Object)
		tripleID := TripleID(subjectID, t.Predicate, objectID)

		b.s.store.UpsertNode(graph.Node{
			ID:    tripleID,
			Type:  graph.NodeTriple,
			Title: t.Subject.Label + " " + t.Predicate + " " + t.Object.Label,
			Kind:  t.Predicate,
			Attributes: map[string]any{
				"subject":   subjectID,
				"predicate": t.Predicate,
				"object":    objectID,
			},
		})
		b.s.store.UpsertEdge(graph.Edge{Source: n.ID, Target: tripleID, Type: graph.EdgeAsserts})
		b.s.store.UpsertEdge(graph.Edge{Source: subjectID, Target: tripleID, Type: graph.EdgeSubjectOf})
		b.s.store.UpsertEdge(graph.Edge{Source: objectID, Target: tripleID, Type: graph.EdgeObjectOf})
		b.s.store.UpsertEdge(graph.Edge{
			Source:       subjectID,
			Target:       objectID,
			Type:         graph.EdgeParticipatesIn,
			Relationship: t.Predicate,
		})
	}

	for _, m := range refs.Malformed {
		b.g.logger.Warn("malformed entity attributes",
			slog.String("note_id", n.ID),
			slog.String("entity", m.Entity),
			slog.String("error", m.Err))
		b.report.Malformed = append(b.report.Malformed, MalformedAttributes{
			NoteID: n.ID,
			Entity: m.Entity,
			Blob:   m.Blob,
			Err:    m.Err,
		})
	}
}

// addEntity upserts an entity node and the note's concept edge to it.
// Attributes seen first win across notes.
func (b *builder) addEntity(noteID string, e scanner.Entity) string {
	id := EntityID(e.Kind, e.Label)

	node := b.s.store.Node(id)
	if node == nil {
		node = b.s.store.UpsertNode(graph.Node{ID: id, Type: graph.NodeEntity, Title: e.Label, Kind: e.Kind})
	}
	if e.Subtype != "" {
		fillAttr(node, "subtype", e.Subtype)
	}
	for k, v := range e.Attributes {
		fillAttr(node, k, v)
	}

	b.s.store.UpsertEdge(graph.Edge{Source: noteID, Target: id, Type: graph.EdgeConcept})
	return id
}

func fillAttr(n *graph.Node, key string, v any) {
	if _, ok := n.Attributes[key]; ok {
		return
	}
	if n.Attributes == nil {
		n.Attributes = make(map[string]any)
	}
	n.Attributes[key] = v
}

// mergeTags unions record tags with content tags, case-insensitively,
// keeping first-seen order.
func mergeTags(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, tag := range list {
			key := normalizeLabel(tag)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// cleanPath normalizes a folder path. Empty means the root.
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	return path.Clean(p)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
