//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/hack-pad/hackpadfs/indexeddb"

	"github.com/kittclouds/galaxy/pkg/knowledge"
	"github.com/kittclouds/galaxy/pkg/scanner"
	"github.com/kittclouds/galaxy/pkg/vector"
)

// Version info
const Version = "0.3.0"

// Global state
var (
	logger     = slog.New(slog.NewTextHandler(os.Stderr, nil))
	graph      = knowledge.New(knowledge.WithLogger(logger))
	index      *vector.Index
	refScanner = scanner.New(nil)
)

func main() {
	println("[Galaxy] WASM Ready v" + Version)

	js.Global().Set("Galaxy", js.ValueOf(map[string]interface{}{
		"version":          js.FuncOf(getVersion),
		"configure":        js.FuncOf(configure),
		"scan":             js.FuncOf(scan),
		"rebuild":          js.FuncOf(rebuild),
		"outgoingLinks":    js.FuncOf(noteQuery(func(id string) any { return graph.OutgoingLinks(id) })),
		"incomingLinks":    js.FuncOf(noteQuery(func(id string) any { return graph.IncomingLinks(id) })),
		"folderContents":   js.FuncOf(noteQuery(func(id string) any { return graph.FolderContents(id) })),
		"connections":      js.FuncOf(noteQuery(func(id string) any { return graph.Connections(id) })),
		"triples":          js.FuncOf(noteQuery(func(id string) any { return graph.Triples(id) })),
		"unlinkedMentions": js.FuncOf(noteQuery(func(id string) any { return graph.UnlinkedMentions(id) })),
		"notesWithTag":     js.FuncOf(noteQuery(func(tag string) any { return graph.NotesWithTag(tag) })),
		"resolveTitle":     js.FuncOf(resolveTitle),
		"stats":            js.FuncOf(stats),
		"toJSON":           js.FuncOf(toJSON),
		"fromJSON":         js.FuncOf(fromJSON),
		// Similarity index API
		"initVectors":   js.FuncOf(initVectors),
		"vectorsReady":  js.FuncOf(vectorsReady),
		"addVector":     js.FuncOf(addVector),
		"removeVector":  js.FuncOf(removeVector),
		"searchVectors": js.FuncOf(searchVectors),
		"saveVectors":   js.FuncOf(saveVectors),
	}))

	select {}
}

// getVersion returns the module version
func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// configure replaces the graph with one using a custom relationship registry.
// Args: [configJSON string] {"default": "...", "relationships": [...]}
func configure(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("configure requires 1 argument: configJSON")
	}
	var cfg struct {
		Default       string   `json:"default"`
		Relationships []string `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(args[0].String()), &cfg); err != nil {
		return errorResult("invalid config json: " + err.Error())
	}
	names := cfg.Relationships
	if len(names) == 0 {
		names = scanner.DefaultRelationshipNames
	}
	rels := scanner.NewRelationships(cfg.Default, names...)

	graph = knowledge.New(knowledge.WithLogger(logger), knowledge.WithRelationships(rels))
	refScanner = scanner.New(rels)
	return successResult("configured")
}

// scan extracts references from plain text for editor decorations.
// Args: [text string]
func scan(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("scan requires 1 argument: text")
	}
	return jsonResult(refScanner.ExtractReferences(args[0].String()))
}

// rebuild replaces the graph.
// Args: [notesJSON string, foldersJSON string]
func rebuild(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("rebuild requires 2 arguments: notesJSON, foldersJSON")
	}
	var notes []knowledge.Note
	if err := json.Unmarshal([]byte(args[0].String()), &notes); err != nil {
		return errorResult("invalid notes json: " + err.Error())
	}
	var folders []knowledge.Folder
	if err := json.Unmarshal([]byte(args[1].String()), &folders); err != nil {
		return errorResult("invalid folders json: " + err.Error())
	}
	return jsonResult(graph.Rebuild(notes, folders))
}

// noteQuery adapts a single-id graph query.
func noteQuery(query func(id string) any) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 {
			return errorResult("requires 1 argument: id")
		}
		return jsonResult(query(args[0].String()))
	}
}

// resolveTitle: [title string] -> note id or null
func resolveTitle(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("resolveTitle requires 1 argument: title")
	}
	id, ok := graph.ResolveTitle(args[0].String())
	if !ok {
		return js.Null()
	}
	return id
}

// stats: [limit int (optional)]
func stats(this js.Value, args []js.Value) interface{} {
	limit := 10
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		limit = args[0].Int()
	}
	return jsonResult(map[string]interface{}{
		"stats":   graph.Stats(),
		"central": graph.Central(limit),
	})
}

func toJSON(this js.Value, args []js.Value) interface{} {
	data, err := graph.ToJSON()
	if err != nil {
		return errorResult(err.Error())
	}
	return string(data)
}

// fromJSON: [graphJSON string]
func fromJSON(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("fromJSON requires 1 argument: graphJSON")
	}
	if err := graph.FromJSON([]byte(args[0].String())); err != nil {
		return errorResult(err.Error())
	}
	return successResult("imported")
}

// initVectors opens the IndexedDB-backed HNSW index. Restoring runs in the
// background; writes before it completes are dropped.
// Args: [efSearch int (optional)]
func initVectors(this js.Value, args []js.Value) interface{} {
	efSearch := vector.DefaultEfSearch
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		efSearch = args[0].Int()
	}

	fs, err := indexeddb.NewFS(context.Background(), "galaxy", indexeddb.Options{})
	if err != nil {
		return errorResult("failed to create idb fs: " + err.Error())
	}

	index = vector.NewIndex(vector.NewHNSW(efSearch),
		vector.WithBlobStore(vector.NewFSBlobStore(fs, "")),
		vector.WithLogger(logger))

	go func() {
		if err := index.Open(context.Background()); err != nil {
			println("[Galaxy] vector index open failed:", err.Error())
		}
	}()
	return successResult("vector index initializing")
}

func vectorsReady(this js.Value, args []js.Value) interface{} {
	return index != nil && index.Ready()
}

// addVector: [id string, vectorJSON string]
func addVector(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: id (string), vectorJSON (string)")
	}
	if index == nil {
		return errorResult("vector index not initialized")
	}

	var vec []float32
	if err := json.Unmarshal([]byte(args[1].String()), &vec); err != nil {
		return errorResult("invalid vector json: " + err.Error())
	}
	if err := index.Upsert(context.Background(), args[0].String(), vec); err != nil {
		return errorResult("add failed: " + err.Error())
	}
	return successResult("added")
}

// removeVector: [id string]
func removeVector(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: id (string)")
	}
	if index == nil {
		return errorResult("vector index not initialized")
	}
	removed, err := index.Remove(context.Background(), args[0].String())
	if err != nil {
		return errorResult("remove failed: " + err.Error())
	}
	return removed
}

// searchVectors: [vectorJSON string, k int]
// Returns: JSON array of {noteId, score}
func searchVectors(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: vectorJSON (string), k (int)")
	}
	if index == nil {
		return errorResult("vector index not initialized")
	}

	var vec []float32
	if err := json.Unmarshal([]byte(args[0].String()), &vec); err != nil {
		return errorResult("invalid vector json: " + err.Error())
	}
	hits, err := index.Search(context.Background(), vec, args[1].Int())
	if err != nil {
		return errorResult("search failed: " + err.Error())
	}
	if hits == nil {
		hits = []vector.Hit{}
	}
	return jsonResult(hits)
}

// saveVectors persists the index to IndexedDB in the background.
func saveVectors(this js.Value, args []js.Value) interface{} {
	if index == nil {
		return errorResult("vector index not initialized")
	}
	index.PersistAsync()
	return successResult("saving")
}

// Helper: Marshal a result
func jsonResult(v interface{}) interface{} {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(jsonBytes)
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}
