package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kittclouds/galaxy/pkg/knowledge"
	"github.com/kittclouds/galaxy/pkg/scanner"
	"github.com/kittclouds/galaxy/pkg/vector"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Similarity backends.
const (
	BackendFlat      = "flat"
	BackendHNSW      = "hnsw"
	BackendSQLiteVec = "sqlite-vec"
)

// Snapshot targets for the in-memory similarity backends.
const (
	SnapshotFS    = "fs"
	SnapshotStore = "store"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Graph  GraphConfig       `yaml:"graph"`
	Vector VectorConfig      `yaml:"vector"`
	Watch  WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.Vector.Validate(); err != nil {
		return fmt.Errorf("vector: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// StoreConfig holds workspace database configuration.
type StoreConfig struct {
	// Path is a SQLite file path or ":memory:".
	Path string `yaml:"path"`
	// Cluster restricts the graph to one cluster; empty means all.
	Cluster string `yaml:"cluster"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// GraphConfig holds knowledge graph configuration.
type GraphConfig struct {
	RootID              string   `yaml:"root_id"`
	DefaultRelationship string   `yaml:"default_relationship"`
	Relationships       []string `yaml:"relationships"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RootID, validation.Required),
		validation.Field(&c.Relationships, validation.Each(validation.Required)),
	)
}

// Registry builds the link relationship registry. An empty list keeps the
// built-in relationship names.
func (c *GraphConfig) Registry() *scanner.Relationships {
	names := c.Relationships
	if len(names) == 0 {
		names = scanner.DefaultRelationshipNames
	}
	return scanner.NewRelationships(c.DefaultRelationship, names...)
}

// VectorConfig holds similarity index configuration.
type VectorConfig struct {
	Backend        string        `yaml:"backend"`
	EfSearch       int           `yaml:"ef_search"`
	Snapshot       string        `yaml:"snapshot"`
	Dir            string        `yaml:"dir"`
	Key            string        `yaml:"key"`
	PersistTimeout time.Duration `yaml:"persist_timeout"`
}

// Validate validates the vector configuration.
func (c *VectorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFlat, BackendHNSW, BackendSQLiteVec)),
		validation.Field(&c.EfSearch, validation.When(c.Backend == BackendHNSW, validation.Required, validation.Min(1))),
		validation.Field(&c.Snapshot, validation.Required, validation.In(SnapshotFS, SnapshotStore)),
		validation.Field(&c.Dir, validation.When(c.Snapshot == SnapshotFS, validation.Required)),
		validation.Field(&c.Key, validation.Required),
		validation.Field(&c.PersistTimeout, validation.Required),
	)
}

// WatchConfig holds workspace file watcher configuration.
type WatchConfig struct {
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watcher configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Store: StoreConfig{
			Path: "./galaxy.db",
		},
		Graph: GraphConfig{
			RootID:              knowledge.DefaultRootID,
			DefaultRelationship: scanner.DefaultRelationship,
		},
		Vector: VectorConfig{
			Backend:        BackendHNSW,
			EfSearch:       vector.DefaultEfSearch,
			Snapshot:       SnapshotStore,
			Dir:            "./index",
			Key:            vector.DefaultKey,
			PersistTimeout: vector.DefaultPersistTimeout,
		},
		Watch: WatchConfig{
			Dir:      "./workspace",
			Debounce: 200 * time.Millisecond,
		},
	}
}
