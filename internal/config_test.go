package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/kittclouds/galaxy/pkg/config"
	"github.com/kittclouds/galaxy/pkg/scanner"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, NewDefaultConfig().Validate())
}

func TestApplicationConfig_EmptyFormatDefaultsJSON(t *testing.T) {
	cfg := ApplicationConfig{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
}

func TestApplicationConfig_InvalidFormat(t *testing.T) {
	cfg := ApplicationConfig{LogFormat: "xml"}
	assert.Error(t, cfg.Validate())
}

func TestVectorConfig_InvalidBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Vector.Backend = "faiss"
	assert.Error(t, cfg.Validate())
}

func TestVectorConfig_HNSWNeedsEfSearch(t *testing.T) {
	cfg := NewDefaultConfig().Vector
	cfg.EfSearch = 0
	assert.Error(t, cfg.Validate())

	cfg.Backend = BackendFlat
	assert.NoError(t, cfg.Validate(), "ef_search only matters for hnsw")
}

func TestVectorConfig_FSSnapshotNeedsDir(t *testing.T) {
	cfg := NewDefaultConfig().Vector
	cfg.Snapshot = SnapshotFS
	cfg.Dir = ""
	assert.Error(t, cfg.Validate())

	cfg.Snapshot = SnapshotStore
	assert.NoError(t, cfg.Validate())
}

func TestStoreConfig_PathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Path = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store")
}

func TestGraphConfig_Registry(t *testing.T) {
	def := NewDefaultConfig().Graph
	assert.Equal(t, scanner.DefaultRelationshipNames, def.Registry().Names())

	custom := GraphConfig{RootID: "root", DefaultRelationship: "Refers", Relationships: []string{"Cites"}}
	r := custom.Registry()
	assert.Equal(t, "Refers", r.Default())
	assert.Equal(t, []string{"Refers", "Cites"}, r.Names())

	custom.Relationships = []string{"Cites", ""}
	assert.Error(t, custom.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("GALAXY_TEST_DB", "/tmp/galaxy-test.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  log_format: text
store:
  path: ${GALAXY_TEST_DB}
vector:
  backend: flat
  persist_timeout: 3s
watch:
  debounce: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg := NewDefaultConfig()
	require.NoError(t, pkgconfig.Load(path, cfg))

	assert.Equal(t, "DEBUG", cfg.App.LogLevel.String())
	assert.Equal(t, LogFormatText, cfg.App.LogFormat)
	assert.Equal(t, "/tmp/galaxy-test.db", cfg.Store.Path)
	assert.Equal(t, BackendFlat, cfg.Vector.Backend)
	assert.Equal(t, 3*time.Second, cfg.Vector.PersistTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "root", cfg.Graph.RootID, "unset sections keep defaults")
}
