package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Limit int    `yaml:"limit"`
}

func (s *sample) Validate() error {
	if s.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("GALAXY_TEST_NAME", "orion")

	var s sample
	require.NoError(t, Parse([]byte("name: ${GALAXY_TEST_NAME}\nlimit: 3\n"), &s))
	assert.Equal(t, sample{Name: "orion", Limit: 3}, s)
}

func TestParseValidates(t *testing.T) {
	var s sample
	err := Parse([]byte("limit: -1\n"), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: file\n"), 0o644))

	s := sample{Limit: 7}
	require.NoError(t, Load(path, &s))
	assert.Equal(t, "file", s.Name)
	assert.Equal(t, 7, s.Limit, "unset keys keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	var s sample
	assert.Error(t, Load(filepath.Join(t.TempDir(), "nope.yaml"), &s))
}

func TestLoadOptionalMissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default"}
	require.NoError(t, LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s))
	assert.Equal(t, "default", s.Name)

	bad := sample{Limit: -5}
	assert.Error(t, LoadOptional("", &bad))
}
