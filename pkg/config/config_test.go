package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatOf("spec.yml", nil))
	assert.Equal(t, FormatYAML, FormatOf("/config/spec.YAML", nil))
	assert.Equal(t, FormatJSON, FormatOf("spec.json", []byte("model: {}")))
	assert.Equal(t, FormatJSON, FormatOf("/config/modelgateway/spec", []byte(` {"model": {}}`)))
	assert.Equal(t, FormatYAML, FormatOf("/config/modelgateway/spec", []byte("model:\n  name: m")))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  name: resnet\n  version: 3\n"), 0o600))

	k, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "resnet", k.String("model.name"))
	assert.Equal(t, int64(3), k.Int64("model.version"))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadBytes(t *testing.T) {
	k, err := LoadBytes([]byte(`{"outputs": [{"name": "score"}]}`), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, k.Slices("outputs"), 1)

	_, err = LoadBytes([]byte(`{"outputs": [`), FormatJSON)
	assert.Error(t, err)
}
