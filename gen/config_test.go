package gen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("protocol: awsQuery\nredactSensitive: true\n"), 0644))
	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "awsQuery", conf.Protocol)
	// unset keys keep their defaults
	assert.Equal(t, "client", conf.Target)
	assert.True(t, conf.Settings().RedactSensitive)
	assert.True(t, conf.SerdeSettings().RedactSensitive)
	assert.False(t, conf.SerdeSettings().OutOfRangeFloatsAsStrings)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("protocol: [\n"), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}
