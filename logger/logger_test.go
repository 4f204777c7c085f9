package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thucvatbm/species-catalog/config"
)

func TestLevelFromConfig(t *testing.T) {
	lvl, err := LevelFromConfig(config.Warn)
	require.NoError(t, err)
	assert.Equal(t, logging.WARNING, lvl)

	lvl, err = LevelFromConfig(config.Debug)
	require.NoError(t, err)
	assert.Equal(t, logging.DEBUG, lvl)

	_, err = LevelFromConfig("loud")
	assert.Error(t, err)
}

func TestFileBackendRecordsDebug(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CATALOG_LOG_FOLDER", dir)

	InitLogger(logging.ERROR)
	t.Cleanup(func() {
		CloseLogger()
		_ = os.Unsetenv("CATALOG_LOG_FOLDER")
		InitLogger(logging.INFO)
	})

	Debugf("species %d saved", 42)
	CloseLogger()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "species 42 saved"))
}
