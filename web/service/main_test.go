package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thucvatbm/species-catalog/database"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, database.InitSQLite(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { _ = database.CloseDB() })
}

func strPtr(s string) *string {
	return &s
}
