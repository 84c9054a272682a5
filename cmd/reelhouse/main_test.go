package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhouse/reelhouse/internal/search"
)

// writeOfflineConfig writes a config with every external source disabled.
func writeOfflineConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := `
database:
  path: ` + filepath.Join(dir, "reelhouse.db") + `
logging:
  level: error
providers:
  douban:
    enabled: false
  youtube:
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestMigrateUp(t *testing.T) {
	cfgPath := writeOfflineConfig(t)

	_, err := execute(t, "--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "migrate", "up")
	require.NoError(t, err)
}

func TestSearchCommand(t *testing.T) {
	cfgPath := writeOfflineConfig(t)

	out, err := execute(t, "--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "search", "matrix", "--no-cache")
	require.NoError(t, err)

	var page search.AggregatedPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, "matrix", page.Query)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 0, page.Total)
	require.Len(t, page.Sources, 1)
	assert.Equal(t, "local", page.Sources[0].Source)
}

func TestSearchCommand_InvalidPage(t *testing.T) {
	cfgPath := writeOfflineConfig(t)

	for _, page := range []string{"0", "10001", "9223372036854775807"} {
		_, err := execute(t, "--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "search", "matrix", "--page", page, "--no-cache")
		require.ErrorIs(t, err, search.ErrInvalidPage, "page %s", page)
	}
}
