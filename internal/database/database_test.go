package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateUpAndDown(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())

	v, err := db.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = db.Conn().Exec(`INSERT INTO movies (title) VALUES ('Alien')`)
	require.NoError(t, err)

	require.NoError(t, db.MigrateDown())

	v, err = db.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}
