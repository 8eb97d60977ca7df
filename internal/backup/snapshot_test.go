package backup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/eternalApril/moonstone/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaveProducesUsableCopy(t *testing.T) {
	dir := t.TempDir()

	b, err := backend.Open(filepath.Join(dir, "live.db"), time.Second, zap.NewNop())
	require.NoError(t, err)
	defer b.Close() //nolint:errcheck

	err = b.Update(backend.PartitionKeyValue, func(tx *backend.Tx) error {
		return tx.Put("k", []byte("v"))
	})
	require.NoError(t, err)

	snapFile := filepath.Join(dir, "backup.snap")
	s := New(snapFile, zap.NewNop())
	require.NoError(t, s.Save(b))

	// no temp file left behind
	assert.NoFileExists(t, snapFile+".tmp")

	// the copy opens as a standalone database with the data intact
	restored, err := backend.Open(snapFile, time.Second, zap.NewNop())
	require.NoError(t, err)
	defer restored.Close() //nolint:errcheck

	err = restored.View(backend.PartitionKeyValue, func(tx *backend.Tx) error {
		assert.Equal(t, []byte("v"), tx.Get("k"))
		return nil
	})
	require.NoError(t, err)
}

func TestSaveOverwritesPrevious(t *testing.T) {
	dir := t.TempDir()

	b, err := backend.Open(filepath.Join(dir, "live.db"), time.Second, zap.NewNop())
	require.NoError(t, err)
	defer b.Close() //nolint:errcheck

	snapFile := filepath.Join(dir, "backup.snap")
	s := New(snapFile, zap.NewNop())

	require.NoError(t, s.Save(b))

	err = b.Update(backend.PartitionKeyValue, func(tx *backend.Tx) error {
		return tx.Put("later", []byte("v"))
	})
	require.NoError(t, err)
	require.NoError(t, s.Save(b))

	restored, err := backend.Open(snapFile, time.Second, zap.NewNop())
	require.NoError(t, err)
	defer restored.Close() //nolint:errcheck

	err = restored.View(backend.PartitionKeyValue, func(tx *backend.Tx) error {
		assert.Equal(t, []byte("v"), tx.Get("later"))
		return nil
	})
	require.NoError(t, err)
}
