package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress", ".lastday.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "minute:AAPL", "2024-01-05"))
	require.NoError(t, s.Set(ctx, "minute:MSFT", "2024-01-04"))
	require.NoError(t, s.Delete(ctx, "minute:MSFT"))
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "minute:AAPL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-05", v)

	_, ok, err = reopened.Get(ctx, "minute:MSFT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := NewFileStore(path)
	assert.Error(t, err)
}
