package dedup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "posted_games.json"))
	require.NoError(t, err)
	testStoreContract(t, s)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "posted_games.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.AddAll(ctx, []string{"epic:abc", "gog:witcher", "epic:abc"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	assert.Equal(t, []string{"epic:abc", "gog:witcher"}, ids)

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)
	ok, err := reloaded.Contains(ctx, "gog:witcher")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, reloaded.AddAll(ctx, []string{"steam:620"}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ids))
	assert.Equal(t, []string{"epic:abc", "gog:witcher", "steam:620"}, ids)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	ok, err := s.Contains(context.Background(), "epic:abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_games.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	ok, err := s.Contains(context.Background(), "epic:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.AddAll(context.Background(), []string{"epic:abc"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["epic:abc"]`, string(data))
}

func TestFileStoreUnreadablePathFails(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileStore(dir)
	assert.Error(t, err)
}

func TestFileStoreWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "posted.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	err = s.AddAll(context.Background(), []string{"epic:abc"})
	assert.Error(t, err)
}

func TestFileStoreKeepsReadableMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_games.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.AddAll(context.Background(), []string{"epic:abc"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
