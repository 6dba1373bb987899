package dedup

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dealmungchi/freegameworker/config"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStoreContract runs the behaviour every backend must share
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	ok, err := s.Contains(ctx, "epic:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.AddAll(ctx, []string{"epic:abc", "steam:620"}))
	require.NoError(t, s.AddAll(ctx, []string{"epic:abc"}))
	require.NoError(t, s.AddAll(ctx, nil))

	for _, id := range []string{"epic:abc", "steam:620"} {
		ok, err := s.Contains(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}

	ok, err = s.Contains(ctx, "gog:witcher")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testStoreContract(t, s)
	assert.Equal(t, 2, s.Len())
	assert.NoError(t, s.Close())
}

func TestMemoryStoreSeeded(t *testing.T) {
	s := NewMemoryStore("epic:seed")
	ok, err := s.Contains(context.Background(), "epic:seed")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "freegames.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	testStoreContract(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	ok, err := reopened.Contains(ctx, "steam:620")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), " ")
	assert.Error(t, err)
}

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("freegames:test:%d", time.Now().UnixNano())
	s, err := NewRedisStore(ctx, "localhost:6379", 0, key)
	if err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	defer client.Del(context.Background(), key)

	testStoreContract(t, s)

	members, err := client.SMembers(ctx, key).Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"epic:abc", "steam:620"}, members)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, &config.Config{DedupBackend: config.DedupBackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, &config.Config{DedupBackend: config.DedupBackendFile, PostedFile: filepath.Join(dir, "posted.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, &config.Config{DedupBackend: config.DedupBackendSQLite, SQLitePath: filepath.Join(dir, "f.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, &config.Config{DedupBackend: "postgres"})
	assert.Error(t, err)
}
