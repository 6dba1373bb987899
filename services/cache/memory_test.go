package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryServiceExpiry(t *testing.T) {
	now := time.Date(2024, 4, 28, 12, 0, 0, 0, time.UTC)
	m := NewMemoryService()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set("steam_rate_limited", []byte("600"), 10*time.Minute))

	value, err := m.Get("steam_rate_limited")
	require.NoError(t, err)
	assert.Equal(t, "600", string(value))

	now = now.Add(10 * time.Minute)
	_, err = m.Get("steam_rate_limited")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryServiceDelete(t *testing.T) {
	m := NewMemoryService()

	require.NoError(t, m.Set("k", []byte("v"), 0))
	_, err := m.Get("k")
	require.NoError(t, err)

	require.NoError(t, m.Delete("k"))
	_, err = m.Get("k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNewPicksBackend(t *testing.T) {
	assert.IsType(t, &MemoryService{}, New(""))
	assert.IsType(t, &MemcacheService{}, New("localhost:11211"))
}
