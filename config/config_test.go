package config

import (
	"testing"
	"time"

	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("CHANNEL_ID", "123456789012345678")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	config := LoadConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, RunModeOneShot, config.RunMode)
	assert.False(t, config.IsPersistent())
	assert.False(t, config.MentionOnNew)
	assert.True(t, config.ClaimPrompt)
	assert.Equal(t, 50, config.DiscountThreshold)
	assert.Equal(t, 30*time.Second, config.FetchTimeout)
	assert.Equal(t, 120*time.Second, config.RunTimeout)
	assert.Equal(t, time.Hour, config.CrawlInterval)
	assert.Equal(t, 1, config.BatchSize)
	assert.Equal(t, DedupBackendFile, config.DedupBackend)
	assert.Equal(t, "posted_games.json", config.PostedFile)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, "", config.MemcacheAddr)
	assert.Equal(t, []string{"Epic", "Steam", "GOG", "Ubisoft", "EA"}, config.StorePriority)
	assert.Equal(t, []string{"Epic", "Steam", "GOG", "Ubisoft"}, config.EnabledStores)
	assert.Equal(t, "https://discord.com/api/v10", config.DiscordAPIBase)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("RUN_MODE", "persistent")
	t.Setenv("MENTION_ON_NEW", "true")
	t.Setenv("DISCOUNT_THRESHOLD", "75")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "5")
	t.Setenv("CRAWL_INTERVAL_SECONDS", "600")
	t.Setenv("DEDUP_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("STORE_PRIORITY", " Steam, Epic ,,GOG")
	t.Setenv("DISCORD_API_BASE", "http://127.0.0.1:9999/api/")

	config := LoadConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, RunModePersistent, config.RunMode)
	assert.True(t, config.IsPersistent())
	assert.True(t, config.MentionOnNew)
	assert.Equal(t, 75, config.DiscountThreshold)
	assert.Equal(t, 5*time.Second, config.FetchTimeout)
	assert.Equal(t, 10*time.Minute, config.CrawlInterval)
	assert.Equal(t, DedupBackendRedis, config.DedupBackend)
	assert.Equal(t, 2, config.RedisDB)
	assert.Equal(t, []string{"Steam", "Epic", "GOG"}, config.StorePriority)
	assert.Equal(t, "http://127.0.0.1:9999/api", config.DiscordAPIBase)
}

func TestValidateMissingRequired(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("CHANNEL_ID", "")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "DISCORD_BOT_TOKEN is required")
	assert.Contains(t, err.Error(), "CHANNEL_ID is required")
}

func TestValidateRejectsMalformedValues(t *testing.T) {
	setRequired(t)
	t.Setenv("CHANNEL_ID", "general")
	t.Setenv("DISCOUNT_THRESHOLD", "half")
	t.Setenv("MENTION_ON_NEW", "maybe")
	t.Setenv("RUN_MODE", "sometimes")
	t.Setenv("DEDUP_BACKEND", "postgres")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHANNEL_ID must be a numeric channel id")
	assert.Contains(t, err.Error(), "invalid DISCOUNT_THRESHOLD")
	assert.Contains(t, err.Error(), "invalid MENTION_ON_NEW")
	assert.Contains(t, err.Error(), "RUN_MODE must be")
	assert.Contains(t, err.Error(), "DEDUP_BACKEND \"postgres\" is not supported")
}

func TestValidateThresholdRange(t *testing.T) {
	setRequired(t)
	t.Setenv("DISCOUNT_THRESHOLD", "101")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCOUNT_THRESHOLD must be between 1 and 100")
}

func TestSetRunModeAliases(t *testing.T) {
	setRequired(t)
	config := LoadConfig()

	config.SetRunMode("daemon")
	assert.True(t, config.IsPersistent())
	config.SetRunMode("one-shot")
	assert.Equal(t, RunModeOneShot, config.RunMode)
	config.SetRunMode("serve")
	assert.Equal(t, RunModePersistent, config.RunMode)
}
