package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"
)

// Run modes
const (
	RunModeOneShot    = "action"
	RunModePersistent = "daemon"
)

// Dedup backends
const (
	DedupBackendFile   = "file"
	DedupBackendSQLite = "sqlite"
	DedupBackendRedis  = "redis"
	DedupBackendMemory = "memory"
)

// Config represents the application configuration
type Config struct {
	// Messaging platform
	DiscordBotToken string
	ChannelID       string
	DiscordAPIBase  string
	MentionOnNew    bool
	ClaimPrompt     bool

	// Run behaviour
	RunMode           string
	DiscountThreshold int
	FetchTimeout      time.Duration
	RunTimeout        time.Duration
	CrawlInterval     time.Duration
	BatchSize         int
	StorePriority     []string
	EnabledStores     []string

	// Persistent-mode command surface
	ListenAddr   string
	CommandToken string

	// Dedup store
	DedupBackend  string
	PostedFile    string
	SQLitePath    string
	RedisAddr     string
	RedisDB       int
	RedisDedupKey string

	// Redis stream mirror
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Storefront endpoints
	EpicURL    string
	SteamURL   string
	GOGURL     string
	UbisoftURL string

	// Environment
	Environment  string
	ErrorLogFile string

	parseErrs []error
}

// LoadConfig loads the configuration from environment variables with defaults.
// Malformed values are remembered and reported by Validate.
func LoadConfig() *Config {
	cfg := &Config{
		DiscordBotToken: getEnv("DISCORD_BOT_TOKEN", ""),
		ChannelID:       strings.TrimSpace(getEnv("CHANNEL_ID", "")),
		DiscordAPIBase:  strings.TrimRight(getEnv("DISCORD_API_BASE", "https://discord.com/api/v10"), "/"),
		RunMode:         normalizeRunMode(getEnv("RUN_MODE", RunModeOneShot)),
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		CommandToken:    getEnv("COMMAND_TOKEN", ""),
		StorePriority:   getEnvList("STORE_PRIORITY", "Epic,Steam,GOG,Ubisoft,EA"),
		EnabledStores:   getEnvList("ENABLED_STORES", "Epic,Steam,GOG,Ubisoft"),
		DedupBackend:    strings.ToLower(getEnv("DEDUP_BACKEND", DedupBackendFile)),
		PostedFile:      getEnv("POSTED_FILE", "posted_games.json"),
		SQLitePath:      getEnv("SQLITE_PATH", "freegames.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDedupKey:   getEnv("REDIS_DEDUP_KEY", "freegames:announced"),
		RedisStream:     getEnv("REDIS_STREAM", ""),
		MemcacheAddr:    getEnv("MEMCACHE_ADDR", ""),
		EpicURL:         getEnv("EPIC_URL", "https://store-site-backend-static.ak.epicgames.com/freeGamesPromotions?locale=en-US&country=US&allowCountries=US"),
		SteamURL:        getEnv("STEAM_URL", "https://store.steampowered.com/search/results/?query&start=0&count=50&specials=1&infinite=1&cc=us&l=en"),
		GOGURL:          getEnv("GOG_URL", "https://www.gog.com/en/games?discounted=true"),
		UbisoftURL:      getEnv("UBISOFT_URL", "https://store.ubisoft.com/us/free-games"),
		Environment:     getEnv("FREEGAMES_ENVIRONMENT", "development"),
		ErrorLogFile:    getEnv("ERROR_LOG_FILE", ""),
	}

	cfg.MentionOnNew = cfg.boolEnv("MENTION_ON_NEW", false)
	cfg.ClaimPrompt = cfg.boolEnv("CLAIM_PROMPT", true)
	cfg.DiscountThreshold = cfg.intEnv("DISCOUNT_THRESHOLD", 50)
	cfg.FetchTimeout = time.Duration(cfg.intEnv("FETCH_TIMEOUT_SECONDS", 30)) * time.Second
	cfg.RunTimeout = time.Duration(cfg.intEnv("RUN_TIMEOUT_SECONDS", 120)) * time.Second
	cfg.CrawlInterval = time.Duration(cfg.intEnv("CRAWL_INTERVAL_SECONDS", 3600)) * time.Second
	cfg.BatchSize = cfg.intEnv("BATCH_SIZE", 1)
	cfg.RedisDB = cfg.intEnv("REDIS_DB", 0)
	cfg.RedisStreamMaxLength = cfg.intEnv("REDIS_STREAM_MAX_LENGTH", 1000)

	return cfg
}

// Validate checks required options and value ranges. The returned error is a
// configuration error and must halt startup.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.parseErrs...)

	if c.DiscordBotToken == "" {
		errs = append(errs, errors.New("DISCORD_BOT_TOKEN is required"))
	}
	if c.ChannelID == "" {
		errs = append(errs, errors.New("CHANNEL_ID is required"))
	} else if id, err := strconv.ParseUint(c.ChannelID, 10, 64); err != nil || id == 0 {
		errs = append(errs, fmt.Errorf("CHANNEL_ID must be a numeric channel id, got %q", c.ChannelID))
	}
	if c.RunMode != RunModeOneShot && c.RunMode != RunModePersistent {
		errs = append(errs, fmt.Errorf("RUN_MODE must be %q or %q, got %q", RunModeOneShot, RunModePersistent, c.RunMode))
	}
	if c.DiscountThreshold < 1 || c.DiscountThreshold > 100 {
		errs = append(errs, fmt.Errorf("DISCOUNT_THRESHOLD must be between 1 and 100, got %d", c.DiscountThreshold))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT_SECONDS must be positive"))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, errors.New("RUN_TIMEOUT_SECONDS must be positive"))
	}
	if c.RunMode == RunModePersistent && c.CrawlInterval <= 0 {
		errs = append(errs, errors.New("CRAWL_INTERVAL_SECONDS must be positive in daemon mode"))
	}
	switch c.DedupBackend {
	case DedupBackendFile, DedupBackendSQLite, DedupBackendRedis, DedupBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("DEDUP_BACKEND %q is not supported", c.DedupBackend))
	}

	if len(errs) == 0 {
		return nil
	}
	return apperrors.NewConfiguration("invalid configuration", errors.Join(errs...))
}

// SetRunMode overrides the configured run mode, accepting the same aliases as RUN_MODE
func (c *Config) SetRunMode(mode string) {
	c.RunMode = normalizeRunMode(mode)
}

// IsPersistent reports whether the worker should keep running
func (c *Config) IsPersistent() bool {
	return c.RunMode == RunModePersistent
}

func normalizeRunMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", RunModeOneShot, "one-shot", "oneshot", "once":
		return RunModeOneShot
	case RunModePersistent, "persistent", "persistent-with-command", "serve":
		return RunModePersistent
	default:
		return strings.ToLower(strings.TrimSpace(mode))
	}
}

func (c *Config) intEnv(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return defaultValue
	}
	return n
}

func (c *Config) boolEnv(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return defaultValue
	}
	return b
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvList splits a comma separated environment variable
func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
