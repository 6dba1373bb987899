package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dealmungchi/freegameworker/config"
	"github.com/dealmungchi/freegameworker/helpers"
	"github.com/dealmungchi/freegameworker/internal"
	"github.com/dealmungchi/freegameworker/internal/crawler"
	"github.com/dealmungchi/freegameworker/internal/offer"
	"github.com/dealmungchi/freegameworker/internal/render"
	"github.com/dealmungchi/freegameworker/logger"
	"github.com/dealmungchi/freegameworker/services/cache"
	"github.com/dealmungchi/freegameworker/services/dedup"
	"github.com/dealmungchi/freegameworker/services/publisher"
	"github.com/dealmungchi/freegameworker/services/worker"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:           "freegameworker",
		Short:         "Announce free and heavily discounted games to a Discord channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Load environment variables
			envErr := loadEnvFile()

			// Initialize logger first
			logger.Init()
			log := logger.Default
			if envErr != nil {
				log.Debug().Err(envErr).Msg("Failed to load .env")
			}

			cfg := config.LoadConfig()
			if mode != "" {
				cfg.SetRunMode(mode)
			}
			if err := cfg.Validate(); err != nil {
				log.Error().Err(err).Msg("Invalid configuration")
				return err
			}

			log.Info().
				Str("environment", cfg.Environment).
				Str("run_mode", cfg.RunMode).
				Strs("stores", cfg.EnabledStores).
				Msg("Starting application")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, deps, err := initializeWorker(ctx, cfg)
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize services")
				return err
			}
			defer deps.Cleanup()

			if !cfg.IsPersistent() {
				result := w.Run(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Posted %d new games.\n", result.Announced)
				return nil
			}

			return serve(ctx, cfg, w)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "run mode: action (one run, then exit) or daemon (scheduled runs plus command endpoint)")
	return cmd
}

// loadEnvFile reads .env style files into the environment. A missing file is not an error.
func loadEnvFile(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// serve runs the schedule and the command endpoint until a shutdown signal
func serve(ctx context.Context, cfg *config.Config, w *worker.Worker) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting free game worker, interval %s", cfg.CrawlInterval)
		w.Start(ctx)
	}()

	err := worker.NewServer(cfg.ListenAddr, cfg.CommandToken, w).ListenAndServe(ctx)

	if err != nil {
		logger.Error("Command server failed: %v", err)
	}
	logger.Info("Shutting down gracefully...")
	cancel()
	wg.Wait()
	return err
}

// initializeWorker wires every service the pipeline needs
func initializeWorker(ctx context.Context, cfg *config.Config) (*worker.Worker, *internal.Dependencies, error) {
	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	crawlers := crawler.CreateCrawlers(cfg, deps.Cache)
	if len(crawlers) == 0 {
		deps.Cleanup()
		return nil, nil, fmt.Errorf("no crawlers were created from ENABLED_STORES=%v", cfg.EnabledStores)
	}
	logger.Info("Created %d crawlers", len(crawlers))

	normalizer := offer.NewNormalizer(cfg.DiscountThreshold)
	logger.Info("Announcing free games and discounts of at least %d%%", normalizer.Threshold())

	w := worker.NewWorker(
		crawlers,
		normalizer,
		deps.Store,
		render.NewRenderer(cfg.BatchSize, cfg.MentionOnNew),
		deps.Publisher,
		helpers.NewLogger(cfg.ErrorLogFile),
		worker.Options{
			FetchTimeout:  cfg.FetchTimeout,
			RunTimeout:    cfg.RunTimeout,
			CrawlInterval: cfg.CrawlInterval,
			StorePriority: cfg.StorePriority,
		},
	)
	return w, deps, nil
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{}

	deps.Cache = cache.New(cfg.MemcacheAddr)
	if cfg.MemcacheAddr != "" {
		logger.Info("Using Memcache at %s for rate limit state", cfg.MemcacheAddr)
	}

	store, err := dedup.Open(ctx, cfg)
	if err != nil {
		logger.LogError("dedup", err, "Failed to open %s dedup store, falling back to memory", cfg.DedupBackend)
		store = dedup.NewMemoryStore()
	}
	deps.Store = store

	var pub publisher.Publisher = publisher.NewDiscordPublisher(
		cfg.DiscordAPIBase,
		cfg.DiscordBotToken,
		cfg.ChannelID,
		publisher.WithClaimPrompt(cfg.ClaimPrompt),
	)
	if cfg.RedisStream != "" {
		pub = publisher.NewFanout(pub, publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		))
		logger.Info("Mirroring notifications to Redis stream %s at %s", cfg.RedisStream, cfg.RedisAddr)
	}
	deps.Publisher = pub

	return deps, nil
}
