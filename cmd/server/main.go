// Command server runs the campaign agent: the scheduling loop plus the
// management HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twitter-agent/internal/agent/poster"
	"github.com/twitter-agent/internal/ai"
	"github.com/twitter-agent/internal/api"
	"github.com/twitter-agent/internal/campaign"
	"github.com/twitter-agent/internal/config"
	"github.com/twitter-agent/internal/scheduler"
	"github.com/twitter-agent/internal/secrets"
	"github.com/twitter-agent/internal/source/rss"
	"github.com/twitter-agent/internal/storage/sqlite"
	"github.com/twitter-agent/internal/tracker"
	"github.com/twitter-agent/internal/twitter"
	"github.com/twitter-agent/pkg/logger"
	"github.com/twitter-agent/pkg/ratelimit"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Campaign auto-poster: scheduler loop and management API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting campaign agent")

	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := secrets.New(repo, cfg.Encryption.Key, log)
	if err != nil {
		return fmt.Errorf("failed to initialize secrets store: %w", err)
	}
	if cfg.Encryption.Key == "" {
		log.Warn().Msg("No encryption key configured, using built-in default")
	}

	ctx := context.Background()
	if err := bootstrapCredentials(ctx, cfg, store, log); err != nil {
		return err
	}

	limiter := ratelimit.NewDefaultLimiter()

	// The generation key is read from the credential store on every call, so
	// a key saved through the API takes effect without a restart.
	keyProvider := func(ctx context.Context) (string, error) {
		creds, err := store.Get(ctx)
		if err != nil {
			return "", err
		}
		return creds.AnthropicAPIKey, nil
	}
	generator := ai.NewClient(cfg.Anthropic, keyProvider, limiter, log)

	oauth := twitter.NewOAuthManager(store, log)
	twitterClient := twitter.NewClient(oauth, limiter, log)

	enricher := rss.New(cfg.Sources.RSS, limiter, log)

	sheets, err := tracker.New(cfg.Tracker, log)
	if err != nil {
		return fmt.Errorf("failed to initialize sheets tracker: %w", err)
	}
	if sheets != nil {
		if err := sheets.InitializeSheet(ctx); err != nil {
			log.Warn().Err(err).Msg("Sheets tracker unavailable, continuing without it")
			sheets = nil
		}
	}

	planner := scheduler.NewPlanner()
	campaigns := campaign.NewService(repo, planner, log)

	postAgent := poster.New(repo, generator, publisherAdapter{twitterClient}, enricher, sheets, log)

	loop := scheduler.NewLoop(campaigns, postAgent, cfg.Scheduler.TickCron, log)
	if err := loop.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	server := api.NewServer(cfg.Server.Port, campaigns, loop, store, repo, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown error")
	}
	loop.Shutdown()

	log.Info().Msg("Shutdown complete")
	return nil
}

// bootstrapCredentials seeds the encrypted store from config/env on first
// run, for headless deployments. Stored credentials always win.
func bootstrapCredentials(ctx context.Context, cfg *config.Config, store *secrets.Store, log *logger.Logger) error {
	creds, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	if creds.HasTwitter() || creds.HasAnthropic() {
		return nil
	}
	if cfg.Twitter.ClientID == "" && cfg.Anthropic.APIKey == "" {
		log.Warn().Msg("No credentials configured yet, set them via POST /api/credentials")
		return nil
	}

	seed := &secrets.Credentials{
		TwitterClientID:     cfg.Twitter.ClientID,
		TwitterClientSecret: cfg.Twitter.ClientSecret,
		TwitterAccessToken:  cfg.Twitter.AccessToken,
		TwitterRefreshToken: cfg.Twitter.RefreshToken,
		AnthropicAPIKey:     cfg.Anthropic.APIKey,
	}
	if cfg.Twitter.TokenExpiresAt != "" {
		expiry, err := time.Parse(time.RFC3339, cfg.Twitter.TokenExpiresAt)
		if err != nil {
			return fmt.Errorf("invalid twitter.token_expires_at: %w", err)
		}
		seed.TwitterTokenExpiry = expiry
	}

	log.Info().Msg("Seeding credential store from environment")
	return store.Save(ctx, seed)
}

// publisherAdapter narrows the Twitter client to the poster's publisher
// contract
type publisherAdapter struct {
	client *twitter.Client
}

func (p publisherAdapter) Publish(ctx context.Context, text string) (string, error) {
	result, err := p.client.Publish(ctx, text)
	if err != nil {
		return "", err
	}
	return result.TweetID, nil
}
