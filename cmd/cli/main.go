// Command cli manages campaigns, credentials and post history from the
// terminal, working directly against the local database.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/twitter-agent/internal/agent/poster"
	"github.com/twitter-agent/internal/ai"
	"github.com/twitter-agent/internal/campaign"
	"github.com/twitter-agent/internal/config"
	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/scheduler"
	"github.com/twitter-agent/internal/secrets"
	"github.com/twitter-agent/internal/storage"
	"github.com/twitter-agent/internal/storage/sqlite"
	"github.com/twitter-agent/internal/twitter"
	"github.com/twitter-agent/pkg/logger"
	"github.com/twitter-agent/pkg/ratelimit"
)

var configPath string

// app bundles the shared wiring behind every subcommand
type app struct {
	cfg       *config.Config
	repo      storage.Repository
	store     *secrets.Store
	campaigns *campaign.Service
	log       *logger.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{Level: "warn", Format: "console", Output: "stdout"})

	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := repo.Migrate(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := secrets.New(repo, cfg.Encryption.Key, log)
	if err != nil {
		repo.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		repo:      repo,
		store:     store,
		campaigns: campaign.NewService(repo, scheduler.NewPlanner(), log),
		log:       log,
	}, nil
}

func (a *app) close() {
	a.repo.Close()
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "cli",
		Short:         "Manage posting campaigns",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(
		campaignCmd(),
		postNowCmd(),
		statusCmd(),
		historyCmd(),
		credentialsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func campaignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Create, inspect and control campaigns",
	}

	var in campaign.Input
	var hashtags string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			in.Hashtags = splitHashtags(hashtags)
			created, err := a.campaigns.Create(context.Background(), in)
			if err != nil {
				return err
			}
			fmt.Printf("Created campaign %d: %s\n", created.ID, created.Subject)
			return nil
		},
	}
	createCmd.Flags().StringVar(&in.Subject, "subject", "", "campaign subject (required)")
	createCmd.Flags().StringVar(&in.ExtraContext, "context", "", "extra generation context")
	createCmd.Flags().StringVar(&hashtags, "hashtags", "", "comma-separated hashtags, 1 to 5")
	createCmd.Flags().Float64Var(&in.MinIntervalHours, "min-interval", 3, "minimum hours between posts")
	createCmd.Flags().Float64Var(&in.MaxIntervalHours, "max-interval", 6, "maximum hours between posts")
	createCmd.Flags().IntVar(&in.DurationDays, "days", 7, "campaign duration in days")
	createCmd.MarkFlagRequired("subject")
	createCmd.MarkFlagRequired("hashtags")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			campaigns, err := a.campaigns.List(context.Background())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSUBJECT\tNEXT POST")
			for _, c := range campaigns {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Status, c.Subject, formatTime(c.NextPostAt))
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.campaigns.Get(context.Background(), id)
			if err != nil {
				return err
			}
			printCampaign(c)
			return nil
		},
	}

	startCmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start a campaign (stops any other running campaign)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()

			creds, err := a.store.Get(ctx)
			if err != nil {
				return err
			}
			if !creds.Complete() {
				return fmt.Errorf("twitter and anthropic credentials must be configured first, see 'credentials set'")
			}

			started, err := a.campaigns.Start(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("Campaign %d running, next post at %s\n", started.ID, formatTime(started.NextPostAt))
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop <id>",
		Short: "Stop a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.campaigns.Stop(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("Campaign %d stopped\n", id)
			return nil
		},
	}

	cmd.AddCommand(createCmd, listCmd, showCmd, startCmd, stopCmd)
	return cmd
}

func postNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post-now <id>",
		Short: "Run one post attempt for a campaign immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()

			c, err := a.campaigns.Get(ctx, id)
			if err != nil {
				return err
			}

			limiter := ratelimit.NewDefaultLimiter()
			keyProvider := func(ctx context.Context) (string, error) {
				creds, err := a.store.Get(ctx)
				if err != nil {
					return "", err
				}
				return creds.AnthropicAPIKey, nil
			}
			generator := ai.NewClient(a.cfg.Anthropic, keyProvider, limiter, a.log)
			oauth := twitter.NewOAuthManager(a.store, a.log)
			client := twitter.NewClient(oauth, limiter, a.log)

			agent := poster.New(a.repo, generator, publisherAdapter{client}, nil, nil, a.log)
			record, err := agent.Post(ctx, c)
			if err != nil {
				return err
			}

			if record.Status == models.PostStatusPosted {
				fmt.Printf("Posted tweet %s:\n%s\n", record.TweetID, record.Text)
			} else {
				fmt.Printf("Post attempt failed: %s\n", record.ErrorMessage)
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active campaign and schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			active, err := a.campaigns.Active(context.Background())
			if err != nil {
				return err
			}
			if active == nil {
				fmt.Println("No campaign is running")
				return nil
			}
			printCampaign(active)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	var campaignID uint

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent post attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			filter := storage.DefaultPostFilter()
			filter.Limit = limit
			if campaignID != 0 {
				filter.CampaignID = &campaignID
			}

			records, err := a.repo.ListPostRecords(context.Background(), filter)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPOSTED AT\tTWEET ID\tTEXT")
			for _, rec := range records {
				text := rec.Text
				if len(text) > 60 {
					text = text[:57] + "..."
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					rec.ID, rec.Status, rec.PostedAt.Format(time.RFC3339), rec.TweetID, text)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records to show")
	cmd.Flags().UintVar(&campaignID, "campaign", 0, "filter by campaign ID")
	return cmd
}

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Configure API credentials",
	}

	var (
		twitterClientID     string
		twitterClientSecret string
		twitterAccessToken  string
		twitterRefreshToken string
		anthropicAPIKey     string
	)

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Save credentials (empty flags keep the stored value)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			creds, err := a.store.Get(ctx)
			if err != nil {
				return err
			}
			if twitterClientID != "" {
				creds.TwitterClientID = twitterClientID
			}
			if twitterClientSecret != "" {
				creds.TwitterClientSecret = twitterClientSecret
			}
			if twitterAccessToken != "" {
				creds.TwitterAccessToken = twitterAccessToken
			}
			if twitterRefreshToken != "" {
				creds.TwitterRefreshToken = twitterRefreshToken
			}
			if anthropicAPIKey != "" {
				creds.AnthropicAPIKey = anthropicAPIKey
			}
			if err := a.store.Save(ctx, creds); err != nil {
				return err
			}
			fmt.Println("Credentials saved")
			return nil
		},
	}
	setCmd.Flags().StringVar(&twitterClientID, "twitter-client-id", "", "Twitter OAuth client ID")
	setCmd.Flags().StringVar(&twitterClientSecret, "twitter-client-secret", "", "Twitter OAuth client secret")
	setCmd.Flags().StringVar(&twitterAccessToken, "twitter-access-token", "", "Twitter user access token")
	setCmd.Flags().StringVar(&twitterRefreshToken, "twitter-refresh-token", "", "Twitter refresh token")
	setCmd.Flags().StringVar(&anthropicAPIKey, "anthropic-api-key", "", "Anthropic API key")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show which credentials are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			status, err := a.store.Status(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Twitter configured:   %v %s\n", status.HasTwitterCredentials, status.TwitterAccessToken)
			fmt.Printf("Anthropic configured: %v %s\n", status.HasAnthropicCredentials, status.AnthropicAPIKey)
			return nil
		},
	}

	cmd.AddCommand(setCmd, statusCmd)
	return cmd
}

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

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid campaign id %q", raw)
	}
	return uint(id), nil
}

func splitHashtags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func printCampaign(c *models.Campaign) {
	fmt.Printf("Campaign %d\n", c.ID)
	fmt.Printf("  Subject:   %s\n", c.Subject)
	if c.ExtraContext != "" {
		fmt.Printf("  Context:   %s\n", c.ExtraContext)
	}
	fmt.Printf("  Hashtags:  %s\n", strings.Join(c.Hashtags, ", "))
	fmt.Printf("  Interval:  %.1f to %.1f hours\n", c.MinIntervalHours, c.MaxIntervalHours)
	fmt.Printf("  Duration:  %d days\n", c.DurationDays)
	fmt.Printf("  Status:    %s\n", c.Status)
	if c.StartedAt != nil {
		fmt.Printf("  Started:   %s\n", c.StartedAt.Format(time.RFC3339))
		fmt.Printf("  Expires:   %s\n", c.ExpiresAt().Format(time.RFC3339))
	}
	if c.NextPostAt != nil {
		fmt.Printf("  Next post: %s\n", c.NextPostAt.Format(time.RFC3339))
	}
}
