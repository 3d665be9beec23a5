package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Twitter    TwitterConfig    `mapstructure:"twitter"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Tracker    TrackerConfig    `mapstructure:"tracker"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// TwitterConfig holds Twitter API credentials used to bootstrap the
// encrypted credential store on first run (headless deployments).
type TwitterConfig struct {
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	AccessToken    string `mapstructure:"access_token"`
	RefreshToken   string `mapstructure:"refresh_token"`
	TokenExpiresAt string `mapstructure:"token_expires_at"`
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"` // Bootstrap only; runtime key lives in the credential store
	Model         string `mapstructure:"model"`
	FallbackModel string `mapstructure:"fallback_model"`
	MaxTokens     int    `mapstructure:"max_tokens"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	TickCron string `mapstructure:"tick_cron"`
}

// SourcesConfig holds generation-context source settings
type SourcesConfig struct {
	RSS RSSConfig `mapstructure:"rss"`
}

// RSSConfig holds RSS feed settings for context enrichment
type RSSConfig struct {
	Enabled      bool      `mapstructure:"enabled"`
	Feeds        []RSSFeed `mapstructure:"feeds"`
	MaxHeadlines int       `mapstructure:"max_headlines"`
}

// RSSFeed represents a single RSS feed
type RSSFeed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// TrackerConfig holds Google Sheets history-mirror settings
type TrackerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SheetName          string `mapstructure:"sheet_name"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// EncryptionConfig holds the credential encryption key
type EncryptionConfig struct {
	Key string `mapstructure:"key"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".twitter-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("TWITTER")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("server.port", "TWITTER_SERVER_PORT", "PORT")
	v.BindEnv("database.dsn", "TWITTER_DATABASE_DSN")
	v.BindEnv("anthropic.api_key", "TWITTER_ANTHROPIC_API_KEY")
	v.BindEnv("twitter.client_id", "TWITTER_TWITTER_CLIENT_ID")
	v.BindEnv("twitter.client_secret", "TWITTER_TWITTER_CLIENT_SECRET")
	v.BindEnv("twitter.access_token", "TWITTER_TWITTER_ACCESS_TOKEN")
	v.BindEnv("twitter.refresh_token", "TWITTER_TWITTER_REFRESH_TOKEN")
	v.BindEnv("encryption.key", "TWITTER_ENCRYPTION_KEY", "ENCRYPTION_KEY")
	v.BindEnv("tracker.enabled", "TWITTER_TRACKER_ENABLED")
	v.BindEnv("tracker.spreadsheet_id", "TWITTER_TRACKER_SPREADSHEET_ID")
	v.BindEnv("tracker.credentials_file", "TWITTER_TRACKER_CREDENTIALS_FILE")
	v.BindEnv("tracker.service_account_json", "TWITTER_TRACKER_SERVICE_ACCOUNT_JSON")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)

	// Database defaults
	v.SetDefault("database.dsn", "./data/twitter-agent.db")

	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.fallback_model", "claude-3-5-haiku-20241022")
	v.SetDefault("anthropic.max_tokens", 1024)

	// Scheduler defaults - check for due posts every minute
	v.SetDefault("scheduler.tick_cron", "* * * * *")

	// Sources defaults
	v.SetDefault("sources.rss.enabled", false)
	v.SetDefault("sources.rss.max_headlines", 3)

	// Tracker defaults
	v.SetDefault("tracker.enabled", false)
	v.SetDefault("tracker.sheet_name", "Posts")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}
