package twitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/twitter-agent/internal/secrets"
	"github.com/twitter-agent/pkg/logger"
)

const (
	authURL  = "https://twitter.com/i/oauth2/authorize"
	tokenURL = "https://api.twitter.com/2/oauth2/token"
)

// CredentialSource supplies decrypted credentials and persists refreshed
// tokens. Implemented by the secrets store.
type CredentialSource interface {
	Get(ctx context.Context) (*secrets.Credentials, error)
	UpdateTwitterToken(ctx context.Context, access, refresh string, expiry time.Time) error
}

// OAuthManager hands out a valid user access token, refreshing it through the
// OAuth 2.0 token endpoint when it is about to expire.
type OAuthManager struct {
	source CredentialSource
	log    *logger.Logger

	mu sync.Mutex // serializes refreshes
}

// NewOAuthManager creates a new OAuth manager
func NewOAuthManager(source CredentialSource, log *logger.Logger) *OAuthManager {
	return &OAuthManager{
		source: source,
		log:    log.WithComponent("oauth"),
	}
}

func oauthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}
}

// AccessToken returns a valid access token, refreshing if necessary
func (m *OAuthManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.source.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load twitter credentials: %w", err)
	}
	if !creds.HasTwitter() {
		return "", fmt.Errorf("twitter credentials not configured")
	}

	// Tokens with no recorded expiry are treated as long-lived
	if creds.TwitterTokenExpiry.IsZero() || time.Now().Add(5*time.Minute).Before(creds.TwitterTokenExpiry) {
		return creds.TwitterAccessToken, nil
	}

	if creds.TwitterRefreshToken == "" {
		return "", fmt.Errorf("twitter token expired and no refresh token available, please re-authenticate")
	}

	m.log.Info().Msg("Twitter token expiring, refreshing")

	cfg := oauthConfig(creds.TwitterClientID, creds.TwitterClientSecret)
	src := cfg.TokenSource(ctx, &oauth2.Token{
		AccessToken:  creds.TwitterAccessToken,
		RefreshToken: creds.TwitterRefreshToken,
		TokenType:    "Bearer",
		Expiry:       creds.TwitterTokenExpiry,
	})

	token, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh twitter token: %w", err)
	}

	if err := m.source.UpdateTwitterToken(ctx, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		m.log.Warn().Err(err).Msg("Failed to persist refreshed token")
	}

	m.log.Info().
		Time("expires_at", token.Expiry).
		Msg("Twitter token refreshed")

	return token.AccessToken, nil
}
