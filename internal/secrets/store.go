// Package secrets handles credential encryption at rest. API keys and tokens
// are stored as ciphertext in the single credentials row and only decrypted
// on the way to an API client.
package secrets

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/storage"
	"github.com/twitter-agent/pkg/logger"
)

// DefaultKey is used when no encryption key is configured. Deployments must
// override it via config or environment.
const DefaultKey = "default-key-change-in-production!"

// Credentials is the decrypted view of the stored credential row
type Credentials struct {
	TwitterClientID     string
	TwitterClientSecret string
	TwitterAccessToken  string
	TwitterRefreshToken string
	TwitterTokenExpiry  time.Time
	AnthropicAPIKey     string
}

// HasTwitter returns true if the Twitter app and user tokens are present
func (c *Credentials) HasTwitter() bool {
	return c.TwitterClientID != "" && c.TwitterClientSecret != "" && c.TwitterAccessToken != ""
}

// HasAnthropic returns true if a generation API key is present
func (c *Credentials) HasAnthropic() bool {
	return c.AnthropicAPIKey != ""
}

// Complete returns true if posting is fully configured
func (c *Credentials) Complete() bool {
	return c.HasTwitter() && c.HasAnthropic()
}

// Status reports which credential groups are configured, for display. Secret
// values never leave the store unmasked.
type Status struct {
	HasTwitterCredentials   bool   `json:"hasTwitterCredentials"`
	HasAnthropicCredentials bool   `json:"hasAnthropicCredentials"`
	TwitterAccessToken      string `json:"twitterAccessToken,omitempty"` // masked
	AnthropicAPIKey         string `json:"anthropicApiKey,omitempty"`    // masked
}

// Store encrypts and decrypts credentials around the repository
type Store struct {
	repo storage.Repository
	aead cipher.AEAD
	log  *logger.Logger
}

// New creates a store keyed by the given passphrase. The passphrase is
// stretched to a 32-byte key with SHA-256.
func New(repo storage.Repository, passphrase string, log *logger.Logger) (*Store, error) {
	if passphrase == "" {
		passphrase = DefaultKey
	}
	key := sha256.Sum256([]byte(passphrase))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return &Store{
		repo: repo,
		aead: aead,
		log:  log.WithComponent("secrets"),
	}, nil
}

// Save encrypts and persists the full credential set, replacing the stored row
func (s *Store) Save(ctx context.Context, creds *Credentials) error {
	row := &models.Credentials{
		ID:                  1,
		TwitterClientID:     s.encrypt(creds.TwitterClientID),
		TwitterClientSecret: s.encrypt(creds.TwitterClientSecret),
		TwitterAccessToken:  s.encrypt(creds.TwitterAccessToken),
		TwitterRefreshToken: s.encrypt(creds.TwitterRefreshToken),
		TwitterTokenExpiry:  creds.TwitterTokenExpiry,
		AnthropicAPIKey:     s.encrypt(creds.AnthropicAPIKey),
	}
	if err := s.repo.SaveCredentials(ctx, row); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	s.log.Info().Msg("Credentials saved")
	return nil
}

// Get returns the decrypted credential set. Fields that fail to decrypt
// (e.g. after an encryption key change) come back empty.
func (s *Store) Get(ctx context.Context) (*Credentials, error) {
	row, err := s.repo.GetCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return &Credentials{
		TwitterClientID:     s.decrypt(row.TwitterClientID),
		TwitterClientSecret: s.decrypt(row.TwitterClientSecret),
		TwitterAccessToken:  s.decrypt(row.TwitterAccessToken),
		TwitterRefreshToken: s.decrypt(row.TwitterRefreshToken),
		TwitterTokenExpiry:  row.TwitterTokenExpiry,
		AnthropicAPIKey:     s.decrypt(row.AnthropicAPIKey),
	}, nil
}

// UpdateTwitterToken persists a refreshed user token without touching the
// rest of the credential set.
func (s *Store) UpdateTwitterToken(ctx context.Context, access, refresh string, expiry time.Time) error {
	creds, err := s.Get(ctx)
	if err != nil {
		return err
	}
	creds.TwitterAccessToken = access
	if refresh != "" {
		creds.TwitterRefreshToken = refresh
	}
	creds.TwitterTokenExpiry = expiry
	return s.Save(ctx, creds)
}

// Status returns masked configuration state for display
func (s *Store) Status(ctx context.Context) (*Status, error) {
	creds, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		HasTwitterCredentials:   creds.HasTwitter(),
		HasAnthropicCredentials: creds.HasAnthropic(),
		TwitterAccessToken:      Mask(creds.TwitterAccessToken),
		AnthropicAPIKey:         Mask(creds.AnthropicAPIKey),
	}, nil
}

func (s *Store) encrypt(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		// crypto/rand failing means the process is in no state to continue
		panic(fmt.Sprintf("secrets: reading random nonce: %v", err))
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed)
}

func (s *Store) decrypt(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < s.aead.NonceSize() {
		s.log.Warn().Msg("Stored credential is not valid ciphertext")
		return ""
	}
	nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		s.log.Warn().Msg("Failed to decrypt stored credential (encryption key changed?)")
		return ""
	}
	return string(plain)
}

// Mask hides all but the last four characters of a secret
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
