package models

import (
	"time"
)

// Credentials is the single encrypted credential row (id is always 1).
// All secret fields hold ciphertext; encryption and decryption happen in the
// secrets store, never here.
type Credentials struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	TwitterClientID     string    `gorm:"type:text" json:"-"`
	TwitterClientSecret string    `gorm:"type:text" json:"-"`
	TwitterAccessToken  string    `gorm:"type:text" json:"-"`
	TwitterRefreshToken string    `gorm:"type:text" json:"-"`
	TwitterTokenExpiry  time.Time `json:"-"`
	AnthropicAPIKey     string    `gorm:"type:text" json:"-"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
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
