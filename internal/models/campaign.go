package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// CampaignStatus represents the current state of a campaign
type CampaignStatus string

const (
	CampaignStatusStopped CampaignStatus = "stopped"
	CampaignStatusRunning CampaignStatus = "running"
)

// StringSlice is a custom type for storing string arrays as JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return nil
}

// Campaign represents a configured, time-bounded posting plan.
// At most one campaign has status=running at any instant.
type Campaign struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Subject          string         `gorm:"not null" json:"subject"`
	ExtraContext     string         `gorm:"type:text" json:"extra_context"`
	Hashtags         StringSlice    `gorm:"type:json;not null" json:"hashtags"`
	MinIntervalHours float64        `gorm:"not null;default:3" json:"min_interval_hours"`
	MaxIntervalHours float64        `gorm:"not null;default:6" json:"max_interval_hours"`
	DurationDays     int            `gorm:"not null;default:7" json:"duration_days"`
	Status           CampaignStatus `gorm:"index;default:'stopped'" json:"status"`
	StartedAt        *time.Time     `json:"started_at"`
	NextPostAt       *time.Time     `json:"next_post_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsRunning returns true if the campaign is currently active
func (c *Campaign) IsRunning() bool {
	return c.Status == CampaignStatusRunning
}

// ExpiresAt returns the end of the campaign window, or zero time if the
// campaign has never been started.
func (c *Campaign) ExpiresAt() time.Time {
	if c.StartedAt == nil {
		return time.Time{}
	}
	return c.StartedAt.Add(time.Duration(c.DurationDays) * 24 * time.Hour)
}

// IsExpired returns true if the campaign window has passed at the given instant
func (c *Campaign) IsExpired(now time.Time) bool {
	if c.StartedAt == nil {
		return false
	}
	return now.After(c.ExpiresAt())
}

// IsDue returns true if a post is due at the given instant
func (c *Campaign) IsDue(now time.Time) bool {
	return c.NextPostAt != nil && !now.Before(*c.NextPostAt)
}
