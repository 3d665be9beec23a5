package models

import (
	"time"
)

// PostStatus represents the outcome of a post attempt
type PostStatus string

const (
	PostStatusPosted PostStatus = "posted"
	PostStatusFailed PostStatus = "failed"
)

// FailedPostPlaceholder is recorded as the text of an attempt that never
// produced a publishable message.
const FailedPostPlaceholder = "Failed to generate/post"

// PostRecord is an immutable audit entry for one post attempt, success or
// failure. Records are created exactly once and never mutated.
type PostRecord struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	CampaignID   *uint       `gorm:"index" json:"campaign_id"` // Nullable back-reference, not an owning relation
	Text         string      `gorm:"type:text;not null" json:"text"`
	HashtagsUsed StringSlice `gorm:"type:json" json:"hashtags_used"`
	TweetID      string      `gorm:"index" json:"tweet_id"` // Identifier returned by the publishing API, empty on failure
	Status       PostStatus  `gorm:"index;not null" json:"status"`
	ErrorMessage string      `json:"error_message"` // Present iff status=failed
	PostedAt     time.Time   `gorm:"autoCreateTime;index" json:"posted_at"`
}
