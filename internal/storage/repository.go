package storage

import (
	"context"
	"time"

	"github.com/twitter-agent/internal/models"
)

// Repository defines the interface for data persistence
type Repository interface {
	// Campaign operations
	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
	GetCampaignByID(ctx context.Context, id uint) (*models.Campaign, error)
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	UpdateCampaign(ctx context.Context, campaign *models.Campaign) error

	// FindActiveCampaign returns the single running campaign, or nil when
	// none is running. The same query backs scheduling and status reporting.
	FindActiveCampaign(ctx context.Context) (*models.Campaign, error)

	// StartCampaign marks the campaign running with its first due time.
	StartCampaign(ctx context.Context, id uint, startedAt, nextPostAt time.Time) error

	// StopCampaign marks the campaign stopped and clears its due time.
	// Stopping an already-stopped campaign is a no-op.
	StopCampaign(ctx context.Context, id uint) error

	// SetNextPostTime updates only the campaign's next due time.
	SetNextPostTime(ctx context.Context, id uint, next time.Time) error

	// Post history operations (append-only)
	CreatePostRecord(ctx context.Context, record *models.PostRecord) error
	ListPostRecords(ctx context.Context, filter PostFilter) ([]*models.PostRecord, error)
	RecentPostedTexts(ctx context.Context, campaignID uint, limit int) ([]string, error)

	// Credentials (singleton row)
	GetCredentials(ctx context.Context) (*models.Credentials, error)
	SaveCredentials(ctx context.Context, creds *models.Credentials) error

	// Maintenance
	Close() error
	Migrate() error
}

// PostFilter defines filtering options for post history
type PostFilter struct {
	CampaignID *uint
	Status     *models.PostStatus
	Limit      int
}

// DefaultPostFilter returns a filter with sensible defaults
func DefaultPostFilter() PostFilter {
	return PostFilter{
		Limit: 50,
	}
}
