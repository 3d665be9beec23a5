package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Campaign{},
		&models.PostRecord{},
		&models.Credentials{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Campaign operations

func (r *Repository) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *Repository) GetCampaignByID(ctx context.Context, id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *Repository) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *Repository) UpdateCampaign(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Save(campaign).Error
}

func (r *Repository) FindActiveCampaign(ctx context.Context) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).
		Where("status = ?", models.CampaignStatusRunning).
		Order("started_at DESC").
		First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *Repository) StartCampaign(ctx context.Context, id uint, startedAt, nextPostAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusRunning,
			"started_at":   startedAt,
			"next_post_at": nextPostAt,
		}).Error
}

func (r *Repository) StopCampaign(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusStopped,
			"next_post_at": nil,
		}).Error
}

func (r *Repository) SetNextPostTime(ctx context.Context, id uint, next time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Update("next_post_at", next).Error
}

// Post history operations

func (r *Repository) CreatePostRecord(ctx context.Context, record *models.PostRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *Repository) ListPostRecords(ctx context.Context, filter storage.PostFilter) ([]*models.PostRecord, error) {
	var records []*models.PostRecord
	query := r.db.WithContext(ctx).Model(&models.PostRecord{})

	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	query = query.Order("posted_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Repository) RecentPostedTexts(ctx context.Context, campaignID uint, limit int) ([]string, error) {
	var texts []string
	if err := r.db.WithContext(ctx).
		Model(&models.PostRecord{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.PostStatusPosted).
		Order("posted_at DESC").
		Limit(limit).
		Pluck("text", &texts).Error; err != nil {
		return nil, err
	}
	return texts, nil
}

// Credentials (singleton row)

func (r *Repository) GetCredentials(ctx context.Context) (*models.Credentials, error) {
	var creds models.Credentials
	err := r.db.WithContext(ctx).First(&creds, 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Credentials{ID: 1}, nil
		}
		return nil, err
	}
	return &creds, nil
}

func (r *Repository) SaveCredentials(ctx context.Context, creds *models.Credentials) error {
	creds.ID = 1
	return r.db.WithContext(ctx).Save(creds).Error
}
