// Package campaign implements the campaign lifecycle: creation, editing,
// and the start/stop state machine that guarantees at most one running
// campaign at a time.
package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/twitter-agent/internal/apperrors"
	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/storage"
	"github.com/twitter-agent/pkg/logger"
)

const (
	minHashtags      = 1
	maxHashtags      = 5
	minIntervalHours = 0.5
)

// Planner picks the next due time within a campaign's interval bounds
type Planner interface {
	Next(now time.Time, minHours, maxHours float64) time.Time
}

// Input carries the user-editable campaign fields
type Input struct {
	Subject          string   `json:"subject"`
	ExtraContext     string   `json:"extra_context"`
	Hashtags         []string `json:"hashtags"`
	MinIntervalHours float64  `json:"min_interval_hours"`
	MaxIntervalHours float64  `json:"max_interval_hours"`
	DurationDays     int      `json:"duration_days"`
}

// Service manages campaign CRUD and the running/stopped state machine
type Service struct {
	repo    storage.Repository
	planner Planner
	now     func() time.Time
	log     *logger.Logger
}

// NewService creates a campaign service
func NewService(repo storage.Repository, planner Planner, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		planner: planner,
		now:     time.Now,
		log:     log.WithComponent("campaign"),
	}
}

// SetNowFunc overrides the clock, for tests
func (s *Service) SetNowFunc(now func() time.Time) {
	s.now = now
}

// Create validates the input and persists a new stopped campaign
func (s *Service) Create(ctx context.Context, in Input) (*models.Campaign, error) {
	normalized, err := validate(in)
	if err != nil {
		return nil, err
	}

	campaign := &models.Campaign{
		Subject:          strings.TrimSpace(in.Subject),
		ExtraContext:     strings.TrimSpace(in.ExtraContext),
		Hashtags:         normalized,
		MinIntervalHours: in.MinIntervalHours,
		MaxIntervalHours: in.MaxIntervalHours,
		DurationDays:     in.DurationDays,
		Status:           models.CampaignStatusStopped,
	}

	if err := s.repo.CreateCampaign(ctx, campaign); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("campaign_id", campaign.ID).
		Str("subject", campaign.Subject).
		Msg("Campaign created")

	return campaign, nil
}

// Update replaces the editable fields of a stopped campaign. Editing a
// running campaign is rejected; stop it first.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Campaign, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.IsRunning() {
		return nil, apperrors.Conflictf("campaign %d is running, stop it before editing", id)
	}

	normalized, err := validate(in)
	if err != nil {
		return nil, err
	}

	campaign.Subject = strings.TrimSpace(in.Subject)
	campaign.ExtraContext = strings.TrimSpace(in.ExtraContext)
	campaign.Hashtags = normalized
	campaign.MinIntervalHours = in.MinIntervalHours
	campaign.MaxIntervalHours = in.MaxIntervalHours
	campaign.DurationDays = in.DurationDays

	if err := s.repo.UpdateCampaign(ctx, campaign); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("campaign_id", campaign.ID).
		Msg("Campaign updated")

	return campaign, nil
}

// Get returns a campaign by ID
func (s *Service) Get(ctx context.Context, id uint) (*models.Campaign, error) {
	campaign, err := s.repo.GetCampaignByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, apperrors.NewCampaignNotFound(id)
	}
	return campaign, nil
}

// List returns all campaigns
func (s *Service) List(ctx context.Context) ([]*models.Campaign, error) {
	return s.repo.ListCampaigns(ctx)
}

// Active returns the running campaign, or nil when none is running
func (s *Service) Active(ctx context.Context) (*models.Campaign, error) {
	return s.repo.FindActiveCampaign(ctx)
}

// Start activates the campaign. Any other running campaign is stopped
// first, so starting is always a takeover. The first post becomes due one
// full random interval from now.
func (s *Service) Start(ctx context.Context, id uint) (*models.Campaign, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.FindActiveCampaign(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil && active.ID != id {
		s.log.Info().
			Uint("stopped_campaign_id", active.ID).
			Uint("starting_campaign_id", id).
			Msg("Stopping active campaign before starting another")
		if err := s.repo.StopCampaign(ctx, active.ID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	next := s.planner.Next(now, campaign.MinIntervalHours, campaign.MaxIntervalHours)
	if err := s.repo.StartCampaign(ctx, id, now, next); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("campaign_id", id).
		Time("next_post_at", next).
		Msg("Campaign started")

	return s.Get(ctx, id)
}

// Stop deactivates the campaign. Stopping a stopped campaign succeeds and
// changes nothing.
func (s *Service) Stop(ctx context.Context, id uint) (*models.Campaign, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if err := s.repo.StopCampaign(ctx, id); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("campaign_id", id).
		Msg("Campaign stopped")

	return s.Get(ctx, id)
}

// Reschedule moves the campaign's next due time one random interval past
// the given instant.
func (s *Service) Reschedule(ctx context.Context, campaign *models.Campaign, from time.Time) (time.Time, error) {
	next := s.planner.Next(from, campaign.MinIntervalHours, campaign.MaxIntervalHours)
	if err := s.repo.SetNextPostTime(ctx, campaign.ID, next); err != nil {
		return time.Time{}, err
	}
	return next, nil
}

// validate checks the input fields and returns the normalized hashtag list
func validate(in Input) (models.StringSlice, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, apperrors.Validationf("subject is required")
	}

	normalized := normalizeHashtags(in.Hashtags)
	if len(normalized) < minHashtags || len(normalized) > maxHashtags {
		return nil, apperrors.Validationf("between %d and %d hashtags are required, got %d",
			minHashtags, maxHashtags, len(normalized))
	}

	if in.MinIntervalHours < minIntervalHours {
		return nil, apperrors.Validationf("min interval must be at least %.1f hours", minIntervalHours)
	}
	if in.MaxIntervalHours <= in.MinIntervalHours {
		return nil, apperrors.Validationf("max interval must be greater than min interval")
	}
	if in.DurationDays < 1 {
		return nil, apperrors.Validationf("duration must be at least 1 day")
	}

	return normalized, nil
}

// normalizeHashtags trims whitespace, strips leading '#', drops empties and
// deduplicates case-insensitively while keeping first-seen order.
func normalizeHashtags(tags []string) models.StringSlice {
	seen := make(map[string]bool, len(tags))
	out := make(models.StringSlice, 0, len(tags))
	for _, tag := range tags {
		cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cleaned)
	}
	return out
}
