// Package scheduler drives the posting loop: a cron tick checks the active
// campaign every minute, posts when due, and draws the next due time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/pkg/logger"
)

// CampaignService is the slice of the campaign lifecycle the loop needs
type CampaignService interface {
	Get(ctx context.Context, id uint) (*models.Campaign, error)
	Active(ctx context.Context) (*models.Campaign, error)
	Stop(ctx context.Context, id uint) (*models.Campaign, error)
	Reschedule(ctx context.Context, campaign *models.Campaign, from time.Time) (time.Time, error)
}

// Poster runs one post attempt for a campaign
type Poster interface {
	Post(ctx context.Context, campaign *models.Campaign) (*models.PostRecord, error)
}

// Status describes the loop and the active campaign, for operators
type Status struct {
	Running    bool             `json:"running"`
	TickSpec   string           `json:"tick_spec"`
	Campaign   *models.Campaign `json:"campaign,omitempty"`
	NextPostAt *time.Time       `json:"next_post_at,omitempty"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
}

// Loop owns the cron tick and serializes post attempts. A tick that arrives
// while the previous one is still posting is skipped, not queued.
type Loop struct {
	campaigns CampaignService
	poster    Poster
	tickSpec  string
	cron      *cron.Cron
	mu        sync.Mutex
	now       func() time.Time
	log       *logger.Logger
}

// NewLoop creates the scheduler loop
func NewLoop(campaigns CampaignService, poster Poster, tickSpec string, log *logger.Logger) *Loop {
	return &Loop{
		campaigns: campaigns,
		poster:    poster,
		tickSpec:  tickSpec,
		now:       time.Now,
		log:       log.WithComponent("scheduler"),
	}
}

// SetNowFunc overrides the clock, for tests
func (l *Loop) SetNowFunc(now func() time.Time) {
	l.now = now
}

// Start installs the cron tick and begins scheduling
func (l *Loop) Start() error {
	l.cron = cron.New()
	if _, err := l.cron.AddFunc(l.tickSpec, func() {
		l.Tick(context.Background())
	}); err != nil {
		return err
	}
	l.cron.Start()
	l.log.Info().
		Str("tick_spec", l.tickSpec).
		Msg("Scheduler started")
	return nil
}

// Shutdown stops the cron and waits for a running tick to finish
func (l *Loop) Shutdown() {
	if l.cron != nil {
		ctx := l.cron.Stop()
		<-ctx.Done()
	}
	// A tick may still be mid-post; taking the lock waits it out
	l.mu.Lock()
	l.mu.Unlock()
	l.log.Info().Msg("Scheduler stopped")
}

// Tick runs one scheduling pass. If the previous tick is still working the
// pass is skipped.
func (l *Loop) Tick(ctx context.Context) {
	if !l.mu.TryLock() {
		l.log.Debug().Msg("Previous tick still running, skipping")
		return
	}
	defer l.mu.Unlock()
	l.tick(ctx)
}

func (l *Loop) tick(ctx context.Context) {
	active, err := l.campaigns.Active(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to load active campaign")
		return
	}
	if active == nil {
		return
	}

	now := l.now()

	if active.IsExpired(now) {
		l.log.Info().
			Uint("campaign_id", active.ID).
			Time("expired_at", active.ExpiresAt()).
			Msg("Campaign window ended, stopping")
		if _, err := l.campaigns.Stop(ctx, active.ID); err != nil {
			l.log.Error().Err(err).Msg("Failed to stop expired campaign")
		}
		return
	}

	if !active.IsDue(now) {
		return
	}

	l.log.Info().
		Uint("campaign_id", active.ID).
		Msg("Post due, running attempt")

	if _, err := l.poster.Post(ctx, active); err != nil {
		l.log.Error().Err(err).Msg("Post attempt could not be recorded")
	}

	// The next draw starts from now whether the attempt succeeded or not,
	// so a flaky collaborator cannot cause a rapid retry storm.
	next, err := l.campaigns.Reschedule(ctx, active, l.now())
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to schedule next post")
		return
	}
	l.log.Info().
		Uint("campaign_id", active.ID).
		Time("next_post_at", next).
		Msg("Next post scheduled")
}

// PostNow runs an immediate post attempt for the campaign, regardless of its
// due time. The campaign's schedule is left untouched. Blocks until any
// in-flight tick finishes.
func (l *Loop) PostNow(ctx context.Context, id uint) (*models.PostRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	campaign, err := l.campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Uint("campaign_id", id).
		Msg("Manual post requested")

	return l.poster.Post(ctx, campaign)
}

// Status reports the loop state and the active campaign
func (l *Loop) Status(ctx context.Context) (*Status, error) {
	active, err := l.campaigns.Active(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Running:  l.cron != nil,
		TickSpec: l.tickSpec,
	}
	if active != nil {
		status.Campaign = active
		status.NextPostAt = active.NextPostAt
		expires := active.ExpiresAt()
		status.ExpiresAt = &expires
	}
	return status, nil
}
