package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/twitter-agent/internal/apperrors"
	"github.com/twitter-agent/internal/campaign"
	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/storage/sqlite"
	"github.com/twitter-agent/pkg/logger"
)

type fakePoster struct {
	posts []uint
	err   error
}

func (p *fakePoster) Post(_ context.Context, c *models.Campaign) (*models.PostRecord, error) {
	p.posts = append(p.posts, c.ID)
	if p.err != nil {
		return nil, p.err
	}
	return &models.PostRecord{CampaignID: &c.ID, Status: models.PostStatusPosted}, nil
}

type loopFixture struct {
	loop      *Loop
	campaigns *campaign.Service
	poster    *fakePoster
	now       time.Time
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })

	f := &loopFixture{
		poster: &fakePoster{},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	planner := NewPlannerWithRand(func() float64 { return 0 })
	f.campaigns = campaign.NewService(repo, planner, logger.Nop())
	f.campaigns.SetNowFunc(func() time.Time { return f.now })

	f.loop = NewLoop(f.campaigns, f.poster, "* * * * *", logger.Nop())
	f.loop.SetNowFunc(func() time.Time { return f.now })
	return f
}

func (f *loopFixture) startCampaign(t *testing.T) *models.Campaign {
	t.Helper()
	created, err := f.campaigns.Create(context.Background(), campaign.Input{
		Subject:          "Go tips",
		Hashtags:         []string{"golang", "tips", "dev"},
		MinIntervalHours: 1,
		MaxIntervalHours: 2,
		DurationDays:     7,
	})
	require.NoError(t, err)
	started, err := f.campaigns.Start(context.Background(), created.ID)
	require.NoError(t, err)
	return started
}

func TestTickNoActiveCampaign(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Tick(context.Background())
	require.Empty(t, f.poster.posts)
}

func TestTickNotDueYet(t *testing.T) {
	f := newLoopFixture(t)
	started := f.startCampaign(t)

	// First post is due one minimum interval out
	f.now = f.now.Add(31 * time.Minute)
	f.loop.Tick(context.Background())
	require.Empty(t, f.poster.posts)

	got, err := f.campaigns.Get(context.Background(), started.ID)
	require.NoError(t, err)
	require.Equal(t, started.NextPostAt.Unix(), got.NextPostAt.Unix())
}

func TestTickPostsWhenDueAndReschedules(t *testing.T) {
	f := newLoopFixture(t)
	started := f.startCampaign(t)

	tickAt := f.now.Add(70 * time.Minute)
	f.now = tickAt
	f.loop.Tick(context.Background())

	require.Equal(t, []uint{started.ID}, f.poster.posts)

	// Injected rand pins the next draw to tick time + min interval
	got, err := f.campaigns.Get(context.Background(), started.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextPostAt)
	require.Equal(t, tickAt.Add(1*time.Hour).Unix(), got.NextPostAt.Unix())
}

func TestTickReschedulesAfterPosterError(t *testing.T) {
	f := newLoopFixture(t)
	started := f.startCampaign(t)
	f.poster.err = context.DeadlineExceeded

	tickAt := f.now.Add(2 * time.Hour)
	f.now = tickAt
	f.loop.Tick(context.Background())

	got, err := f.campaigns.Get(context.Background(), started.ID)
	require.NoError(t, err)
	require.Equal(t, tickAt.Add(1*time.Hour).Unix(), got.NextPostAt.Unix())
}

func TestTickStopsExpiredCampaign(t *testing.T) {
	f := newLoopFixture(t)
	started := f.startCampaign(t)

	// Window is 7 days; jump past it
	f.now = f.now.Add(8 * 24 * time.Hour)
	f.loop.Tick(context.Background())

	require.Empty(t, f.poster.posts)

	got, err := f.campaigns.Get(context.Background(), started.ID)
	require.NoError(t, err)
	require.False(t, got.IsRunning())
	require.Nil(t, got.NextPostAt)
}

func TestTickSkipsWhenPreviousStillRunning(t *testing.T) {
	f := newLoopFixture(t)
	f.startCampaign(t)
	f.now = f.now.Add(2 * time.Hour)

	f.loop.mu.Lock()
	f.loop.Tick(context.Background())
	f.loop.mu.Unlock()

	require.Empty(t, f.poster.posts)
}

func TestPostNowBypassesDueTime(t *testing.T) {
	f := newLoopFixture(t)
	started := f.startCampaign(t)
	before, err := f.campaigns.Get(context.Background(), started.ID)
	require.NoError(t, err)

	record, err := f.loop.PostNow(context.Background(), started.ID)
	require.NoError(t, err)
	require.Equal(t, models.PostStatusPosted, record.Status)
	require.Equal(t, []uint{started.ID}, f.poster.posts)

	// Manual posts leave the schedule alone
	after, err := f.campaigns.Get(context.Background(), started.ID)
	require.NoError(t, err)
	require.Equal(t, before.NextPostAt.Unix(), after.NextPostAt.Unix())
}

func TestPostNowUnknownCampaign(t *testing.T) {
	f := newLoopFixture(t)
	_, err := f.loop.PostNow(context.Background(), 999)
	require.True(t, apperrors.IsNotFound(err))
	require.Empty(t, f.poster.posts)
}

func TestStatus(t *testing.T) {
	f := newLoopFixture(t)

	status, err := f.loop.Status(context.Background())
	require.NoError(t, err)
	require.False(t, status.Running)
	require.Nil(t, status.Campaign)

	started := f.startCampaign(t)
	status, err = f.loop.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, started.ID, status.Campaign.ID)
	require.NotNil(t, status.NextPostAt)
	require.Equal(t, started.StartedAt.Add(7*24*time.Hour).Unix(), status.ExpiresAt.Unix())
}
