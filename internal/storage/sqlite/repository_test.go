package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testCampaign() *models.Campaign {
	return &models.Campaign{
		Subject:          "Go concurrency tips",
		Hashtags:         models.StringSlice{"golang", "concurrency"},
		MinIntervalHours: 3,
		MaxIntervalHours: 6,
		DurationDays:     7,
		Status:           models.CampaignStatusStopped,
	}
}

func TestCampaignCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := testCampaign()
	require.NoError(t, repo.CreateCampaign(ctx, c))
	require.NotZero(t, c.ID)

	got, err := repo.GetCampaignByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Go concurrency tips", got.Subject)
	require.Equal(t, models.StringSlice{"golang", "concurrency"}, got.Hashtags)

	got.Subject = "Go testing tips"
	require.NoError(t, repo.UpdateCampaign(ctx, got))

	list, err := repo.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Go testing tips", list[0].Subject)
}

func TestGetCampaignByIDUnknown(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetCampaignByID(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFindActiveCampaign(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	active, err := repo.FindActiveCampaign(ctx)
	require.NoError(t, err)
	require.Nil(t, active)

	c := testCampaign()
	require.NoError(t, repo.CreateCampaign(ctx, c))

	now := time.Now().UTC().Truncate(time.Second)
	next := now.Add(4 * time.Hour)
	require.NoError(t, repo.StartCampaign(ctx, c.ID, now, next))

	active, err = repo.FindActiveCampaign(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, c.ID, active.ID)
	require.Equal(t, models.CampaignStatusRunning, active.Status)
	require.NotNil(t, active.NextPostAt)
	require.True(t, active.NextPostAt.Equal(next))

	require.NoError(t, repo.StopCampaign(ctx, c.ID))

	stopped, err := repo.GetCampaignByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.CampaignStatusStopped, stopped.Status)
	require.Nil(t, stopped.NextPostAt)

	active, err = repo.FindActiveCampaign(ctx)
	require.NoError(t, err)
	require.Nil(t, active)
}

func TestSetNextPostTime(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := testCampaign()
	require.NoError(t, repo.CreateCampaign(ctx, c))
	require.NoError(t, repo.StartCampaign(ctx, c.ID, time.Now(), time.Now().Add(time.Hour)))

	next := time.Now().UTC().Add(5 * time.Hour).Truncate(time.Second)
	require.NoError(t, repo.SetNextPostTime(ctx, c.ID, next))

	got, err := repo.GetCampaignByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextPostAt)
	require.True(t, got.NextPostAt.Equal(next))
}

func TestRecentPostedTexts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := testCampaign()
	require.NoError(t, repo.CreateCampaign(ctx, c))

	for i := 0; i < 4; i++ {
		rec := &models.PostRecord{
			CampaignID:   &c.ID,
			Text:         fmt.Sprintf("tweet %d", i),
			HashtagsUsed: models.StringSlice{"golang"},
			TweetID:      fmt.Sprintf("tw-%d", i),
			Status:       models.PostStatusPosted,
			PostedAt:     time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.CreatePostRecord(ctx, rec))
	}
	// Failed attempts are not repetition hints
	require.NoError(t, repo.CreatePostRecord(ctx, &models.PostRecord{
		CampaignID:   &c.ID,
		Text:         models.FailedPostPlaceholder,
		Status:       models.PostStatusFailed,
		ErrorMessage: "rate-limit",
		PostedAt:     time.Now().Add(time.Hour),
	}))

	texts, err := repo.RecentPostedTexts(ctx, c.ID, 3)
	require.NoError(t, err)
	require.Len(t, texts, 3)
	require.Equal(t, "tweet 3", texts[0])
	require.NotContains(t, texts, models.FailedPostPlaceholder)
}

func TestListPostRecordsFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := testCampaign()
	require.NoError(t, repo.CreateCampaign(ctx, c))

	require.NoError(t, repo.CreatePostRecord(ctx, &models.PostRecord{
		CampaignID: &c.ID,
		Text:       "posted one",
		Status:     models.PostStatusPosted,
		TweetID:    "tw-1",
	}))
	require.NoError(t, repo.CreatePostRecord(ctx, &models.PostRecord{
		CampaignID:   &c.ID,
		Text:         models.FailedPostPlaceholder,
		Status:       models.PostStatusFailed,
		ErrorMessage: "boom",
	}))

	all, err := repo.ListPostRecords(ctx, storage.DefaultPostFilter())
	require.NoError(t, err)
	require.Len(t, all, 2)

	failed := models.PostStatusFailed
	got, err := repo.ListPostRecords(ctx, storage.PostFilter{Status: &failed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "boom", got[0].ErrorMessage)
}

func TestCredentialsSingleton(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	creds, err := repo.GetCredentials(ctx)
	require.NoError(t, err)
	require.False(t, creds.Complete())

	creds.AnthropicAPIKey = "ciphertext-a"
	creds.TwitterClientID = "ciphertext-b"
	require.NoError(t, repo.SaveCredentials(ctx, creds))

	// Saving again always targets the same row
	creds.AnthropicAPIKey = "ciphertext-c"
	require.NoError(t, repo.SaveCredentials(ctx, creds))

	got, err := repo.GetCredentials(ctx)
	require.NoError(t, err)
	require.Equal(t, uint(1), got.ID)
	require.Equal(t, "ciphertext-c", got.AnthropicAPIKey)
}
