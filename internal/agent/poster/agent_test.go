package poster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twitter-agent/internal/apperrors"
	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/storage"
	"github.com/twitter-agent/internal/storage/sqlite"
	"github.com/twitter-agent/pkg/logger"
)

type fakeGenerator struct {
	text  string
	err   error
	avoid []string
}

func (g *fakeGenerator) Generate(_ context.Context, _, _ string, avoid []string) (string, error) {
	g.avoid = avoid
	return g.text, g.err
}

type fakePublisher struct {
	tweetID   string
	err       error
	published string
}

func (p *fakePublisher) Publish(_ context.Context, text string) (string, error) {
	p.published = text
	return p.tweetID, p.err
}

func newTestAgent(t *testing.T, gen *fakeGenerator, pub *fakePublisher) (*Agent, storage.Repository, *models.Campaign) {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })

	campaign := &models.Campaign{
		Subject:          "Go testing",
		Hashtags:         models.StringSlice{"golang", "testing", "tdd"},
		MinIntervalHours: 3,
		MaxIntervalHours: 6,
		DurationDays:     7,
		Status:           models.CampaignStatusRunning,
	}
	require.NoError(t, repo.CreateCampaign(context.Background(), campaign))

	agent := New(repo, gen, pub, nil, nil, logger.Nop())
	agent.SetRandFunc(func(n int) int { return 0 })
	return agent, repo, campaign
}

func TestPostSuccess(t *testing.T) {
	gen := &fakeGenerator{text: "Table-driven tests keep Go code honest."}
	pub := &fakePublisher{tweetID: "1234567890"}
	agent, repo, campaign := newTestAgent(t, gen, pub)

	record, err := agent.Post(context.Background(), campaign)
	require.NoError(t, err)

	require.Equal(t, models.PostStatusPosted, record.Status)
	require.Equal(t, "1234567890", record.TweetID)
	require.Contains(t, record.Text, "Table-driven tests")
	require.Contains(t, record.Text, "#golang")
	require.Len(t, record.HashtagsUsed, 3)
	require.Empty(t, record.ErrorMessage)
	require.Equal(t, record.Text, pub.published)

	records, err := repo.ListPostRecords(context.Background(), storage.DefaultPostFilter())
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestPostGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: &apperrors.GenerationError{Err: errors.New("model overloaded")}}
	pub := &fakePublisher{}
	agent, repo, campaign := newTestAgent(t, gen, pub)

	record, err := agent.Post(context.Background(), campaign)
	require.NoError(t, err)

	require.Equal(t, models.PostStatusFailed, record.Status)
	require.Equal(t, models.FailedPostPlaceholder, record.Text)
	require.Empty(t, record.TweetID)
	require.Contains(t, record.ErrorMessage, "model overloaded")

	// Nothing reached the publisher
	require.Empty(t, pub.published)

	records, err := repo.ListPostRecords(context.Background(), storage.DefaultPostFilter())
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestPostPublishFailure(t *testing.T) {
	gen := &fakeGenerator{text: "A perfectly fine tweet."}
	pub := &fakePublisher{err: &apperrors.PublishError{
		Code: apperrors.PublishCodeRateLimit,
		Err:  errors.New("twitter API rate limit exceeded"),
	}}
	agent, repo, campaign := newTestAgent(t, gen, pub)

	record, err := agent.Post(context.Background(), campaign)
	require.NoError(t, err)

	require.Equal(t, models.PostStatusFailed, record.Status)
	require.Empty(t, record.TweetID)
	require.Contains(t, record.Text, "A perfectly fine tweet.")
	require.Contains(t, record.ErrorMessage, "rate-limit")

	records, err := repo.ListPostRecords(context.Background(), storage.DefaultPostFilter())
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestPostPassesRepetitionHints(t *testing.T) {
	gen := &fakeGenerator{text: "Fresh take on goroutines."}
	pub := &fakePublisher{tweetID: "42"}
	agent, repo, campaign := newTestAgent(t, gen, pub)
	ctx := context.Background()

	// First attempt has no history; second sees the first tweet
	_, err := agent.Post(ctx, campaign)
	require.NoError(t, err)
	require.Empty(t, gen.avoid)

	_, err = agent.Post(ctx, campaign)
	require.NoError(t, err)
	require.Len(t, gen.avoid, 1)
	require.Contains(t, gen.avoid[0], "Fresh take on goroutines.")

	records, err := repo.ListPostRecords(context.Background(), storage.DefaultPostFilter())
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestPostFailedAttemptsNotUsedAsHints(t *testing.T) {
	gen := &fakeGenerator{err: &apperrors.GenerationError{Err: errors.New("boom")}}
	pub := &fakePublisher{tweetID: "7"}
	agent, _, campaign := newTestAgent(t, gen, pub)
	ctx := context.Background()

	_, err := agent.Post(ctx, campaign)
	require.NoError(t, err)

	gen.err = nil
	gen.text = "Second attempt works."
	_, err = agent.Post(ctx, campaign)
	require.NoError(t, err)
	require.Empty(t, gen.avoid)
}
