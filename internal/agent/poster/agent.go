// Package poster executes a single post attempt for a campaign: generate a
// tweet body, pick hashtags, compose within the platform limit, publish, and
// record the outcome. Every attempt leaves exactly one history record,
// whether it succeeded or failed.
package poster

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/source/rss"
	"github.com/twitter-agent/internal/storage"
	"github.com/twitter-agent/internal/tracker"
	"github.com/twitter-agent/pkg/logger"
)

// How many recent posted texts are fetched as repetition hints
const recentTextLimit = 10

// Generator produces a tweet body for a subject
type Generator interface {
	Generate(ctx context.Context, subject, extraContext string, avoid []string) (string, error)
}

// Publisher posts a tweet and returns its platform identifier
type Publisher interface {
	Publish(ctx context.Context, text string) (tweetID string, err error)
}

// Agent runs post attempts end to end
type Agent struct {
	repo      storage.Repository
	generator Generator
	publisher Publisher
	enricher  *rss.Enricher
	tracker   *tracker.SheetsTracker
	randIntn  func(n int) int
	log       *logger.Logger
}

// New creates a poster agent. The enricher and tracker are optional and may
// be nil.
func New(repo storage.Repository, generator Generator, publisher Publisher, enricher *rss.Enricher, sheets *tracker.SheetsTracker, log *logger.Logger) *Agent {
	return &Agent{
		repo:      repo,
		generator: generator,
		publisher: publisher,
		enricher:  enricher,
		tracker:   sheets,
		randIntn:  rand.Intn,
		log:       log.WithComponent("poster"),
	}
}

// SetRandFunc overrides the random source used for hashtag selection, for tests
func (a *Agent) SetRandFunc(randIntn func(n int) int) {
	a.randIntn = randIntn
}

// Post runs one post attempt for the campaign. Generation and publish
// failures are absorbed into a failed history record; the returned error is
// reserved for storage failures.
func (a *Agent) Post(ctx context.Context, campaign *models.Campaign) (*models.PostRecord, error) {
	log := a.log.WithCampaignID(campaign.ID)

	avoid, err := a.repo.RecentPostedTexts(ctx, campaign.ID, recentTextLimit)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load recent posts, generating without repetition hints")
		avoid = nil
	}

	extraContext := a.enrichContext(ctx, campaign.ExtraContext)

	body, err := a.generator.Generate(ctx, campaign.Subject, extraContext, avoid)
	if err != nil {
		log.Error().Err(err).Msg("Tweet generation failed")
		return a.recordFailure(ctx, campaign, models.FailedPostPlaceholder, nil, err)
	}

	hashtags := selectHashtags(campaign.Hashtags, a.randIntn)
	text := composeTweet(body, hashtags)

	tweetID, err := a.publisher.Publish(ctx, text)
	if err != nil {
		log.Error().Err(err).Msg("Tweet publish failed")
		return a.recordFailure(ctx, campaign, text, hashtags, err)
	}

	record := &models.PostRecord{
		CampaignID:   &campaign.ID,
		Text:         text,
		HashtagsUsed: hashtags,
		TweetID:      tweetID,
		Status:       models.PostStatusPosted,
		PostedAt:     time.Now(),
	}
	if err := a.repo.CreatePostRecord(ctx, record); err != nil {
		return nil, err
	}

	log.Info().
		Str("tweet_id", tweetID).
		Int("length", len(text)).
		Msg("Tweet posted")

	a.mirror(ctx, record, campaign.Subject)
	return record, nil
}

// enrichContext appends recent headlines to the campaign's extra context
func (a *Agent) enrichContext(ctx context.Context, extraContext string) string {
	if a.enricher == nil {
		return extraContext
	}
	headlines := a.enricher.Headlines(ctx)
	if len(headlines) == 0 {
		return extraContext
	}
	section := "Recent headlines for inspiration:\n- " + strings.Join(headlines, "\n- ")
	if extraContext == "" {
		return section
	}
	return extraContext + "\n\n" + section
}

func (a *Agent) recordFailure(ctx context.Context, campaign *models.Campaign, text string, hashtags []string, cause error) (*models.PostRecord, error) {
	record := &models.PostRecord{
		CampaignID:   &campaign.ID,
		Text:         text,
		HashtagsUsed: hashtags,
		Status:       models.PostStatusFailed,
		ErrorMessage: cause.Error(),
		PostedAt:     time.Now(),
	}
	if err := a.repo.CreatePostRecord(ctx, record); err != nil {
		return nil, err
	}
	a.mirror(ctx, record, campaign.Subject)
	return record, nil
}

// mirror pushes the record into the Sheets history, best-effort
func (a *Agent) mirror(ctx context.Context, record *models.PostRecord, subject string) {
	if a.tracker == nil {
		return
	}
	if err := a.tracker.Append(ctx, record, subject); err != nil {
		a.log.Warn().Err(err).Msg("Failed to mirror post record to sheet")
	}
}
