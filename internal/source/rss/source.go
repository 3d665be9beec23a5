// Package rss enriches tweet generation with recent headlines from
// configured feeds. Enrichment is best-effort: a feed that cannot be fetched
// contributes nothing.
package rss

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/twitter-agent/internal/config"
	"github.com/twitter-agent/pkg/logger"
	"github.com/twitter-agent/pkg/ratelimit"
)

// Items older than this are not worth tweeting about
const maxHeadlineAge = 7 * 24 * time.Hour

// Enricher fetches recent headlines for generation context
type Enricher struct {
	feeds        []config.RSSFeed
	maxHeadlines int
	parser       *gofeed.Parser
	rateLimiter  *ratelimit.MultiLimiter
	log          *logger.Logger
}

// New creates an enricher from config, or nil when disabled
func New(cfg config.RSSConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Enricher {
	if !cfg.Enabled || len(cfg.Feeds) == 0 {
		return nil
	}
	maxHeadlines := cfg.MaxHeadlines
	if maxHeadlines <= 0 {
		maxHeadlines = 3
	}
	return &Enricher{
		feeds:        cfg.Feeds,
		maxHeadlines: maxHeadlines,
		parser:       gofeed.NewParser(),
		rateLimiter:  limiter,
		log:          log.WithComponent("rss"),
	}
}

// Headlines returns up to the configured number of recent headlines across
// all feeds. Feed failures are logged and skipped.
func (e *Enricher) Headlines(ctx context.Context) []string {
	headlines := make([]string, 0, e.maxHeadlines)

	for _, feed := range e.feeds {
		if len(headlines) >= e.maxHeadlines {
			break
		}

		if err := e.rateLimiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
			return headlines
		}

		parsed, err := e.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("feed", feed.Name).
				Msg("Failed to fetch RSS feed")
			continue
		}

		for _, item := range parsed.Items {
			if len(headlines) >= e.maxHeadlines {
				break
			}
			if item.PublishedParsed != nil && time.Since(*item.PublishedParsed) > maxHeadlineAge {
				continue
			}
			title := cleanText(item.Title)
			if title != "" {
				headlines = append(headlines, title)
			}
		}
	}

	e.log.Debug().
		Int("count", len(headlines)).
		Msg("Collected headlines for generation context")

	return headlines
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
		} else if r == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.Join(strings.Fields(result.String()), " "))
}
