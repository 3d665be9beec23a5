package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/twitter-agent/internal/apperrors"
	"github.com/twitter-agent/internal/config"
	"github.com/twitter-agent/pkg/logger"
	"github.com/twitter-agent/pkg/ratelimit"
)

// Generated tweet bodies are capped so hashtags always fit under the platform
// limit after composition.
const maxBodyLength = 200

// How many recent tweets are passed to the model as a repetition hint
const maxAvoidHints = 5

// KeyProvider supplies the API key at call time, so a key saved through the
// credentials API takes effect without a restart.
type KeyProvider func(ctx context.Context) (string, error)

// StaticKey returns a KeyProvider for a fixed key (config/env deployments)
func StaticKey(key string) KeyProvider {
	return func(context.Context) (string, error) { return key, nil }
}

// Client generates tweet bodies via the Anthropic API, falling back to a
// secondary model when the primary fails.
type Client struct {
	key           KeyProvider
	model         string
	fallbackModel string
	maxTokens     int64
	rateLimiter   *ratelimit.MultiLimiter
	log           *logger.Logger
}

// NewClient creates a new generation client
func NewClient(cfg config.AnthropicConfig, key KeyProvider, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	return &Client{
		key:           key,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		maxTokens:     int64(cfg.MaxTokens),
		rateLimiter:   limiter,
		log:           log.WithComponent("ai"),
	}
}

// Generate produces one tweet body for the given subject. Recent tweet texts
// are passed as a repetition hint (at most five are used). Failures of both
// the primary and fallback model come back as a GenerationError.
func (c *Client) Generate(ctx context.Context, subject, extraContext string, avoid []string) (string, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterAnthropic); err != nil {
		return "", &apperrors.GenerationError{Err: fmt.Errorf("rate limit error: %w", err)}
	}

	apiKey, err := c.key(ctx)
	if err != nil {
		return "", &apperrors.GenerationError{Err: fmt.Errorf("no API key: %w", err)}
	}
	if apiKey == "" {
		return "", &apperrors.GenerationError{Err: fmt.Errorf("anthropic API key not configured")}
	}

	prompt := c.buildPrompt(subject, extraContext, avoid)

	text, primaryErr := c.complete(ctx, apiKey, c.model, prompt)
	if primaryErr == nil {
		return cleanTweet(text), nil
	}

	if c.fallbackModel == "" || c.fallbackModel == c.model {
		return "", &apperrors.GenerationError{Err: primaryErr}
	}

	c.log.Warn().
		Err(primaryErr).
		Str("model", c.model).
		Str("fallback", c.fallbackModel).
		Msg("Primary model failed, trying fallback")

	text, fallbackErr := c.complete(ctx, apiKey, c.fallbackModel, prompt)
	if fallbackErr != nil {
		return "", &apperrors.GenerationError{
			Err: fmt.Errorf("both models failed: primary: %v; fallback: %w", primaryErr, fallbackErr),
		}
	}
	return cleanTweet(text), nil
}

// Validate checks that the key can complete a minimal request
func (c *Client) Validate(ctx context.Context, apiKey string) error {
	if _, err := c.complete(ctx, apiKey, c.model, "test"); err != nil {
		if _, fbErr := c.complete(ctx, apiKey, c.fallbackModel, "test"); fbErr != nil {
			return fmt.Errorf("invalid anthropic API key: %w", fbErr)
		}
	}
	return nil
}

func (c *Client) buildPrompt(subject, extraContext string, avoid []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, TweetUserPrompt, subject)
	if extraContext != "" {
		fmt.Fprintf(&b, TweetContextSection, extraContext)
	}
	if len(avoid) > 0 {
		if len(avoid) > maxAvoidHints {
			avoid = avoid[:maxAvoidHints]
		}
		lines := make([]string, len(avoid))
		for i, t := range avoid {
			lines[i] = "- " + t
		}
		fmt.Fprintf(&b, TweetAvoidSection, strings.Join(lines, "\n"))
	}
	return b.String()
}

func (c *Client) complete(ctx context.Context, apiKey, model, userMessage string) (string, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	c.log.Debug().
		Str("model", model).
		Int64("max_tokens", c.maxTokens).
		Msg("Sending request to Claude")

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: TweetSystemPrompt,
			},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(userMessage),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var response string
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response += textBlock.Text
		}
	}

	c.log.Debug().
		Int("input_tokens", int(message.Usage.InputTokens)).
		Int("output_tokens", int(message.Usage.OutputTokens)).
		Msg("Received Claude response")

	return response, nil
}

// cleanTweet strips wrapping quotes and clamps overlong bodies
func cleanTweet(text string) string {
	tweet := strings.TrimSpace(text)
	tweet = strings.Trim(tweet, `"'`)
	if runes := []rune(tweet); len(runes) > maxBodyLength {
		tweet = string(runes[:maxBodyLength-3]) + "..."
	}
	return tweet
}
