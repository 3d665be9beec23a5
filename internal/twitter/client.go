package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twitter-agent/internal/apperrors"
	"github.com/twitter-agent/pkg/logger"
	"github.com/twitter-agent/pkg/ratelimit"
)

const baseURL = "https://api.twitter.com/2"

// Client handles Twitter API v2 requests
type Client struct {
	httpClient  *http.Client
	oauth       *OAuthManager
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a new Twitter API client
func NewClient(oauth *OAuthManager, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		oauth:       oauth,
		rateLimiter: limiter,
		log:         log.WithComponent("twitter"),
	}
}

// PublishResult holds the API response for a created tweet
type PublishResult struct {
	TweetID string
	Text    string
}

// User is the authenticated account, as returned by /users/me
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// do performs an HTTP request with authentication headers
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterTwitter); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	token, err := c.oauth.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication error: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Msg("Making Twitter API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Msg("Twitter API response")

	return resp, nil
}

// Publish posts a tweet and returns the created tweet ID. API failures come
// back as a PublishError with a cause code.
func (c *Client) Publish(ctx context.Context, text string) (*PublishResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/tweets", map[string]string{"text": text})
	if err != nil {
		return nil, &apperrors.PublishError{Code: apperrors.PublishCodeUnknown, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, publishError(resp.StatusCode, body)
	}

	var payload struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &apperrors.PublishError{
			Code: apperrors.PublishCodeUnknown,
			Err:  fmt.Errorf("failed to decode response: %w", err),
		}
	}

	c.log.Info().
		Str("tweet_id", payload.Data.ID).
		Msg("Tweet posted")

	return &PublishResult{
		TweetID: payload.Data.ID,
		Text:    payload.Data.Text,
	}, nil
}

// VerifyCredentials checks the user token by fetching the authenticated account
func (c *Client) VerifyCredentials(ctx context.Context) (*User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, publishError(resp.StatusCode, body)
	}

	var payload struct {
		Data User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &payload.Data, nil
}

// publishError maps Twitter API status codes onto the publish error taxonomy
func publishError(status int, body []byte) *apperrors.PublishError {
	switch status {
	case http.StatusUnauthorized:
		return &apperrors.PublishError{
			Code: apperrors.PublishCodeAuth,
			Err:  fmt.Errorf("twitter authentication failed, please check your credentials"),
		}
	case http.StatusForbidden:
		return &apperrors.PublishError{
			Code: apperrors.PublishCodePermission,
			Err:  fmt.Errorf("twitter API access denied, app needs read and write permissions"),
		}
	case http.StatusTooManyRequests:
		return &apperrors.PublishError{
			Code: apperrors.PublishCodeRateLimit,
			Err:  fmt.Errorf("twitter API rate limit exceeded"),
		}
	default:
		return &apperrors.PublishError{
			Code: apperrors.PublishCodeUnknown,
			Err:  fmt.Errorf("twitter API error: status %d: %s", status, truncate(string(body), 200)),
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
