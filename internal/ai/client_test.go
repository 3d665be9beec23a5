package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twitter-agent/internal/config"
	"github.com/twitter-agent/pkg/logger"
	"github.com/twitter-agent/pkg/ratelimit"
)

func testClient() *Client {
	cfg := config.AnthropicConfig{
		Model:         "claude-sonnet-4-20250514",
		FallbackModel: "claude-3-5-haiku-20241022",
		MaxTokens:     1024,
	}
	return NewClient(cfg, StaticKey("test"), ratelimit.NewDefaultLimiter(), logger.Nop())
}

func TestBuildPrompt(t *testing.T) {
	c := testClient()

	prompt := c.buildPrompt("Go generics", "focus on type parameters", []string{"old tweet one", "old tweet two"})
	require.Contains(t, prompt, "Topic: Go generics")
	require.Contains(t, prompt, "Additional context: focus on type parameters")
	require.Contains(t, prompt, "- old tweet one")
	require.Contains(t, prompt, "- old tweet two")
}

func TestBuildPromptOmitsEmptySections(t *testing.T) {
	c := testClient()

	prompt := c.buildPrompt("Go generics", "", nil)
	require.Contains(t, prompt, "Topic: Go generics")
	require.NotContains(t, prompt, "Additional context")
	require.NotContains(t, prompt, "Avoid repeating")
}

func TestBuildPromptCapsAvoidHints(t *testing.T) {
	c := testClient()

	avoid := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7"}
	prompt := c.buildPrompt("Go", "", avoid)
	require.Contains(t, prompt, "- t5")
	require.NotContains(t, prompt, "- t6")
}

func TestCleanTweet(t *testing.T) {
	require.Equal(t, "hello world", cleanTweet(`  "hello world"  `))
	require.Equal(t, "plain", cleanTweet("plain"))

	long := strings.Repeat("a", 250)
	got := cleanTweet(long)
	require.Len(t, got, maxBodyLength)
	require.True(t, strings.HasSuffix(got, "..."))
}
