package poster

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestComposeTweetShortBody(t *testing.T) {
	text := composeTweet("Ship it.", []string{"golang", "devops"})
	require.Equal(t, "Ship it. #golang #devops", text)
}

func TestComposeTweetNoHashtags(t *testing.T) {
	text := composeTweet("Just the body.", nil)
	require.Equal(t, "Just the body.", text)
}

func TestComposeTweetTruncatesBodyNotHashtags(t *testing.T) {
	body := strings.Repeat("go routines all the way down ", 20)
	hashtags := []string{"golang", "concurrency", "tech"}

	text := composeTweet(body, hashtags)

	require.LessOrEqual(t, utf8.RuneCountInString(text), 280)
	require.True(t, strings.HasSuffix(text, "#golang #concurrency #tech"))
	require.Contains(t, text, "... #golang")
}

func TestComposeTweetCountsRunes(t *testing.T) {
	// Multibyte body: rune count is what matters, not byte length
	body := strings.Repeat("héllo wörld ", 30)
	text := composeTweet(body, []string{"unicode"})

	require.LessOrEqual(t, utf8.RuneCountInString(text), 280)
	require.True(t, strings.HasSuffix(text, "#unicode"))
}

func TestComposeTweetExactFit(t *testing.T) {
	block := "#a #b #c"
	body := strings.Repeat("x", 280-len(block)-1)

	text := composeTweet(body, []string{"a", "b", "c"})
	require.Equal(t, 280, utf8.RuneCountInString(text))
	require.NotContains(t, text, "...")
}

func TestSelectHashtagsSmallPool(t *testing.T) {
	tags := []string{"one", "two"}
	got := selectHashtags(tags, func(n int) int { return 0 })
	require.Equal(t, []string{"one", "two"}, got)
}

func TestSelectHashtagsPicksThree(t *testing.T) {
	tags := []string{"a", "b", "c", "d", "e"}
	got := selectHashtags(tags, func(n int) int { return 0 })

	require.Len(t, got, 3)
	seen := map[string]bool{}
	for _, tag := range got {
		require.False(t, seen[tag], "duplicate hashtag %q", tag)
		seen[tag] = true
	}
	// Input order untouched
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, tags)
}

func TestSelectHashtagsUsesRandSource(t *testing.T) {
	tags := []string{"a", "b", "c", "d", "e"}
	// Always pick the last remaining element
	got := selectHashtags(tags, func(n int) int { return n - 1 })
	require.Equal(t, []string{"e", "a", "b"}, got)
}
