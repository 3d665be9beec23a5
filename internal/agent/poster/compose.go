package poster

import (
	"strings"
	"unicode/utf8"
)

const (
	maxTweetLength = 280

	// Suffix appended to a truncated body, including the separator before
	// the hashtag block
	truncationSuffix = "... "
)

// composeTweet joins the generated body with the hashtag block, keeping the
// result within the platform limit. The hashtag block always survives
// intact; the body is what gets truncated. Limits are counted in runes.
func composeTweet(body string, hashtags []string) string {
	body = strings.TrimSpace(body)
	block := hashtagBlock(hashtags)

	if block == "" {
		return truncateRunes(body, maxTweetLength)
	}

	full := body + " " + block
	if utf8.RuneCountInString(full) <= maxTweetLength {
		return full
	}

	available := maxTweetLength - utf8.RuneCountInString(block) - utf8.RuneCountInString(truncationSuffix)
	if available < 0 {
		available = 0
	}
	truncated := strings.TrimSpace(truncateRunes(body, available))
	return truncated + truncationSuffix + block
}

// hashtagBlock renders tags as a space-separated block with '#' prefixes
func hashtagBlock(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, tag := range tags {
		if strings.HasPrefix(tag, "#") {
			parts[i] = tag
		} else {
			parts[i] = "#" + tag
		}
	}
	return strings.Join(parts, " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
