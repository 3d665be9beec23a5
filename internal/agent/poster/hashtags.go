package poster

// hashtagCount is how many of the campaign's hashtags each tweet carries
const hashtagCount = 3

// selectHashtags picks up to hashtagCount tags at random without repeats.
// The input slice is never mutated. When the pool has hashtagCount tags or
// fewer, all of them come back in pool order.
func selectHashtags(tags []string, randIntn func(n int) int) []string {
	if len(tags) <= hashtagCount {
		out := make([]string, len(tags))
		copy(out, tags)
		return out
	}

	pool := make([]string, len(tags))
	copy(pool, tags)

	// Partial Fisher-Yates: only the first hashtagCount positions need shuffling
	for i := 0; i < hashtagCount; i++ {
		j := i + randIntn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:hashtagCount]
}
