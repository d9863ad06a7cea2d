package questions

import "math/rand"

// ShuffleOptions returns a shuffled copy of the answer options, leaving the
// input untouched. The randomness source is explicit so callers that need
// reproducible ordering can pass a seeded generator.
func ShuffleOptions(options []string, rng *rand.Rand) []string {
	shuffled := make([]string, len(options))
	copy(shuffled, options)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
