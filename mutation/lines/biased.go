package lines

// Rand is the random source operators draw from.
type Rand interface {
	// Draw returns a uniform integer in [min, max].
	Draw(min, max int) int
	// RepetitionLength returns a biased repetition count in [1, MaxRepetitions].
	RepetitionLength() int
}

// MaxRepetitions is the upper bound of Rand.RepetitionLength.
const MaxRepetitions = 1<<21 + 1

// BiasedLog returns a biased value for a window bounded by maxValue, or 0 when
// maxValue is too small to bias.
func BiasedLog(r Rand, maxValue int) int {
	if maxValue <= 2 {
		return 0
	}
	return BiasedBits(r, r.Draw(0, maxValue-2)+2)
}

// BiasedBits draws in [0, (n-1)*2] and forces the high bits of (n-1)*2 on, so
// results cluster just above powers of two.
func BiasedBits(r Rand, n int) int {
	high := (n - 1) * 2
	return r.Draw(0, high) | high
}
