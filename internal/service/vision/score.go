package vision

import "math"

// neutralScore is used whenever a signal cannot be measured.
const neutralScore = 6

// clampScore bounds a score to [1,10].
func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// mapRangeToScore maps a raw measurement onto the [1,10] score scale
// by linear interpolation between min and max. Out-of-range inputs
// clamp rather than error; a degenerate range yields the neutral
// score.
func mapRangeToScore(value, min, max float64) int {
	if max <= min {
		return neutralScore
	}
	normalized := (value - min) / (max - min)
	return clampScore(int(math.Round(1 + normalized*9)))
}
