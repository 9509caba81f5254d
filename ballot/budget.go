package ballot

import "math"

const phi = 1.618

// Budget returns the D21 vote allowance for a poll with the given number of
// seats: plus = floor(2w - (w-2)*phi) and minus = floor(plus/3). The result
// stays within (0, 101) for every uint8, so the narrowing never truncates
// anything but the fraction.
func Budget(winners uint8) (plus, minus uint8) {
	w := float64(winners)
	raw := 2.0*w - (w-2.0)*phi
	plus = uint8(math.Floor(raw))
	minus = plus / 3
	return plus, minus
}
