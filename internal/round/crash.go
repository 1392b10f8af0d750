package round

import "math"

// InstantCrashChance is the share of rounds that crash at exactly 1.00x.
const InstantCrashChance = 0.02

// HouseEdge is withheld from every cashout payout.
const HouseEdge = 0.01

// SampleCrash maps a uniform draw r in [0,1) to a crash point: an
// exponential tail of scale variance shifted up to minCrash and capped at
// maxCrash, with the lowest InstantCrashChance of draws pinned to 1.00.
func SampleCrash(r, minCrash, maxCrash, variance float64) float64 {
	if r < InstantCrashChance {
		return 1.00
	}
	v := minCrash + (-math.Log(1-r) * variance)
	return math.Min(v, maxCrash)
}

// Multiplier is the live value elapsed seconds into a round.
func Multiplier(start, growthPerSecond, elapsedSeconds float64) float64 {
	return start * math.Exp(growthPerSecond*elapsedSeconds)
}

// Payout applies the house edge to amount cashed out at multiplier.
func Payout(amount, multiplier float64) float64 {
	gross := amount * multiplier
	return gross - gross*HouseEdge
}
