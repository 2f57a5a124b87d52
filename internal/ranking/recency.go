package ranking

import (
	"math"
	"time"
)

// TimeScore decays from scale at age zero: floor(scale / (days/decayDays + 1)).
// Posts dated in the future are treated as brand new.
func TimeScore(posted, now time.Time, scale, decayDays float64) float64 {
	days := now.Sub(posted).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Floor(scale / (days/decayDays + 1))
}

// UpvoteScore is upvotes/scale; negative counts are treated as zero.
func UpvoteScore(upvotes int, scale float64) float64 {
	if upvotes < 0 {
		upvotes = 0
	}
	return float64(upvotes) / scale
}

// round3 rounds half away from zero to three decimal places.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
