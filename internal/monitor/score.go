package monitor

import (
	"math"
	"time"
)

// Score maps a venue's current statistics to a 0-100 activity score.
// Three independently capped components contribute:
//
//   - recent volume: 10 points per bid in the trailing minute, cap 50
//   - total volume: half a point per bid ever, cap 20
//   - recency: 30 points decaying linearly to 0 over 5 quiet minutes
//
// The sum is rounded; because every term is capped and non-negative the
// result stays within [0,100] for any input.
func Score(stats VenueStats, now time.Time) int {
	recentVolume := math.Min(50, float64(stats.BidCountLastMinute)*10)
	totalVolume := math.Min(20, float64(stats.TotalBids)/2)

	recency := 0.0
	if stats.LastBidTime != nil {
		minutesSince := now.Sub(*stats.LastBidTime).Minutes()
		recency = math.Max(0, 30-minutesSince*6)
	}

	return int(math.Round(recentVolume + totalVolume + recency))
}
