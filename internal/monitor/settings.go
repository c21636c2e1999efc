package monitor

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings tune thresholds, history retention, and alert cooldowns.
type Settings struct {
	// Bids per minute considered high activity.
	HighActivityThreshold int

	// Percent jump over the previous amount considered a fast increase.
	PriceIncreaseThreshold float64

	// Floor below which a record price never alerts.
	MinHighPriceThreshold decimal.Decimal

	// Remaining time under which an auction counts as ending soon.
	EndingSoonThreshold time.Duration

	// Quiet period after which a venue counts as inactive.
	NoActivityThreshold time.Duration

	// Bids retained per venue, most recent first.
	BidHistorySize int

	// Cadence of the periodic re-evaluation pass.
	UpdateInterval time.Duration

	Cooldowns CooldownSettings
}

// CooldownSettings hold the per-kind minimum gap between repeated
// alerts for the same venue. Default applies to unknown kinds.
type CooldownSettings struct {
	HighActivity      time.Duration
	FastPriceIncrease time.Duration
	NewHighPrice      time.Duration
	EndingSoon        time.Duration
	NoActivity        time.Duration
	Default           time.Duration
}

// DefaultSettings mirror the thresholds the production overlay runs with.
func DefaultSettings() Settings {
	return Settings{
		HighActivityThreshold:  5,
		PriceIncreaseThreshold: 10,
		MinHighPriceThreshold:  decimal.NewFromInt(100000),
		EndingSoonThreshold:    60 * time.Second,
		NoActivityThreshold:    5 * time.Minute,
		BidHistorySize:         20,
		UpdateInterval:         10 * time.Second,
		Cooldowns: CooldownSettings{
			HighActivity:      3 * time.Minute,
			FastPriceIncrease: time.Minute,
			NewHighPrice:      time.Minute,
			EndingSoon:        30 * time.Second,
			NoActivity:        10 * time.Minute,
			Default:           5 * time.Minute,
		},
	}
}

func (c CooldownSettings) forKind(kind AlertKind) time.Duration {
	switch kind {
	case AlertHighActivity:
		return c.HighActivity
	case AlertFastPriceIncrease:
		return c.FastPriceIncrease
	case AlertNewHighPrice:
		return c.NewHighPrice
	case AlertEndingSoon:
		return c.EndingSoon
	case AlertNoActivity:
		return c.NoActivity
	default:
		return c.Default
	}
}
