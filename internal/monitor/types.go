package monitor

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertKind identifies the condition that produced an alert.
type AlertKind string

const (
	AlertHighActivity      AlertKind = "high-activity"
	AlertFastPriceIncrease AlertKind = "fast-price-increase"
	AlertNewHighPrice      AlertKind = "new-high-price"
	AlertEndingSoon        AlertKind = "ending-soon"
	AlertNoActivity        AlertKind = "no-activity"
)

// Severity grades an alert for downstream routing.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityUrgent  Severity = "urgent"
)

// Lot describes the vehicle currently under the hammer.
type Lot struct {
	ID    string
	Make  string
	Model string
	Year  int
}

// BidEvent is a single recorded bid as delivered by the ingestion
// collaborator. PreviousAmount is zero when the bid did not supersede
// an earlier price.
type BidEvent struct {
	VenueID        string
	VenueName      string
	BidTime        time.Time
	Amount         decimal.Decimal
	PreviousAmount decimal.Decimal
	BidderName     string
	Lot            Lot
}

// VenueStats is a point-in-time snapshot of one venue's activity.
// LastBidTime and LowestBid are nil until the venue has seen a bid.
type VenueStats struct {
	VenueID            string
	VenueName          string
	TotalBids          int64
	LastBidTime        *time.Time
	HighestBid         decimal.Decimal
	LowestBid          *decimal.Decimal
	AverageBid         decimal.Decimal
	BidCountLastMinute int
	ActivityScore      int
	History            []BidEvent
	Active             bool
}

// Alert is an emitted, immutable alert value.
type Alert struct {
	Kind      AlertKind
	VenueID   string
	VenueName string
	Message   string
	Severity  Severity
	Timestamp time.Time
	Data      map[string]any
}
