package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertEvent is a persisted alert emission for auditing and the show
// command. Payload carries the kind-specific alert data as JSON.
type AlertEvent struct {
	ID        uuid.UUID
	VenueID   string
	VenueName string
	Kind      string
	Severity  string
	Message   string
	Payload   json.RawMessage
	EmittedAt time.Time
	CreatedAt time.Time
}

// ActivitySnapshot is a periodic capture of one venue's statistics,
// taken on each scheduler tick. LastBidTime and LowestBid are nil for
// venues that have not seen a bid.
type ActivitySnapshot struct {
	VenueID            string
	VenueName          string
	TotalBids          int64
	BidCountLastMinute int
	ActivityScore      int
	HighestBid         decimal.Decimal
	LowestBid          *decimal.Decimal
	AverageBid         decimal.Decimal
	LastBidTime        *time.Time
	TakenAt            time.Time
	CreatedAt          time.Time
}
