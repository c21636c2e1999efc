package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bid-activity-alerts/internal/monitor"
)

var simulatedBidders = []string{"R. AlQahtani", "M. Hassan", "S. AlOtaibi", "F. AlDossary", "K. Ibrahim"}

// Simulate drives a synthetic bid feed through a fresh engine instance
// and prints every emitted alert, exercising the full scoring and
// alerting pipeline without a database or live venues.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.Bids <= 0 {
		return errors.New("--bids must be greater than zero")
	}

	mon := a.newMonitor()
	mon.OnAlert(func(alert monitor.Alert) {
		fmt.Fprintf(os.Stdout, "[%s] %s (%s): %s\n", alert.Severity, alert.Kind, alert.VenueName, alert.Message)
	})

	if notifier := a.newNotifier(); notifier != nil {
		mon.OnAlert(func(alert monitor.Alert) {
			if err := notifier.Notify(ctx, alert); err != nil {
				a.Logger.Error().Err(err).Msg("simulated alert delivery failed")
			}
		})
	}

	mon.AddVenue(opts.VenueID, opts.VenueName)

	lot := monitor.Lot{
		ID:    uuid.NewString(),
		Make:  "Toyota",
		Model: "Land Cruiser",
		Year:  2024,
	}

	price := decimal.NewFromFloat(opts.StartPrice)
	increment := decimal.NewFromFloat(opts.Increment)
	previous := decimal.Zero

	for i := 0; i < opts.Bids; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		mon.RecordBid(monitor.BidEvent{
			VenueID:        opts.VenueID,
			VenueName:      opts.VenueName,
			BidTime:        time.Now(),
			Amount:         price,
			PreviousAmount: previous,
			BidderName:     simulatedBidders[i%len(simulatedBidders)],
			Lot:            lot,
		})

		previous = price
		price = price.Add(increment)

		if opts.Interval > 0 && i < opts.Bids-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.Interval):
			}
		}
	}

	mon.Analyze(time.Now())

	stats, ok := mon.VenueStatsByID(opts.VenueID)
	if !ok {
		return errors.New("simulated venue disappeared")
	}

	a.Logger.Info().
		Int64("total_bids", stats.TotalBids).
		Int("bids_last_minute", stats.BidCountLastMinute).
		Int("activity_score", stats.ActivityScore).
		Str("average_bid", stats.AverageBid.StringFixed(2)).
		Msg("simulation finished")
	return nil
}
