package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"bid-activity-alerts/internal/app"
)

var (
	simulateVenueID    string
	simulateVenueName  string
	simulateBids       int
	simulateInterval   time.Duration
	simulateStartPrice float64
	simulateIncrement  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Feed synthetic bids through the engine and print alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateStartPrice <= 0 {
			return errors.New("--start-price must be greater than 0")
		}

		opts := app.SimulateOptions{
			VenueID:    simulateVenueID,
			VenueName:  simulateVenueName,
			Bids:       simulateBids,
			Interval:   simulateInterval,
			StartPrice: simulateStartPrice,
			Increment:  simulateIncrement,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateVenueID, "venue", "venue-sim", "Venue id to simulate")
	simulateCmd.Flags().StringVar(&simulateVenueName, "venue-name", "Simulated Venue", "Venue display name")
	simulateCmd.Flags().IntVar(&simulateBids, "bids", 8, "Number of bids to feed")
	simulateCmd.Flags().DurationVar(&simulateInterval, "interval", 0, "Delay between bids")
	simulateCmd.Flags().Float64Var(&simulateStartPrice, "start-price", 95000, "Opening bid amount")
	simulateCmd.Flags().Float64Var(&simulateIncrement, "increment", 15000, "Amount added per bid")
}
