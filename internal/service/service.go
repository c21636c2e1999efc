package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bid-activity-alerts/internal/alerting"
	"bid-activity-alerts/internal/monitor"
	"bid-activity-alerts/internal/scheduler"
	"bid-activity-alerts/internal/storage"
)

const persistTimeout = 5 * time.Second

// Service wires the monitoring engine to its collaborators: it drives
// the periodic pass, persists snapshots and alert emissions, and hands
// alerts to the delivery channel. Store and notifier are optional.
type Service struct {
	monitor    *monitor.Monitor
	alertStore storage.AlertEventStore
	snapStore  storage.SnapshotStore
	notifier   alerting.Notifier
	logger     zerolog.Logger
}

// New constructs the monitoring service around an engine instance.
func New(mon *monitor.Monitor, alertStore storage.AlertEventStore, snapStore storage.SnapshotStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		monitor:    mon,
		alertStore: alertStore,
		snapStore:  snapStore,
		notifier:   notifier,
		logger:     logger.With().Str("component", "service").Logger(),
	}
}

// Subscribe attaches the service's handlers to the engine's event
// streams. Call once before running.
func (s *Service) Subscribe() {
	s.monitor.OnStatsUpdated(s.handleStats)
	s.monitor.OnAlert(s.handleAlert)
}

// Run starts the scheduler and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context, sched *scheduler.Scheduler) error {
	sched.Start()
	defer sched.Stop()

	<-ctx.Done()
	return ctx.Err()
}

// Tick performs one periodic pass and persists per-venue snapshots.
func (s *Service) Tick(now time.Time) {
	s.monitor.Analyze(now)

	if s.snapStore == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	for _, stats := range s.monitor.VenueStats(true) {
		snapshot := storage.ActivitySnapshot{
			VenueID:            stats.VenueID,
			VenueName:          stats.VenueName,
			TotalBids:          stats.TotalBids,
			BidCountLastMinute: stats.BidCountLastMinute,
			ActivityScore:      stats.ActivityScore,
			HighestBid:         stats.HighestBid,
			LowestBid:          stats.LowestBid,
			AverageBid:         stats.AverageBid,
			LastBidTime:        stats.LastBidTime,
			TakenAt:            now,
		}
		if err := s.snapStore.UpsertSnapshot(ctx, snapshot); err != nil {
			s.logger.Error().Err(err).Str("venue_id", stats.VenueID).Msg("failed to persist snapshot")
		}
	}
}

func (s *Service) handleStats(stats monitor.VenueStats) {
	s.logger.Debug().
		Str("venue_id", stats.VenueID).
		Int64("total_bids", stats.TotalBids).
		Int("score", stats.ActivityScore).
		Msg("stats updated")
}

func (s *Service) handleAlert(alert monitor.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if s.alertStore != nil {
		payload, err := json.Marshal(alert.Data)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to encode alert payload")
			payload = []byte("{}")
		}
		event := storage.AlertEvent{
			ID:        uuid.New(),
			VenueID:   alert.VenueID,
			VenueName: alert.VenueName,
			Kind:      string(alert.Kind),
			Severity:  string(alert.Severity),
			Message:   alert.Message,
			Payload:   payload,
			EmittedAt: alert.Timestamp,
		}
		if err := s.alertStore.InsertAlertEvent(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("venue_id", alert.VenueID).Msg("failed to persist alert event")
		}
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, alert); err != nil {
			s.logger.Error().Err(err).Str("venue_id", alert.VenueID).Msg("failed to dispatch alert")
		}
	}
}
