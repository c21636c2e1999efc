package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Monitor tracks bidding activity per venue and raises cooldown-gated
// alerts. Venue records are guarded individually so ingestion and the
// periodic pass serialize per venue while distinct venues proceed in
// parallel. The engine performs no I/O of its own.
type Monitor struct {
	settings Settings
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	venues  map[string]*venueRecord
	nextSeq int

	throttle *throttle
	subs     subscribers
}

type venueRecord struct {
	mu  sync.Mutex
	seq int

	id          string
	name        string
	totalBids   int64
	lastBidTime *time.Time
	highestBid  decimal.Decimal
	lowestBid   *decimal.Decimal
	averageBid  decimal.Decimal
	lastMinute  int
	score       int
	history     *bidHistory
	active      bool
}

// New constructs an engine instance. Instances are independent; nothing
// is shared process-wide.
func New(settings Settings, logger zerolog.Logger) *Monitor {
	m := &Monitor{
		settings: settings,
		logger:   logger.With().Str("component", "monitor").Logger(),
		now:      time.Now,
		venues:   make(map[string]*venueRecord),
		throttle: newThrottle(settings.Cooldowns),
	}
	m.subs.recovery = func(r any) {
		m.logger.Error().Interface("panic", r).Msg("subscriber panicked")
	}
	return m
}

// OnStatsUpdated registers a handler for per-bid stats snapshots.
func (m *Monitor) OnStatsUpdated(h StatsHandler) {
	m.subs.addStats(h)
}

// OnAlert registers a handler for emitted alerts.
func (m *Monitor) OnAlert(h AlertHandler) {
	m.subs.addAlert(h)
}

// AddVenue registers a venue for monitoring. A no-op if the id is
// already present.
func (m *Monitor) AddVenue(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.venues[id]; exists {
		return
	}
	m.addVenueLocked(id, name)
	m.logger.Info().Str("venue_id", id).Str("venue_name", name).Msg("venue registered")
}

func (m *Monitor) addVenueLocked(id, name string) *venueRecord {
	rec := &venueRecord{
		seq:     m.nextSeq,
		id:      id,
		name:    name,
		history: newBidHistory(m.settings.BidHistorySize),
		active:  true,
	}
	m.nextSeq++
	m.venues[id] = rec
	return rec
}

// RemoveVenue deregisters a venue. Unknown ids are ignored. A later bid
// for the same id re-registers it with fresh statistics; cooldown state
// is deliberately left in place.
func (m *Monitor) RemoveVenue(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.venues[id]; !exists {
		return
	}
	delete(m.venues, id)
	m.logger.Info().Str("venue_id", id).Msg("venue removed")
}

func (m *Monitor) getOrCreate(id, name string) *venueRecord {
	m.mu.RLock()
	rec, exists := m.venues[id]
	m.mu.RUnlock()
	if exists {
		return rec
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, exists = m.venues[id]; exists {
		return rec
	}
	rec = m.addVenueLocked(id, name)
	m.logger.Info().Str("venue_id", id).Str("venue_name", name).Msg("venue auto-registered on first bid")
	return rec
}

// RecordBid folds one bid into its venue's statistics, runs the
// immediate alert checks, and publishes a stats snapshot. Unknown
// venues are auto-registered. Amounts are not validated; degenerate
// values flow through the arithmetic unchanged.
func (m *Monitor) RecordBid(event BidEvent) {
	rec := m.getOrCreate(event.VenueID, event.VenueName)
	now := m.now()

	rec.mu.Lock()
	bidTime := event.BidTime
	rec.lastBidTime = &bidTime
	rec.totalBids++

	if event.Amount.GreaterThan(rec.highestBid) {
		rec.highestBid = event.Amount
	}
	if rec.lowestBid == nil || event.Amount.LessThan(*rec.lowestBid) {
		lowest := event.Amount
		rec.lowestBid = &lowest
	}

	previousTotal := decimal.NewFromInt(rec.totalBids - 1)
	rec.averageBid = rec.averageBid.Mul(previousTotal).Add(event.Amount).Div(decimal.NewFromInt(rec.totalBids))

	rec.history.pushFront(event)
	rec.lastMinute = rec.history.countSince(now.Add(-time.Minute))

	snap := rec.snapshotLocked()
	rec.score = Score(snap, now)
	snap.ActivityScore = rec.score
	rec.mu.Unlock()

	for _, alert := range m.immediateAlerts(event, snap, now) {
		m.emitGated(alert)
	}

	m.subs.publishStats(snap)
}

func (m *Monitor) immediateAlerts(event BidEvent, stats VenueStats, now time.Time) []Alert {
	var alerts []Alert

	if event.PreviousAmount.IsPositive() {
		pct := event.Amount.Sub(event.PreviousAmount).Div(event.PreviousAmount).Mul(decimal.NewFromInt(100))
		if pct.GreaterThanOrEqual(decimal.NewFromFloat(m.settings.PriceIncreaseThreshold)) {
			alerts = append(alerts, Alert{
				Kind:      AlertFastPriceIncrease,
				VenueID:   stats.VenueID,
				VenueName: stats.VenueName,
				Message:   fmt.Sprintf("Fast price increase: %s%% (now %s)", pct.StringFixed(1), event.Amount.String()),
				Severity:  SeverityWarning,
				Timestamp: now,
				Data: map[string]any{
					"increasePct":    pct.InexactFloat64(),
					"previousAmount": event.PreviousAmount.String(),
					"newAmount":      event.Amount.String(),
					"bidder":         event.BidderName,
				},
			})
		}
	}

	// HighestBid already includes this bid, so any bid that ties or
	// raises the maximum past the floor qualifies.
	if event.Amount.GreaterThanOrEqual(m.settings.MinHighPriceThreshold) &&
		event.Amount.GreaterThanOrEqual(stats.HighestBid) {
		alerts = append(alerts, Alert{
			Kind:      AlertNewHighPrice,
			VenueID:   stats.VenueID,
			VenueName: stats.VenueName,
			Message:   fmt.Sprintf("New record price: %s", event.Amount.String()),
			Severity:  SeverityWarning,
			Timestamp: now,
			Data: map[string]any{
				"amount": event.Amount.String(),
				"bidder": event.BidderName,
				"lot":    event.Lot,
			},
		})
	}

	return alerts
}

// Analyze re-evaluates every active venue at instant now: the minute
// window and score are recomputed so they decay between bids, then the
// time-based alert conditions are checked. Driven by the scheduler.
func (m *Monitor) Analyze(now time.Time) {
	m.mu.RLock()
	records := make([]*venueRecord, 0, len(m.venues))
	for _, rec := range m.venues {
		records = append(records, rec)
	}
	m.mu.RUnlock()

	for _, rec := range records {
		rec.mu.Lock()
		if !rec.active {
			rec.mu.Unlock()
			continue
		}
		rec.lastMinute = rec.history.countSince(now.Add(-time.Minute))
		snap := rec.snapshotLocked()
		rec.score = Score(snap, now)
		snap.ActivityScore = rec.score
		rec.mu.Unlock()

		if snap.BidCountLastMinute >= m.settings.HighActivityThreshold {
			m.emitGated(Alert{
				Kind:      AlertHighActivity,
				VenueID:   snap.VenueID,
				VenueName: snap.VenueName,
				Message:   fmt.Sprintf("High bidding activity: %d bids in the last minute", snap.BidCountLastMinute),
				Severity:  SeverityWarning,
				Timestamp: now,
				Data: map[string]any{
					"bidCount":      snap.BidCountLastMinute,
					"activityScore": snap.ActivityScore,
				},
			})
		}

		if snap.LastBidTime != nil {
			quiet := now.Sub(*snap.LastBidTime)
			if quiet >= m.settings.NoActivityThreshold {
				m.emitGated(Alert{
					Kind:      AlertNoActivity,
					VenueID:   snap.VenueID,
					VenueName: snap.VenueName,
					Message:   fmt.Sprintf("No bids recorded for %d minutes", int(quiet.Minutes())),
					Severity:  SeverityInfo,
					Timestamp: now,
					Data: map[string]any{
						"minutesSinceLastBid": quiet.Minutes(),
					},
				})
			}
		}
	}
}

// SendEndingSoonAlert emits an urgent countdown alert for a venue. The
// auction countdown itself is tracked by an external collaborator.
func (m *Monitor) SendEndingSoonAlert(venueID, venueName string, remainingSeconds int) {
	m.emitGated(Alert{
		Kind:      AlertEndingSoon,
		VenueID:   venueID,
		VenueName: venueName,
		Message:   fmt.Sprintf("Auction ending soon: %d seconds remaining", remainingSeconds),
		Severity:  SeverityUrgent,
		Timestamp: m.now(),
		Data: map[string]any{
			"remainingSeconds": remainingSeconds,
		},
	})
}

func (m *Monitor) emitGated(alert Alert) {
	if !m.throttle.allow(alert.VenueID, alert.Kind, alert.Timestamp) {
		return
	}
	m.logger.Info().
		Str("venue_id", alert.VenueID).
		Str("kind", string(alert.Kind)).
		Str("severity", string(alert.Severity)).
		Msg(alert.Message)
	m.subs.publishAlert(alert)
}

// VenueStats snapshots all venues, optionally only active ones, ordered
// by descending activity score. Equal scores keep venue registration
// order.
func (m *Monitor) VenueStats(activeOnly bool) []VenueStats {
	m.mu.RLock()
	records := make([]*venueRecord, 0, len(m.venues))
	for _, rec := range m.venues {
		records = append(records, rec)
	}
	m.mu.RUnlock()

	type ranked struct {
		stats VenueStats
		seq   int
	}
	snapshots := make([]ranked, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		snap := rec.snapshotLocked()
		seq := rec.seq
		rec.mu.Unlock()
		if activeOnly && !snap.Active {
			continue
		}
		snapshots = append(snapshots, ranked{stats: snap, seq: seq})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].stats.ActivityScore != snapshots[j].stats.ActivityScore {
			return snapshots[i].stats.ActivityScore > snapshots[j].stats.ActivityScore
		}
		return snapshots[i].seq < snapshots[j].seq
	})

	out := make([]VenueStats, len(snapshots))
	for i, s := range snapshots {
		out[i] = s.stats
	}
	return out
}

// VenueStatsByID snapshots a single venue. The second return is false
// for unknown ids.
func (m *Monitor) VenueStatsByID(id string) (VenueStats, bool) {
	m.mu.RLock()
	rec, exists := m.venues[id]
	m.mu.RUnlock()
	if !exists {
		return VenueStats{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshotLocked(), true
}

func (r *venueRecord) snapshotLocked() VenueStats {
	stats := VenueStats{
		VenueID:            r.id,
		VenueName:          r.name,
		TotalBids:          r.totalBids,
		HighestBid:         r.highestBid,
		AverageBid:         r.averageBid,
		BidCountLastMinute: r.lastMinute,
		ActivityScore:      r.score,
		History:            r.history.snapshot(),
		Active:             r.active,
	}
	if r.lastBidTime != nil {
		t := *r.lastBidTime
		stats.LastBidTime = &t
	}
	if r.lowestBid != nil {
		low := *r.lowestBid
		stats.LowestBid = &low
	}
	return stats
}
