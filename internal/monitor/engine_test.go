package monitor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestMonitor(t *testing.T, settings Settings) (*Monitor, *time.Time) {
	t.Helper()
	m := New(settings, zerolog.Nop())
	clock := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func bid(venue string, at time.Time, amount, previous float64) BidEvent {
	return BidEvent{
		VenueID:        venue,
		VenueName:      venue + " hall",
		BidTime:        at,
		Amount:         decimal.NewFromFloat(amount),
		PreviousAmount: decimal.NewFromFloat(previous),
		BidderName:     "A. Bidder",
		Lot:            Lot{ID: "lot-1", Make: "Nissan", Model: "Patrol", Year: 2023},
	}
}

func collectAlerts(m *Monitor) *[]Alert {
	alerts := &[]Alert{}
	m.OnAlert(func(a Alert) {
		*alerts = append(*alerts, a)
	})
	return alerts
}

func alertsOfKind(alerts []Alert, kind AlertKind) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func TestRecordBidTotalsAndAverage(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())

	for _, amount := range []float64{100, 200, 300} {
		m.RecordBid(bid("v1", *clock, amount, 0))
	}

	stats, ok := m.VenueStatsByID("v1")
	if !ok {
		t.Fatal("venue should exist after recording bids")
	}
	if stats.TotalBids != 3 {
		t.Fatalf("want 3 total bids, got %d", stats.TotalBids)
	}
	if !stats.AverageBid.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("want average 200, got %s", stats.AverageBid)
	}
	if !stats.HighestBid.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("want highest 300, got %s", stats.HighestBid)
	}
	if stats.LowestBid == nil || !stats.LowestBid.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("want lowest 100, got %v", stats.LowestBid)
	}
	if stats.LastBidTime == nil || !stats.LastBidTime.Equal(*clock) {
		t.Fatalf("last bid time not recorded: %v", stats.LastBidTime)
	}
}

func TestExtremesUnsetBeforeFirstBid(t *testing.T) {
	m, _ := newTestMonitor(t, DefaultSettings())
	m.AddVenue("v1", "Hall A")

	stats, ok := m.VenueStatsByID("v1")
	if !ok {
		t.Fatal("registered venue should be visible")
	}
	if stats.LowestBid != nil {
		t.Fatalf("lowest bid must be unset before any bid, got %s", stats.LowestBid)
	}
	if stats.LastBidTime != nil {
		t.Fatalf("last bid time must be unset before any bid, got %v", stats.LastBidTime)
	}
	if stats.ActivityScore != 0 {
		t.Fatalf("venue without bids should score 0, got %d", stats.ActivityScore)
	}
}

func TestAddVenueIdempotent(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	m.AddVenue("v1", "Hall A")
	m.RecordBid(bid("v1", *clock, 500, 0))
	m.AddVenue("v1", "Hall A")

	stats, _ := m.VenueStatsByID("v1")
	if stats.TotalBids != 1 {
		t.Fatalf("re-registering must not reset stats, got %d bids", stats.TotalBids)
	}
}

func TestRecordBidAutoRegistersVenue(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	m.RecordBid(bid("v9", *clock, 750, 0))

	stats, ok := m.VenueStatsByID("v9")
	if !ok {
		t.Fatal("bid for an unseen id should auto-register the venue")
	}
	if stats.VenueName != "v9 hall" {
		t.Fatalf("venue name not taken from the event: %q", stats.VenueName)
	}
}

func TestRemoveVenueThenRebidStartsFresh(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())

	m.RecordBid(bid("v1", *clock, 100, 0))
	m.RecordBid(bid("v1", *clock, 900, 0))
	m.RemoveVenue("v1")

	if _, ok := m.VenueStatsByID("v1"); ok {
		t.Fatal("removed venue should not be found")
	}

	m.RecordBid(bid("v1", *clock, 300, 0))
	stats, _ := m.VenueStatsByID("v1")
	if stats.TotalBids != 1 {
		t.Fatalf("re-registered venue must start fresh, got %d bids", stats.TotalBids)
	}
	if !stats.HighestBid.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("old extrema must not survive removal, got highest %s", stats.HighestBid)
	}
	if len(stats.History) != 1 {
		t.Fatalf("old history must not survive removal, got %d entries", len(stats.History))
	}
}

func TestMinuteWindowBoundary(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	now := *clock

	m.RecordBid(bid("v1", now.Add(-61*time.Second), 100, 0))
	m.RecordBid(bid("v1", now.Add(-60*time.Second), 100, 0))
	m.RecordBid(bid("v1", now.Add(-30*time.Second), 100, 0))

	stats, _ := m.VenueStatsByID("v1")
	if stats.BidCountLastMinute != 2 {
		t.Fatalf("bid exactly 60s old counts, 61s does not: want 2, got %d", stats.BidCountLastMinute)
	}
}

func TestHistoryBoundedToCapacity(t *testing.T) {
	settings := DefaultSettings()
	settings.BidHistorySize = 5
	m, clock := newTestMonitor(t, settings)

	for i := 0; i < 8; i++ {
		m.RecordBid(bid("v1", *clock, float64(100+i), 0))
	}

	stats, _ := m.VenueStatsByID("v1")
	if len(stats.History) != 5 {
		t.Fatalf("history must be capped at 5, got %d", len(stats.History))
	}
	if !stats.History[0].Amount.Equal(decimal.NewFromInt(107)) {
		t.Fatalf("history must be most-recent-first, head amount %s", stats.History[0].Amount)
	}
}

func TestFastPriceIncreaseAlert(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	alerts := collectAlerts(m)

	m.RecordBid(bid("v1", *clock, 115000, 100000))

	fast := alertsOfKind(*alerts, AlertFastPriceIncrease)
	if len(fast) != 1 {
		t.Fatalf("want exactly one fast-price-increase alert, got %d", len(fast))
	}
	pct, ok := fast[0].Data["increasePct"].(float64)
	if !ok {
		t.Fatalf("payload missing increasePct: %#v", fast[0].Data)
	}
	if pct < 14.99 || pct > 15.01 {
		t.Fatalf("want increase of about 15.0%%, got %v", pct)
	}
	if fast[0].Severity != SeverityWarning {
		t.Fatalf("fast price increase should be a warning, got %s", fast[0].Severity)
	}

	// Another qualifying jump inside the 1 minute cooldown stays quiet.
	*clock = clock.Add(30 * time.Second)
	m.RecordBid(bid("v1", *clock, 135000, 115000))
	if got := len(alertsOfKind(*alerts, AlertFastPriceIncrease)); got != 1 {
		t.Fatalf("cooldown should suppress the second alert, got %d", got)
	}

	// And fires again once the cooldown has elapsed.
	*clock = clock.Add(time.Minute)
	m.RecordBid(bid("v1", *clock, 160000, 135000))
	if got := len(alertsOfKind(*alerts, AlertFastPriceIncrease)); got != 2 {
		t.Fatalf("want a second alert after the cooldown, got %d", got)
	}
}

func TestFastPriceIncreaseRequiresPreviousAmount(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	alerts := collectAlerts(m)

	m.RecordBid(bid("v1", *clock, 50000, 0))

	if got := len(alertsOfKind(*alerts, AlertFastPriceIncrease)); got != 0 {
		t.Fatalf("opening bid has no previous amount and must not alert, got %d", got)
	}
}

func TestNewHighPriceIncludesTyingBids(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	alerts := collectAlerts(m)

	m.RecordBid(bid("v1", *clock, 150000, 0))
	if got := len(alertsOfKind(*alerts, AlertNewHighPrice)); got != 1 {
		t.Fatalf("first bid past the floor should alert, got %d", got)
	}

	// The incoming bid is folded into HighestBid before the check, so a
	// tying bid still qualifies once the cooldown allows it.
	*clock = clock.Add(2 * time.Minute)
	m.RecordBid(bid("v1", *clock, 150000, 0))
	if got := len(alertsOfKind(*alerts, AlertNewHighPrice)); got != 2 {
		t.Fatalf("tying bid should alert after cooldown, got %d", got)
	}

	// A lower bid never does.
	*clock = clock.Add(2 * time.Minute)
	m.RecordBid(bid("v1", *clock, 120000, 0))
	if got := len(alertsOfKind(*alerts, AlertNewHighPrice)); got != 2 {
		t.Fatalf("bid below the maximum must not alert, got %d", got)
	}
}

func TestNewHighPriceRespectsFloor(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	alerts := collectAlerts(m)

	m.RecordBid(bid("v1", *clock, 99999, 0))

	if got := len(alertsOfKind(*alerts, AlertNewHighPrice)); got != 0 {
		t.Fatalf("bid below the floor must not alert, got %d", got)
	}
}

func TestHighActivityAlertCooldownSequence(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	alerts := collectAlerts(m)
	start := *clock

	for i := 0; i < 6; i++ {
		m.RecordBid(bid("v1", start.Add(time.Duration(i)*time.Second), 1000, 0))
	}
	m.Analyze(start)
	if got := len(alertsOfKind(*alerts, AlertHighActivity)); got != 1 {
		t.Fatalf("6 bids in a minute should raise exactly one alert, got %d", got)
	}

	// Still above threshold 30s later, but inside the 3m cooldown.
	*clock = start.Add(30 * time.Second)
	m.RecordBid(bid("v1", *clock, 1000, 0))
	m.Analyze(*clock)
	if got := len(alertsOfKind(*alerts, AlertHighActivity)); got != 1 {
		t.Fatalf("cooldown should suppress re-emission, got %d", got)
	}

	// A qualifying burst 4 minutes after the first alert fires once more.
	*clock = start.Add(4 * time.Minute)
	for i := 0; i < 6; i++ {
		m.RecordBid(bid("v1", clock.Add(time.Duration(i)*time.Second), 1000, 0))
	}
	m.Analyze(clock.Add(6 * time.Second))
	if got := len(alertsOfKind(*alerts, AlertHighActivity)); got != 2 {
		t.Fatalf("want exactly one more alert after the cooldown, got %d", got)
	}
}

func TestNoActivityAlert(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	alerts := collectAlerts(m)
	start := *clock

	m.RecordBid(bid("v1", start, 1000, 0))

	m.Analyze(start.Add(4*time.Minute + 59*time.Second))
	if got := len(alertsOfKind(*alerts, AlertNoActivity)); got != 0 {
		t.Fatalf("no alert before the threshold, got %d", got)
	}

	m.Analyze(start.Add(5 * time.Minute))
	got := alertsOfKind(*alerts, AlertNoActivity)
	if len(got) != 1 {
		t.Fatalf("want exactly one alert at the threshold, got %d", len(got))
	}
	if got[0].Severity != SeverityInfo {
		t.Fatalf("no-activity should be informational, got %s", got[0].Severity)
	}

	// Re-checking inside the 10m cooldown stays quiet.
	m.Analyze(start.Add(7 * time.Minute))
	if got := len(alertsOfKind(*alerts, AlertNoActivity)); got != 1 {
		t.Fatalf("cooldown should suppress re-emission, got %d", got)
	}
}

func TestNoActivityIgnoresVenuesWithoutBids(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	alerts := collectAlerts(m)

	m.AddVenue("v1", "Hall A")
	m.Analyze(clock.Add(24 * time.Hour))

	if got := len(alertsOfKind(*alerts, AlertNoActivity)); got != 0 {
		t.Fatalf("a venue that never received a bid must never alert, got %d", got)
	}
}

func TestAnalyzeDecaysWindowWithoutNewBids(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	start := *clock

	m.RecordBid(bid("v1", start, 1000, 0))
	m.RecordBid(bid("v1", start, 1000, 0))

	m.Analyze(start.Add(10 * time.Minute))

	stats, _ := m.VenueStatsByID("v1")
	if stats.BidCountLastMinute != 0 {
		t.Fatalf("minute window must decay with time, got %d", stats.BidCountLastMinute)
	}
	// Only the total-volume component (2 bids -> 1 point) remains.
	if stats.ActivityScore != 1 {
		t.Fatalf("want score 1 after decay, got %d", stats.ActivityScore)
	}
}

func TestEndingSoonAlert(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	alerts := collectAlerts(m)

	m.SendEndingSoonAlert("v1", "Hall A", 45)
	got := alertsOfKind(*alerts, AlertEndingSoon)
	if len(got) != 1 {
		t.Fatalf("want one ending-soon alert, got %d", len(got))
	}
	if got[0].Severity != SeverityUrgent {
		t.Fatalf("ending-soon should be urgent, got %s", got[0].Severity)
	}
	if got[0].Data["remainingSeconds"] != 45 {
		t.Fatalf("payload missing remaining seconds: %#v", got[0].Data)
	}

	m.SendEndingSoonAlert("v1", "Hall A", 30)
	if got := len(alertsOfKind(*alerts, AlertEndingSoon)); got != 1 {
		t.Fatalf("30s cooldown should suppress the repeat, got %d", got)
	}

	*clock = clock.Add(30 * time.Second)
	m.SendEndingSoonAlert("v1", "Hall A", 15)
	if got := len(alertsOfKind(*alerts, AlertEndingSoon)); got != 2 {
		t.Fatalf("want a second alert after the cooldown, got %d", got)
	}
}

func TestVenueStatsOrdering(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())

	m.AddVenue("idle-1", "Idle One")
	m.AddVenue("idle-2", "Idle Two")
	for i := 0; i < 4; i++ {
		m.RecordBid(bid("busy", *clock, 1000, 0))
	}

	stats := m.VenueStats(false)
	if len(stats) != 3 {
		t.Fatalf("want 3 venues, got %d", len(stats))
	}
	if stats[0].VenueID != "busy" {
		t.Fatalf("highest score must come first, got %s", stats[0].VenueID)
	}
	// Equal scores keep registration order.
	if stats[1].VenueID != "idle-1" || stats[2].VenueID != "idle-2" {
		t.Fatalf("tie order must follow registration: got %s, %s", stats[1].VenueID, stats[2].VenueID)
	}
}

func TestStatsUpdatedPublishedPerBid(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())

	var updates []VenueStats
	m.OnStatsUpdated(func(s VenueStats) {
		updates = append(updates, s)
	})

	m.RecordBid(bid("v1", *clock, 1000, 0))
	m.RecordBid(bid("v1", *clock, 2000, 0))

	if len(updates) != 2 {
		t.Fatalf("want one snapshot per bid, got %d", len(updates))
	}
	if updates[1].TotalBids != 2 {
		t.Fatalf("snapshot must reflect the just-recorded bid, got %d", updates[1].TotalBids)
	}
}

func TestSubscriberPanicIsolated(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())

	m.OnAlert(func(Alert) {
		panic("broken subscriber")
	})
	var delivered int
	m.OnAlert(func(Alert) {
		delivered++
	})

	m.SendEndingSoonAlert("v1", "Hall A", 10)

	if delivered != 1 {
		t.Fatalf("panicking subscriber must not block the next one, delivered=%d", delivered)
	}

	// Engine state stays intact.
	m.RecordBid(bid("v1", *clock, 1000, 0))
	stats, ok := m.VenueStatsByID("v1")
	if !ok || stats.TotalBids != 1 {
		t.Fatal("engine must keep working after a subscriber panic")
	}
}

func TestConcurrentIngestionAndAnalysis(t *testing.T) {
	m, clock := newTestMonitor(t, DefaultSettings())
	start := *clock

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			m.Analyze(start)
		}
	}()

	for i := 0; i < 200; i++ {
		m.RecordBid(bid("v1", start, 1000, 0))
		m.RecordBid(bid("v2", start, 2000, 0))
	}
	<-done

	for _, id := range []string{"v1", "v2"} {
		stats, _ := m.VenueStatsByID(id)
		if stats.TotalBids != 200 {
			t.Fatalf("venue %s lost updates: %d", id, stats.TotalBids)
		}
	}
}
