package monitor

import "sync"

// StatsHandler receives a snapshot after every recorded bid.
type StatsHandler func(VenueStats)

// AlertHandler receives every alert that clears the cooldown gate.
type AlertHandler func(Alert)

// subscribers fan events out synchronously, in registration order. A
// panicking handler is contained so the remaining handlers still run
// and engine state stays intact.
type subscribers struct {
	mu       sync.Mutex
	onStats  []StatsHandler
	onAlert  []AlertHandler
	recovery func(any)
}

func (s *subscribers) addStats(h StatsHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStats = append(s.onStats, h)
}

func (s *subscribers) addAlert(h AlertHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAlert = append(s.onAlert, h)
}

func (s *subscribers) publishStats(stats VenueStats) {
	s.mu.Lock()
	handlers := make([]StatsHandler, len(s.onStats))
	copy(handlers, s.onStats)
	s.mu.Unlock()

	for _, h := range handlers {
		s.safeCall(func() { h(stats) })
	}
}

func (s *subscribers) publishAlert(alert Alert) {
	s.mu.Lock()
	handlers := make([]AlertHandler, len(s.onAlert))
	copy(handlers, s.onAlert)
	s.mu.Unlock()

	for _, h := range handlers {
		s.safeCall(func() { h(alert) })
	}
}

func (s *subscribers) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil && s.recovery != nil {
			s.recovery(r)
		}
	}()
	fn()
}
