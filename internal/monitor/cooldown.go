package monitor

import (
	"sync"
	"time"
)

type throttleKey struct {
	venueID string
	kind    AlertKind
}

// throttle gates repeated alerts per (venue, kind). Entries are created
// on first use and live for the process lifetime, surviving venue
// removal on purpose.
type throttle struct {
	mu        sync.Mutex
	last      map[throttleKey]time.Time
	cooldowns CooldownSettings
}

func newThrottle(cooldowns CooldownSettings) *throttle {
	return &throttle{
		last:      make(map[throttleKey]time.Time),
		cooldowns: cooldowns,
	}
}

// allow reports whether an alert of the given kind may be emitted for
// the venue at instant now. The first attempt for a key always passes;
// later attempts pass once the kind's cooldown has elapsed. A passing
// attempt re-stamps the key.
func (t *throttle) allow(venueID string, kind AlertKind, now time.Time) bool {
	key := throttleKey{venueID: venueID, kind: kind}

	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.last[key]
	if seen && now.Sub(last) < t.cooldowns.forKind(kind) {
		return false
	}
	t.last[key] = now
	return true
}
