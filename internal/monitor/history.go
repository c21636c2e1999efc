package monitor

import "time"

// bidHistory is a fixed-capacity, most-recent-first list of bids.
// Eviction happens at insertion time so length never exceeds capacity.
type bidHistory struct {
	entries  []BidEvent
	capacity int
}

func newBidHistory(capacity int) *bidHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &bidHistory{
		entries:  make([]BidEvent, 0, capacity),
		capacity: capacity,
	}
}

func (h *bidHistory) pushFront(event BidEvent) {
	if len(h.entries) < h.capacity {
		h.entries = append(h.entries, BidEvent{})
	}
	copy(h.entries[1:], h.entries)
	h.entries[0] = event
}

func (h *bidHistory) len() int {
	return len(h.entries)
}

// countSince counts entries with BidTime at or after cutoff. Entries are
// scanned in full: bid timestamps come from the producer and are not
// guaranteed monotonic.
func (h *bidHistory) countSince(cutoff time.Time) int {
	count := 0
	for _, entry := range h.entries {
		if !entry.BidTime.Before(cutoff) {
			count++
		}
	}
	return count
}

func (h *bidHistory) snapshot() []BidEvent {
	out := make([]BidEvent, len(h.entries))
	copy(out, h.entries)
	return out
}
