package window

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryWindow keeps failure timestamps per IP in arrival order. Timestamps
// older than the retention are dropped on write.
type InMemoryWindow struct {
	mu        sync.RWMutex
	failures  map[string][]time.Time
	retention time.Duration
}

func NewInMemory(retention time.Duration) *InMemoryWindow {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &InMemoryWindow{
		failures:  make(map[string][]time.Time),
		retention: retention,
	}
}

func (w *InMemoryWindow) Record(_ context.Context, ip string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := w.failures[ip]
	// keep the slice sorted; out-of-order arrivals are rare
	i := sort.Search(len(ts), func(i int) bool { return ts[i].After(at) })
	ts = append(ts, time.Time{})
	copy(ts[i+1:], ts[i:])
	ts[i] = at
	w.failures[ip] = prune(ts, at.Add(-w.retention))
	return nil
}

func (w *InMemoryWindow) Count(_ context.Context, ip string, from, to time.Time) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ts := w.failures[ip]
	lo := sort.Search(len(ts), func(i int) bool { return !ts[i].Before(from) })
	hi := sort.Search(len(ts), func(i int) bool { return ts[i].After(to) })
	if hi < lo {
		return 0, nil
	}
	return hi - lo, nil
}

// prune drops timestamps before cutoff from a sorted slice.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(ts), func(i int) bool { return !ts[i].Before(cutoff) })
	return ts[i:]
}
