package query

import (
	"math"
	"time"
)

// Breakdown counts records per category. Every known key is present, even
// with a zero count; values outside known are counted under other so the
// counts always sum to len(items).
func Breakdown[T any, K comparable](items []T, known []K, key func(T) K, other K) map[K]int {
	counts := make(map[K]int, len(known)+1)
	index := make(map[K]struct{}, len(known))
	for _, k := range known {
		counts[k] = 0
		index[k] = struct{}{}
	}
	for _, item := range items {
		k := key(item)
		if _, ok := index[k]; !ok {
			k = other
		}
		counts[k]++
	}
	return counts
}

// RoundedMean averages the optional value over records that carry it and
// rounds half away from zero. An empty subset gives 0.
func RoundedMean[T any](items []T, value func(T) (float64, bool)) int {
	var sum float64
	var n int
	for _, item := range items {
		if v, ok := value(item); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(sum / float64(n)))
}

// CountInWindow counts records with now-window <= ts < now.
func CountInWindow[T any](items []T, ts func(T) time.Time, now time.Time, window time.Duration) int {
	from := now.Add(-window)
	n := 0
	for _, item := range items {
		t := ts(item)
		if !t.Before(from) && t.Before(now) {
			n++
		}
	}
	return n
}

// Count returns how many records satisfy p. A nil p counts everything.
func Count[T any](items []T, p Predicate[T]) int {
	if p == nil {
		return len(items)
	}
	n := 0
	for _, item := range items {
		if p(item) {
			n++
		}
	}
	return n
}
