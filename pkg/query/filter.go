// Package query holds the pure read-side building blocks shared by every
// module: predicates combined with logical AND, fixed-shape aggregates, and
// page slicing. Nothing here touches a store or fails at runtime.
package query

import (
	"math"
	"strings"
	"time"
)

// Predicate tests one record. A nil Predicate means "no constraint".
type Predicate[T any] func(T) bool

// Filter returns the records matching every non-nil predicate, preserving
// input order. The input slice is not modified.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	out := make([]T, 0, len(items))
next:
	for _, item := range items {
		for _, p := range active {
			if !p(item) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

// All combines predicates into one. Nil members are ignored; if every member
// is nil the result is nil.
func All[T any](preds ...Predicate[T]) Predicate[T] {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(item T) bool {
		for _, p := range active {
			if !p(item) {
				return false
			}
		}
		return true
	}
}

// Text matches records where any searchable field contains the query,
// case-insensitively. A blank query yields no constraint.
func Text[T any](q string, fields func(T) []string) Predicate[T] {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return nil
	}
	return func(item T) bool {
		for _, f := range fields(item) {
			if f != "" && strings.Contains(strings.ToLower(f), needle) {
				return true
			}
		}
		return false
	}
}

// In matches records whose field value is one of values. An empty set yields
// no constraint.
func In[T any, V comparable](values []V, field func(T) V) Predicate[T] {
	if len(values) == 0 {
		return nil
	}
	set := make(map[V]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return func(item T) bool {
		_, ok := set[field(item)]
		return ok
	}
}

// Equal matches records whose field equals *want. A nil want yields no constraint.
func Equal[T any, V comparable](want *V, field func(T) V) Predicate[T] {
	if want == nil {
		return nil
	}
	w := *want
	return func(item T) bool {
		return field(item) == w
	}
}

// DaysUntil is ceil((target - now) / 24h). Past targets give zero or negative values.
func DaysUntil(now, target time.Time) int {
	return int(math.Ceil(target.Sub(now).Hours() / 24))
}

// ExpiringWithin matches records whose target date is 1..days days away.
// Records without a target date, or already past it, never match. days <= 0
// yields no constraint.
func ExpiringWithin[T any](now time.Time, days int, target func(T) *time.Time) Predicate[T] {
	if days <= 0 {
		return nil
	}
	return func(item T) bool {
		t := target(item)
		if t == nil {
			return false
		}
		d := DaysUntil(now, *t)
		return d > 0 && d <= days
	}
}

// Between matches timestamps in [from, to). Either bound may be nil.
func Between[T any](from, to *time.Time, ts func(T) time.Time) Predicate[T] {
	if from == nil && to == nil {
		return nil
	}
	return func(item T) bool {
		t := ts(item)
		if from != nil && t.Before(*from) {
			return false
		}
		if to != nil && !t.Before(*to) {
			return false
		}
		return true
	}
}

// AtLeast matches records whose optional numeric value is >= min. Records
// without the value never match an active threshold.
func AtLeast[T any](threshold *int, value func(T) (int, bool)) Predicate[T] {
	if threshold == nil {
		return nil
	}
	m := *threshold
	return func(item T) bool {
		v, ok := value(item)
		return ok && v >= m
	}
}
