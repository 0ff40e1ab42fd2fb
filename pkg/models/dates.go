package models

import (
	"math"
	"time"
)

// DaysBetween returns the whole days elapsed from from to to, floored.
func DaysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// ResolveReference returns ref, or the latest order date among items when ref is zero.
func ResolveReference(ref time.Time, items []TransactionItem) time.Time {
	if !ref.IsZero() {
		return ref
	}
	var latest time.Time
	for _, it := range items {
		if it.OrderDate.After(latest) {
			latest = it.OrderDate
		}
	}
	return latest
}
