package order

import (
	"context"
	"slices"
	"time"
)

// Rule maps an order age threshold (or order creation, for immediate rules)
// to a target status.
type Rule struct {
	ID            int64
	Status        Status
	DaysAfter     int
	OrderPriority int
	IsActive      bool
	Immediate     bool
}

// RuleRepository supplies active status rules.
//
// Scheduled rules (immediate=false) are ordered by DaysAfter descending then
// OrderPriority ascending; immediate rules by OrderPriority ascending.
type RuleRepository interface {
	ListActive(ctx context.Context, immediate bool) ([]Rule, error)
}

// SortScheduled orders rules the way the sweep evaluates them.
func SortScheduled(rules []Rule) {
	slices.SortStableFunc(rules, func(a, b Rule) int {
		if a.DaysAfter != b.DaysAfter {
			return b.DaysAfter - a.DaysAfter
		}
		return a.OrderPriority - b.OrderPriority
	})
}

// SortImmediate orders immediate rules by priority.
func SortImmediate(rules []Rule) {
	slices.SortStableFunc(rules, func(a, b Rule) int {
		return a.OrderPriority - b.OrderPriority
	})
}

// TargetStatus picks the status for an order that is daysPassed days old: the
// first active scheduled rule whose threshold has been reached. rules must be
// sorted as by SortScheduled.
func TargetStatus(rules []Rule, daysPassed int) (Status, bool) {
	for _, r := range rules {
		if !r.IsActive || r.Immediate || !r.Status.Valid() {
			continue
		}
		if daysPassed >= r.DaysAfter {
			return r.Status, true
		}
	}
	return "", false
}

// ApplyImmediate applies at most one immediate rule to a freshly created
// order. rules must be sorted as by SortImmediate; the first active rule
// whose status differs from the current one wins. It reports whether the
// order changed.
func ApplyImmediate(o *Order, rules []Rule, now time.Time) bool {
	if o.Status.Terminal() {
		return false
	}
	for _, r := range rules {
		if !r.IsActive || !r.Immediate || !r.Status.Valid() {
			continue
		}
		if r.Status == o.Status {
			continue
		}
		o.SetStatus(r.Status, now, "immediate rule")
		return true
	}
	return false
}

// DaysPassed returns the number of calendar days between createdAt and now,
// both taken as dates in loc. A nil loc means UTC.
func DaysPassed(createdAt, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	cy, cm, cd := createdAt.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	from := time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
