// Package pricing resolves the nightly rate of a room type on a date from
// the hotel's overlapping, prioritized adjustment rules.
package pricing

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/ariefcatur/go-hotel-console/internal/hotel"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
)

// Quote is the outcome of one resolution.
type Quote struct {
	Base    float64  `json:"base"`
	Price   float64  `json:"price"`
	Applied []string `json:"applied"` // rule ids in application order
	Clamped bool     `json:"clamped"`
}

// Resolve computes the nightly price for roomType on date. Rules are
// selected (active, room type listed, date within [start, end] by calendar
// day), ordered by priority descending then id ascending, and applied as
// compounding percentages. The running price never drops below zero; the
// result is rounded to the nearest whole unit. rules is not modified.
func Resolve(base float64, roomType string, date time.Time, rules []hotel.PricingRule) Quote {
	selected := Select(roomType, date, rules)
	q := Quote{Base: base, Applied: make([]string, 0, len(selected))}

	price := base
	for _, r := range selected {
		price += price * (r.Adjustment / 100)
		if price < 0 {
			price = 0
			q.Clamped = true
		}
		q.Applied = append(q.Applied, r.ID)
	}
	if q.Clamped {
		logging.For("pricing").
			WithField("room_type", roomType).
			WithField("date", date.Format(time.DateOnly)).
			Warn("price clamped at zero")
	}
	q.Price = math.Round(price)
	return q
}

// Select returns the applicable rules in application order.
func Select(roomType string, date time.Time, rules []hotel.PricingRule) []hotel.PricingRule {
	day := civil(date)
	out := make([]hotel.PricingRule, 0, len(rules))
	for _, r := range rules {
		if !r.Active || !r.AppliesTo(roomType) {
			continue
		}
		if day.Before(civil(r.StartDate)) || day.After(civil(r.EndDate)) {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b hotel.PricingRule) int {
		if a.Priority != b.Priority {
			return cmp.Compare(b.Priority, a.Priority)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// civil truncates t to its calendar day in its own location.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RuleSource yields the current rules. It is read on every call so rule
// changes are visible without invalidation.
type RuleSource interface {
	Rules() []hotel.PricingRule
}

// RuleSourceFunc adapts a function to RuleSource.
type RuleSourceFunc func() []hotel.PricingRule

func (f RuleSourceFunc) Rules() []hotel.PricingRule { return f() }

var ErrEmptyStay = errors.New("stay interval is empty")

type Resolver struct {
	Source RuleSource
}

func NewResolver(src RuleSource) *Resolver { return &Resolver{Source: src} }

func (r *Resolver) NightlyRate(base float64, roomType string, date time.Time) Quote {
	return Resolve(base, roomType, date, r.Source.Rules())
}

// StayTotal sums the resolved nightly rate for each night in [in, out).
func (r *Resolver) StayTotal(base float64, roomType string, in, out time.Time) (float64, error) {
	nights := hotel.Nights(in, out)
	if nights == 0 {
		return 0, ErrEmptyStay
	}
	rules := r.Source.Rules()
	total := 0.0
	for i := 0; i < nights; i++ {
		total += Resolve(base, roomType, in.AddDate(0, 0, i), rules).Price
	}
	return total, nil
}
