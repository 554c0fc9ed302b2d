// Package datemath provides the calendar-day arithmetic used by the
// matcher, including the grace period applied to returns.
//
// Invalid dates never produce errors. They yield InvalidDaysDiff so that
// any downstream ceiling check rejects the pair.
package datemath

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// InvalidDaysDiff is returned whenever either date is missing or unparseable.
const InvalidDaysDiff = 999

// ReturnGraceDays is how long a refund may lag its order date before the
// date term starts to decay.
const ReturnGraceDays = 7

// layouts tried by Parse, in order
var layouts = []string{
	"2006-01-02",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// Parse converts a date string to a civil.Date.
// Returns the zero Date when no known layout matches.
func Parse(s string) civil.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t)
		}
	}
	return civil.Date{}
}

// DaysDifference returns the absolute number of whole days between a and b.
func DaysDifference(a, b civil.Date) int {
	d := SignedDaysDifference(a, b)
	if d == InvalidDaysDiff {
		return InvalidDaysDiff
	}
	if d < 0 {
		return -d
	}
	return d
}

// SignedDaysDifference returns a - b in days.
func SignedDaysDifference(a, b civil.Date) int {
	if !a.IsValid() || !b.IsValid() {
		return InvalidDaysDiff
	}
	return a.DaysSince(b)
}

// EffectiveDaysDifference returns the day distance used for scoring a
// transaction against an order.
//
// For returns posted on or after the order date, the first ReturnGraceDays
// days count as a perfect match and later postings are measured from the
// end of the grace window. Everything else uses DaysDifference.
func EffectiveDaysDifference(txDate, orderDate civil.Date, isReturn bool) int {
	if isReturn {
		d := SignedDaysDifference(txDate, orderDate)
		if d != InvalidDaysDiff && d >= 0 {
			if d <= ReturnGraceDays {
				return 0
			}
			return d - ReturnGraceDays
		}
	}
	return DaysDifference(txDate, orderDate)
}
