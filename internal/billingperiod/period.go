// Package billingperiod computes billing-period boundaries. Periods run from
// midnight on the 5th of a month to midnight on the 5th of the next month,
// independent of when the tenant signed up.
package billingperiod

import "time"

// AnchorDay is the day of month on which every billing period starts.
const AnchorDay = 5

// CurrentPeriodStart returns midnight on the anchor day of the current
// period for the given instant.
func CurrentPeriodStart(now time.Time) time.Time {
	now = now.UTC()
	if now.Day() >= AnchorDay {
		return time.Date(now.Year(), now.Month(), AnchorDay, 0, 0, 0, 0, time.UTC)
	}
	// time.Date normalizes month 0 to December of the previous year.
	return time.Date(now.Year(), now.Month()-1, AnchorDay, 0, 0, 0, 0, time.UTC)
}

// NextPeriodStart returns midnight on the anchor day of the following period.
func NextPeriodStart(now time.Time) time.Time {
	now = now.UTC()
	if now.Day() >= AnchorDay {
		return time.Date(now.Year(), now.Month()+1, AnchorDay, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(now.Year(), now.Month(), AnchorDay, 0, 0, 0, 0, time.UTC)
}

// Midnight truncates t to the start of its UTC day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
