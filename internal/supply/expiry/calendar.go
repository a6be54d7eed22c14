package expiry

import (
	"math"
	"time"
)

// AddMonths moves t by the given number of calendar months. Day overflow is
// normalised forward the way time.AddDate does it: Mar 31 minus one month is
// "Feb 31", which becomes Mar 3 (Mar 2 in leap years).
func AddMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

// MonthsBetween counts whole calendar months from one date to another:
// years*12 + months, minus one when the later date's day of month is earlier
// than the earlier date's. The result is negative when to is before from.
func MonthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return -MonthsBetween(to, from)
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}

// DaysBetween is the floored number of 24h days from one instant to another.
func DaysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// StartOfMonth returns midnight of the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
