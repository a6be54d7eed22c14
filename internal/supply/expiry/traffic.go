package expiry

import "time"

// Light is the coarse traffic-light status of an expiration date.
type Light string

const (
	LightRed    Light = "red"
	LightYellow Light = "yellow"
	LightGreen  Light = "green"
)

// trafficWindowMonths is the width of one traffic-light window.
const trafficWindowMonths = 6

// TrafficLight buckets a date into six-month windows counted from the start
// of the current month: window 0 or earlier is red, window 1 yellow, later
// windows green. It ignores the lot's return window.
func TrafficLight(date, at time.Time) Light {
	months := MonthsBetween(StartOfMonth(at), date)

	switch idx := floorDiv(months, trafficWindowMonths); {
	case idx <= 0:
		return LightRed
	case idx == 1:
		return LightYellow
	default:
		return LightGreen
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
