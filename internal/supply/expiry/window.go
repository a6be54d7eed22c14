// Package expiry classifies supply lots by their expiration date and the
// contractual window in which they must be returned before expiring.
package expiry

import (
	"sort"
	"time"

	"github.com/medflow/medflow-supply/internal/supply/domain"
)

// DefaultWindowMonths is the return window ceiling used when none is configured.
const DefaultWindowMonths = 6

// State is the due-date state of a lot.
type State string

const (
	StateExpired  State = "expired"
	StateCritical State = "critical"
	StateUpcoming State = "upcoming"
)

// Alert is the classification of one lot at an evaluation instant.
type Alert struct {
	Lot                 domain.Lot `json:"lot"`
	ExpirationDate      time.Time  `json:"expiration_date"`
	ReturnDeadline      time.Time  `json:"return_deadline"`
	WindowMonths        int        `json:"window_months"`
	MonthsToExpiration  int        `json:"months_to_expiration"`
	DaysUntilExpiration int        `json:"days_until_expiration"`
	DaysUntilDeadline   int        `json:"days_until_deadline"`
	State               State      `json:"state"`
}

// EffectiveWindow is the lot's return window clamped to [1, ceiling]. Lots
// without a window use the ceiling. A ceiling below 1 is read as 1.
func EffectiveWindow(lot domain.Lot, ceiling int) int {
	if ceiling < 1 {
		ceiling = 1
	}
	window := ceiling
	if lot.ReturnWindowMonths != nil {
		window = *lot.ReturnWindowMonths
	}
	if window < 1 {
		window = 1
	}
	if window > ceiling {
		window = ceiling
	}
	return window
}

// Classify computes the return deadline and state of a lot at the given
// instant. It returns nil when the lot has no expiration date.
func Classify(lot domain.Lot, at time.Time, defaultWindowMonths int) *Alert {
	if lot.ExpirationDate == nil || lot.ExpirationDate.IsZero() {
		return nil
	}

	expires := *lot.ExpirationDate
	window := EffectiveWindow(lot, defaultWindowMonths)
	deadline := AddMonths(expires, -window)

	state := StateUpcoming
	switch {
	case at.After(expires):
		state = StateExpired
	case !at.Before(deadline):
		state = StateCritical
	}

	return &Alert{
		Lot:                 lot,
		ExpirationDate:      expires,
		ReturnDeadline:      deadline,
		WindowMonths:        window,
		MonthsToExpiration:  MonthsBetween(at, expires),
		DaysUntilExpiration: DaysBetween(at, expires),
		DaysUntilDeadline:   DaysBetween(at, deadline),
		State:               state,
	}
}

// MustAttend reports whether the alert has to be shown: the return deadline
// has been reached, or expiration is no more than the window away in
// calendar months.
func (a *Alert) MustAttend(at time.Time) bool {
	if a == nil {
		return false
	}
	return !at.Before(a.ReturnDeadline) || MonthsBetween(at, a.ExpirationDate) <= a.WindowMonths
}

// Feed classifies lots, drops those without a usable date or that need no
// attention yet, and returns the rest ordered by return deadline. Lots with
// the same deadline keep their input order.
func Feed(lots []domain.Lot, at time.Time, defaultWindowMonths int) []Alert {
	alerts := make([]Alert, 0, len(lots))
	for _, lot := range lots {
		a := Classify(lot, at, defaultWindowMonths)
		if a == nil || !a.MustAttend(at) {
			continue
		}
		alerts = append(alerts, *a)
	}

	SortByDeadline(alerts)
	return alerts
}

// SortByDeadline orders alerts by return deadline, keeping ties stable.
func SortByDeadline(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].ReturnDeadline.Before(alerts[j].ReturnDeadline)
	})
}

// CountByState tallies alerts per state.
func CountByState(alerts []Alert) map[State]int {
	counts := map[State]int{
		StateExpired:  0,
		StateCritical: 0,
		StateUpcoming: 0,
	}
	for _, a := range alerts {
		counts[a.State]++
	}
	return counts
}
