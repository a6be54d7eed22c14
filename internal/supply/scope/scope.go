// Package scope recomputes the period summary and coverage distribution of a
// supply record for the line categories a caller is allowed to see.
//
// Results are always derived from the filtered item list. Summaries stored
// with the record cover every line category and are never reused here.
package scope

import (
	"github.com/medflow/medflow-supply/internal/supply/coverage"
	"github.com/medflow/medflow-supply/internal/supply/domain"
)

// Options tune a recompute.
type Options struct {
	Strategy coverage.Strategy
	// TrackKitchen adds KitchenStockTotal to the period summary.
	TrackKitchen bool
}

// PeriodSummary aggregates a list of supply items.
type PeriodSummary struct {
	TotalItems              int     `json:"total_items"`
	ActiveCount             int     `json:"active_count"`
	InactiveCount           int     `json:"inactive_count"`
	WarehouseStockTotal     int     `json:"warehouse_stock_total"`
	KitchenStockTotal       *int    `json:"kitchen_stock_total,omitempty"`
	EstimatedInventoryValue float64 `json:"estimated_inventory_value"`
	AverageMonthsCoverage   float64 `json:"average_months_coverage"`
}

// Result is a scoped view of a record.
type Result struct {
	Items    []domain.SupplyItem `json:"items"`
	Coverage coverage.Summary    `json:"coverage"`
	Summary  PeriodSummary       `json:"summary"`
	// HasPermittedItems is false when nothing survived the filter, which
	// tells "no permitted items" apart from numbers that happen to be zero.
	HasPermittedItems bool `json:"has_permitted_items"`
}

// Recompute filters items by the permission scope and derives the summary
// and coverage from the survivors. The input slice is not modified.
func Recompute(items []domain.SupplyItem, ps domain.PermissionScope, opts Options) Result {
	visible := Filter(items, ps)
	if len(visible) == 0 {
		return Empty(opts.TrackKitchen)
	}

	return Result{
		Items:             visible,
		Coverage:          coverage.Aggregate(visible, opts.Strategy),
		Summary:           Summarize(visible, opts.TrackKitchen),
		HasPermittedItems: true,
	}
}

// Empty is the canonical result for a scope with no visible items.
func Empty(trackKitchen bool) Result {
	return Result{
		Items:    []domain.SupplyItem{},
		Coverage: coverage.EmptySummary(),
		Summary:  EmptyPeriodSummary(trackKitchen),
	}
}

// Filter returns a new slice with the items the scope allows.
func Filter(items []domain.SupplyItem, ps domain.PermissionScope) []domain.SupplyItem {
	out := make([]domain.SupplyItem, 0, len(items))
	for _, item := range items {
		if ps.Allows(item.LineCategory) {
			out = append(out, item)
		}
	}
	return out
}

// EmptyPeriodSummary is the all-zero period summary.
func EmptyPeriodSummary(trackKitchen bool) PeriodSummary {
	var s PeriodSummary
	if trackKitchen {
		zero := 0
		s.KitchenStockTotal = &zero
	}
	return s
}

// Summarize builds the period summary of items. AverageMonthsCoverage is
// averaged over every item, active or not, unlike the coverage distribution
// which only counts active items.
func Summarize(items []domain.SupplyItem, trackKitchen bool) PeriodSummary {
	s := EmptyPeriodSummary(trackKitchen)
	s.TotalItems = len(items)
	if s.TotalItems == 0 {
		return s
	}

	var warehouse, kitchen, value, ratios float64
	for _, item := range items {
		if item.Active {
			s.ActiveCount++
		}
		warehouse += domain.Finite(item.WarehouseStock)
		if item.KitchenStock != nil {
			kitchen += domain.Finite(*item.KitchenStock)
		}
		value += EstimatedValue(item)
		ratios += coverage.ClassifyItem(item).Ratio
	}

	s.InactiveCount = s.TotalItems - s.ActiveCount
	s.WarehouseStockTotal = roundedTotal(warehouse)
	if trackKitchen {
		k := roundedTotal(kitchen)
		s.KitchenStockTotal = &k
	}
	s.EstimatedInventoryValue = coverage.Round2(value)
	s.AverageMonthsCoverage = coverage.Round2(ratios / float64(s.TotalItems))

	return s
}

// EstimatedValue is the inventory value of one item. An explicit value on
// the item wins; otherwise it is stock * unit price when both are positive.
func EstimatedValue(item domain.SupplyItem) float64 {
	if item.EstimatedValue != nil {
		return domain.Finite(*item.EstimatedValue)
	}

	price := item.Price()
	stock := item.TotalStock()
	if price <= 0 || stock <= 0 {
		return 0
	}
	return coverage.Round2(stock * price)
}

func roundedTotal(sum float64) int {
	r := coverage.RoundHalfUp(sum)
	if r < 0 {
		return 0
	}
	return int(r)
}
