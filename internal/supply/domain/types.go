// Package domain holds the supply records, lots and permission scopes shared
// by the coverage, scope and expiry engines.
package domain

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// SupplyItem is one line of a supply record ("insumo").
type SupplyItem struct {
	ItemCode               int      `db:"item_code" json:"item_code"`
	LineCategory           int      `db:"line_category" json:"line_category"`
	Description            string   `db:"description" json:"description,omitempty"`
	WarehouseStock         float64  `db:"warehouse_stock" json:"warehouse_stock"`
	KitchenStock           *float64 `db:"kitchen_stock" json:"kitchen_stock,omitempty"`
	MonthlyConsumptionRate float64  `db:"monthly_consumption_rate" json:"monthly_consumption_rate"`
	UnitPrice              *float64 `db:"unit_price" json:"unit_price,omitempty"`
	// EstimatedValue is an explicit inventory value supplied by the record
	// feed. When set it replaces the stock * price derivation.
	EstimatedValue *float64 `db:"estimated_value" json:"estimated_value,omitempty"`
	Active         bool     `db:"active" json:"active"`
}

// TotalStock returns warehouse plus kitchen stock. Non-finite or negative
// components count as 0.
func (i SupplyItem) TotalStock() float64 {
	total := NonNegative(i.WarehouseStock)
	if i.KitchenStock != nil {
		total += NonNegative(*i.KitchenStock)
	}
	return total
}

// Price returns the unit price, or 0 when absent or malformed.
func (i SupplyItem) Price() float64 {
	if i.UnitPrice == nil {
		return 0
	}
	return Finite(*i.UnitPrice)
}

// SupplyRecord is a fetched period record. StoredSummary and StoredCoverage
// are the values precomputed by the backend over the unfiltered items; they
// are only for initial display and are never used to derive scoped results.
type SupplyRecord struct {
	ID             string          `json:"id"`
	Period         string          `json:"period"`
	Items          []SupplyItem    `json:"items"`
	StoredSummary  json.RawMessage `json:"stored_summary,omitempty"`
	StoredCoverage json.RawMessage `json:"stored_coverage,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PermissionScope is the set of line categories ("renglones") a caller may
// see. An empty set is unrestricted.
type PermissionScope struct {
	allowed map[int]struct{}
}

// NewPermissionScope builds a scope from a list of line categories.
func NewPermissionScope(categories ...int) PermissionScope {
	if len(categories) == 0 {
		return PermissionScope{}
	}
	allowed := make(map[int]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}
	return PermissionScope{allowed: allowed}
}

// Unrestricted reports whether every line category passes.
func (s PermissionScope) Unrestricted() bool {
	return len(s.allowed) == 0
}

// Allows reports whether items of the given line category are visible.
func (s PermissionScope) Allows(category int) bool {
	if s.Unrestricted() {
		return true
	}
	_, ok := s.allowed[category]
	return ok
}

// Categories returns the allowed categories in ascending order.
func (s PermissionScope) Categories() []int {
	out := make([]int, 0, len(s.allowed))
	for c := range s.allowed {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Lot is a batch of a supply item with expiration metadata.
type Lot struct {
	ID                 string     `json:"id"`
	ItemCode           int        `json:"item_code"`
	LotCode            *string    `json:"lot_code,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	ReturnWindowMonths *int       `json:"return_window_months,omitempty"`
}

// Finite maps NaN and infinities to 0.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// NonNegative maps NaN, infinities and negative values to 0.
func NonNegative(x float64) float64 {
	x = Finite(x)
	if x < 0 {
		return 0
	}
	return x
}
