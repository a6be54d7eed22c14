package service

import (
	"fmt"

	"github.com/medflow/medflow-supply/internal/supply/domain"
	"github.com/medflow/medflow-supply/pkg/errors"
)

// ItemEdit overrides fields of one item in an edited snapshot. Numeric
// fields hold raw client values and are coerced when applied; nil leaves the
// field unchanged.
type ItemEdit struct {
	ItemCode               int
	WarehouseStock         any
	KitchenStock           any
	MonthlyConsumptionRate any
	UnitPrice              any
	Active                 *bool
}

// ApplyEdits returns a copy of items with the edits overlaid. items itself
// is never modified. Malformed numbers become 0 and are reported as
// diagnostics. Edits naming an item that is not in the list are rejected.
func ApplyEdits(items []domain.SupplyItem, edits []ItemEdit) ([]domain.SupplyItem, []domain.Diagnostic, error) {
	out := make([]domain.SupplyItem, len(items))
	copy(out, items)

	index := make(map[int]int, len(out))
	for i, item := range out {
		index[item.ItemCode] = i
	}

	var diags []domain.Diagnostic
	unknown := map[string]string{}
	for n, edit := range edits {
		i, ok := index[edit.ItemCode]
		if !ok {
			unknown[fmt.Sprintf("edits[%d].item_code", n)] = fmt.Sprintf("item %d is not part of the record", edit.ItemCode)
			continue
		}
		applyEdit(&out[i], edit, &diags)
	}

	if len(unknown) > 0 {
		return nil, nil, errors.Validation(unknown)
	}
	return out, diags, nil
}

func applyEdit(item *domain.SupplyItem, edit ItemEdit, diags *[]domain.Diagnostic) {
	code := item.ItemCode
	if edit.WarehouseStock != nil {
		item.WarehouseStock = domain.CoerceField(code, "warehouse_stock", edit.WarehouseStock, diags)
	}
	if edit.KitchenStock != nil {
		v := domain.CoerceField(code, "kitchen_stock", edit.KitchenStock, diags)
		item.KitchenStock = &v
	}
	if edit.MonthlyConsumptionRate != nil {
		item.MonthlyConsumptionRate = domain.CoerceField(code, "monthly_consumption_rate", edit.MonthlyConsumptionRate, diags)
	}
	if edit.UnitPrice != nil {
		v := domain.CoerceField(code, "unit_price", edit.UnitPrice, diags)
		item.UnitPrice = &v
	}
	if edit.Active != nil {
		item.Active = *edit.Active
	}
	// A feed-supplied value is stale once stock or price changed.
	if edit.WarehouseStock != nil || edit.KitchenStock != nil || edit.UnitPrice != nil {
		item.EstimatedValue = nil
	}
}
