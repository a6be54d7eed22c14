package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 {
	return &f
}

func TestSupplyItem_TotalStock(t *testing.T) {
	tests := []struct {
		name string
		item SupplyItem
		want float64
	}{
		{"warehouse only", SupplyItem{WarehouseStock: 12}, 12},
		{"warehouse and kitchen", SupplyItem{WarehouseStock: 12, KitchenStock: floatPtr(3.5)}, 15.5},
		{"negative warehouse counts as zero", SupplyItem{WarehouseStock: -4, KitchenStock: floatPtr(2)}, 2},
		{"NaN kitchen counts as zero", SupplyItem{WarehouseStock: 1, KitchenStock: floatPtr(math.NaN())}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.TotalStock())
		})
	}
}

func TestPermissionScope(t *testing.T) {
	empty := NewPermissionScope()
	assert.True(t, empty.Unrestricted())
	assert.True(t, empty.Allows(42))
	assert.Empty(t, empty.Categories())

	var zero PermissionScope
	assert.True(t, zero.Unrestricted())

	scoped := NewPermissionScope(9, 2, 9)
	assert.False(t, scoped.Unrestricted())
	assert.True(t, scoped.Allows(2))
	assert.False(t, scoped.Allows(1))
	assert.Equal(t, []int{2, 9}, scoped.Categories())
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"nil is zero", nil, 0, true},
		{"float", 3.25, 3.25, true},
		{"int", 7, 7, true},
		{"numeric string", "12.5", 12.5, true},
		{"json number", json.Number("4"), 4, true},
		{"garbage string", "doce", 0, false},
		{"thousands separator", "1,200", 0, false},
		{"NaN", math.NaN(), 0, false},
		{"infinity", math.Inf(1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Coerce(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestCoerceField_RecordsDiagnostic(t *testing.T) {
	var diags []Diagnostic

	assert.Equal(t, 5.0, CoerceField(100, "unit_price", "5", &diags))
	assert.Equal(t, 0.0, CoerceField(100, "unit_price", "n/a", &diags))

	assert.Equal(t, []Diagnostic{{ItemCode: 100, Field: "unit_price", Value: "n/a"}}, diags)
}
