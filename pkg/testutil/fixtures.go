package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/medflow/medflow-supply/internal/supply/domain"
)

// Fixed identifiers used across tests.
const (
	TestTenantID = "11111111-1111-1111-1111-111111111111"
	TestUserID   = "22222222-2222-2222-2222-222222222222"
)

// FixtureFactory builds supply test data with unique item codes.
type FixtureFactory struct {
	seq atomic.Int64
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) next() int {
	return int(f.seq.Add(1))
}

// Item returns an active item with 10 units in the warehouse, consuming 5
// a month, in line category 1.
func (f *FixtureFactory) Item(opts ...func(*domain.SupplyItem)) domain.SupplyItem {
	n := f.next()
	item := domain.SupplyItem{
		ItemCode:               1000 + n,
		LineCategory:           1,
		Description:            fmt.Sprintf("Insumo %d", n),
		WarehouseStock:         10,
		MonthlyConsumptionRate: 5,
		Active:                 true,
	}
	for _, opt := range opts {
		opt(&item)
	}
	return item
}

// WithCategory sets the line category.
func WithCategory(category int) func(*domain.SupplyItem) {
	return func(i *domain.SupplyItem) { i.LineCategory = category }
}

// WithStock sets warehouse stock and monthly consumption.
func WithStock(warehouse, monthlyRate float64) func(*domain.SupplyItem) {
	return func(i *domain.SupplyItem) {
		i.WarehouseStock = warehouse
		i.MonthlyConsumptionRate = monthlyRate
	}
}

// WithKitchenStock sets kitchen stock.
func WithKitchenStock(kitchen float64) func(*domain.SupplyItem) {
	return func(i *domain.SupplyItem) { i.KitchenStock = &kitchen }
}

// WithUnitPrice sets the unit price.
func WithUnitPrice(price float64) func(*domain.SupplyItem) {
	return func(i *domain.SupplyItem) { i.UnitPrice = &price }
}

// Inactive marks the item inactive.
func Inactive() func(*domain.SupplyItem) {
	return func(i *domain.SupplyItem) { i.Active = false }
}

// Record wraps items in a record for the given period.
func (f *FixtureFactory) Record(period string, items ...domain.SupplyItem) *domain.SupplyRecord {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &domain.SupplyRecord{
		ID:        uuid.NewString(),
		Period:    period,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Lot returns a lot of the given item expiring on the given date.
func (f *FixtureFactory) Lot(itemCode int, expires time.Time, windowMonths *int) domain.Lot {
	code := fmt.Sprintf("L-%04d", f.next())
	return domain.Lot{
		ID:                 uuid.NewString(),
		ItemCode:           itemCode,
		LotCode:            &code,
		ExpirationDate:     &expires,
		ReturnWindowMonths: windowMonths,
	}
}
