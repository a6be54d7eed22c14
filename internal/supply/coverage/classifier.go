// Package coverage classifies supply items by months of coverage
// (stock / monthly consumption) and aggregates them into the six fixed
// coverage buckets shown on the supply dashboards.
package coverage

import (
	"math"

	"github.com/medflow/medflow-supply/internal/supply/domain"
)

// BucketCount is the number of coverage buckets.
const BucketCount = 6

// Bucket labels in display order.
const (
	LabelZero      = "0"
	LabelUpToHalf  = "0.01 a 0.50"
	LabelUpToOne   = "0.51 a 1.00"
	LabelUpToThree = "1.01 a 3.00"
	LabelUpToSix   = "3.01 a 6.00"
	LabelOverSix   = "> de 6.01"
)

// Labels lists the bucket labels indexed by bucket.
var Labels = [BucketCount]string{
	LabelZero,
	LabelUpToHalf,
	LabelUpToOne,
	LabelUpToThree,
	LabelUpToSix,
	LabelOverSix,
}

// Inclusive upper bounds of buckets 1..4. Bucket 0 holds ratio 0 and
// bucket 5 everything above the last bound.
var upperBounds = [...]float64{0.5, 1, 3, 6}

// Classification is the coverage ratio of one item and its bucket.
type Classification struct {
	Ratio  float64 `json:"ratio"`
	Bucket int     `json:"bucket"`
	Label  string  `json:"label"`
}

// Classify computes months of coverage for a stock/consumption pair.
// A consumption rate that is not strictly positive yields ratio 0. Malformed
// stock (negative, NaN) is read as 0.
func Classify(totalStock, monthlyConsumptionRate float64) Classification {
	ratio := 0.0
	rate := domain.Finite(monthlyConsumptionRate)
	if rate > 0 {
		ratio = Round2(domain.NonNegative(totalStock) / rate)
	}

	idx := BucketIndex(ratio)
	return Classification{
		Ratio:  ratio,
		Bucket: idx,
		Label:  Labels[idx],
	}
}

// ClassifyItem classifies an item using its total stock.
func ClassifyItem(item domain.SupplyItem) Classification {
	return Classify(item.TotalStock(), item.MonthlyConsumptionRate)
}

// BucketIndex maps a ratio to its bucket index.
func BucketIndex(ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	for i, bound := range upperBounds {
		if ratio <= bound {
			return i + 1
		}
	}
	return BucketCount - 1
}

// Round2 rounds to two decimals the way the dashboards do: multiply by 100,
// round half up, divide by 100. Results must match those screens bit for
// bit, so this is not math.Round (half away from zero) nor decimal rounding.
func Round2(x float64) float64 {
	return RoundHalfUp(x*100) / 100
}

// RoundHalfUp rounds to the nearest integer with ties towards +Inf.
func RoundHalfUp(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	r := math.Floor(x)
	if x-r >= 0.5 {
		r++
	}
	return r
}
