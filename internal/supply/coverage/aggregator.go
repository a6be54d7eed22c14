package coverage

import (
	"fmt"

	"github.com/medflow/medflow-supply/internal/supply/domain"
)

// Strategy selects how availability and sufficiency are derived.
type Strategy string

const (
	// PercentageSum adds the already rounded bucket percentages of buckets
	// 3.. (availability) and 4.. (sufficiency).
	PercentageSum Strategy = "percentage-sum"
	// DirectRatio counts items with ratio > 1 (availability) and ratio >= 3
	// (sufficiency) and divides by the active item count.
	DirectRatio Strategy = "direct-ratio"
)

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = PercentageSum

// Bucket indexes that open the availability and sufficiency sums.
const (
	availabilityFrom = 3
	sufficiencyFrom  = 4
)

// ParseStrategy validates a strategy name. An empty name selects the default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return DefaultStrategy, nil
	case PercentageSum, DirectRatio:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown coverage strategy %q", s)
	}
}

// Bucket is the share of active items in one coverage bucket.
type Bucket struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Summary is the coverage distribution of a set of items. Buckets always
// holds the six buckets in label order.
type Summary struct {
	Buckets         [BucketCount]Bucket `json:"buckets"`
	TotalCount      int                 `json:"total_count"`
	TotalPercentage float64             `json:"total_percentage"`
	Availability    float64             `json:"availability"`
	Sufficiency     float64             `json:"sufficiency"`
}

// EmptySummary returns the canonical all-zero summary.
func EmptySummary() Summary {
	var s Summary
	for i, label := range Labels {
		s.Buckets[i].Label = label
	}
	return s
}

// Aggregate distributes the active items over the coverage buckets.
// Inactive items are ignored. TotalPercentage is the rounded sum of the
// individually rounded bucket percentages and may differ from 100.
func Aggregate(items []domain.SupplyItem, strategy Strategy) Summary {
	s := EmptySummary()

	var ratios []float64
	for _, item := range items {
		if !item.Active {
			continue
		}
		c := ClassifyItem(item)
		s.Buckets[c.Bucket].Count++
		ratios = append(ratios, c.Ratio)
	}

	active := len(ratios)
	if active == 0 {
		return s
	}

	var pctSum float64
	for i := range s.Buckets {
		b := &s.Buckets[i]
		b.Percentage = percentage(b.Count, active)
		s.TotalCount += b.Count
		pctSum += b.Percentage
	}
	s.TotalPercentage = Round2(pctSum)

	switch strategy {
	case DirectRatio:
		var over1, atLeast3 int
		for _, r := range ratios {
			if r > 1 {
				over1++
			}
			if r >= 3 {
				atLeast3++
			}
		}
		s.Availability = percentage(over1, active)
		s.Sufficiency = percentage(atLeast3, active)
	default:
		s.Availability = s.percentageFrom(availabilityFrom)
		s.Sufficiency = s.percentageFrom(sufficiencyFrom)
	}

	return s
}

// percentageFrom sums the rounded bucket percentages from bucket idx on.
func (s Summary) percentageFrom(idx int) float64 {
	var sum float64
	for _, b := range s.Buckets[idx:] {
		sum += b.Percentage
	}
	return Round2(sum)
}

func percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(count) / float64(total) * 100)
}
