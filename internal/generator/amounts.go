package generator

import "math/rand/v2"

// Quartiles is the five-point summary of a category's spend distribution.
type Quartiles struct {
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

const (
	outlierRate        = 0.10
	topBucketCeiling   = 1.5
	fallbackAmountLow  = 10
	fallbackAmountHigh = 150
)

// amountTables holds the per-category quartiles used for discretionary spend.
var amountTables = map[string]Quartiles{
	"Food and Drink": {Min: 3, Q25: 9, Median: 16, Q75: 32, Max: 180},
	"Groceries":      {Min: 12, Q25: 35, Median: 68, Q75: 120, Max: 350},
	"Shops":          {Min: 5, Q25: 18, Median: 38, Q75: 85, Max: 900},
	"Travel":         {Min: 4, Q25: 14, Median: 28, Q75: 65, Max: 1200},
	"Recreation":     {Min: 8, Q25: 20, Median: 40, Q75: 80, Max: 400},
	"Healthcare":     {Min: 10, Q25: 25, Median: 45, Q75: 110, Max: 650},
	"Service":        {Min: 15, Q25: 40, Median: 75, Q75: 140, Max: 600},
	"Personal Care":  {Min: 8, Q25: 20, Median: 35, Q75: 60, Max: 250},
}

// SampleAmount draws a positive dollar amount for the category. One of the
// four quartile buckets is chosen with equal probability and the amount is
// uniform inside it. The top bucket normally stops at 1.5 x Q75 but extends to
// Max for one draw in ten. Unknown categories draw uniformly from $10-$150.
func SampleAmount(rng *rand.Rand, category string) float64 {
	q, ok := amountTables[category]
	if !ok {
		return roundCents(uniform(rng, fallbackAmountLow, fallbackAmountHigh))
	}

	var lo, hi float64
	switch bucket := int(rng.Float64() * 4); bucket {
	case 0:
		lo, hi = q.Min, q.Q25
	case 1:
		lo, hi = q.Q25, q.Median
	case 2:
		lo, hi = q.Median, q.Q75
	default:
		lo, hi = q.Q75, q.Q75*topBucketCeiling
		if rng.Float64() < outlierRate {
			hi = q.Max
		}
		if hi > q.Max {
			hi = q.Max
		}
	}
	amt := roundCents(uniform(rng, lo, hi))
	if amt < 0.01 {
		amt = 0.01
	}
	return amt
}

// AmountCategories lists the categories with a quartile table.
func AmountCategories() []string {
	return []string{"Food and Drink", "Groceries", "Shops", "Travel", "Recreation", "Healthcare", "Service", "Personal Care"}
}
