package generator

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-datagen/internal/persona"
)

// roundCents rounds half away from zero to two decimals.
func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// floorCents truncates toward negative infinity at two decimals.
func floorCents(v float64) float64 {
	return decimal.NewFromFloat(v).RoundFloor(2).InexactFloat64()
}

// ceilCents rounds toward positive infinity at two decimals.
func ceilCents(v float64) float64 {
	return decimal.NewFromFloat(v).RoundCeil(2).InexactFloat64()
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

func inRange(rng *rand.Rand, r persona.Range) float64 {
	return uniform(rng, r.Min, r.Max)
}

// intBetween draws uniformly from the closed interval.
func intBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func inIntRange(rng *rand.Rand, r persona.IntRange) int {
	return intBetween(rng, r.Min, r.Max)
}

// weightedIndex picks an index proportionally to its weight.
func weightedIndex(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}
