package generator

import (
	"math/rand/v2"

	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/persona"
)

// incomeRanges are annual gross income targets per bracket.
var incomeRanges = map[domain.IncomeBracket]persona.Range{
	domain.IncomeLow:             {Min: 28000, Max: 40000},
	domain.IncomeMiddle:          {Min: 45000, Max: 75000},
	domain.IncomeHigh:            {Min: 80000, Max: 98000},
	domain.IncomeHighUtilization: {Min: 40000, Max: 65000},
	domain.IncomeVariable:        {Min: 30000, Max: 60000},
	domain.IncomeSaver:           {Min: 55000, Max: 90000},
}

// pinnedBrackets are personas whose bracket never depends on the quotas.
var pinnedBrackets = map[persona.Persona]domain.IncomeBracket{
	persona.HighUtilization:        domain.IncomeHighUtilization,
	persona.VariableIncomeBudgeter: domain.IncomeVariable,
	persona.SavingsBuilder:         domain.IncomeSaver,
}

// IncomeFor picks the income bracket for the next user. Pinned personas map
// straight to their bracket. Everyone else goes through two coin flips gated
// by the population-wide quotas (at most 15% low, at most 70% middle), with
// the remainder landing in the high bracket. The quotas are soft: realized
// proportions are expected values, not guarantees.
func (g *GenerationContext) IncomeFor(p persona.Persona) domain.IncomeBracket {
	if b, ok := pinnedBrackets[p]; ok {
		return b
	}

	n := float64(g.population)
	switch {
	case float64(g.income.low) < lowIncomeShare*n && g.rng.Float64() < lowIncomeShare:
		g.income.low++
		return domain.IncomeLow
	case float64(g.income.middle) < middleIncomeShare*n && g.rng.Float64() < middleIncomeShare:
		g.income.middle++
		return domain.IncomeMiddle
	default:
		g.income.high++
		return domain.IncomeHigh
	}
}

// IncomeCounts reports the quota counters consumed so far.
func (g *GenerationContext) IncomeCounts() (low, middle, high int) {
	return g.income.low, g.income.middle, g.income.high
}

// AnnualIncome draws a yearly income inside the bracket's target range.
func AnnualIncome(rng *rand.Rand, b domain.IncomeBracket) float64 {
	r, ok := incomeRanges[b]
	if !ok {
		r = incomeRanges[domain.IncomeMiddle]
	}
	return roundCents(inRange(rng, r))
}

// IncomeRange returns the annual target range for a bracket.
func IncomeRange(b domain.IncomeBracket) persona.Range {
	return incomeRanges[b]
}
