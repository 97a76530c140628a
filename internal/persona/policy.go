package persona

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOverlappingBands is returned by Table.Validate when two personas share
// part of a credit utilization band.
var ErrOverlappingBands = errors.New("persona utilization bands overlap")

// Range is a closed-open numeric interval [Min, Max).
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in [Min, Max).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v < r.Max
}

// Overlaps reports whether the two half-open intervals share any point.
func (r Range) Overlaps(o Range) bool {
	return r.Min < o.Max && o.Min < r.Max
}

// IntRange is a closed integer interval [Min, Max].
type IntRange struct {
	Min int
	Max int
}

// IncomePattern selects how payroll deposits are laid out over the window.
type IncomePattern int

const (
	// IncomeRegular pays a fixed amount every 14 or 30 days.
	IncomeRegular IncomePattern = iota
	// IncomeIrregular pays a few inflated amounts separated by long gaps.
	IncomeIrregular
)

func (p IncomePattern) String() string {
	switch p {
	case IncomeRegular:
		return "regular"
	case IncomeIrregular:
		return "irregular"
	default:
		return fmt.Sprintf("IncomePattern(%d)", int(p))
	}
}

// Policy holds every persona-specific knob consumed by the synthesizers.
type Policy struct {
	// CheckingBalance is the starting checking balance range. It decides on
	// which side of the one-month cash-flow buffer the user lands.
	CheckingBalance Range

	// CardCountWeights[i] is the relative weight of holding i credit cards.
	CardCountWeights [3]float64
	// Utilization is the current/limit band for every card the user holds.
	Utilization Range
	// APR is the purchase APR range in percent.
	APR Range
	// MinPaymentOnlyRate is the chance a card is paid at the minimum only.
	MinPaymentOnlyRate float64
	// OverdueRate is the chance a card liability is flagged overdue.
	OverdueRate float64
	// InterestCharges adds a monthly interest charge to every card.
	InterestCharges bool

	SavingsRate    float64
	SavingsBalance Range
	// LowRiskEligible users may receive the two-account carve-out.
	LowRiskEligible bool
	// SavingsCadenceDays is the spacing between savings deposits.
	SavingsCadenceDays IntRange
	// SavingsDepositShare is the deposit size as a fraction of monthly income.
	SavingsDepositShare Range

	Subscriptions IntRange
	// MinMonthlySubscriptionSpend is enforced after subscriptions are picked;
	// zero disables the check.
	MinMonthlySubscriptionSpend float64

	Income IncomePattern
}

// Table maps every persona to its policy. It is the single source of truth
// for persona bands.
type Table map[Persona]Policy

// DefaultTable returns a fresh copy of the built-in policies.
func DefaultTable() Table {
	return Table{
		HighUtilization: {
			CheckingBalance:     Range{500, 2500},
			CardCountWeights:    [3]float64{0, 0.6, 0.4},
			Utilization:         Range{0.50, 0.95},
			APR:                 Range{22, 29.99},
			MinPaymentOnlyRate:  1,
			OverdueRate:         0.15,
			InterestCharges:     true,
			SavingsRate:         0.2,
			SavingsBalance:      Range{100, 1000},
			SavingsCadenceDays:  IntRange{45, 90},
			SavingsDepositShare: Range{0.01, 0.03},
			Subscriptions:       IntRange{2, 4},
			Income:              IncomeRegular,
		},
		VariableIncomeBudgeter: {
			CheckingBalance:     Range{200, 800},
			CardCountWeights:    [3]float64{0.5, 0.5, 0},
			Utilization:         Range{0.40, 0.50},
			APR:                 Range{18, 26},
			MinPaymentOnlyRate:  0.5,
			OverdueRate:         0.05,
			SavingsRate:         0.3,
			SavingsBalance:      Range{100, 1000},
			SavingsCadenceDays:  IntRange{45, 90},
			SavingsDepositShare: Range{0.01, 0.03},
			Subscriptions:       IntRange{1, 3},
			Income:              IncomeIrregular,
		},
		SubscriptionHeavy: {
			CheckingBalance:             Range{1000, 4000},
			CardCountWeights:            [3]float64{0, 0.6, 0.4},
			Utilization:                 Range{0.30, 0.40},
			APR:                         Range{16, 25},
			MinPaymentOnlyRate:          0.1,
			SavingsRate:                 0.4,
			SavingsBalance:              Range{500, 3000},
			SavingsCadenceDays:          IntRange{45, 90},
			SavingsDepositShare:         Range{0.02, 0.05},
			Subscriptions:               IntRange{4, 7},
			MinMonthlySubscriptionSpend: 50,
			Income:                      IncomeRegular,
		},
		SavingsBuilder: {
			CheckingBalance:     Range{3000, 10000},
			CardCountWeights:    [3]float64{0.4, 0.5, 0.1},
			Utilization:         Range{0.05, 0.25},
			APR:                 Range{14, 22},
			MinPaymentOnlyRate:  0,
			SavingsRate:         1,
			SavingsBalance:      Range{5000, 25000},
			LowRiskEligible:     true,
			SavingsCadenceDays:  IntRange{14, 30},
			SavingsDepositShare: Range{0.10, 0.20},
			Subscriptions:       IntRange{1, 2},
			Income:              IncomeRegular,
		},
		BalancedStable: {
			CheckingBalance:     Range{2000, 8000},
			CardCountWeights:    [3]float64{0.2, 0.6, 0.2},
			Utilization:         Range{0.25, 0.30},
			APR:                 Range{15, 24},
			MinPaymentOnlyRate:  0.1,
			SavingsRate:         0.7,
			SavingsBalance:      Range{2000, 15000},
			LowRiskEligible:     true,
			SavingsCadenceDays:  IntRange{30, 45},
			SavingsDepositShare: Range{0.05, 0.10},
			Subscriptions:       IntRange{1, 3},
			Income:              IncomeRegular,
		},
	}
}

// Get returns the policy for p. Unknown personas fall back to Default.
func (t Table) Get(p Persona) Policy {
	if pol, ok := t[p]; ok {
		return pol
	}
	return t[Default]
}

// Validate checks every policy for well-formed ranges and asserts that no two
// personas share any part of their utilization band.
func (t Table) Validate() error {
	for _, p := range All {
		pol, ok := t[p]
		if !ok {
			return fmt.Errorf("persona %s: missing policy", p)
		}
		if err := pol.validate(); err != nil {
			return fmt.Errorf("persona %s: %w", p, err)
		}
	}

	ordered := make([]Persona, len(All))
	copy(ordered, All)
	sort.SliceStable(ordered, func(i, j int) bool {
		return t[ordered[i]].Utilization.Min < t[ordered[j]].Utilization.Min
	})
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if t[prev].Utilization.Overlaps(t[cur].Utilization) {
			return fmt.Errorf("%w: %s [%.2f, %.2f) and %s [%.2f, %.2f)", ErrOverlappingBands,
				prev, t[prev].Utilization.Min, t[prev].Utilization.Max,
				cur, t[cur].Utilization.Min, t[cur].Utilization.Max)
		}
	}
	return nil
}

func (p Policy) validate() error {
	ranges := map[string]Range{
		"checking_balance":      p.CheckingBalance,
		"utilization":           p.Utilization,
		"apr":                   p.APR,
		"savings_balance":       p.SavingsBalance,
		"savings_deposit_share": p.SavingsDepositShare,
	}
	for _, name := range []string{"checking_balance", "utilization", "apr", "savings_balance", "savings_deposit_share"} {
		r := ranges[name]
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%s: invalid range [%v, %v)", name, r.Min, r.Max)
		}
	}
	if p.Utilization.Max > 1 {
		return fmt.Errorf("utilization: upper bound %v exceeds 1", p.Utilization.Max)
	}

	var total float64
	for i, w := range p.CardCountWeights {
		if w < 0 {
			return fmt.Errorf("card_count_weights[%d]: negative weight", i)
		}
		total += w
	}
	if total == 0 {
		return fmt.Errorf("card_count_weights: all zero")
	}

	for name, r := range map[string]IntRange{"subscriptions": p.Subscriptions, "savings_cadence_days": p.SavingsCadenceDays} {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%s: invalid range [%d, %d]", name, r.Min, r.Max)
		}
	}
	if p.SavingsCadenceDays.Min == 0 {
		return fmt.Errorf("savings_cadence_days: must be positive")
	}
	for name, v := range map[string]float64{"min_payment_only_rate": p.MinPaymentOnlyRate, "overdue_rate": p.OverdueRate, "savings_rate": p.SavingsRate} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s: %v outside [0, 1]", name, v)
		}
	}
	return nil
}
