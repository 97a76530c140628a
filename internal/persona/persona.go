// Package persona defines the fixed behavioral taxonomy assigned to synthetic
// users and the policy table that drives every persona-specific constraint in
// account and transaction synthesis.
package persona

import "fmt"

// Persona is a behavioral label attached to a synthetic user for the duration
// of a generation run.
type Persona string

const (
	HighUtilization        Persona = "high_utilization"
	VariableIncomeBudgeter Persona = "variable_income_budgeter"
	SubscriptionHeavy      Persona = "subscription_heavy"
	SavingsBuilder         Persona = "savings_builder"
	BalancedStable         Persona = "balanced_stable"
)

// Default is used to pad a population when the configured weights do not add
// up to the requested size.
const Default = BalancedStable

// All lists the taxonomy in its canonical order. Every loop over personas that
// feeds the random generator must use this order so runs stay reproducible.
var All = []Persona{
	HighUtilization,
	VariableIncomeBudgeter,
	SubscriptionHeavy,
	SavingsBuilder,
	BalancedStable,
}

// Parse converts a label into a Persona.
func Parse(s string) (Persona, error) {
	for _, p := range All {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown persona %q", s)
}

// String implements fmt.Stringer.
func (p Persona) String() string {
	return string(p)
}
