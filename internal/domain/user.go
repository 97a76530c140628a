// Package domain holds the records produced by a generation run.
package domain

import (
	"time"

	"github.com/dvloznov/finance-datagen/internal/persona"
)

// IncomeBracket scales dollar amounts for a user.
type IncomeBracket string

const (
	IncomeLow             IncomeBracket = "low"
	IncomeMiddle          IncomeBracket = "middle"
	IncomeHigh            IncomeBracket = "high"
	IncomeHighUtilization IncomeBracket = "high_utilization"
	IncomeVariable        IncomeBracket = "variable_income"
	IncomeSaver           IncomeBracket = "saver"
)

// User is created once per run and never modified afterwards.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time

	// Persona and Income are generation-time labels.
	Persona persona.Persona
	Income  IncomeBracket
}
