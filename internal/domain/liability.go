package domain

import "time"

// Liability pairs 1:1 with a credit or loan account through AccountID.
type Liability struct {
	ID                   string
	AccountID            string
	APRType              string
	APRPercentage        float64
	MinimumPaymentAmount float64
	LastPaymentAmount    float64
	LastPaymentDate      time.Time
	IsOverdue            bool
	NextPaymentDueDate   time.Time
	LastStatementBalance float64
	LiabilityType        string

	// MinimumPaymentOnly marks cards paid at the minimum every month. It is
	// reflected in LastPaymentAmount and read back by the settlement stream.
	MinimumPaymentOnly bool
}

// APR returns the annual rate as a fraction.
func (l Liability) APR() float64 {
	return l.APRPercentage / 100
}
