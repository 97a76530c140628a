package domain

import "time"

// AccountType is the top-level account classification.
type AccountType string

const (
	TypeDepository AccountType = "depository"
	TypeCredit     AccountType = "credit"
	TypeLoan       AccountType = "loan"
)

// AccountSubtype refines AccountType.
type AccountSubtype string

const (
	SubtypeChecking    AccountSubtype = "checking"
	SubtypeSavings     AccountSubtype = "savings"
	SubtypeHSA         AccountSubtype = "hsa"
	SubtypeCreditCard  AccountSubtype = "credit_card"
	SubtypeMortgage    AccountSubtype = "mortgage"
	SubtypeStudentLoan AccountSubtype = "student_loan"
)

// Account balances are a static cost basis: transactions do not mutate them.
//
// Credit accounts keep Available = *Limit - Current with 0 <= Current <= *Limit.
// Loans store the outstanding principal as a negative Current.
type Account struct {
	ID                 string
	UserID             string
	Name               string
	Type               AccountType
	Subtype            AccountSubtype
	Currency           string
	Available          float64
	Current            float64
	Limit              *float64
	InterestRate       *float64
	NextPaymentDueDate *time.Time
	HolderCategory     string
}

// Utilization returns Current / Limit for credit accounts and 0 otherwise.
func (a Account) Utilization() float64 {
	if a.Type != TypeCredit || a.Limit == nil || *a.Limit == 0 {
		return 0
	}
	return a.Current / *a.Limit
}
