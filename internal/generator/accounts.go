package generator

import (
	"fmt"
	"math"
	"strings"

	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/persona"
)

const (
	currencyUSD    = "USD"
	holderPersonal = "personal"

	hsaRate         = 0.20
	mortgageRate    = 0.35
	studentLoanRate = 0.30

	minimumPaymentShare = 0.02
	minimumPaymentFloor = 25.0
)

// Household is one user with everything synthesized for them.
type Household struct {
	Index        int
	User         domain.User
	AnnualIncome float64
	Accounts     []domain.Account
	Liabilities  []domain.Liability
	LowRisk      bool
}

// Policy returns the persona policy that shaped the household.
func (h Household) Policy(tbl persona.Table) persona.Policy {
	return tbl.Get(h.User.Persona)
}

// LiabilityFor returns the liability paired with the account, if any.
func (h Household) LiabilityFor(accountID string) (domain.Liability, bool) {
	for _, l := range h.Liabilities {
		if l.AccountID == accountID {
			return l, true
		}
	}
	return domain.Liability{}, false
}

// NewHousehold creates the user at index with persona p and synthesizes the
// income bracket, accounts and liabilities. It consumes the shared quota and
// carve-out counters, so households must be created in processing order.
func (g *GenerationContext) NewHousehold(index int, p persona.Persona) Household {
	bracket := g.IncomeFor(p)
	user := g.newUser(index, p, bracket)
	h := Household{
		Index:        index,
		User:         user,
		AnnualIncome: AnnualIncome(g.rng, bracket),
	}
	h.Accounts, h.Liabilities, h.LowRisk = g.SynthesizeAccounts(index, user)

	g.recorder.UserGenerated(p, bracket)
	for _, a := range h.Accounts {
		g.recorder.AccountGenerated(a.Subtype)
	}
	return h
}

func (g *GenerationContext) newUser(index int, p persona.Persona, bracket domain.IncomeBracket) domain.User {
	first := firstNames[g.rng.IntN(len(firstNames))]
	last := lastNames[g.rng.IntN(len(lastNames))]
	created := g.window.Start.AddDate(0, 0, -intBetween(g.rng, 30, 720))
	return domain.User{
		ID:        g.ids.make("user", index),
		Name:      first + " " + last,
		Email:     fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), index+1),
		CreatedAt: created,
		Persona:   p,
		Income:    bracket,
	}
}

// SynthesizeAccounts builds the ordered account set for a user plus the
// liabilities of its credit and loan accounts. The third return value reports
// whether the user took one of the low-risk carve-out slots.
//
// Card count is decided before any balance so that utilization is drawn from
// the persona band directly. A user outside the carve-out never ends with
// exactly two accounts.
func (g *GenerationContext) SynthesizeAccounts(index int, user domain.User) ([]domain.Account, []domain.Liability, bool) {
	pol := g.policies.Get(user.Persona)
	b := accountBuilder{g: g, index: index, user: user, pol: pol}

	b.addChecking()

	if pol.LowRiskEligible && g.lowRisk < g.lowRiskQuota {
		g.lowRisk++
		b.addSavings()
		return b.accounts, b.liabilities, true
	}

	cards := weightedIndex(g.rng, pol.CardCountWeights[:])
	hasSavings := g.rng.Float64() < pol.SavingsRate

	for i := 0; i < cards; i++ {
		b.addCreditCard(i)
	}
	if hasSavings {
		b.addSavings()
	}
	if g.rng.Float64() < hsaRate {
		b.addHSA()
	}
	if g.rng.Float64() < mortgageRate {
		b.addMortgage()
	}
	if g.rng.Float64() < studentLoanRate {
		b.addStudentLoan()
	}

	if len(b.accounts) == 2 {
		if b.accounts[1].Subtype == domain.SubtypeHSA {
			b.addSavings()
		} else {
			b.addHSA()
		}
	}
	return b.accounts, b.liabilities, false
}

type accountBuilder struct {
	g           *GenerationContext
	index       int
	user        domain.User
	pol         persona.Policy
	accounts    []domain.Account
	liabilities []domain.Liability
}

func (b *accountBuilder) id(subtype domain.AccountSubtype, ordinal int) string {
	return b.g.ids.make("account", b.index, subtype, ordinal)
}

func (b *accountBuilder) depository(subtype domain.AccountSubtype, name string, balance float64) {
	balance = roundCents(balance)
	b.accounts = append(b.accounts, domain.Account{
		ID:             b.id(subtype, 0),
		UserID:         b.user.ID,
		Name:           name,
		Type:           domain.TypeDepository,
		Subtype:        subtype,
		Currency:       currencyUSD,
		Available:      balance,
		Current:        balance,
		HolderCategory: holderPersonal,
	})
}

func (b *accountBuilder) addChecking() {
	b.depository(domain.SubtypeChecking, "Everyday Checking", inRange(b.g.rng, b.pol.CheckingBalance))
}

func (b *accountBuilder) addSavings() {
	b.depository(domain.SubtypeSavings, "High-Yield Savings", inRange(b.g.rng, b.pol.SavingsBalance))
}

func (b *accountBuilder) addHSA() {
	b.depository(domain.SubtypeHSA, "Health Savings Account", uniform(b.g.rng, 500, 5000))
}

func (b *accountBuilder) addCreditCard(ordinal int) {
	rng := b.g.rng
	limit := creditLimits[rng.IntN(len(creditLimits))]
	current := clampUtilization(limit, inRange(rng, b.pol.Utilization), b.pol.Utilization)

	id := b.id(domain.SubtypeCreditCard, ordinal)
	b.accounts = append(b.accounts, domain.Account{
		ID:             id,
		UserID:         b.user.ID,
		Name:           fmt.Sprintf("Rewards Credit Card %d", ordinal+1),
		Type:           domain.TypeCredit,
		Subtype:        domain.SubtypeCreditCard,
		Currency:       currencyUSD,
		Available:      roundCents(limit - current),
		Current:        current,
		Limit:          &limit,
		HolderCategory: holderPersonal,
	})

	minimum := MinimumPayment(current)
	minOnly := rng.Float64() < b.pol.MinPaymentOnlyRate
	last := minimum
	if !minOnly {
		last = roundCents(uniform(rng, minimum, math.Max(current, minimum)))
	}
	lastDate := b.g.window.End.AddDate(0, 0, -intBetween(rng, 5, 25))
	b.liabilities = append(b.liabilities, domain.Liability{
		ID:                   b.g.ids.make("liability", id),
		AccountID:            id,
		APRType:              "purchase_apr",
		APRPercentage:        roundCents(inRange(rng, b.pol.APR)),
		MinimumPaymentAmount: minimum,
		LastPaymentAmount:    last,
		LastPaymentDate:      lastDate,
		IsOverdue:            rng.Float64() < b.pol.OverdueRate,
		NextPaymentDueDate:   lastDate.AddDate(0, 0, 30),
		LastStatementBalance: current,
		LiabilityType:        "credit",
		MinimumPaymentOnly:   minOnly,
	})
}

func (b *accountBuilder) addMortgage() {
	rng := b.g.rng
	b.addLoan(domain.SubtypeMortgage, "Home Mortgage", "mortgage",
		uniform(rng, 150000, 450000), uniform(rng, 3, 7.5), uniform(rng, 1200, 2500))
}

func (b *accountBuilder) addStudentLoan() {
	rng := b.g.rng
	b.addLoan(domain.SubtypeStudentLoan, "Student Loan", "student",
		uniform(rng, 10000, 60000), uniform(rng, 3.5, 7), uniform(rng, 150, 450))
}

// addLoan stores the principal as a negative balance. The monthly payment is
// fixed for the life of the run and recorded on the liability.
func (b *accountBuilder) addLoan(subtype domain.AccountSubtype, name, liabilityType string, principal, rate, payment float64) {
	rng := b.g.rng
	id := b.id(subtype, 0)
	rate = roundCents(rate)
	payment = roundCents(payment)
	due := b.g.window.End.AddDate(0, 0, intBetween(rng, 1, 28))
	lastDate := due.AddDate(0, -1, 0)

	b.accounts = append(b.accounts, domain.Account{
		ID:                 id,
		UserID:             b.user.ID,
		Name:               name,
		Type:               domain.TypeLoan,
		Subtype:            subtype,
		Currency:           currencyUSD,
		Current:            -roundCents(principal),
		InterestRate:       &rate,
		NextPaymentDueDate: &due,
		HolderCategory:     holderPersonal,
	})
	b.liabilities = append(b.liabilities, domain.Liability{
		ID:                   b.g.ids.make("liability", id),
		AccountID:            id,
		APRType:              "fixed",
		APRPercentage:        rate,
		MinimumPaymentAmount: payment,
		LastPaymentAmount:    payment,
		LastPaymentDate:      lastDate,
		NextPaymentDueDate:   due,
		LastStatementBalance: roundCents(principal),
		LiabilityType:        liabilityType,
	})
}

// MinimumPayment is the card minimum: 2% of the balance with a $25 floor.
func MinimumPayment(balance float64) float64 {
	return roundCents(math.Max(minimumPaymentShare*balance, minimumPaymentFloor))
}

// clampUtilization converts a utilization draw into a cent-rounded balance
// whose ratio lies in the half-open band [Min, Max).
func clampUtilization(limit, u float64, band persona.Range) float64 {
	current := roundCents(limit * u)
	if current/limit >= band.Max {
		current = floorCents(limit*band.Max - 0.01)
	}
	if current/limit < band.Min {
		current = ceilCents(limit * band.Min)
	}
	if current > limit {
		current = limit
	}
	return current
}
