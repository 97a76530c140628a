package generator

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/persona"
)

const (
	// ExpenseBuffer is the headroom every discretionary draw must leave on
	// the account.
	ExpenseBuffer = 100.0

	pendingRate   = 0.15
	pendingWindow = 48 * time.Hour

	returnRateMin     = 0.03
	returnRateMax     = 0.08
	fullRefundRate    = 0.60
	partialRefundMin  = 0.40
	partialRefundMax  = 0.90
	returnDelayMinDay = 3
	returnDelayMaxDay = 30

	subscriptionResamples = 5

	biweeklyDays         = 14
	monthlyDays          = 30
	irregularPayrollsMin = 2
	irregularPayrollsMax = 3
	irregularGapMinDays  = 46
	irregularGapMaxDays  = 60
)

var (
	checkingExpenses = persona.IntRange{Min: 30, Max: 120}
	creditExpenses   = persona.IntRange{Min: 20, Max: 80}
)

// Profile is the per-user context a transaction stream needs.
type Profile struct {
	Persona      persona.Persona
	Policy       persona.Policy
	AnnualIncome float64
	// Employer names the payroll source of the household.
	Employer string
}

// Synthesizer produces transaction streams for accounts inside a window. It
// holds no mutable state and may be shared between goroutines as long as each
// goroutine brings its own generator.
type Synthesizer struct {
	window   Window
	ids      idSpace
	recorder Recorder
}

// ForHousehold synthesizes every account of the household with rng.
func (s *Synthesizer) ForHousehold(rng *rand.Rand, h Household, tbl persona.Table) []domain.Transaction {
	profile := Profile{
		Persona:      h.User.Persona,
		Policy:       tbl.Get(h.User.Persona),
		AnnualIncome: h.AnnualIncome,
		Employer:     employers[rng.IntN(len(employers))],
	}

	var out []domain.Transaction
	for _, acct := range h.Accounts {
		var liab *domain.Liability
		if l, ok := h.LiabilityFor(acct.ID); ok {
			liab = &l
		}
		out = append(out, s.ForAccount(rng, acct, liab, profile)...)
	}
	return out
}

// ForAccount layers the independent streams that apply to the account and
// assigns stable transaction ids in generation order.
func (s *Synthesizer) ForAccount(rng *rand.Rand, acct domain.Account, liab *domain.Liability, p Profile) []domain.Transaction {
	var txns []domain.Transaction
	emit := func(stream domain.Stream, batch []domain.Transaction) {
		s.recorder.TransactionsGenerated(stream, len(batch))
		txns = append(txns, batch...)
	}

	// Debits are laid over the account's timeline after the credits they
	// depend on, so no running balance drops below zero.
	book := newLedger(acct.Available)
	switch acct.Subtype {
	case domain.SubtypeChecking:
		income := s.income(rng, acct, p)
		book.post(income...)
		emit(domain.StreamIncome, income)
		emit(domain.StreamSubscription, s.subscriptions(rng, p, book))
		expenses := s.expenses(rng, checkingExpenses, book)
		emit(domain.StreamExpense, expenses)
		emit(domain.StreamReturn, s.returns(rng, acct, expenses))
	case domain.SubtypeCreditCard:
		expenses := s.expenses(rng, creditExpenses, book)
		emit(domain.StreamExpense, expenses)
		emit(domain.StreamReturn, s.returns(rng, acct, expenses))
		if liab != nil {
			emit(domain.StreamSettlement, s.cardSettlement(rng, acct, *liab, p))
		}
	case domain.SubtypeMortgage, domain.SubtypeStudentLoan:
		if liab != nil {
			emit(domain.StreamSettlement, s.loanSettlement(rng, acct, *liab))
		}
	case domain.SubtypeSavings, domain.SubtypeHSA:
		emit(domain.StreamSavings, s.savingsDeposits(rng, acct, p))
	}

	for i := range txns {
		txns[i].ID = s.ids.make("txn", acct.ID, i)
		txns[i].AccountID = acct.ID
	}
	return txns
}

// recurring lays out one event every period days starting at offset.
func (s *Synthesizer) recurring(offset, period, hour int, rng *rand.Rand, build func(ts time.Time) domain.Transaction) []domain.Transaction {
	var out []domain.Transaction
	for day := offset; day < s.window.Days; day += period {
		ts := s.window.At(day, hour, rng.IntN(60), rng.IntN(60))
		out = append(out, build(ts))
	}
	return out
}

// randomTime returns a timestamp on a uniformly chosen day during waking hours.
func (s *Synthesizer) randomTime(rng *rand.Rand) time.Time {
	return s.window.At(rng.IntN(s.window.Days), intBetween(rng, 7, 22), rng.IntN(60), rng.IntN(60))
}

// subscriptions emits one charge per period for each picked merchant. A
// charge the checking account cannot cover at its date is declined.
func (s *Synthesizer) subscriptions(rng *rand.Rand, p Profile, book *ledger) []domain.Transaction {
	n := inIntRange(rng, p.Policy.Subscriptions)
	var charges []domain.Transaction
	for _, m := range PickSubscriptions(rng, n, p.Policy.MinMonthlySubscriptionSpend) {
		charges = append(charges, s.recurring(rng.IntN(m.PeriodDays), m.PeriodDays, 6, rng, func(ts time.Time) domain.Transaction {
			return domain.Transaction{
				Timestamp:      ts,
				Amount:         -m.Amount,
				MerchantName:   m.Name,
				Category:       m.Category,
				PaymentChannel: domain.ChannelOnline,
				Stream:         domain.StreamSubscription,
			}
		})...)
	}
	sort.SliceStable(charges, func(i, j int) bool { return charges[i].Timestamp.Before(charges[j].Timestamp) })

	out := charges[:0]
	for _, tx := range charges {
		if !book.covers(tx.Timestamp, -tx.Amount) {
			s.recorder.ChargeDeclined()
			continue
		}
		book.post(tx)
		out = append(out, tx)
	}
	return out
}

// PickSubscriptions samples n distinct merchants from the catalog. When
// minMonthly is positive the pick is resampled a few times and then repaired
// by swapping the cheapest pick for the priciest unused merchant until the
// monthly total reaches minMonthly.
func PickSubscriptions(rng *rand.Rand, n int, minMonthly float64) []subscriptionMerchant {
	if n > len(subscriptionCatalog) {
		n = len(subscriptionCatalog)
	}
	if n <= 0 {
		return nil
	}

	var picked []int
	for attempt := 0; attempt <= subscriptionResamples; attempt++ {
		picked = rng.Perm(len(subscriptionCatalog))[:n]
		if monthlyCost(picked) >= minMonthly {
			return merchants(picked)
		}
	}

	used := make(map[int]bool, n)
	for _, i := range picked {
		used[i] = true
	}
	unused := make([]int, 0, len(subscriptionCatalog)-n)
	for i := range subscriptionCatalog {
		if !used[i] {
			unused = append(unused, i)
		}
	}
	byCost := func(idx []int) {
		sort.SliceStable(idx, func(a, b int) bool {
			return subscriptionCatalog[idx[a]].monthly() < subscriptionCatalog[idx[b]].monthly()
		})
	}
	byCost(picked)
	byCost(unused)

	for i := 0; monthlyCost(picked) < minMonthly && i < len(picked) && len(unused) > 0; i++ {
		best := unused[len(unused)-1]
		if subscriptionCatalog[best].monthly() <= subscriptionCatalog[picked[i]].monthly() {
			break
		}
		picked[i], unused = best, unused[:len(unused)-1]
	}
	return merchants(picked)
}

func monthlyCost(idx []int) float64 {
	var total float64
	for _, i := range idx {
		total += subscriptionCatalog[i].monthly()
	}
	return total
}

func merchants(idx []int) []subscriptionMerchant {
	out := make([]subscriptionMerchant, len(idx))
	for i, j := range idx {
		out[i] = subscriptionCatalog[j]
	}
	return out
}

// income emits payroll deposits. Regular personas are paid a fixed amount
// every 14 or 30 days. Irregular personas get two or three deposits separated
// by 46-60 days, each inflated so the annualized total stays in the bracket.
func (s *Synthesizer) income(rng *rand.Rand, acct domain.Account, p Profile) []domain.Transaction {
	merchant := p.Employer + merchantPayrollSuffix
	deposit := func(amount float64) func(time.Time) domain.Transaction {
		return func(ts time.Time) domain.Transaction {
			return domain.Transaction{
				Timestamp:      ts,
				Amount:         amount,
				MerchantName:   merchant,
				Category:       categoryPayroll,
				PaymentChannel: domain.ChannelOther,
				Stream:         domain.StreamIncome,
			}
		}
	}

	if p.Policy.Income == persona.IncomeIrregular {
		return s.irregularIncome(rng, p, deposit)
	}

	period := biweeklyDays
	if rng.IntN(2) == 1 {
		period = monthlyDays
	}
	amount := roundCents(p.AnnualIncome * float64(period) / 365)
	return s.recurring(rng.IntN(period), period, 9, rng, deposit(amount))
}

func (s *Synthesizer) irregularIncome(rng *rand.Rand, p Profile, deposit func(float64) func(time.Time) domain.Transaction) []domain.Transaction {
	k := intBetween(rng, irregularPayrollsMin, irregularPayrollsMax)
	gaps := make([]int, k-1)
	span := 0
	for i := range gaps {
		gaps[i] = intBetween(rng, irregularGapMinDays, irregularGapMaxDays)
		span += gaps[i]
	}
	start := 0
	if room := s.window.Days - span; room > 0 {
		start = rng.IntN(room)
	}
	amount := roundCents(p.AnnualIncome * float64(s.window.Days) / 365 / float64(k))

	var out []domain.Transaction
	day := start
	for i := 0; i < k && day < s.window.Days; i++ {
		out = append(out, deposit(amount)(s.window.At(day, 9, rng.IntN(60), rng.IntN(60))))
		if i < len(gaps) {
			day += gaps[i]
		}
	}
	return out
}

// ClampToHeadroom fits an expense under available - ExpenseBuffer. Amounts
// that fit are returned unchanged; larger ones are rescaled to 50-100% of the
// headroom. ok is false when no headroom is left and the draw must be skipped.
func ClampToHeadroom(rng *rand.Rand, amount, available float64) (float64, bool) {
	headroom := available - ExpenseBuffer
	if headroom < 0.01 {
		return 0, false
	}
	if amount <= headroom {
		return amount, true
	}
	scaled := floorCents(headroom * uniform(rng, 0.5, 1))
	if scaled < 0.01 {
		return 0, false
	}
	return scaled, true
}

// expenses emits discretionary purchases. Each draw is clamped to the lowest
// balance the account reaches from its timestamp on, less ExpenseBuffer, and
// accepted purchases are posted so later draws see them.
func (s *Synthesizer) expenses(rng *rand.Rand, count persona.IntRange, book *ledger) []domain.Transaction {
	n := inIntRange(rng, count)
	pendingFrom := s.window.End.Add(-pendingWindow)

	out := make([]domain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		m := expenseCatalog[rng.IntN(len(expenseCatalog))]
		drawn := SampleAmount(rng, m.Category)
		ts := s.randomTime(rng)

		amount, ok := ClampToHeadroom(rng, drawn, book.lowFrom(ts))
		if !ok {
			s.recorder.ExpenseSkipped()
			continue
		}
		if amount != drawn {
			s.recorder.ExpenseClamped()
		}

		pending := false
		if ts.After(pendingFrom) {
			pending = rng.Float64() < pendingRate
		}
		tx := domain.Transaction{
			Timestamp:      ts,
			Amount:         -amount,
			MerchantName:   m.Name,
			Category:       m.Category,
			PaymentChannel: m.Channel,
			Pending:        pending,
			Stream:         domain.StreamExpense,
		}
		book.post(tx)
		out = append(out, tx)
	}
	return out
}

// returns turns 3-8% of the expenses into later refunds.
func (s *Synthesizer) returns(rng *rand.Rand, acct domain.Account, expenses []domain.Transaction) []domain.Transaction {
	if len(expenses) == 0 {
		return nil
	}
	rate := uniform(rng, returnRateMin, returnRateMax)
	k := int(math.Round(rate * float64(len(expenses))))

	out := make([]domain.Transaction, 0, k)
	for _, idx := range rng.Perm(len(expenses))[:k] {
		orig := expenses[idx]
		ts := orig.Timestamp.AddDate(0, 0, intBetween(rng, returnDelayMinDay, returnDelayMaxDay))
		if ts.After(s.window.End) {
			ts = s.window.End
		}
		amount := -orig.Amount
		if rng.Float64() >= fullRefundRate {
			if partial := roundCents(amount * uniform(rng, partialRefundMin, partialRefundMax)); partial >= 0.01 {
				amount = partial
			}
		}
		out = append(out, domain.Transaction{
			Timestamp:      ts,
			Amount:         amount,
			MerchantName:   orig.MerchantName + merchantRefundSuffix,
			Category:       orig.Category + categoryReturnSuffix,
			PaymentChannel: orig.PaymentChannel,
			Stream:         domain.StreamReturn,
		})
	}
	return out
}

// cardSettlement emits the monthly card payment and, for personas with
// interest charges, a monthly INTEREST CHARGE of current x APR / 12.
func (s *Synthesizer) cardSettlement(rng *rand.Rand, acct domain.Account, liab domain.Liability, p Profile) []domain.Transaction {
	out := s.recurring(rng.IntN(monthlyDays), monthlyDays, 8, rng, func(ts time.Time) domain.Transaction {
		amount := liab.LastPaymentAmount
		if !liab.MinimumPaymentOnly {
			amount = roundCents(uniform(rng, liab.MinimumPaymentAmount, math.Max(acct.Current, liab.MinimumPaymentAmount)))
		}
		return domain.Transaction{
			Timestamp:      ts,
			Amount:         amount,
			MerchantName:   merchantCardPayment,
			Category:       categoryPayment,
			PaymentChannel: domain.ChannelOther,
			Stream:         domain.StreamSettlement,
		}
	})

	if p.Policy.InterestCharges {
		charge := InterestCharge(acct.Current, liab.APR())
		out = append(out, s.recurring(rng.IntN(monthlyDays), monthlyDays, 0, rng, func(ts time.Time) domain.Transaction {
			return domain.Transaction{
				Timestamp:      ts,
				Amount:         -charge,
				MerchantName:   merchantInterestCharge,
				Category:       categoryInterest,
				PaymentChannel: domain.ChannelOther,
				Stream:         domain.StreamSettlement,
			}
		})...)
	}
	return out
}

// InterestCharge is one month of interest on balance at the annual rate apr.
func InterestCharge(balance, apr float64) float64 {
	return roundCents(balance * apr / 12)
}

// loanSettlement emits the flat monthly loan payment stored on the liability.
func (s *Synthesizer) loanSettlement(rng *rand.Rand, acct domain.Account, liab domain.Liability) []domain.Transaction {
	merchant := merchantMortgagePayment
	if acct.Subtype == domain.SubtypeStudentLoan {
		merchant = merchantStudentLoan
	}
	return s.recurring(rng.IntN(monthlyDays), monthlyDays, 7, rng, func(ts time.Time) domain.Transaction {
		return domain.Transaction{
			Timestamp:      ts,
			Amount:         liab.MinimumPaymentAmount,
			MerchantName:   merchant,
			Category:       categoryPayment,
			PaymentChannel: domain.ChannelOther,
			Stream:         domain.StreamSettlement,
		}
	})
}

// savingsDeposits emits transfers into savings at the persona cadence and
// monthly HSA contributions.
func (s *Synthesizer) savingsDeposits(rng *rand.Rand, acct domain.Account, p Profile) []domain.Transaction {
	cadence := inIntRange(rng, p.Policy.SavingsCadenceDays)
	amount := roundCents(p.AnnualIncome / 12 * inRange(rng, p.Policy.SavingsDepositShare))
	merchant := merchantSavingsTransfer
	if acct.Subtype == domain.SubtypeHSA {
		cadence = monthlyDays
		amount = roundCents(uniform(rng, 50, 300))
		merchant = merchantHSAContribution
	}
	if amount < 0.01 {
		return nil
	}
	return s.recurring(rng.IntN(cadence), cadence, 10, rng, func(ts time.Time) domain.Transaction {
		return domain.Transaction{
			Timestamp:      ts,
			Amount:         amount,
			MerchantName:   merchant,
			Category:       categoryTransfer,
			PaymentChannel: domain.ChannelOnline,
			Stream:         domain.StreamSavings,
		}
	})
}
