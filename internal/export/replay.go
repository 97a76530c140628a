// Package export replays generated transactions against their accounts'
// starting balances and serializes the result in the loader's tabular schema.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-datagen/internal/domain"
)

// Transaction type labels. The exported amount is always non-negative; the
// direction is carried by the type.
const (
	TypePurchase       = "purchase"
	TypeSubscription   = "subscription"
	TypeRefund         = "refund"
	TypeDeposit        = "deposit"
	TypePayment        = "payment"
	TypeInterestCharge = "interest_charge"
	TypeTransfer       = "transfer"
	TypeCredit         = "credit"
)

// Payment method labels.
const (
	MethodDebitCard  = "debit_card"
	MethodCreditCard = "credit_card"
	MethodOnline     = "online_banking"
	MethodACH        = "ach"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Row is one exported transaction line.
type Row struct {
	TransactionID    string
	Timestamp        time.Time
	Date             civil.Date
	Time             civil.Time
	CustomerID       string
	MerchantID       string
	MerchantName     string
	MerchantCategory string
	TransactionType  string
	PaymentMethod    string
	Amount           decimal.Decimal
	AmountCategory   string
	Status           string
	AccountBalance   decimal.Decimal
	AccountID        string
	Hour             int
	DayOfWeek        string
	Month            int
	MonthName        string
	Quarter          int
	Year             int
}

// CustomerIDs assigns each user a stable external identifier in input order.
func CustomerIDs(users []domain.User) map[string]string {
	ids := make(map[string]string, len(users))
	for i, u := range users {
		ids[u.ID] = fmt.Sprintf("CUST%06d", i+1)
	}
	return ids
}

// Replay sorts txns chronologically, ties broken by account and transaction
// id, and stamps each row with the post-transaction running balance of its
// account. Balances start at the account's Current and are accumulated in
// decimal so the final balance equals Current plus the exact sum of amounts.
func Replay(accounts []domain.Account, txns []domain.Transaction, customerIDs map[string]string) ([]Row, error) {
	byID := make(map[string]domain.Account, len(accounts))
	balances := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
		balances[a.ID] = decimal.NewFromFloat(a.Current)
	}

	sorted := make([]domain.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.ID < b.ID
	})

	merchants := newMerchantIndex()
	rows := make([]Row, 0, len(sorted))
	for _, tx := range sorted {
		acct, ok := byID[tx.AccountID]
		if !ok {
			return nil, fmt.Errorf("replay: transaction %s references unknown account %s", tx.ID, tx.AccountID)
		}

		amount := decimal.NewFromFloat(tx.Amount)
		balance := balances[acct.ID].Add(amount)
		balances[acct.ID] = balance

		customer, ok := customerIDs[acct.UserID]
		if !ok {
			customer = acct.UserID
		}

		ts := tx.Timestamp
		status := StatusApproved
		if tx.Pending {
			status = StatusPending
		}
		rows = append(rows, Row{
			TransactionID:    tx.ID,
			Timestamp:        ts,
			Date:             civil.DateOf(ts),
			Time:             civil.TimeOf(ts),
			CustomerID:       customer,
			MerchantID:       merchants.id(tx.MerchantName),
			MerchantName:     tx.MerchantName,
			MerchantCategory: tx.Category,
			TransactionType:  TransactionType(tx),
			PaymentMethod:    PaymentMethod(tx.PaymentChannel, acct.Type),
			Amount:           amount.Abs(),
			AmountCategory:   AmountCategory(amount.Abs()),
			Status:           status,
			AccountBalance:   balance,
			AccountID:        acct.ID,
			Hour:             ts.Hour(),
			DayOfWeek:        ts.Weekday().String(),
			Month:            int(ts.Month()),
			MonthName:        ts.Month().String(),
			Quarter:          (int(ts.Month())-1)/3 + 1,
			Year:             ts.Year(),
		})
	}
	return rows, nil
}

// FinalBalances returns the last running balance of every account that has
// at least one row.
func FinalBalances(rows []Row) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range rows {
		out[r.AccountID] = r.AccountBalance
	}
	return out
}

// TransactionType infers the type label from merchant and category keywords,
// falling back to the sign of the amount.
func TransactionType(tx domain.Transaction) string {
	merchant := strings.ToUpper(tx.MerchantName)
	category := strings.ToLower(tx.Category)
	switch {
	case strings.Contains(merchant, "REFUND") || strings.HasSuffix(category, "returns"):
		return TypeRefund
	case strings.Contains(merchant, "PAYROLL") || category == "payroll":
		return TypeDeposit
	case strings.Contains(merchant, "INTEREST"):
		return TypeInterestCharge
	case strings.Contains(merchant, "PAYMENT"):
		return TypePayment
	case strings.Contains(merchant, "TRANSFER") || strings.Contains(merchant, "CONTRIBUTION"):
		return TypeTransfer
	case category == "subscription":
		return TypeSubscription
	case tx.Amount < 0:
		return TypePurchase
	default:
		return TypeCredit
	}
}

// PaymentMethod maps a payment channel and account type to a method label.
func PaymentMethod(channel string, typ domain.AccountType) string {
	switch typ {
	case domain.TypeCredit:
		return MethodCreditCard
	case domain.TypeLoan:
		return MethodACH
	}
	switch channel {
	case domain.ChannelInStore:
		return MethodDebitCard
	case domain.ChannelOnline:
		return MethodOnline
	default:
		return MethodACH
	}
}

var (
	small     = decimal.NewFromInt(15)
	medium    = decimal.NewFromInt(50)
	large     = decimal.NewFromInt(100)
	veryLarge = decimal.NewFromInt(200)
)

// AmountCategory buckets an absolute amount.
func AmountCategory(amount decimal.Decimal) string {
	switch {
	case amount.LessThan(small):
		return "small"
	case amount.LessThan(medium):
		return "medium"
	case amount.LessThan(large):
		return "large"
	case amount.LessThan(veryLarge):
		return "very_large"
	default:
		return "extra_large"
	}
}

// merchantIndex hands out merchant ids in first-seen order.
type merchantIndex struct {
	ids map[string]string
}

func newMerchantIndex() *merchantIndex {
	return &merchantIndex{ids: make(map[string]string)}
}

func (m *merchantIndex) id(name string) string {
	if id, ok := m.ids[name]; ok {
		return id
	}
	id := fmt.Sprintf("MERCH%05d", len(m.ids)+1)
	m.ids[name] = id
	return id
}
