package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-datagen/internal/domain"
)

// Output file names inside the output directory.
const (
	TransactionsFile = "transactions.csv"
	UsersFile        = "users.csv"
	AccountsFile     = "accounts.csv"
	LiabilitiesFile  = "liabilities.csv"
)

var (
	transactionHeader = []string{
		"transaction_id", "timestamp", "date", "time", "customer_id", "merchant_id",
		"merchant_category", "transaction_type", "payment_method", "amount", "amount_category",
		"status", "account_balance", "account_id", "hour", "day_of_week", "month", "month_name",
		"quarter", "year",
	}
	userHeader    = []string{"id", "name", "email", "created_at", "persona"}
	accountHeader = []string{
		"id", "user_id", "account_id", "name", "type", "subtype", "currency", "available",
		"current", "limit", "holder_category", "interest_rate", "next_payment_due_date",
	}
	liabilityHeader = []string{
		"id", "account_id", "apr_type", "apr_percentage", "minimum_payment_amount",
		"last_payment_amount", "last_payment_date", "is_overdue", "next_payment_due_date",
		"last_statement_balance", "liability_type",
	}
)

// Dataset is everything a run writes out.
type Dataset struct {
	Users       []domain.User
	Accounts    []domain.Account
	Liabilities []domain.Liability
	Rows        []Row
}

// WriteDir writes the four CSV files into dir, creating it if needed, and
// returns the paths written.
func WriteDir(dir string, ds Dataset) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{TransactionsFile, func(w io.Writer) error { return WriteTransactions(w, ds.Rows) }},
		{UsersFile, func(w io.Writer) error { return WriteUsers(w, ds.Users) }},
		{AccountsFile, func(w io.Writer) error { return WriteAccounts(w, ds.Accounts) }},
		{LiabilitiesFile, func(w io.Writer) error { return WriteLiabilities(w, ds.Liabilities) }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// WriteTransactions writes the replayed rows with a header line.
func WriteTransactions(w io.Writer, rows []Row) error {
	return writeCSV(w, transactionHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.TransactionID,
			r.Timestamp.Format(time.RFC3339),
			r.Date.String(),
			r.Time.String(),
			r.CustomerID,
			r.MerchantID,
			r.MerchantCategory,
			r.TransactionType,
			r.PaymentMethod,
			r.Amount.StringFixed(2),
			r.AmountCategory,
			r.Status,
			r.AccountBalance.StringFixed(2),
			r.AccountID,
			strconv.Itoa(r.Hour),
			r.DayOfWeek,
			strconv.Itoa(r.Month),
			r.MonthName,
			strconv.Itoa(r.Quarter),
			strconv.Itoa(r.Year),
		}
	})
}

// WriteUsers writes users.csv, including the persona label column.
func WriteUsers(w io.Writer, users []domain.User) error {
	return writeCSV(w, userHeader, len(users), func(i int) []string {
		u := users[i]
		return []string{u.ID, u.Name, u.Email, u.CreatedAt.Format(time.RFC3339), u.Persona.String()}
	})
}

// WriteAccounts writes accounts.csv. Optional columns are left empty when
// the account does not carry them.
func WriteAccounts(w io.Writer, accounts []domain.Account) error {
	return writeCSV(w, accountHeader, len(accounts), func(i int) []string {
		a := accounts[i]
		return []string{
			a.ID,
			a.UserID,
			a.ID,
			a.Name,
			string(a.Type),
			string(a.Subtype),
			a.Currency,
			money(a.Available),
			money(a.Current),
			optionalMoney(a.Limit),
			a.HolderCategory,
			optionalMoney(a.InterestRate),
			optionalDate(a.NextPaymentDueDate),
		}
	})
}

// WriteLiabilities writes liabilities.csv.
func WriteLiabilities(w io.Writer, liabilities []domain.Liability) error {
	return writeCSV(w, liabilityHeader, len(liabilities), func(i int) []string {
		l := liabilities[i]
		return []string{
			l.ID,
			l.AccountID,
			l.APRType,
			money(l.APRPercentage),
			money(l.MinimumPaymentAmount),
			money(l.LastPaymentAmount),
			civil.DateOf(l.LastPaymentDate).String(),
			strconv.FormatBool(l.IsOverdue),
			civil.DateOf(l.NextPaymentDueDate).String(),
			money(l.LastStatementBalance),
			l.LiabilityType,
		}
	})
}

func writeCSV(w io.Writer, header []string, n int, record func(int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(record(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func optionalMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return money(*v)
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return civil.DateOf(*t).String()
}
