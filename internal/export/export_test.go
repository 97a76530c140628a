package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/generator"
	"github.com/dvloznov/finance-datagen/internal/persona"
)

func generate(t *testing.T, n int, seed uint64) Dataset {
	t.Helper()
	ds, _ := generateWithTransactions(t, n, seed)
	return ds
}

func generateWithTransactions(t *testing.T, n int, seed uint64) (Dataset, []domain.Transaction) {
	t.Helper()
	g, err := generator.New(generator.Options{
		Population:   n,
		Seed:         seed,
		AsOf:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		LowRiskQuota: generator.DefaultLowRiskQuota,
	})
	if err != nil {
		t.Fatalf("generator.New() error = %v", err)
	}

	var ds Dataset
	var txns []domain.Transaction
	syn := g.Synthesizer()
	for i, p := range persona.Assign(g.Rand(), n, persona.EvenWeights(n)) {
		h := g.NewHousehold(i, p)
		ds.Users = append(ds.Users, h.User)
		ds.Accounts = append(ds.Accounts, h.Accounts...)
		ds.Liabilities = append(ds.Liabilities, h.Liabilities...)
		txns = append(txns, syn.ForHousehold(g.UserRand(i), h, g.Policies())...)
	}
	ds.Rows, err = Replay(ds.Accounts, txns, CustomerIDs(ds.Users))
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	return ds, txns
}

func TestReplayFinalBalanceMatchesSum(t *testing.T) {
	ds, txns := generateWithTransactions(t, 40, 8)

	want := make(map[string]decimal.Decimal)
	for _, a := range ds.Accounts {
		want[a.ID] = decimal.NewFromFloat(a.Current)
	}
	for _, tx := range txns {
		want[tx.AccountID] = want[tx.AccountID].Add(decimal.NewFromFloat(tx.Amount))
	}

	final := FinalBalances(ds.Rows)
	if len(final) == 0 {
		t.Fatal("no rows replayed")
	}
	for id, got := range final {
		if !got.Equal(want[id]) {
			t.Errorf("account %s final balance = %s, want %s", id, got, want[id])
		}
	}
}

func TestReplayOrdering(t *testing.T) {
	ts := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	accounts := []domain.Account{
		{ID: "a", UserID: "u1", Type: domain.TypeDepository, Current: 100},
		{ID: "b", UserID: "u2", Type: domain.TypeDepository, Current: 50},
	}
	txns := []domain.Transaction{
		{ID: "t3", AccountID: "a", Timestamp: ts.Add(time.Hour), Amount: -10},
		{ID: "t2", AccountID: "b", Timestamp: ts, Amount: 5},
		{ID: "t1", AccountID: "a", Timestamp: ts, Amount: -20},
		{ID: "t0", AccountID: "a", Timestamp: ts, Amount: 1.5},
	}
	rows, err := Replay(accounts, txns, map[string]string{"u1": "CUST000001"})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	wantOrder := []string{"t0", "t1", "t2", "t3"}
	wantBalance := []string{"101.50", "81.50", "55.00", "71.50"}
	for i, r := range rows {
		if r.TransactionID != wantOrder[i] {
			t.Errorf("row %d = %s, want %s", i, r.TransactionID, wantOrder[i])
		}
		if got := r.AccountBalance.StringFixed(2); got != wantBalance[i] {
			t.Errorf("row %d balance = %s, want %s", i, got, wantBalance[i])
		}
	}
	if rows[0].CustomerID != "CUST000001" {
		t.Errorf("customer id = %s, want CUST000001", rows[0].CustomerID)
	}
	if rows[2].CustomerID != "u2" {
		t.Errorf("unmapped customer id = %s, want fallback u2", rows[2].CustomerID)
	}
	if rows[0].Quarter != 1 || rows[0].MonthName != "January" || rows[0].DayOfWeek != "Friday" {
		t.Errorf("calendar fields = Q%d %s %s", rows[0].Quarter, rows[0].MonthName, rows[0].DayOfWeek)
	}
}

func TestReplayUnknownAccount(t *testing.T) {
	txns := []domain.Transaction{{ID: "t", AccountID: "missing", Amount: -1}}
	if _, err := Replay(nil, txns, nil); err == nil {
		t.Error("Replay() expected error for unknown account")
	}
}

func TestAmountCategory(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0.01", "small"},
		{"14.99", "small"},
		{"15", "medium"},
		{"49.99", "medium"},
		{"50", "large"},
		{"99.99", "large"},
		{"100", "very_large"},
		{"199.99", "very_large"},
		{"200", "extra_large"},
		{"1500", "extra_large"},
	}
	for _, tt := range tests {
		if got := AmountCategory(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Errorf("AmountCategory(%s) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestTransactionType(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
		want string
	}{
		{"refund", domain.Transaction{MerchantName: "Target REFUND", Category: "Shops - Returns", Amount: 20}, TypeRefund},
		{"payroll", domain.Transaction{MerchantName: "ACME CORP PAYROLL", Category: "Payroll", Amount: 2000}, TypeDeposit},
		{"interest", domain.Transaction{MerchantName: "INTEREST CHARGE", Category: "Interest", Amount: -120}, TypeInterestCharge},
		{"card payment", domain.Transaction{MerchantName: "CREDIT CARD PAYMENT", Category: "Payment", Amount: 50}, TypePayment},
		{"savings", domain.Transaction{MerchantName: "TRANSFER FROM CHECKING", Category: "Transfer", Amount: 300}, TypeTransfer},
		{"subscription", domain.Transaction{MerchantName: "Netflix", Category: "Subscription", Amount: -15.49}, TypeSubscription},
		{"purchase", domain.Transaction{MerchantName: "Starbucks", Category: "Food and Drink", Amount: -6.5}, TypePurchase},
		{"unknown inflow", domain.Transaction{MerchantName: "Venmo", Category: "Other", Amount: 40}, TypeCredit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransactionType(tt.tx); got != tt.want {
				t.Errorf("TransactionType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPaymentMethod(t *testing.T) {
	tests := []struct {
		channel string
		typ     domain.AccountType
		want    string
	}{
		{domain.ChannelInStore, domain.TypeDepository, MethodDebitCard},
		{domain.ChannelOnline, domain.TypeDepository, MethodOnline},
		{domain.ChannelOther, domain.TypeDepository, MethodACH},
		{domain.ChannelInStore, domain.TypeCredit, MethodCreditCard},
		{domain.ChannelOther, domain.TypeLoan, MethodACH},
	}
	for _, tt := range tests {
		if got := PaymentMethod(tt.channel, tt.typ); got != tt.want {
			t.Errorf("PaymentMethod(%q, %s) = %s, want %s", tt.channel, tt.typ, got, tt.want)
		}
	}
}

func TestWriteDirIsReproducible(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	pathsA, err := WriteDir(dirA, generate(t, 25, 77))
	if err != nil {
		t.Fatalf("WriteDir() error = %v", err)
	}
	if _, err := WriteDir(dirB, generate(t, 25, 77)); err != nil {
		t.Fatalf("WriteDir() error = %v", err)
	}
	if len(pathsA) != 4 {
		t.Fatalf("WriteDir() wrote %d files, want 4", len(pathsA))
	}

	for _, name := range []string{TransactionsFile, UsersFile, AccountsFile, LiabilitiesFile} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(filepath.Join(dirB, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("%s differs between runs with the same seed", name)
		}
	}
}

func TestWriteTransactionsSchema(t *testing.T) {
	ds := generate(t, 10, 3)
	var buf bytes.Buffer
	if err := WriteTransactions(&buf, ds.Rows); err != nil {
		t.Fatalf("WriteTransactions() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if got := strings.Join(records[0], ","); got != strings.Join(transactionHeader, ",") {
		t.Errorf("header = %s", got)
	}
	if len(records)-1 != len(ds.Rows) {
		t.Errorf("got %d data rows, want %d", len(records)-1, len(ds.Rows))
	}
	for _, rec := range records[1:] {
		if strings.HasPrefix(rec[9], "-") {
			t.Errorf("amount column %q is negative", rec[9])
		}
		if rec[11] != StatusPending && rec[11] != StatusApproved {
			t.Errorf("status column = %q", rec[11])
		}
	}
}
