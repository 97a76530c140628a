// Package source reads externally supplied transaction tables for the
// alternate replay mode and spreads their rows over synthesized accounts.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/gcs"
)

// ErrSourceNotFound is returned when the source file does not exist locally
// or in the bucket.
var ErrSourceNotFound = errors.New("source file not found")

// Fetcher downloads gs:// objects. gcs.StorageService satisfies it.
type Fetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}

// Record is one row of a source table after column mapping.
type Record struct {
	Timestamp time.Time
	Amount    float64
	Merchant  string
	Category  string
	Channel   string
	Pending   bool
}

type column int

const (
	colTimestamp column = iota
	colAmount
	colMerchant
	colCategory
	colChannel
	colStatus
	colType
)

// headerAliases maps normalized header names to the column they fill.
var headerAliases = map[string]column{
	"timestamp":          colTimestamp,
	"datetime":           colTimestamp,
	"date":               colTimestamp,
	"transaction_date":   colTimestamp,
	"posted_date":        colTimestamp,
	"amount":             colAmount,
	"transaction_amount": colAmount,
	"value":              colAmount,
	"merchant":           colMerchant,
	"merchant_name":      colMerchant,
	"description":        colMerchant,
	"payee":              colMerchant,
	"category":           colCategory,
	"merchant_category":  colCategory,
	"channel":            colChannel,
	"payment_channel":    colChannel,
	"status":             colStatus,
	"pending":            colStatus,
	"type":               colType,
	"transaction_type":   colType,
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"02-Jan-2006",
}

// Load reads a CSV or XLSX table from a local path or gs:// URI. A missing
// file is reported as ErrSourceNotFound.
func Load(ctx context.Context, location string, fetcher Fetcher) ([]Record, error) {
	name, data, err := read(ctx, location, fetcher)
	if err != nil {
		return nil, err
	}
	return Parse(name, data)
}

// read returns the file name used for format detection and the file bytes.
func read(ctx context.Context, location string, fetcher Fetcher) (string, []byte, error) {
	if gcs.IsURI(location) {
		if fetcher == nil {
			return "", nil, fmt.Errorf("source %s: no storage service configured", location)
		}
		data, err := fetcher.FetchFromGCS(ctx, location)
		if errors.Is(err, gcs.ErrNotFound) {
			return "", nil, fmt.Errorf("source %s: %w", location, ErrSourceNotFound)
		}
		if err != nil {
			return "", nil, fmt.Errorf("source %s: %w", location, err)
		}
		return fetcher.ExtractFilenameFromGCSURI(location), data, nil
	}

	data, err := os.ReadFile(location)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, fmt.Errorf("source %s: %w", location, ErrSourceNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("source %s: %w", location, err)
	}
	return filepath.Base(location), data, nil
}

// Parse decodes data as XLSX when name ends in .xlsx and as CSV otherwise.
func Parse(name string, data []byte) ([]Record, error) {
	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		rows, err = xlsxRows(data)
	} else {
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		rows, err = r.ReadAll()
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return mapRows(rows)
}

// xlsxRows returns the cells of the first sheet.
func xlsxRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func mapRows(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, errors.New("source table is empty")
	}

	index := make(map[column]int)
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if c, ok := headerAliases[key]; ok {
			if _, seen := index[c]; !seen {
				index[c] = i
			}
		}
	}
	for _, required := range []struct {
		col  column
		name string
	}{{colTimestamp, "timestamp"}, {colAmount, "amount"}} {
		if _, ok := index[required.col]; !ok {
			return nil, fmt.Errorf("source table has no %s column", required.name)
		}
	}

	cell := func(row []string, c column) string {
		i, ok := index[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		line := n + 2
		ts, err := parseTimestamp(cell(row, colTimestamp))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		amount, err := parseAmount(cell(row, colAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if isDebit(cell(row, colType)) && amount > 0 {
			amount = -amount
		}
		records = append(records, Record{
			Timestamp: ts,
			Amount:    amount,
			Merchant:  cell(row, colMerchant),
			Category:  cell(row, colCategory),
			Channel:   normalizeChannel(cell(row, colChannel)),
			Pending:   isPending(cell(row, colStatus)),
		})
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseAmount accepts currency symbols, thousands separators and accounting
// style parentheses for negatives.
func parseAmount(s string) (float64, error) {
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	clean := strings.NewReplacer("$", "", ",", "", "(", "", ")", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		v = -v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64(), nil
}

func isDebit(kind string) bool {
	switch strings.ToLower(kind) {
	case "debit", "purchase", "withdrawal", "payment_out", "expense":
		return true
	}
	return false
}

func isPending(status string) bool {
	switch strings.ToLower(status) {
	case "pending", "true", "yes", "1":
		return true
	}
	return false
}

func normalizeChannel(ch string) string {
	switch strings.ToLower(strings.ReplaceAll(ch, "_", " ")) {
	case "online":
		return domain.ChannelOnline
	case "in store", "instore", "pos":
		return domain.ChannelInStore
	default:
		return domain.ChannelOther
	}
}

// Sample keeps up to n records chosen with rng, preserving file order. A
// non-positive n keeps everything.
func Sample(rng *rand.Rand, records []Record, n int) []Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	idx := rng.Perm(len(records))[:n]
	sort.Ints(idx)
	out := make([]Record, n)
	for i, j := range idx {
		out[i] = records[j]
	}
	return out
}

// Distribute assigns records round-robin over the depository and credit
// accounts in the order given. Loan accounts never receive sourced rows.
func Distribute(records []Record, accounts []domain.Account) ([]domain.Transaction, error) {
	var targets []domain.Account
	for _, a := range accounts {
		if a.Type == domain.TypeDepository || a.Type == domain.TypeCredit {
			targets = append(targets, a)
		}
	}
	if len(targets) == 0 && len(records) > 0 {
		return nil, errors.New("distribute: no depository or credit accounts")
	}

	txns := make([]domain.Transaction, 0, len(records))
	for i, r := range records {
		acct := targets[i%len(targets)]
		merchant := r.Merchant
		if merchant == "" {
			merchant = "UNKNOWN MERCHANT"
		}
		txns = append(txns, domain.Transaction{
			ID:             uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("sourced:%s:%d", acct.ID, i))).String(),
			AccountID:      acct.ID,
			Timestamp:      r.Timestamp,
			Amount:         r.Amount,
			MerchantName:   merchant,
			Category:       r.Category,
			PaymentChannel: r.Channel,
			Pending:        r.Pending,
			Stream:         domain.StreamSourced,
		})
	}
	return txns, nil
}
