package domain

import (
	"time"
)

// Stream tags which synthesizer stream produced a transaction.
type Stream string

const (
	StreamSubscription Stream = "subscription"
	StreamIncome       Stream = "income"
	StreamExpense      Stream = "expense"
	StreamReturn       Stream = "return"
	StreamSettlement   Stream = "settlement"
	StreamSavings      Stream = "savings"
	StreamSourced      Stream = "sourced"
)

// Payment channels, following the Plaid vocabulary the loader expects.
const (
	ChannelOnline  = "online"
	ChannelInStore = "in store"
	ChannelOther   = "other"
)

// Transaction is one generated ledger line. Amount is signed: negative is an
// outflow, positive an inflow, credit or refund. Transactions never change
// after generation; the running balance is derived at export time.
type Transaction struct {
	ID             string
	AccountID      string
	Timestamp      time.Time
	Amount         float64
	MerchantName   string
	Category       string
	PaymentChannel string
	Pending        bool
	Stream         Stream
}
