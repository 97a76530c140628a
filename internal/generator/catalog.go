package generator

import "github.com/dvloznov/finance-datagen/internal/domain"

// subscriptionMerchant is a recurring online charge.
type subscriptionMerchant struct {
	Name       string
	Category   string
	Amount     float64
	PeriodDays int
}

// monthly returns the 30-day equivalent cost.
func (m subscriptionMerchant) monthly() float64 {
	return m.Amount * 30 / float64(m.PeriodDays)
}

var subscriptionCatalog = []subscriptionMerchant{
	{"Netflix", "Subscription", 15.49, 30},
	{"Spotify", "Subscription", 10.99, 30},
	{"Hulu", "Subscription", 17.99, 30},
	{"Disney+", "Subscription", 13.99, 30},
	{"HBO Max", "Subscription", 15.99, 30},
	{"YouTube Premium", "Subscription", 13.99, 30},
	{"Apple iCloud", "Subscription", 2.99, 30},
	{"Amazon Prime", "Subscription", 14.99, 30},
	{"Adobe Creative Cloud", "Subscription", 54.99, 30},
	{"Microsoft 365", "Subscription", 9.99, 30},
	{"Planet Fitness", "Subscription", 24.99, 30},
	{"Peloton", "Subscription", 44.00, 30},
	{"New York Times", "Subscription", 17.00, 30},
	{"Audible", "Subscription", 14.95, 30},
	{"Dropbox", "Subscription", 11.99, 30},
	{"Xbox Game Pass", "Subscription", 16.99, 30},
	{"ClassPass", "Subscription", 49.00, 30},
	{"Dollar Shave Club", "Subscription", 19.00, 60},
	{"Chewy Autoship", "Subscription", 64.00, 60},
	{"Blue Apron", "Subscription", 89.94, 60},
}

// expenseMerchant is a discretionary spend destination.
type expenseMerchant struct {
	Name     string
	Category string
	Channel  string
}

var expenseCatalog = []expenseMerchant{
	{"Starbucks", "Food and Drink", domain.ChannelInStore},
	{"McDonald's", "Food and Drink", domain.ChannelInStore},
	{"Chipotle", "Food and Drink", domain.ChannelInStore},
	{"DoorDash", "Food and Drink", domain.ChannelOnline},
	{"Uber Eats", "Food and Drink", domain.ChannelOnline},
	{"Whole Foods", "Groceries", domain.ChannelInStore},
	{"Trader Joe's", "Groceries", domain.ChannelInStore},
	{"Kroger", "Groceries", domain.ChannelInStore},
	{"Safeway", "Groceries", domain.ChannelInStore},
	{"Amazon", "Shops", domain.ChannelOnline},
	{"Target", "Shops", domain.ChannelInStore},
	{"Walmart", "Shops", domain.ChannelInStore},
	{"Best Buy", "Shops", domain.ChannelInStore},
	{"Home Depot", "Shops", domain.ChannelInStore},
	{"Etsy", "Shops", domain.ChannelOnline},
	{"Uber", "Travel", domain.ChannelOnline},
	{"Lyft", "Travel", domain.ChannelOnline},
	{"Shell", "Travel", domain.ChannelInStore},
	{"Chevron", "Travel", domain.ChannelInStore},
	{"Delta Air Lines", "Travel", domain.ChannelOnline},
	{"AMC Theatres", "Recreation", domain.ChannelInStore},
	{"Ticketmaster", "Recreation", domain.ChannelOnline},
	{"REI", "Recreation", domain.ChannelInStore},
	{"CVS Pharmacy", "Healthcare", domain.ChannelInStore},
	{"Walgreens", "Healthcare", domain.ChannelInStore},
	{"One Medical", "Healthcare", domain.ChannelOnline},
	{"Comcast", "Service", domain.ChannelOnline},
	{"Verizon", "Service", domain.ChannelOnline},
	{"PG&E", "Service", domain.ChannelOnline},
	{"Great Clips", "Personal Care", domain.ChannelInStore},
	{"Sephora", "Personal Care", domain.ChannelInStore},
}

var employers = []string{
	"ACME CORP", "GLOBEX", "INITECH", "UMBRELLA HEALTH", "STARK INDUSTRIES",
	"WAYNE ENTERPRISES", "HOOLI", "VANDELAY IMPORTS", "SOYLENT FOODS", "CYBERDYNE",
}

var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
	"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
	"Thomas", "Sarah", "Daniel", "Karen", "Priya", "Wei", "Carlos", "Aisha", "Mateo",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson", "Anderson", "Thomas",
	"Taylor", "Moore", "Jackson", "Martin", "Lee", "Patel", "Chen", "Nguyen", "Kim",
}

var creditLimits = []float64{5000, 7500, 10000, 15000, 20000, 25000}

// Merchant names for settlement and transfer lines. The exporter infers the
// transaction type from these keywords.
const (
	merchantCardPayment      = "CREDIT CARD PAYMENT"
	merchantInterestCharge   = "INTEREST CHARGE"
	merchantMortgagePayment  = "MORTGAGE PAYMENT"
	merchantStudentLoan      = "STUDENT LOAN PAYMENT"
	merchantSavingsTransfer  = "TRANSFER FROM CHECKING"
	merchantHSAContribution  = "HSA CONTRIBUTION"
	merchantPayrollSuffix    = " PAYROLL"
	merchantRefundSuffix     = " REFUND"
	categoryPayroll          = "Payroll"
	categoryPayment          = "Payment"
	categoryInterest         = "Interest"
	categoryTransfer         = "Transfer"
	categoryReturnSuffix     = " - Returns"
	categorySubscriptionName = "Subscription"
)
