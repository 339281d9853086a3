package models

import "time"

// Transaction is a value log entry against an account. No balance is derived
// from it; the service only records and lists entries.
type Transaction struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"accountId"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Receiver  string    `json:"receiver"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Transaction types accepted on recording.
const (
	TransactionTypeTransfer = "transfer"
	TransactionTypePayment  = "payment"
)

// DefaultTransactionCategory is applied when the caller omits a category.
const DefaultTransactionCategory = "Other"
