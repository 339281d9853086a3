package models

import "time"

// Account is a user-owned bank account. Cards live inside the account as an
// ordered list (issuance order) and are persisted as a single JSONB column,
// so card mutations are whole-row atomic and cards disappear together with
// their account.
type Account struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	AccountNumber int64     `json:"accountNumber"`
	Type          string    `json:"type"`
	Cards         []Card    `json:"cards"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Account types accepted on creation.
const (
	AccountTypeChecking = "checking"
	AccountTypeSavings  = "savings"
)
