package models

import "time"

// Card is a payment instrument embedded in an account. The PIN is stored as
// a bcrypt hash and is never serialized in API responses.
type Card struct {
	ID           string    `json:"id"`
	PINHash      string    `json:"-"`
	Number       string    `json:"number"`
	ValidThru    string    `json:"validThru"` // MM/YY
	SecurityCode string    `json:"securityCode"`
	CreatedAt    time.Time `json:"createdAt"`
}
