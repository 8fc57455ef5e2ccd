package models

import "time"

// Credit represents a row of the credits table.
// Enum-ish columns are kept as plain strings here; the domain layer owns the
// typed constants. ConsumedDetail and Metadata are stored as jsonb.
type Credit struct {
	CreditID       string     `json:"creditID"`
	UserID         string     `json:"userID"`
	UserEmail      string     `json:"userEmail"`
	OrderNo        string     `json:"orderNo"`
	SubscriptionNo string     `json:"subscriptionNo"`
	TransactionNo  string     `json:"transactionNo"` // unique
	Type           string     `json:"transactionType"`
	Scene          string     `json:"transactionScene"`
	Credits        int64      `json:"credits"`
	Remaining      int64      `json:"remainingCredits"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	ConsumedDetail []byte     `json:"consumedDetail"` // jsonb
	Description    string     `json:"description"`
	Metadata       []byte     `json:"metadata"` // jsonb
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"deletedAt"`
}
