package domain

import "time"

// CreditStatus indicates the lifecycle state of a credit ledger entry.
type CreditStatus string

const (
	CreditStatusActive  CreditStatus = "active"
	CreditStatusExpired CreditStatus = "expired"
	CreditStatusDeleted CreditStatus = "deleted"
	// CreditStatusRevoked marks credit withdrawn after a refund or policy
	// violation. Kept for financial audit, never drawn from again.
	CreditStatusRevoked CreditStatus = "revoked"
)

// CreditTransactionType distinguishes entries that add credit from entries
// that record a spend.
type CreditTransactionType string

const (
	TransactionTypeGrant   CreditTransactionType = "grant"
	TransactionTypeConsume CreditTransactionType = "consume"
)

// CreditTransactionScene records which business flow produced a grant.
type CreditTransactionScene string

const (
	ScenePayment      CreditTransactionScene = "payment"
	SceneSubscription CreditTransactionScene = "subscription"
	SceneRenewal      CreditTransactionScene = "renewal"
	SceneGift         CreditTransactionScene = "gift"
	SceneAward        CreditTransactionScene = "award"
)

// CreditEntry is the single persisted ledger entity. A grant entry carries
// positive Credits and a RemainingCredits counter that only ever decreases;
// a consume entry carries negative Credits and an itemized ConsumedDetail.
type CreditEntry struct {
	CreditID       string                 `json:"creditID"`
	UserID         string                 `json:"userID"`
	UserEmail      string                 `json:"userEmail"`
	OrderNo        string                 `json:"orderNo"`
	SubscriptionNo string                 `json:"subscriptionNo"`
	TransactionNo  string                 `json:"transactionNo"` // globally unique, idempotency/audit key
	Type           CreditTransactionType  `json:"transactionType"`
	Scene          CreditTransactionScene `json:"transactionScene"`
	Credits        int64                  `json:"credits"`          // positive for grant, negative for consume
	Remaining      int64                  `json:"remainingCredits"` // meaningful on grant entries only
	Status         CreditStatus           `json:"status"`
	ExpiresAt      *time.Time             `json:"expiresAt"` // nil means never expires
	ConsumedDetail []ConsumedItem         `json:"consumedDetail,omitempty"`
	Description    string                 `json:"description"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
	DeletedAt      *time.Time             `json:"deletedAt,omitempty"`
}

// ConsumedItem records one draw against a grant within a consumption,
// forming the audit trail of a consume entry.
type ConsumedItem struct {
	CreditID        string     `json:"creditID"`
	TransactionNo   string     `json:"transactionNo"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	Amount          int64      `json:"amount"`
	RemainingBefore int64      `json:"remainingBefore"`
	RemainingAfter  int64      `json:"remainingAfter"`
	BatchNo         int        `json:"batchNo"`
}

// IsConsumable reports whether the entry can still be drawn from at the
// reference instant. Mirrors the SQL predicate used by the consumption scan.
func (e *CreditEntry) IsConsumable(now time.Time) bool {
	if e.Type != TransactionTypeGrant || e.Status != CreditStatusActive || e.Remaining <= 0 {
		return false
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// CalculateExpiration computes a grant's expiry instant.
// validityDays <= 0 means the grant never expires. A subscription grant
// expires at the end of the current billing period; a one-time purchase
// expires validityDays after now.
func CalculateExpiration(validityDays int, currentPeriodEnd *time.Time, now time.Time) *time.Time {
	if validityDays <= 0 {
		return nil
	}
	if currentPeriodEnd != nil {
		t := *currentPeriodEnd
		return &t
	}
	t := now.AddDate(0, 0, validityDays)
	return &t
}
