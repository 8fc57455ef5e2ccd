package dto

import (
	"time"

	"github.com/pixamint/credit_ledger_app/internal/core/domain"
)

// GrantCreditsRequest is the unified input for every credit granting
// scenario: payment success, subscription renewal, admin gift, award.
type GrantCreditsRequest struct {
	UserID           string                        `json:"userID" binding:"required"`
	UserEmail        string                        `json:"userEmail"`
	Credits          int64                         `json:"credits" binding:"required,gt=0"`
	ValidDays        int                           `json:"validDays"` // <= 0 means never expires
	Scene            domain.CreditTransactionScene `json:"scene" binding:"omitempty,oneof=payment subscription renewal gift award"`
	Description      string                        `json:"description"`
	OrderNo          string                        `json:"orderNo"`
	SubscriptionNo   string                        `json:"subscriptionNo"`
	CurrentPeriodEnd *time.Time                    `json:"currentPeriodEnd"`
	Metadata         map[string]any                `json:"metadata"`
}

// ConsumeCreditsRequest is the input to the consumption engine.
type ConsumeCreditsRequest struct {
	UserID      string                        `json:"-"`
	Credits     int64                         `json:"credits" binding:"required,gt=0"`
	Scene       domain.CreditTransactionScene `json:"scene" binding:"omitempty,oneof=payment subscription renewal gift award"`
	Description string                        `json:"description"`
	Metadata    map[string]any                `json:"metadata"`
}

// RevokeCreditsRequest asks for all active grants of an order to be revoked.
type RevokeCreditsRequest struct {
	OrderNo string `json:"orderNo" binding:"required"`
}

// RevokeCreditsResult reports what a revocation touched.
type RevokeCreditsResult struct {
	RevokedCount        int   `json:"revokedCount"`
	TotalCreditsRevoked int64 `json:"totalCreditsRevoked"`
	TotalCreditsGranted int64 `json:"totalCreditsGranted"`
}

// BalanceBatchRequest asks for remaining balances of several users at once.
type BalanceBatchRequest struct {
	UserIDs []string `json:"userIDs" binding:"required,min=1,max=500"`
}

// BalanceResponse reports one user's usable balance.
type BalanceResponse struct {
	UserID           string `json:"userID"`
	RemainingCredits int64  `json:"remainingCredits"`
}

// ConsumedItemResponse is one draw within a consumption's audit detail.
type ConsumedItemResponse struct {
	CreditID        string     `json:"creditID"`
	TransactionNo   string     `json:"transactionNo"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	Amount          int64      `json:"amount"`
	RemainingBefore int64      `json:"remainingBefore"`
	RemainingAfter  int64      `json:"remainingAfter"`
	BatchNo         int        `json:"batchNo"`
}

// CreditResponse defines the data returned for a single ledger entry.
type CreditResponse struct {
	CreditID       string                 `json:"creditID"`
	UserID         string                 `json:"userID"`
	TransactionNo  string                 `json:"transactionNo"`
	Type           string                 `json:"transactionType"`
	Scene          string                 `json:"transactionScene,omitempty"`
	Credits        int64                  `json:"credits"`
	Remaining      int64                  `json:"remainingCredits"`
	Status         string                 `json:"status"`
	ExpiresAt      *time.Time             `json:"expiresAt,omitempty"`
	ConsumedDetail []ConsumedItemResponse `json:"consumedDetail,omitempty"`
	Description    string                 `json:"description,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// ListCreditsResponse is a page of ledger entries plus the total count.
// NextToken, when present, is a keyset cursor for the following page.
type ListCreditsResponse struct {
	Credits   []CreditResponse `json:"credits"`
	Total     int64            `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	NextToken string           `json:"nextToken,omitempty"`
}

// ToCreditResponse converts a domain.CreditEntry to its response DTO.
func ToCreditResponse(e *domain.CreditEntry) CreditResponse {
	resp := CreditResponse{
		CreditID:      e.CreditID,
		UserID:        e.UserID,
		TransactionNo: e.TransactionNo,
		Type:          string(e.Type),
		Scene:         string(e.Scene),
		Credits:       e.Credits,
		Remaining:     e.Remaining,
		Status:        string(e.Status),
		ExpiresAt:     e.ExpiresAt,
		Description:   e.Description,
		CreatedAt:     e.CreatedAt,
	}
	if len(e.ConsumedDetail) > 0 {
		items := make([]ConsumedItemResponse, len(e.ConsumedDetail))
		for i, item := range e.ConsumedDetail {
			items[i] = ConsumedItemResponse{
				CreditID:        item.CreditID,
				TransactionNo:   item.TransactionNo,
				ExpiresAt:       item.ExpiresAt,
				Amount:          item.Amount,
				RemainingBefore: item.RemainingBefore,
				RemainingAfter:  item.RemainingAfter,
				BatchNo:         item.BatchNo,
			}
		}
		resp.ConsumedDetail = items
	}
	return resp
}

// ToCreditResponses converts a slice of domain.CreditEntry to response DTOs.
func ToCreditResponses(entries []domain.CreditEntry) []CreditResponse {
	responses := make([]CreditResponse, len(entries))
	for i := range entries {
		responses[i] = ToCreditResponse(&entries[i])
	}
	return responses
}
