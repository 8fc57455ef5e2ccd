package mapping

import (
	"encoding/json"

	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	"github.com/pixamint/credit_ledger_app/internal/models"
)

// ToModelCredit converts a domain CreditEntry to its DB model shape.
// ConsumedDetail and Metadata are marshalled to jsonb payloads; a marshal
// failure is reported so a malformed entry never reaches the ledger.
func ToModelCredit(d domain.CreditEntry) (models.Credit, error) {
	m := models.Credit{
		CreditID:       d.CreditID,
		UserID:         d.UserID,
		UserEmail:      d.UserEmail,
		OrderNo:        d.OrderNo,
		SubscriptionNo: d.SubscriptionNo,
		TransactionNo:  d.TransactionNo,
		Type:           string(d.Type),
		Scene:          string(d.Scene),
		Credits:        d.Credits,
		Remaining:      d.Remaining,
		Status:         string(d.Status),
		ExpiresAt:      d.ExpiresAt,
		Description:    d.Description,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		DeletedAt:      d.DeletedAt,
	}
	if d.ConsumedDetail != nil {
		b, err := json.Marshal(d.ConsumedDetail)
		if err != nil {
			return models.Credit{}, err
		}
		m.ConsumedDetail = b
	}
	if d.Metadata != nil {
		b, err := json.Marshal(d.Metadata)
		if err != nil {
			return models.Credit{}, err
		}
		m.Metadata = b
	}
	return m, nil
}

// ToDomainCredit converts a DB model Credit back to the domain shape.
func ToDomainCredit(m models.Credit) (domain.CreditEntry, error) {
	d := domain.CreditEntry{
		CreditID:       m.CreditID,
		UserID:         m.UserID,
		UserEmail:      m.UserEmail,
		OrderNo:        m.OrderNo,
		SubscriptionNo: m.SubscriptionNo,
		TransactionNo:  m.TransactionNo,
		Type:           domain.CreditTransactionType(m.Type),
		Scene:          domain.CreditTransactionScene(m.Scene),
		Credits:        m.Credits,
		Remaining:      m.Remaining,
		Status:         domain.CreditStatus(m.Status),
		ExpiresAt:      m.ExpiresAt,
		Description:    m.Description,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		DeletedAt:      m.DeletedAt,
	}
	if len(m.ConsumedDetail) > 0 {
		if err := json.Unmarshal(m.ConsumedDetail, &d.ConsumedDetail); err != nil {
			return domain.CreditEntry{}, err
		}
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &d.Metadata); err != nil {
			return domain.CreditEntry{}, err
		}
	}
	return d, nil
}
