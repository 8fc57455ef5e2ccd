package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
	"github.com/pixamint/credit_ledger_app/internal/dto"
)

// CreditGranterSvc adds credit to a user's balance. Invoked by the
// payment-success, subscription-renewal, gift and award collaborators.
type CreditGranterSvc interface {
	// GrantCredits inserts a grant entry with an expiry computed from the
	// request's validity days or subscription period end.
	GrantCredits(ctx context.Context, req dto.GrantCreditsRequest) (*domain.CreditEntry, error)

	// GrantWelcomeCredits grants the configured welcome bonus to a newly
	// registered user. Returns (nil, nil) when the bonus is disabled.
	GrantWelcomeCredits(ctx context.Context, userID string, userEmail string) (*domain.CreditEntry, error)
}

// CreditConsumerSvc is the consumption engine: atomic FIFO-by-expiration
// deduction with an itemized audit entry.
type CreditConsumerSvc interface {
	// ConsumeCredits deducts req.Credits from the user's balance inside a
	// new transaction. Fails with *apperrors.InsufficientCreditsError when
	// the balance cannot cover the request and apperrors.ErrTooManyBatches
	// when the scan cap is exceeded; either way nothing is persisted.
	ConsumeCredits(ctx context.Context, req dto.ConsumeCreditsRequest) (*domain.CreditEntry, error)

	// ConsumeCreditsInTx runs the same algorithm inside the caller's
	// transaction, composing the deduction into a larger atomic operation.
	// The caller owns commit and rollback.
	ConsumeCreditsInTx(ctx context.Context, tx pgx.Tx, req dto.ConsumeCreditsRequest) (*domain.CreditEntry, error)
}

// CreditReaderSvc exposes advisory balance and audit reads.
type CreditReaderSvc interface {
	// GetRemainingCredits returns the user's usable balance. The value is
	// for display and pre-flight checks only; the consumption engine
	// re-validates inside its own transaction.
	GetRemainingCredits(ctx context.Context, userID string) (int64, error)

	// GetRemainingCreditsBatch returns usable balances for several users in
	// one query. Users without usable credit are absent from the map.
	GetRemainingCreditsBatch(ctx context.Context, userIDs []string) (map[string]int64, error)

	// ListCredits returns a page of ledger entries for audit UIs.
	ListCredits(ctx context.Context, filter portsrepo.CreditListFilter, limit int, offset int) ([]domain.CreditEntry, error)

	// CountCredits counts ledger entries matching the filter.
	CountCredits(ctx context.Context, filter portsrepo.CreditListFilter) (int64, error)
}

// CreditRevokerSvc withdraws granted credit on refund or policy violation.
type CreditRevokerSvc interface {
	// RevokeCreditsForOrder revokes all active grants that originated from
	// the given order, zeroing their remaining credit.
	RevokeCreditsForOrder(ctx context.Context, orderNo string) (*dto.RevokeCreditsResult, error)

	// ExpireLapsedCredits flips lapsed active grants to expired status and
	// returns how many rows changed. Run periodically by the sweeper job.
	ExpireLapsedCredits(ctx context.Context) (int64, error)
}

// CreditSvcFacade combines all credit service interfaces.
type CreditSvcFacade interface {
	CreditGranterSvc
	CreditConsumerSvc
	CreditReaderSvc
	CreditRevokerSvc
}
