package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pixamint/credit_ledger_app/internal/core/domain"
)

// CreditListFilter narrows audit listings. Zero values mean "no filter".
// CreatedBefore and CreditIDBefore together form a keyset cursor: when set,
// only entries strictly before that (created_at, credit_id) position are
// returned, matching the listing's descending order.
type CreditListFilter struct {
	UserID         string
	Status         domain.CreditStatus
	Type           domain.CreditTransactionType
	CreatedBefore  *time.Time
	CreditIDBefore string
}

// CreditReader defines unlocked read operations over the credit ledger.
// Balance reads are advisory: they are never used to authorize a spend
// without re-validation inside the consumption transaction.
type CreditReader interface {
	// FindCreditByID retrieves a single ledger entry by its identifier.
	FindCreditByID(ctx context.Context, creditID string) (*domain.CreditEntry, error)

	// FindCreditByTransactionNo retrieves a ledger entry by its globally
	// unique transaction number (idempotency/audit lookup).
	FindCreditByTransactionNo(ctx context.Context, transactionNo string) (*domain.CreditEntry, error)

	// ListCredits retrieves a page of ledger entries ordered by creation
	// time descending, for audit and listing UIs.
	ListCredits(ctx context.Context, filter CreditListFilter, limit int, offset int) ([]domain.CreditEntry, error)

	// CountCredits counts ledger entries matching the filter.
	CountCredits(ctx context.Context, filter CreditListFilter) (int64, error)

	// SumRemainingCredits returns the user's usable balance: the sum of
	// remaining credits over active, unexpired grant entries.
	SumRemainingCredits(ctx context.Context, userID string, now time.Time) (int64, error)

	// SumRemainingCreditsBatch returns usable balances for multiple users in
	// a single grouped query. Users with no usable credit are absent from
	// the returned map.
	SumRemainingCreditsBatch(ctx context.Context, userIDs []string, now time.Time) (map[string]int64, error)
}

// CreditWriter defines write operations outside the consumption hot path.
type CreditWriter interface {
	// SaveCredit inserts a new ledger entry. A duplicate transaction number
	// yields apperrors.ErrDuplicate.
	SaveCredit(ctx context.Context, entry domain.CreditEntry) error

	// SoftDeleteCredit stamps deleted_at and flips status to deleted.
	// Ledger rows are never physically removed.
	SoftDeleteCredit(ctx context.Context, creditID string, now time.Time) error

	// MarkExpiredCredits flips status active->expired on grant entries whose
	// expiry has passed, returning the number of rows updated. Query-time
	// predicates remain authoritative; this keeps audit listings honest.
	MarkExpiredCredits(ctx context.Context, now time.Time) (int64, error)
}

// CreditConsumptionSupport defines the transaction-scoped primitives the
// consumption engine composes. Every method takes an explicit pgx.Tx so the
// whole draw participates in one atomic transaction, possibly owned by a
// larger business operation.
type CreditConsumptionSupport interface {
	// SumRemainingCreditsInTx recomputes the usable balance inside the
	// given transaction for read-your-writes consistency.
	SumRemainingCreditsInTx(ctx context.Context, tx pgx.Tx, userID string, now time.Time) (int64, error)

	// FindConsumableCreditsForUpdate fetches up to limit active, unexpired
	// grant entries with remaining credit, ordered soonest-to-expire first
	// (never-expiring entries last), locking each fetched row.
	FindConsumableCreditsForUpdate(ctx context.Context, tx pgx.Tx, userID string, now time.Time, limit int) ([]domain.CreditEntry, error)

	// ApplyDrawsInTx decrements remaining credits on the drawn grant rows.
	ApplyDrawsInTx(ctx context.Context, tx pgx.Tx, draws []domain.ConsumedItem, now time.Time) error

	// SaveCreditInTx inserts a ledger entry within the given transaction.
	SaveCreditInTx(ctx context.Context, tx pgx.Tx, entry domain.CreditEntry) error

	// FindActiveGrantsByOrderForUpdate locks the active grant entries that
	// originated from the given order, for revocation.
	FindActiveGrantsByOrderForUpdate(ctx context.Context, tx pgx.Tx, orderNo string) ([]domain.CreditEntry, error)

	// RevokeGrantsByOrderInTx flips the order's active grants to revoked and
	// forces their remaining credits to zero.
	RevokeGrantsByOrderInTx(ctx context.Context, tx pgx.Tx, orderNo string, now time.Time) error
}

// CreditRepositoryFacade combines all credit repository interfaces.
type CreditRepositoryFacade interface {
	CreditReader
	CreditWriter
	CreditConsumptionSupport
}

// CreditRepositoryWithTx extends CreditRepositoryFacade with transaction
// management capabilities.
type CreditRepositoryWithTx interface {
	CreditRepositoryFacade
	TransactionManager
}
