package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pixamint/credit_ledger_app/internal/apperrors"
	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
	"github.com/pixamint/credit_ledger_app/internal/models"
	"github.com/pixamint/credit_ledger_app/internal/utils/mapping"
)

const creditColumns = `credit_id, user_id, user_email, order_no, subscription_no, transaction_no,
	transaction_type, transaction_scene, credits, remaining_credits, status, expires_at,
	consumed_detail, description, metadata, created_at, updated_at, deleted_at`

// consumablePredicate is the canonical "usable grant" condition. The balance
// aggregate and the FIFO scan must agree on it exactly; $1 is user_id and $2
// the reference instant.
const consumablePredicate = `user_id = $1
	  AND transaction_type = 'grant'
	  AND status = 'active'
	  AND remaining_credits > 0
	  AND (expires_at IS NULL OR expires_at > $2)`

// querier is the subset of pgx operations shared by pool and transaction so
// read helpers can run either locked or unlocked.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgxCreditRepository struct {
	BaseRepository
}

// newPgxCreditRepository creates the repository backing the credit ledger.
func newPgxCreditRepository(pool PgxPool) portsrepo.CreditRepositoryWithTx {
	return &PgxCreditRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxCreditRepository implements portsrepo.CreditRepositoryWithTx
var _ portsrepo.CreditRepositoryWithTx = (*PgxCreditRepository)(nil)

func scanCredit(row pgx.Row) (*domain.CreditEntry, error) {
	var m models.Credit
	err := row.Scan(
		&m.CreditID,
		&m.UserID,
		&m.UserEmail,
		&m.OrderNo,
		&m.SubscriptionNo,
		&m.TransactionNo,
		&m.Type,
		&m.Scene,
		&m.Credits,
		&m.Remaining,
		&m.Status,
		&m.ExpiresAt,
		&m.ConsumedDetail,
		&m.Description,
		&m.Metadata,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	entry, err := mapping.ToDomainCredit(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode credit entry "+m.CreditID, err)
	}
	return &entry, nil
}

func collectCredits(rows pgx.Rows) ([]domain.CreditEntry, error) {
	defer rows.Close()
	var entries []domain.CreditEntry
	for rows.Next() {
		entry, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func insertCredit(ctx context.Context, q querier, entry domain.CreditEntry) error {
	m, err := mapping.ToModelCredit(entry)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode credit entry "+entry.CreditID, err)
	}
	query := `
		INSERT INTO credits (` + creditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err = q.Exec(ctx, query,
		m.CreditID,
		m.UserID,
		m.UserEmail,
		m.OrderNo,
		m.SubscriptionNo,
		m.TransactionNo,
		m.Type,
		m.Scene,
		m.Credits,
		m.Remaining,
		m.Status,
		m.ExpiresAt,
		m.ConsumedDetail,
		m.Description,
		m.Metadata,
		m.CreatedAt,
		m.UpdatedAt,
		m.DeletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewAppError(409, "credit entry with transaction no "+entry.TransactionNo+" already exists", apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert credit entry "+entry.CreditID, err)
	}
	return nil
}

// SaveCredit inserts a new ledger entry.
func (r *PgxCreditRepository) SaveCredit(ctx context.Context, entry domain.CreditEntry) error {
	return insertCredit(ctx, r.Pool, entry)
}

// SaveCreditInTx inserts a new ledger entry within the given transaction.
func (r *PgxCreditRepository) SaveCreditInTx(ctx context.Context, tx pgx.Tx, entry domain.CreditEntry) error {
	return insertCredit(ctx, tx, entry)
}

// FindCreditByID retrieves a ledger entry by its identifier.
func (r *PgxCreditRepository) FindCreditByID(ctx context.Context, creditID string) (*domain.CreditEntry, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE credit_id = $1;`
	entry, err := scanCredit(r.Pool.QueryRow(ctx, query, creditID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find credit entry "+creditID, err)
	}
	return entry, nil
}

// FindCreditByTransactionNo retrieves a ledger entry by its unique
// transaction number.
func (r *PgxCreditRepository) FindCreditByTransactionNo(ctx context.Context, transactionNo string) (*domain.CreditEntry, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE transaction_no = $1;`
	entry, err := scanCredit(r.Pool.QueryRow(ctx, query, transactionNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find credit entry by transaction no "+transactionNo, err)
	}
	return entry, nil
}

// buildFilterClause assembles the WHERE clause for audit listings.
func buildFilterClause(filter portsrepo.CreditListFilter) (string, []any) {
	clause := ""
	args := make([]any, 0, 3)
	appendCond := func(cond string, val any) {
		args = append(args, val)
		if clause == "" {
			clause = "WHERE "
		} else {
			clause += " AND "
		}
		clause += fmt.Sprintf(cond, "$"+strconv.Itoa(len(args)))
	}
	if filter.UserID != "" {
		appendCond("user_id = %s", filter.UserID)
	}
	if filter.Status != "" {
		appendCond("status = %s", string(filter.Status))
	}
	if filter.Type != "" {
		appendCond("transaction_type = %s", string(filter.Type))
	}
	if filter.CreatedBefore != nil && filter.CreditIDBefore != "" {
		args = append(args, *filter.CreatedBefore, filter.CreditIDBefore)
		cond := fmt.Sprintf("(created_at, credit_id) < ($%d, $%d)", len(args)-1, len(args))
		if clause == "" {
			clause = "WHERE " + cond
		} else {
			clause += " AND " + cond
		}
	}
	return clause, args
}

// ListCredits returns a page of ledger entries, newest first.
func (r *PgxCreditRepository) ListCredits(ctx context.Context, filter portsrepo.CreditListFilter, limit int, offset int) ([]domain.CreditEntry, error) {
	clause, args := buildFilterClause(filter)
	query := fmt.Sprintf(`SELECT %s FROM credits %s ORDER BY created_at DESC, credit_id DESC LIMIT $%d OFFSET $%d;`,
		creditColumns, clause, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list credit entries", err)
	}
	entries, err := collectCredits(rows)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan credit entries", err)
	}
	return entries, nil
}

// CountCredits counts ledger entries matching the filter.
func (r *PgxCreditRepository) CountCredits(ctx context.Context, filter portsrepo.CreditListFilter) (int64, error) {
	clause, args := buildFilterClause(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM credits %s;`, clause)

	var count int64
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count credit entries", err)
	}
	return count, nil
}

func sumRemaining(ctx context.Context, q querier, userID string, now time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(remaining_credits), 0)
		FROM credits
		WHERE ` + consumablePredicate + `;`
	var total int64
	if err := q.QueryRow(ctx, query, userID, now).Scan(&total); err != nil {
		return 0, apperrors.NewAppError(500, "failed to sum remaining credits for user "+userID, err)
	}
	return total, nil
}

// SumRemainingCredits returns the user's usable balance with an unlocked read.
func (r *PgxCreditRepository) SumRemainingCredits(ctx context.Context, userID string, now time.Time) (int64, error) {
	return sumRemaining(ctx, r.Pool, userID, now)
}

// SumRemainingCreditsInTx recomputes the usable balance inside the given
// transaction, so the consumption engine acts on read-your-writes state.
func (r *PgxCreditRepository) SumRemainingCreditsInTx(ctx context.Context, tx pgx.Tx, userID string, now time.Time) (int64, error) {
	return sumRemaining(ctx, tx, userID, now)
}

// SumRemainingCreditsBatch returns usable balances for several users in one
// grouped query. Users without usable credit are absent from the map.
func (r *PgxCreditRepository) SumRemainingCreditsBatch(ctx context.Context, userIDs []string, now time.Time) (map[string]int64, error) {
	if len(userIDs) == 0 {
		return map[string]int64{}, nil
	}
	query := `
		SELECT user_id, COALESCE(SUM(remaining_credits), 0)
		FROM credits
		WHERE user_id = ANY($1)
		  AND transaction_type = 'grant'
		  AND status = 'active'
		  AND remaining_credits > 0
		  AND (expires_at IS NULL OR expires_at > $2)
		GROUP BY user_id;`
	rows, err := r.Pool.Query(ctx, query, userIDs, now)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to sum remaining credits batch", err)
	}
	defer rows.Close()

	balances := make(map[string]int64, len(userIDs))
	for rows.Next() {
		var userID string
		var total int64
		if err := rows.Scan(&userID, &total); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan remaining credits batch row", err)
		}
		balances[userID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read remaining credits batch", err)
	}
	return balances, nil
}

// FindConsumableCreditsForUpdate fetches up to limit usable grant entries in
// FIFO-by-expiration order (never-expiring entries last) and locks each
// fetched row for the duration of the transaction. Rows already drawn to zero
// within this transaction no longer match the predicate, so repeated calls
// walk the queue without an offset.
func (r *PgxCreditRepository) FindConsumableCreditsForUpdate(ctx context.Context, tx pgx.Tx, userID string, now time.Time, limit int) ([]domain.CreditEntry, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE ` + consumablePredicate + `
		ORDER BY expires_at ASC NULLS LAST, created_at ASC
		LIMIT $3
		FOR UPDATE;`
	rows, err := tx.Query(ctx, query, userID, now, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock consumable credits for user "+userID, err)
	}
	entries, err := collectCredits(rows)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan consumable credits for user "+userID, err)
	}
	return entries, nil
}

// ApplyDrawsInTx persists the remaining-credit decrements of a consumption
// page as a single batch.
func (r *PgxCreditRepository) ApplyDrawsInTx(ctx context.Context, tx pgx.Tx, draws []domain.ConsumedItem, now time.Time) error {
	if len(draws) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `UPDATE credits SET remaining_credits = $2, updated_at = $3 WHERE credit_id = $1;`
	for _, draw := range draws {
		batch.Queue(query, draw.CreditID, draw.RemainingAfter, now)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to apply consumption draws", err)
	}
	return nil
}

// FindActiveGrantsByOrderForUpdate locks the active grant entries that
// originated from the given order.
func (r *PgxCreditRepository) FindActiveGrantsByOrderForUpdate(ctx context.Context, tx pgx.Tx, orderNo string) ([]domain.CreditEntry, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE order_no = $1
		  AND transaction_type = 'grant'
		  AND status = 'active'
		FOR UPDATE;`
	rows, err := tx.Query(ctx, query, orderNo)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock grants for order "+orderNo, err)
	}
	entries, err := collectCredits(rows)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan grants for order "+orderNo, err)
	}
	return entries, nil
}

// RevokeGrantsByOrderInTx flips an order's active grants to revoked.
// Remaining credits are forced to zero so a concurrent consumption that has
// not yet locked these rows can never draw refunded credit.
func (r *PgxCreditRepository) RevokeGrantsByOrderInTx(ctx context.Context, tx pgx.Tx, orderNo string, now time.Time) error {
	query := `
		UPDATE credits
		SET status = 'revoked', remaining_credits = 0, updated_at = $2
		WHERE order_no = $1
		  AND transaction_type = 'grant'
		  AND status = 'active';`
	if _, err := tx.Exec(ctx, query, orderNo, now); err != nil {
		return apperrors.NewAppError(500, "failed to revoke grants for order "+orderNo, err)
	}
	return nil
}

// SoftDeleteCredit stamps deleted_at on a ledger entry. Rows are kept for
// audit retention, never physically removed.
func (r *PgxCreditRepository) SoftDeleteCredit(ctx context.Context, creditID string, now time.Time) error {
	query := `
		UPDATE credits
		SET status = 'deleted', deleted_at = $2, updated_at = $2
		WHERE credit_id = $1 AND deleted_at IS NULL;`
	tag, err := r.Pool.Exec(ctx, query, creditID, now)
	if err != nil {
		return apperrors.NewAppError(500, "failed to soft delete credit entry "+creditID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkExpiredCredits flips lapsed active grants to expired status.
func (r *PgxCreditRepository) MarkExpiredCredits(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE credits
		SET status = 'expired', updated_at = $1
		WHERE transaction_type = 'grant'
		  AND status = 'active'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1;`
	tag, err := r.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to mark expired credits", err)
	}
	return tag.RowsAffected(), nil
}
