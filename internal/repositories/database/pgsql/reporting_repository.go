package pgsql

import (
	"context"
	"time"

	"github.com/pixamint/credit_ledger_app/internal/apperrors"
	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type ReportingRepository struct {
	BaseRepository
}

// newReportingRepository creates the repository behind usage dashboards.
func newReportingRepository(pool PgxPool) portsrepo.ReportingRepository {
	return &ReportingRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ReportingRepository = (*ReportingRepository)(nil)

// GetUsageSummary aggregates granted and consumed credits for a user over
// [from, to). Deleted rows are excluded; revoked and expired grants still
// count as granted for the period they were issued in.
func (r *ReportingRepository) GetUsageSummary(ctx context.Context, userID string, from time.Time, to time.Time) (*domain.UsageSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(credits) FILTER (WHERE transaction_type = 'grant'), 0),
			COUNT(*) FILTER (WHERE transaction_type = 'grant'),
			COALESCE(SUM(-credits) FILTER (WHERE transaction_type = 'consume'), 0),
			COUNT(*) FILTER (WHERE transaction_type = 'consume')
		FROM credits
		WHERE user_id = $1
		  AND status <> 'deleted'
		  AND created_at >= $2
		  AND created_at < $3;`

	summary := &domain.UsageSummary{
		UserID: userID,
		From:   from,
		To:     to,
	}
	err := r.Pool.QueryRow(ctx, query, userID, from, to).Scan(
		&summary.TotalGranted,
		&summary.GrantCount,
		&summary.TotalConsumed,
		&summary.ConsumptionCount,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to aggregate usage summary for user "+userID, err)
	}

	if summary.ConsumptionCount > 0 {
		summary.AverageConsumption = decimal.NewFromInt(summary.TotalConsumed).
			Div(decimal.NewFromInt(summary.ConsumptionCount)).
			Round(2)
	} else {
		summary.AverageConsumption = decimal.Zero
	}
	return summary, nil
}
