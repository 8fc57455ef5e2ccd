package repositories

import (
	"context"
	"time"

	"github.com/pixamint/credit_ledger_app/internal/core/domain"
)

// ReportingRepository defines aggregate queries for usage dashboards.
// These run outside the consumption hot path and take no locks.
type ReportingRepository interface {
	// GetUsageSummary aggregates a user's granted and consumed credits over
	// the half-open interval [from, to).
	GetUsageSummary(ctx context.Context, userID string, from time.Time, to time.Time) (*domain.UsageSummary, error)
}
