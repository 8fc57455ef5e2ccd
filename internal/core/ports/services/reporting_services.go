package services

import (
	"context"
	"time"

	"github.com/pixamint/credit_ledger_app/internal/core/domain"
)

// ReportingSvc produces usage aggregates for account dashboards.
type ReportingSvc interface {
	GetUsageSummary(ctx context.Context, userID string, from time.Time, to time.Time) (*domain.UsageSummary, error)
}
