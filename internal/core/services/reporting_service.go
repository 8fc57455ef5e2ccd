package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pixamint/credit_ledger_app/internal/apperrors"
	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/pixamint/credit_ledger_app/internal/core/ports/services"
)

type reportingServiceImpl struct {
	BaseService
	reportingRepo portsrepo.ReportingRepository
}

// NewReportingService creates the usage reporting service.
func NewReportingService(repo portsrepo.ReportingRepository) portssvc.ReportingSvc {
	return &reportingServiceImpl{reportingRepo: repo}
}

var _ portssvc.ReportingSvc = (*reportingServiceImpl)(nil)

// GetUsageSummary aggregates a user's credit activity over [from, to).
func (s *reportingServiceImpl) GetUsageSummary(ctx context.Context, userID string, from time.Time, to time.Time) (*domain.UsageSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required: %w", apperrors.ErrValidation)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("reporting window must end after it starts: %w", apperrors.ErrValidation)
	}
	return s.reportingRepo.GetUsageSummary(ctx, userID, from, to)
}
